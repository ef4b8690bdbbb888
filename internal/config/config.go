package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Security SecurityConfig `mapstructure:"security"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite only
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SecurityConfig struct {
	// WorkerAPIKeys classify callers presenting one of these keys as
	// trusted workers.
	WorkerAPIKeys []string `mapstructure:"worker_api_keys"`
}

type WorkerConfig struct {
	BackendURL   string        `mapstructure:"backend_url"`
	APIKey       string        `mapstructure:"api_key"`
	Batch        int           `mapstructure:"batch"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	Concurrency  int           `mapstructure:"concurrency"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var errViper viper.ConfigFileNotFoundError
		if errors.As(err, &errViper) {
			slog.Warn("config file not found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "upwatch")
	viper.SetDefault("app.version", "1.0.0")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "upwatch")
	viper.SetDefault("database.password", "upwatch")
	viper.SetDefault("database.dbname", "upwatch")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.path", "upwatch.db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("security.worker_api_keys", []string{})

	viper.SetDefault("worker.backend_url", "http://localhost:8080")
	viper.SetDefault("worker.batch", 10)
	viper.SetDefault("worker.poll_interval", "5s")
	viper.SetDefault("worker.probe_timeout", "15s")
	viper.SetDefault("worker.concurrency", 4)
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}

	if cfg.Server.Mode != "debug" && cfg.Server.Mode != "release" {
		return fmt.Errorf("invalid server mode %s", cfg.Server.Mode)
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" {
			return errors.New("database host is required")
		}
		if cfg.Database.DBName == "" {
			return errors.New("database name is required")
		}
	case "sqlite":
		if cfg.Database.Path == "" {
			return errors.New("sqlite database path is required")
		}
	default:
		return fmt.Errorf("unknown database driver %s", cfg.Database.Driver)
	}

	if cfg.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	if len(cfg.Security.WorkerAPIKeys) == 0 {
		slog.Warn("no worker api keys configured - claim endpoints will reject all workers")
	}

	if cfg.Worker.Batch < 1 || cfg.Worker.Batch > 50 {
		return fmt.Errorf("worker batch must be in 1..50, got %d", cfg.Worker.Batch)
	}

	if cfg.Worker.ProbeTimeout <= 0 {
		return errors.New("worker probe timeout must be positive")
	}

	return nil
}

// GetDSN returns the postgres connection string.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// GetRedisOptions returns client options for the event bus.
func (r *RedisConfig) GetRedisOptions() *redis.Options {
	return &redis.Options{
		Addr:            r.Addr,
		Password:        r.Password,
		DB:              r.DB,
		DisableIdentity: true,
	}
}
