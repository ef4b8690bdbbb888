package dependencies

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"UpWatch/internal/backend/auth"
	"UpWatch/internal/backend/services"
	"UpWatch/internal/backend/storage"
	"UpWatch/internal/backend/storage/sqlite"
	"UpWatch/internal/config"
	"UpWatch/internal/probe"
)

// Container wires every backend dependency.
type Container struct {
	// Config
	Config *config.Config

	// Logger
	Logger *slog.Logger

	// Storage
	MonitorStore storage.MonitorStore
	ResultStore  storage.ResultStore
	Events       storage.EventBus

	// Access gate
	Gate auth.Gate

	// Services
	MonitorService   *services.MonitorService
	SchedulerService *services.SchedulerService
	RecorderService  *services.RecorderService

	// Connections
	DB     *pgxpool.Pool
	SQLite *sqlite.Store
}

// NewContainer creates and initializes the dependency container.
func NewContainer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: log,
	}

	if err := container.initStorage(ctx); err != nil {
		return nil, err
	}

	if err := container.initEvents(); err != nil {
		return nil, err
	}

	container.initServices()

	log.Info("dependency container initialized", "driver", cfg.Database.Driver)
	return container, nil
}

func (c *Container) initStorage(ctx context.Context) error {
	switch c.Config.Database.Driver {
	case "postgres":
		pool, err := storage.NewPostgres(ctx, &c.Config.Database, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = pool
		c.MonitorStore = storage.NewMonitorStore(pool)
		c.ResultStore = storage.NewResultStore(pool)
	case "sqlite":
		store, err := sqlite.New(ctx, c.Config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		c.SQLite = store
		c.MonitorStore = store
		c.ResultStore = store
	default:
		return fmt.Errorf("unknown database driver %s", c.Config.Database.Driver)
	}
	return nil
}

func (c *Container) initEvents() error {
	events, err := storage.NewRedisEventBus(&c.Config.Redis, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.Events = events
	return nil
}

func (c *Container) initServices() {
	logger := c.Logger

	c.Gate = auth.NewHeaderGate(c.Config.Security.WorkerAPIKeys)

	c.MonitorService = services.NewMonitorService(
		c.MonitorStore,
		c.ResultStore,
		logger.With("service", "monitor"),
	)

	c.SchedulerService = services.NewSchedulerService(
		c.MonitorStore,
		logger.With("service", "scheduler"),
	)

	c.RecorderService = services.NewRecorderService(
		c.MonitorStore,
		c.ResultStore,
		c.Events,
		probe.New(c.Config.Worker.ProbeTimeout),
		logger.With("service", "recorder"),
	)
}

// Close releases every held connection.
func (c *Container) Close() error {
	var errs []error

	if c.DB != nil {
		c.DB.Close()
	}

	if c.SQLite != nil {
		if err := c.SQLite.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
