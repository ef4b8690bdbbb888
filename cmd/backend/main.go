package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"UpWatch/internal/backend/dependencies"
	"UpWatch/internal/backend/server"
	"UpWatch/internal/config"
	"UpWatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("failed to load config: %s", err)
	}

	log := logger.Setup(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	log.Info("starting backend",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	container, err := dependencies.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create dependency container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	srv := server.New(&server.Config{
		Port: cfg.Server.Port,
		Mode: cfg.Server.Mode,
	}, container)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}
