package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"UpWatch/internal/config"
	"UpWatch/internal/probe"
	"UpWatch/internal/worker"
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

	if cfg.Worker.APIKey == "" {
		log.Error("worker api key is not configured")
		os.Exit(1)
	}

	log.Info("starting worker",
		"backend_url", cfg.Worker.BackendURL,
		"batch", cfg.Worker.Batch,
	)

	client := worker.NewAPIClient(cfg.Worker.BackendURL, cfg.Worker.APIKey)
	prober := probe.New(cfg.Worker.ProbeTimeout)

	w := worker.New(client, prober, log.With("component", "worker"), worker.Options{
		Batch:        cfg.Worker.Batch,
		PollInterval: cfg.Worker.PollInterval,
		Concurrency:  cfg.Worker.Concurrency,
	})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutdown signal received")
		cancel()
	}()

	w.Run(ctx)
}
