package handlers

import (
	"log/slog"

	"UpWatch/internal/backend/auth"
	"UpWatch/internal/backend/dependencies"
	"UpWatch/internal/backend/services"
	"UpWatch/internal/backend/storage"
)

type Handlers struct {
	monitorService   *services.MonitorService
	schedulerService *services.SchedulerService
	recorderService  *services.RecorderService
	gate             auth.Gate
	events           storage.EventBus
	logger           *slog.Logger
}

func NewHandlers(container *dependencies.Container) *Handlers {
	return &Handlers{
		monitorService:   container.MonitorService,
		schedulerService: container.SchedulerService,
		recorderService:  container.RecorderService,
		gate:             container.Gate,
		events:           container.Events,
		logger:           slog.Default(),
	}
}
