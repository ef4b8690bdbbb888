package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"UpWatch/internal/backend/auth"
	"UpWatch/internal/backend/models"
	"UpWatch/internal/backend/storage"
	"UpWatch/pkg/validator"
)

const defaultRecentResults = 10

// MonitorParams carries owner-editable monitor fields.
type MonitorParams struct {
	URL              string `json:"url"`
	Label            string `json:"label"`
	FrequencyMinutes int    `json:"frequency_minutes"`
}

type MonitorService struct {
	monitorStore storage.MonitorStore
	resultStore  storage.ResultStore
	logger       *slog.Logger
}

func NewMonitorService(
	monitorStore storage.MonitorStore,
	resultStore storage.ResultStore,
	logger *slog.Logger,
) *MonitorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MonitorService{
		monitorStore: monitorStore,
		resultStore:  resultStore,
		logger:       logger,
	}
}

func validateParams(params MonitorParams) error {
	if !validator.ValidateURL(params.URL) {
		return fmt.Errorf("%w: invalid url", ErrValidation)
	}
	if !validator.ValidateLabel(params.Label) {
		return fmt.Errorf("%w: invalid label", ErrValidation)
	}
	if !validator.ValidateFrequency(params.FrequencyMinutes) {
		return fmt.Errorf("%w: frequency must be 1..1440 minutes", ErrValidation)
	}
	return nil
}

// Create registers a new monitor for the calling owner. Fresh monitors
// start idle with their first check one interval out.
func (s *MonitorService) Create(ctx context.Context, caller auth.Caller, params MonitorParams) (*models.Monitor, error) {
	if caller.IsWorker() {
		return nil, ErrAccessDenied
	}
	if err := validateParams(params); err != nil {
		s.logger.Warn("rejected monitor create", "error", err, "url", params.URL)
		return nil, err
	}

	nextDue := time.Now().Add(time.Duration(params.FrequencyMinutes) * time.Minute)
	monitor := &models.Monitor{
		OwnerID:          caller.UserID,
		URL:              params.URL,
		Label:            params.Label,
		FrequencyMinutes: params.FrequencyMinutes,
		NextDueAt:        &nextDue,
	}

	if err := s.monitorStore.Create(ctx, monitor); err != nil {
		s.logger.Error("failed to create monitor", "error", err, "url", params.URL)
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}

	s.logger.Info("monitor created",
		"monitor_id", monitor.ID,
		"owner_id", monitor.OwnerID,
		"url", monitor.URL,
	)
	return monitor, nil
}

// Get returns the monitor with its recent results.
func (s *MonitorService) Get(ctx context.Context, caller auth.Caller, id string) (*models.MonitorWithResults, error) {
	monitor, err := s.loadAccessible(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	results, err := s.resultStore.ListByMonitor(ctx, monitor.ID, defaultRecentResults)
	if err != nil {
		return nil, fmt.Errorf("failed to get monitor results: %w", err)
	}

	return &models.MonitorWithResults{Monitor: monitor, Results: results}, nil
}

// List returns the caller's monitors, or every monitor for admins, id
// ascending.
func (s *MonitorService) List(ctx context.Context, caller auth.Caller) ([]*models.Monitor, error) {
	if caller.IsWorker() {
		return nil, ErrAccessDenied
	}
	if caller.IsAdmin() {
		return s.monitorStore.ListAll(ctx)
	}
	return s.monitorStore.ListByOwner(ctx, caller.UserID)
}

// Update edits url/label/frequency. The claim flag is never touched here;
// next_due_at is seeded only when the monitor has never been scheduled.
func (s *MonitorService) Update(ctx context.Context, caller auth.Caller, id string, params MonitorParams) (*models.Monitor, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	monitor, err := s.loadAccessible(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	monitor.URL = params.URL
	monitor.Label = params.Label
	monitor.FrequencyMinutes = params.FrequencyMinutes
	if monitor.NextDueAt == nil {
		nextDue := time.Now().Add(monitor.Frequency())
		monitor.NextDueAt = &nextDue
	}

	if err := s.monitorStore.Update(ctx, monitor); err != nil {
		s.logger.Error("failed to update monitor", "error", err, "monitor_id", id)
		return nil, fmt.Errorf("failed to update monitor: %w", err)
	}

	s.logger.Info("monitor updated", "monitor_id", id)
	return monitor, nil
}

// Delete removes the monitor; its check results cascade away with it.
func (s *MonitorService) Delete(ctx context.Context, caller auth.Caller, id string) error {
	monitor, err := s.loadAccessible(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := s.monitorStore.Delete(ctx, monitor.ID); err != nil {
		s.logger.Error("failed to delete monitor", "error", err, "monitor_id", id)
		return fmt.Errorf("failed to delete monitor: %w", err)
	}

	s.logger.Info("monitor deleted", "monitor_id", id, "url", monitor.URL)
	return nil
}

// Results lists recent check results for a monitor the caller may see.
func (s *MonitorService) Results(ctx context.Context, caller auth.Caller, id string, limit int) ([]*models.CheckResult, error) {
	if limit < 1 || limit > 100 {
		limit = defaultRecentResults
	}

	monitor, err := s.loadAccessible(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	return s.resultStore.ListByMonitor(ctx, monitor.ID, limit)
}

// loadAccessible resolves a monitor under the caller's capability. Owners
// see only their own rows; a miss and a foreign row are the same NotFound.
func (s *MonitorService) loadAccessible(ctx context.Context, caller auth.Caller, id string) (*models.Monitor, error) {
	if caller.IsWorker() {
		return nil, ErrAccessDenied
	}
	if caller.CanBypassOwnership() {
		return s.monitorStore.GetByID(ctx, id)
	}
	return s.monitorStore.GetOwned(ctx, id, caller.UserID)
}
