package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"UpWatch/internal/backend/auth"
	"UpWatch/internal/backend/storage"
	"UpWatch/internal/metrics"
	shared "UpWatch/internal/shared/models"
)

const (
	minClaimBatch = 1
	maxClaimBatch = 50
)

// SchedulerService hands exclusive claim tickets for due monitors to
// trusted workers.
type SchedulerService struct {
	monitorStore storage.MonitorStore
	logger       *slog.Logger
}

func NewSchedulerService(monitorStore storage.MonitorStore, logger *slog.Logger) *SchedulerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulerService{monitorStore: monitorStore, logger: logger}
}

func clampBatch(limit int) int {
	if limit < minClaimBatch {
		return minClaimBatch
	}
	if limit > maxClaimBatch {
		return maxClaimBatch
	}
	return limit
}

// ClaimNext atomically claims up to limit due monitors and returns their
// tickets in due order. An empty due set yields an empty batch, not an
// error; a store failure aborts the whole batch with no claims leaked.
func (s *SchedulerService) ClaimNext(ctx context.Context, caller auth.Caller, limit int) ([]shared.ClaimTicket, error) {
	if !caller.IsWorker() {
		return nil, ErrAccessDenied
	}

	limit = clampBatch(limit)
	now := time.Now()

	tickets, err := s.monitorStore.ClaimDue(ctx, now, limit)
	metrics.RecordStoreOperation("claim_due", err)
	if err != nil {
		s.logger.Error("failed to claim due monitors", "error", err, "limit", limit)
		return nil, fmt.Errorf("failed to claim due monitors: %w", err)
	}

	metrics.RecordClaimBatch(len(tickets))
	if len(tickets) > 0 {
		s.logger.Info("claimed due monitors", "count", len(tickets), "limit", limit)
	}
	if tickets == nil {
		tickets = []shared.ClaimTicket{}
	}
	return tickets, nil
}

// ListPending returns in-flight claims as tickets, oldest claim first, so
// operators can spot leases a crashed worker left behind.
func (s *SchedulerService) ListPending(ctx context.Context, caller auth.Caller, limit int) ([]shared.ClaimTicket, error) {
	if !caller.IsWorker() {
		return nil, ErrAccessDenied
	}

	limit = clampBatch(limit)
	monitors, err := s.monitorStore.ListClaimed(ctx, limit)
	metrics.RecordStoreOperation("list_claimed", err)
	if err != nil {
		s.logger.Error("failed to list claimed monitors", "error", err)
		return nil, fmt.Errorf("failed to list claimed monitors: %w", err)
	}

	tickets := make([]shared.ClaimTicket, 0, len(monitors))
	for _, monitor := range monitors {
		tickets = append(tickets, shared.ClaimTicket{
			MonitorID: monitor.ID,
			URL:       monitor.URL,
			Label:     monitor.Label,
		})
	}
	return tickets, nil
}
