package services

import (
	"context"
	"log/slog"
	"time"

	"UpWatch/internal/backend/auth"
	"UpWatch/internal/backend/models"
	"UpWatch/internal/backend/storage"
	"UpWatch/internal/metrics"
	"UpWatch/internal/probe"
	shared "UpWatch/internal/shared/models"
)

// ResultEventsChannel carries one event per recorded result.
const ResultEventsChannel = "check_results"

// RecorderService closes claims: it records an outcome, releases the
// lease and schedules the next run. Failed checks are ordinary results
// and advance the schedule exactly like successes.
type RecorderService struct {
	monitorStore storage.MonitorStore
	resultStore  storage.ResultStore
	events       storage.EventBus
	prober       *probe.Prober
	logger       *slog.Logger
}

func NewRecorderService(
	monitorStore storage.MonitorStore,
	resultStore storage.ResultStore,
	events storage.EventBus,
	prober *probe.Prober,
	logger *slog.Logger,
) *RecorderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecorderService{
		monitorStore: monitorStore,
		resultStore:  resultStore,
		events:       events,
		prober:       prober,
		logger:       logger,
	}
}

// Record closes the claim on a monitor with a caller-supplied outcome.
func (s *RecorderService) Record(ctx context.Context, caller auth.Caller, req shared.ResultRequest) (*models.CheckResult, error) {
	monitor, err := s.loadAccessible(ctx, caller, req.MonitorID)
	if err != nil {
		return nil, err
	}

	result := &models.CheckResult{
		MonitorID:  monitor.ID,
		StatusCode: req.StatusCode,
		ErrorText:  req.ErrorText,
		LatencyMS:  req.LatencyMS,
	}
	if req.CheckedAt != nil {
		result.CheckedAt = *req.CheckedAt
	}

	return s.record(ctx, result)
}

// Execute claims the monitor, probes its URL with a bounded timeout and
// records whatever came back. Owner/admin convenience path; workers
// report through Record instead.
func (s *RecorderService) Execute(ctx context.Context, caller auth.Caller, monitorID string) (*models.CheckResult, error) {
	if caller.IsWorker() {
		return nil, ErrAccessDenied
	}

	monitor, err := s.loadAccessible(ctx, caller, monitorID)
	if err != nil {
		return nil, err
	}

	if err := s.monitorStore.Claim(ctx, monitor.ID, time.Now()); err != nil {
		return nil, err
	}
	metrics.RecordClaim()

	// The probe deadline stays strictly below the check interval so the
	// lease is always released before the monitor can come due again.
	timeout := s.prober.Timeout()
	if limit := monitor.Frequency() - time.Second; timeout > limit {
		timeout = limit
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Debug("probing monitor", "monitor_id", monitor.ID, "url", monitor.URL, "timeout", timeout)
	observed := s.prober.Probe(probeCtx, monitor.URL)

	result := &models.CheckResult{
		MonitorID:  monitor.ID,
		StatusCode: observed.StatusCode,
		ErrorText:  observed.ErrorText,
		LatencyMS:  observed.LatencyMS,
		CheckedAt:  time.Now(),
	}

	return s.record(ctx, result)
}

func (s *RecorderService) record(ctx context.Context, result *models.CheckResult) (*models.CheckResult, error) {
	saved, err := s.resultStore.Record(ctx, result)
	metrics.RecordStoreOperation("record_result", err)
	if err != nil {
		s.logger.Error("failed to record check result", "error", err, "monitor_id", result.MonitorID)
		return nil, err
	}

	var latency time.Duration
	if saved.LatencyMS != nil {
		latency = time.Duration(*saved.LatencyMS * float64(time.Millisecond))
	}
	metrics.RecordCheck(saved.ErrorText != nil, latency)

	s.logger.Info("check result recorded",
		"monitor_id", saved.MonitorID,
		"result_id", saved.ID,
		"status_code", saved.StatusCode,
		"failed", saved.ErrorText != nil,
	)

	s.publish(ctx, saved)
	return saved, nil
}

// publish is best-effort: the result is durable already, a dead bus must
// not fail the recording.
func (s *RecorderService) publish(ctx context.Context, result *models.CheckResult) {
	if s.events == nil {
		return
	}

	event := shared.ResultEvent{
		ResultID:   result.ID,
		MonitorID:  result.MonitorID,
		StatusCode: result.StatusCode,
		ErrorText:  result.ErrorText,
		LatencyMS:  result.LatencyMS,
		CheckedAt:  result.CheckedAt,
	}
	if err := s.events.Publish(ctx, ResultEventsChannel, event); err != nil {
		s.logger.Warn("failed to publish result event", "error", err, "result_id", result.ID)
	}
}

func (s *RecorderService) loadAccessible(ctx context.Context, caller auth.Caller, id string) (*models.Monitor, error) {
	if caller.CanBypassOwnership() {
		return s.monitorStore.GetByID(ctx, id)
	}
	return s.monitorStore.GetOwned(ctx, id, caller.UserID)
}
