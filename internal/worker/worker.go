package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"UpWatch/internal/probe"
	"UpWatch/internal/shared/constants"
	shared "UpWatch/internal/shared/models"
)

const errorDelay = 5 * time.Second

// Worker polls the backend for due monitors, probes them and reports the
// outcomes.
type Worker struct {
	client       *APIClient
	prober       *probe.Prober
	logger       *slog.Logger
	batch        int
	pollInterval time.Duration
	concurrency  int
}

type Options struct {
	Batch        int
	PollInterval time.Duration
	Concurrency  int
}

func New(client *APIClient, prober *probe.Prober, logger *slog.Logger, opts Options) *Worker {
	if opts.Batch < 1 {
		opts.Batch = constants.DefaultClaimBatch
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.DefaultPollInterval
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Worker{
		client:       client,
		prober:       prober,
		logger:       logger,
		batch:        opts.Batch,
		pollInterval: opts.PollInterval,
		concurrency:  opts.Concurrency,
	}
}

// Run loops until the context is cancelled. An empty claim batch sleeps
// the poll interval; a failed claim backs off before retrying.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started",
		"batch", w.batch,
		"poll_interval", w.pollInterval,
		"concurrency", w.concurrency,
	)

	for {
		if err := sleep(ctx, w.runOnce(ctx)); err != nil {
			w.logger.Info("worker stopped")
			return
		}
	}
}

// runOnce claims one batch and probes it, returning how long to wait
// before the next claim.
func (w *Worker) runOnce(ctx context.Context) time.Duration {
	tickets, err := w.client.Claim(ctx, w.batch)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		w.logger.Error("failed to claim checks", "error", err)
		return errorDelay
	}

	if len(tickets) == 0 {
		return w.pollInterval
	}

	w.logger.Debug("claimed checks", "count", len(tickets))
	w.processBatch(ctx, tickets)
	return 0
}

// processBatch probes the claimed monitors with bounded concurrency.
// Every ticket gets a result submission, even on probe failure, so the
// claim never stays held longer than one probe timeout.
func (w *Worker) processBatch(ctx context.Context, tickets []shared.ClaimTicket) {
	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup

	for _, ticket := range tickets {
		wg.Add(1)
		sem <- struct{}{}
		go func(t shared.ClaimTicket) {
			defer wg.Done()
			defer func() { <-sem }()
			w.processTicket(ctx, t)
		}(ticket)
	}

	wg.Wait()
}

func (w *Worker) processTicket(ctx context.Context, ticket shared.ClaimTicket) {
	probeCtx, cancel := context.WithTimeout(ctx, w.prober.Timeout())
	defer cancel()

	checkedAt := time.Now().UTC()
	outcome := w.prober.Probe(probeCtx, ticket.URL)

	result := shared.ResultRequest{
		MonitorID:  ticket.MonitorID,
		StatusCode: outcome.StatusCode,
		ErrorText:  outcome.ErrorText,
		LatencyMS:  outcome.LatencyMS,
		CheckedAt:  &checkedAt,
	}

	if err := w.client.SubmitResult(ctx, result); err != nil {
		w.logger.Error("failed to submit result",
			"monitor_id", ticket.MonitorID,
			"error", err,
		)
		return
	}

	if outcome.StatusCode != nil {
		w.logger.Info("check completed",
			"monitor_id", ticket.MonitorID,
			"status", *outcome.StatusCode,
		)
	} else {
		w.logger.Info("check failed",
			"monitor_id", ticket.MonitorID,
			"error", derefOr(outcome.ErrorText, "unknown"),
		)
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// sleep waits for d or until the context ends. A zero duration still
// checks for cancellation once.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
