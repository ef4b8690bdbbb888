package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"UpWatch/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS monitors (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL,
	url               TEXT NOT NULL,
	label             TEXT NOT NULL DEFAULT '',
	frequency_minutes INTEGER NOT NULL,
	next_due_at       TIMESTAMPTZ,
	claimed           BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitors_owner ON monitors (owner_id);
CREATE INDEX IF NOT EXISTS idx_monitors_due ON monitors (claimed, next_due_at);

CREATE TABLE IF NOT EXISTS check_results (
	id          TEXT PRIMARY KEY,
	monitor_id  TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
	status_code INTEGER,
	error_text  TEXT,
	latency_ms  DOUBLE PRECISION,
	checked_at  TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_check_results_monitor ON check_results (monitor_id, checked_at DESC);
`

func NewPostgres(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.GetDSN())
	if err != nil {
		log.Error("failed to open connection to postgres", "error", err)
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		log.Error("failed to ping database", "error", err)
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	if _, err = pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
	}

	log.Info("connected to postgres database")
	return pool, nil
}
