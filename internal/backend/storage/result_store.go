package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"UpWatch/internal/backend/models"
	"UpWatch/pkg/uuidutil"
)

const resultColumns = `id, monitor_id, status_code, error_text, latency_ms, checked_at, created_at`

type resultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) ResultStore {
	return &resultStore{pool: pool}
}

// Record inserts the result and releases the monitor's claim in a single
// transaction, so a failed insert can never leave the monitor claimed
// without an outcome or vice versa.
func (s *resultStore) Record(ctx context.Context, result *models.CheckResult) (*models.CheckResult, error) {
	now := time.Now()
	if result.CheckedAt.IsZero() {
		result.CheckedAt = now
	}
	result.ID = uuidutil.New()
	result.CreatedAt = now

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin record transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var frequencyMinutes int
	var claimed bool
	err = tx.QueryRow(ctx,
		`SELECT frequency_minutes, claimed FROM monitors WHERE id = $1 FOR UPDATE`,
		result.MonitorID,
	).Scan(&frequencyMinutes, &claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock monitor %s: %w", result.MonitorID, err)
	}
	if !claimed {
		return nil, ErrNotClaimed
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO check_results (`+resultColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.ID,
		result.MonitorID,
		result.StatusCode,
		result.ErrorText,
		result.LatencyMS,
		result.CheckedAt,
		result.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert check result: %w", err)
	}

	nextDue := result.CheckedAt.Add(time.Duration(frequencyMinutes) * time.Minute)
	_, err = tx.Exec(ctx,
		`UPDATE monitors SET claimed = FALSE, next_due_at = $1, updated_at = $2 WHERE id = $3`,
		nextDue, now, result.MonitorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule monitor %s: %w", result.MonitorID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit record transaction: %w", err)
	}

	return result, nil
}

func (s *resultStore) GetResult(ctx context.Context, id string) (*models.CheckResult, error) {
	query := `SELECT ` + resultColumns + ` FROM check_results WHERE id = $1`

	result, err := scanResult(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check result %s: %w", id, err)
	}
	return result, nil
}

func (s *resultStore) ListByMonitor(ctx context.Context, monitorID string, limit int) ([]*models.CheckResult, error) {
	query := `SELECT ` + resultColumns + `
		FROM check_results
		WHERE monitor_id = $1
		ORDER BY checked_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query check results: %w", err)
	}
	defer rows.Close()

	var results []*models.CheckResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}

	return results, nil
}

func scanResult(row pgx.Row) (*models.CheckResult, error) {
	var result models.CheckResult
	err := row.Scan(
		&result.ID,
		&result.MonitorID,
		&result.StatusCode,
		&result.ErrorText,
		&result.LatencyMS,
		&result.CheckedAt,
		&result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
