package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"UpWatch/internal/backend/models"
	shared "UpWatch/internal/shared/models"
	"UpWatch/pkg/uuidutil"
)

const monitorColumns = `id, owner_id, url, label, frequency_minutes, next_due_at, claimed, created_at, updated_at`

type monitorStore struct {
	pool *pgxpool.Pool
}

func NewMonitorStore(pool *pgxpool.Pool) MonitorStore {
	return &monitorStore{pool: pool}
}

func (s *monitorStore) Create(ctx context.Context, monitor *models.Monitor) error {
	monitor.ID = uuidutil.New()
	monitor.Claimed = false
	monitor.CreatedAt = time.Now()
	monitor.UpdatedAt = monitor.CreatedAt

	query := `INSERT INTO monitors (` + monitorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		monitor.ID,
		monitor.OwnerID,
		monitor.URL,
		monitor.Label,
		monitor.FrequencyMinutes,
		monitor.NextDueAt,
		monitor.Claimed,
		monitor.CreatedAt,
		monitor.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	return nil
}

func (s *monitorStore) GetByID(ctx context.Context, id string) (*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, id))
}

func (s *monitorStore) GetOwned(ctx context.Context, id, ownerID string) (*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE id = $1 AND owner_id = $2`
	return s.scanOne(s.pool.QueryRow(ctx, query, id, ownerID))
}

func (s *monitorStore) ListByOwner(ctx context.Context, ownerID string) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE owner_id = $1 ORDER BY id`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitors by owner: %w", err)
	}
	defer rows.Close()

	return s.scanMonitors(rows)
}

func (s *monitorStore) ListAll(ctx context.Context) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitors: %w", err)
	}
	defer rows.Close()

	return s.scanMonitors(rows)
}

// Never-checked monitors sort first, then oldest due time, id last.
const dueQuery = `
	SELECT ` + monitorColumns + `
	FROM monitors
	WHERE claimed = FALSE AND (next_due_at IS NULL OR next_due_at <= $1)
	ORDER BY next_due_at ASC NULLS FIRST, id ASC
	LIMIT $2`

func (s *monitorStore) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Monitor, error) {
	rows, err := s.pool.Query(ctx, dueQuery, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due monitors: %w", err)
	}
	defer rows.Close()

	return s.scanMonitors(rows)
}

func (s *monitorStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]shared.ClaimTicket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// SKIP LOCKED keeps concurrent claimers from blocking on each other's
	// rows; each locked row belongs to exactly one transaction.
	rows, err := tx.Query(ctx, dueQuery+` FOR UPDATE SKIP LOCKED`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due monitors: %w", err)
	}

	var tickets []shared.ClaimTicket
	var ids []string
	for rows.Next() {
		monitor, err := scanMonitorRow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, monitor.ID)
		tickets = append(tickets, shared.ClaimTicket{
			MonitorID: monitor.ID,
			URL:       monitor.URL,
			Label:     monitor.Label,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due monitors: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE monitors SET claimed = TRUE, updated_at = $1 WHERE id = ANY($2)`,
		now, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark monitors claimed: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return nil, fmt.Errorf("claimed %d of %d selected monitors", tag.RowsAffected(), len(ids))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", err)
	}

	return tickets, nil
}

func (s *monitorStore) Claim(ctx context.Context, id string, now time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE monitors SET claimed = TRUE, updated_at = $1 WHERE id = $2 AND claimed = FALSE`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to claim monitor %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either the lease is held or the monitor is gone.
	var claimed bool
	err = s.pool.QueryRow(ctx, `SELECT claimed FROM monitors WHERE id = $1`, id).Scan(&claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect monitor %s: %w", id, err)
	}
	return ErrAlreadyClaimed
}

func (s *monitorStore) ListClaimed(ctx context.Context, limit int) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + `
		FROM monitors
		WHERE claimed = TRUE
		ORDER BY updated_at ASC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query claimed monitors: %w", err)
	}
	defer rows.Close()

	return s.scanMonitors(rows)
}

func (s *monitorStore) Update(ctx context.Context, monitor *models.Monitor) error {
	monitor.UpdatedAt = time.Now()

	query := `UPDATE monitors
		SET url = $1, label = $2, frequency_minutes = $3, next_due_at = $4, updated_at = $5
		WHERE id = $6`

	tag, err := s.pool.Exec(ctx, query,
		monitor.URL,
		monitor.Label,
		monitor.FrequencyMinutes,
		monitor.NextDueAt,
		monitor.UpdatedAt,
		monitor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update monitor %s: %w", monitor.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *monitorStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete monitor %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *monitorStore) scanOne(row pgx.Row) (*models.Monitor, error) {
	monitor, err := scanMonitor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return monitor, err
}

func (s *monitorStore) scanMonitors(rows pgx.Rows) ([]*models.Monitor, error) {
	var monitors []*models.Monitor
	for rows.Next() {
		monitor, err := scanMonitorRow(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, monitor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monitor rows: %w", err)
	}
	return monitors, nil
}

func scanMonitorRow(rows pgx.Rows) (*models.Monitor, error) {
	monitor, err := scanMonitor(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan monitor row: %w", err)
	}
	return monitor, nil
}

func scanMonitor(row pgx.Row) (*models.Monitor, error) {
	var monitor models.Monitor
	err := row.Scan(
		&monitor.ID,
		&monitor.OwnerID,
		&monitor.URL,
		&monitor.Label,
		&monitor.FrequencyMinutes,
		&monitor.NextDueAt,
		&monitor.Claimed,
		&monitor.CreatedAt,
		&monitor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &monitor, nil
}
