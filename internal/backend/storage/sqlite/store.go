package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"UpWatch/internal/backend/models"
	"UpWatch/internal/backend/storage"
	shared "UpWatch/internal/shared/models"
	"UpWatch/pkg/uuidutil"
)

// Store implements storage.MonitorStore and storage.ResultStore on a
// single sqlite database. The connection pool is capped at one writer, so
// every transaction serializes; that single-writer point is what makes
// the claim transition atomic without row locks.
type Store struct {
	db *sql.DB
}

var _ storage.MonitorStore = (*Store)(nil)
var _ storage.ResultStore = (*Store)(nil)

func New(ctx context.Context, path string) (*Store, error) {
	// _txlock=immediate makes every transaction take the write lock up
	// front, so claim transactions can never upgrade-deadlock.
	dsn := fmt.Sprintf("%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS monitors (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL,
	url               TEXT NOT NULL,
	label             TEXT NOT NULL DEFAULT '',
	frequency_minutes INTEGER NOT NULL,
	next_due_at       INTEGER,
	claimed           INTEGER NOT NULL DEFAULT 0,
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitors_owner ON monitors (owner_id);
CREATE INDEX IF NOT EXISTS idx_monitors_due ON monitors (claimed, next_due_at);

CREATE TABLE IF NOT EXISTS check_results (
	id          TEXT PRIMARY KEY,
	monitor_id  TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
	status_code INTEGER,
	error_text  TEXT,
	latency_ms  REAL,
	checked_at  INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_check_results_monitor ON check_results (monitor_id, checked_at DESC);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Timestamps are stored as unix nanoseconds so SQL comparisons and
// ordering stay exact.
func toNS(t time.Time) int64 { return t.UnixNano() }

func fromNS(ns int64) time.Time { return time.Unix(0, ns).UTC() }

func toNullNS(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullNS(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := fromNS(ns.Int64)
	return &t
}

const monitorColumns = `id, owner_id, url, label, frequency_minutes, next_due_at, claimed, created_at, updated_at`

func (s *Store) Create(ctx context.Context, monitor *models.Monitor) error {
	monitor.ID = uuidutil.New()
	monitor.Claimed = false
	monitor.CreatedAt = time.Now().UTC()
	monitor.UpdatedAt = monitor.CreatedAt

	query := `INSERT INTO monitors (` + monitorColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		monitor.ID,
		monitor.OwnerID,
		monitor.URL,
		monitor.Label,
		monitor.FrequencyMinutes,
		toNullNS(monitor.NextDueAt),
		monitor.Claimed,
		toNS(monitor.CreatedAt),
		toNS(monitor.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMonitor(row rowScanner) (*models.Monitor, error) {
	var monitor models.Monitor
	var nextDue sql.NullInt64
	var createdNS, updatedNS int64

	err := row.Scan(
		&monitor.ID,
		&monitor.OwnerID,
		&monitor.URL,
		&monitor.Label,
		&monitor.FrequencyMinutes,
		&nextDue,
		&monitor.Claimed,
		&createdNS,
		&updatedNS,
	)
	if err != nil {
		return nil, err
	}

	monitor.NextDueAt = fromNullNS(nextDue)
	monitor.CreatedAt = fromNS(createdNS)
	monitor.UpdatedAt = fromNS(updatedNS)
	return &monitor, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE id = ?`
	monitor, err := scanMonitor(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monitor %s: %w", id, err)
	}
	return monitor, nil
}

func (s *Store) GetOwned(ctx context.Context, id, ownerID string) (*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE id = ? AND owner_id = ?`
	monitor, err := scanMonitor(s.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get owned monitor %s: %w", id, err)
	}
	return monitor, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE owner_id = ? ORDER BY id`
	return s.queryMonitors(ctx, query, ownerID)
}

func (s *Store) ListAll(ctx context.Context) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors ORDER BY id`
	return s.queryMonitors(ctx, query)
}

const dueQuery = `
	SELECT ` + monitorColumns + `
	FROM monitors
	WHERE claimed = 0 AND (next_due_at IS NULL OR next_due_at <= ?)
	ORDER BY next_due_at IS NOT NULL, next_due_at ASC, id ASC
	LIMIT ?`

func (s *Store) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Monitor, error) {
	return s.queryMonitors(ctx, dueQuery, toNS(now), limit)
}

func (s *Store) ClaimDue(ctx context.Context, now time.Time, limit int) ([]shared.ClaimTicket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, dueQuery, toNS(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due monitors: %w", err)
	}

	var tickets []shared.ClaimTicket
	for rows.Next() {
		monitor, err := scanMonitor(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan due monitor: %w", err)
		}
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

	for _, ticket := range tickets {
		res, err := tx.ExecContext(ctx,
			`UPDATE monitors SET claimed = 1, updated_at = ? WHERE id = ? AND claimed = 0`,
			toNS(now), ticket.MonitorID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to mark monitor %s claimed: %w", ticket.MonitorID, err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return nil, fmt.Errorf("monitor %s claimed out from under the batch", ticket.MonitorID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", err)
	}
	return tickets, nil
}

func (s *Store) Claim(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE monitors SET claimed = 1, updated_at = ? WHERE id = ? AND claimed = 0`,
		toNS(now), id,
	)
	if err != nil {
		return fmt.Errorf("failed to claim monitor %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var claimed bool
	err = s.db.QueryRowContext(ctx, `SELECT claimed FROM monitors WHERE id = ?`, id).Scan(&claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect monitor %s: %w", id, err)
	}
	return storage.ErrAlreadyClaimed
}

func (s *Store) ListClaimed(ctx context.Context, limit int) ([]*models.Monitor, error) {
	query := `SELECT ` + monitorColumns + `
		FROM monitors
		WHERE claimed = 1
		ORDER BY updated_at ASC
		LIMIT ?`
	return s.queryMonitors(ctx, query, limit)
}

func (s *Store) Update(ctx context.Context, monitor *models.Monitor) error {
	monitor.UpdatedAt = time.Now().UTC()

	query := `UPDATE monitors
		SET url = ?, label = ?, frequency_minutes = ?, next_due_at = ?, updated_at = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		monitor.URL,
		monitor.Label,
		monitor.FrequencyMinutes,
		toNullNS(monitor.NextDueAt),
		toNS(monitor.UpdatedAt),
		monitor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update monitor %s: %w", monitor.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete monitor %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) queryMonitors(ctx context.Context, query string, args ...interface{}) ([]*models.Monitor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitors: %w", err)
	}
	defer rows.Close()

	var monitors []*models.Monitor
	for rows.Next() {
		monitor, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monitor row: %w", err)
		}
		monitors = append(monitors, monitor)
	}
	return monitors, rows.Err()
}

const resultColumns = `id, monitor_id, status_code, error_text, latency_ms, checked_at, created_at`

func (s *Store) Record(ctx context.Context, result *models.CheckResult) (*models.CheckResult, error) {
	now := time.Now().UTC()
	if result.CheckedAt.IsZero() {
		result.CheckedAt = now
	}
	result.ID = uuidutil.New()
	result.CreatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin record transaction: %w", err)
	}
	defer tx.Rollback()

	var frequencyMinutes int
	var claimed bool
	err = tx.QueryRowContext(ctx,
		`SELECT frequency_minutes, claimed FROM monitors WHERE id = ?`,
		result.MonitorID,
	).Scan(&frequencyMinutes, &claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load monitor %s: %w", result.MonitorID, err)
	}
	if !claimed {
		return nil, storage.ErrNotClaimed
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO check_results (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.MonitorID,
		result.StatusCode,
		result.ErrorText,
		result.LatencyMS,
		toNS(result.CheckedAt),
		toNS(result.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert check result: %w", err)
	}

	nextDue := result.CheckedAt.Add(time.Duration(frequencyMinutes) * time.Minute)
	_, err = tx.ExecContext(ctx,
		`UPDATE monitors SET claimed = 0, next_due_at = ?, updated_at = ? WHERE id = ?`,
		toNS(nextDue), toNS(now), result.MonitorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reschedule monitor %s: %w", result.MonitorID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit record transaction: %w", err)
	}
	return result, nil
}

func scanCheckResult(row rowScanner) (*models.CheckResult, error) {
	var result models.CheckResult
	var checkedNS, createdNS int64
	err := row.Scan(
		&result.ID,
		&result.MonitorID,
		&result.StatusCode,
		&result.ErrorText,
		&result.LatencyMS,
		&checkedNS,
		&createdNS,
	)
	if err != nil {
		return nil, err
	}
	result.CheckedAt = fromNS(checkedNS)
	result.CreatedAt = fromNS(createdNS)
	return &result, nil
}

func (s *Store) GetResult(ctx context.Context, id string) (*models.CheckResult, error) {
	query := `SELECT ` + resultColumns + ` FROM check_results WHERE id = ?`
	result, err := scanCheckResult(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check result %s: %w", id, err)
	}
	return result, nil
}

func (s *Store) ListByMonitor(ctx context.Context, monitorID string, limit int) ([]*models.CheckResult, error) {
	query := `SELECT ` + resultColumns + `
		FROM check_results
		WHERE monitor_id = ?
		ORDER BY checked_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query check results: %w", err)
	}
	defer rows.Close()

	var results []*models.CheckResult
	for rows.Next() {
		result, err := scanCheckResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
