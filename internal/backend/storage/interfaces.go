package storage

import (
	"context"
	"errors"
	"time"

	"UpWatch/internal/backend/models"
	shared "UpWatch/internal/shared/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotClaimed     = errors.New("monitor is not claimed")
	ErrAlreadyClaimed = errors.New("monitor is already claimed")
)

// MonitorStore persists monitors and their scheduling state. ClaimDue and
// Claim are the only operations allowed to flip claimed to true, and both
// are atomic with respect to concurrent callers.
type MonitorStore interface {
	Create(ctx context.Context, monitor *models.Monitor) error
	GetByID(ctx context.Context, id string) (*models.Monitor, error)
	GetOwned(ctx context.Context, id, ownerID string) (*models.Monitor, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Monitor, error)
	ListAll(ctx context.Context) ([]*models.Monitor, error)

	// FindDue returns unclaimed monitors whose next_due_at is unset or has
	// passed: never-checked monitors first, then oldest due time, id as the
	// final tie-break.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Monitor, error)

	// ClaimDue atomically claims up to limit due monitors in FindDue order
	// and returns their tickets. No monitor is ever handed to two callers.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]shared.ClaimTicket, error)

	// Claim flips a single monitor to claimed. ErrAlreadyClaimed when the
	// lease is already held, ErrNotFound when the id does not resolve.
	Claim(ctx context.Context, id string, now time.Time) error

	// ListClaimed returns in-flight claims, oldest updated_at first, so
	// stale leases surface at the top.
	ListClaimed(ctx context.Context, limit int) ([]*models.Monitor, error)

	// Update persists label/url/frequency/next_due_at edits. It must not
	// touch the claimed flag.
	Update(ctx context.Context, monitor *models.Monitor) error

	// Delete removes a monitor and cascades its check results.
	Delete(ctx context.Context, id string) error
}

// ResultStore persists check results. Results are append-only; the only
// write besides insert is the cascade delete through MonitorStore.Delete.
type ResultStore interface {
	// Record inserts the result and, in the same transaction, releases the
	// monitor's claim and reschedules it to checked_at + frequency.
	// ErrNotClaimed when the monitor holds no claim, ErrNotFound when it
	// does not exist.
	Record(ctx context.Context, result *models.CheckResult) (*models.CheckResult, error)

	GetResult(ctx context.Context, id string) (*models.CheckResult, error)
	ListByMonitor(ctx context.Context, monitorID string, limit int) ([]*models.CheckResult, error)
}

// EventBus publishes recorded results for live consumers.
type EventBus interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
	Close() error
}
