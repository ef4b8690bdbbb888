package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"UpWatch/internal/backend/auth"
	"UpWatch/internal/backend/models"
	"UpWatch/internal/backend/storage"
	"UpWatch/internal/backend/storage/sqlite"
	"UpWatch/internal/probe"
	shared "UpWatch/internal/shared/models"
)

var (
	owner  = auth.Caller{UserID: "alice", Role: auth.RoleOwner}
	other  = auth.Caller{UserID: "bob", Role: auth.RoleOwner}
	admin  = auth.Caller{UserID: "root", Role: auth.RoleAdmin}
	worker = auth.Caller{Role: auth.RoleWorker}
)

// captureBus records published events without a broker.
type captureBus struct {
	published []interface{}
}

func (b *captureBus) Publish(_ context.Context, _ string, message interface{}) error {
	b.published = append(b.published, message)
	return nil
}

func (b *captureBus) Subscribe(context.Context, string) (<-chan []byte, func(), error) {
	ch := make(chan []byte)
	close(ch)
	return ch, func() {}, nil
}

func (b *captureBus) Close() error { return nil }

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedDue(t *testing.T, store *sqlite.Store, ownerID string, n int) []*models.Monitor {
	t.Helper()

	past := time.Now().Add(-time.Minute)
	monitors := make([]*models.Monitor, 0, n)
	for i := 0; i < n; i++ {
		monitor := &models.Monitor{
			OwnerID:          ownerID,
			URL:              "https://example.com/health",
			FrequencyMinutes: 5,
			NextDueAt:        &past,
		}
		if err := store.Create(context.Background(), monitor); err != nil {
			t.Fatalf("failed to seed monitor: %v", err)
		}
		monitors = append(monitors, monitor)
	}
	return monitors
}

func TestMonitorCreate(t *testing.T) {
	store := newTestStore(t)
	svc := NewMonitorService(store, store, nil)
	ctx := context.Background()

	params := MonitorParams{URL: "https://example.com", Label: "prod", FrequencyMinutes: 5}

	before := time.Now()
	monitor, err := svc.Create(ctx, owner, params)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if monitor.OwnerID != "alice" {
		t.Errorf("owner not taken from caller: %s", monitor.OwnerID)
	}
	if monitor.Claimed {
		t.Error("fresh monitor must start unclaimed")
	}
	if monitor.NextDueAt == nil {
		t.Fatal("fresh monitor must be scheduled one interval out")
	}
	wantEarliest := before.Add(5 * time.Minute)
	if monitor.NextDueAt.Before(wantEarliest.Add(-time.Second)) {
		t.Errorf("first due time too early: %v", monitor.NextDueAt)
	}
}

func TestMonitorCreateRejectsWorker(t *testing.T) {
	store := newTestStore(t)
	svc := NewMonitorService(store, store, nil)

	_, err := svc.Create(context.Background(), worker, MonitorParams{URL: "https://example.com", FrequencyMinutes: 5})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestMonitorCreateValidation(t *testing.T) {
	store := newTestStore(t)
	svc := NewMonitorService(store, store, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		params MonitorParams
	}{
		{"empty url", MonitorParams{FrequencyMinutes: 5}},
		{"ftp scheme", MonitorParams{URL: "ftp://example.com", FrequencyMinutes: 5}},
		{"no host", MonitorParams{URL: "https://", FrequencyMinutes: 5}},
		{"zero frequency", MonitorParams{URL: "https://example.com", FrequencyMinutes: 0}},
		{"frequency too large", MonitorParams{URL: "https://example.com", FrequencyMinutes: 1441}},
		{"label with newline", MonitorParams{URL: "https://example.com", Label: "a\nb", FrequencyMinutes: 5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, owner, tc.params); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestMonitorOwnershipIsolation(t *testing.T) {
	store := newTestStore(t)
	svc := NewMonitorService(store, store, nil)
	ctx := context.Background()

	monitor := seedDue(t, store, "alice", 1)[0]

	// Foreign owners get NotFound, not Forbidden, so ids do not leak.
	if _, err := svc.Get(ctx, other, monitor.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := svc.Delete(ctx, other, monitor.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on foreign delete, got %v", err)
	}

	// Admins bypass ownership.
	if _, err := svc.Get(ctx, admin, monitor.ID); err != nil {
		t.Errorf("admin read failed: %v", err)
	}

	// Workers have no business on the CRUD surface at all.
	if _, err := svc.Get(ctx, worker, monitor.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for worker, got %v", err)
	}
}

func TestMonitorList(t *testing.T) {
	store := newTestStore(t)
	svc := NewMonitorService(store, store, nil)
	ctx := context.Background()

	seedDue(t, store, "alice", 2)
	seedDue(t, store, "bob", 1)

	mine, err := svc.List(ctx, owner)
	if err != nil {
		t.Fatalf("owner list failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 monitors for alice, got %d", len(mine))
	}

	all, err := svc.List(ctx, admin)
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 monitors for admin, got %d", len(all))
	}

	if _, err := svc.List(ctx, worker); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for worker, got %v", err)
	}
}

func TestMonitorUpdateSeedsScheduleOnlyWhenUnset(t *testing.T) {
	store := newTestStore(t)
	svc := NewMonitorService(store, store, nil)
	ctx := context.Background()

	unscheduled := &models.Monitor{OwnerID: "alice", URL: "https://example.com", FrequencyMinutes: 5}
	if err := store.Create(ctx, unscheduled); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	updated, err := svc.Update(ctx, owner, unscheduled.ID, MonitorParams{URL: "https://example.com", FrequencyMinutes: 10})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.NextDueAt == nil {
		t.Error("update must seed the schedule for a never-scheduled monitor")
	}

	// A scheduled monitor keeps its due time across edits.
	scheduled := seedDue(t, store, "alice", 1)[0]
	wantDue := *scheduled.NextDueAt

	updated, err = svc.Update(ctx, owner, scheduled.ID, MonitorParams{URL: "https://example.com", Label: "edited", FrequencyMinutes: 60})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.NextDueAt == nil || !updated.NextDueAt.Equal(wantDue) {
		t.Errorf("update moved the due time: want %v, got %v", wantDue, updated.NextDueAt)
	}
}

func TestSchedulerClaimNext(t *testing.T) {
	store := newTestStore(t)
	svc := NewSchedulerService(store, nil)
	ctx := context.Background()

	seedDue(t, store, "alice", 3)

	tickets, err := svc.ClaimNext(ctx, worker, 2)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}
	for _, ticket := range tickets {
		if ticket.MonitorID == "" || ticket.URL == "" {
			t.Errorf("incomplete ticket: %+v", ticket)
		}
	}
}

func TestSchedulerClaimNextEmptySet(t *testing.T) {
	store := newTestStore(t)
	svc := NewSchedulerService(store, nil)

	tickets, err := svc.ClaimNext(context.Background(), worker, 10)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if tickets == nil {
		t.Fatal("empty due set must yield an empty batch, not nil")
	}
	if len(tickets) != 0 {
		t.Fatalf("expected no tickets, got %d", len(tickets))
	}
}

func TestSchedulerClaimNextClampsBatch(t *testing.T) {
	store := newTestStore(t)
	svc := NewSchedulerService(store, nil)
	ctx := context.Background()

	seedDue(t, store, "alice", 60)

	tickets, err := svc.ClaimNext(ctx, worker, 500)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if len(tickets) != 50 {
		t.Errorf("expected batch capped at 50, got %d", len(tickets))
	}

	tickets, err = svc.ClaimNext(ctx, worker, -3)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if len(tickets) != 1 {
		t.Errorf("expected batch floored at 1, got %d", len(tickets))
	}
}

func TestSchedulerRejectsNonWorkers(t *testing.T) {
	store := newTestStore(t)
	svc := NewSchedulerService(store, nil)
	ctx := context.Background()

	for _, caller := range []auth.Caller{owner, admin} {
		if _, err := svc.ClaimNext(ctx, caller, 10); !errors.Is(err, ErrAccessDenied) {
			t.Errorf("expected ErrAccessDenied for %s, got %v", caller.Role, err)
		}
		if _, err := svc.ListPending(ctx, caller, 10); !errors.Is(err, ErrAccessDenied) {
			t.Errorf("expected ErrAccessDenied for %s, got %v", caller.Role, err)
		}
	}
}

func TestSchedulerListPending(t *testing.T) {
	store := newTestStore(t)
	svc := NewSchedulerService(store, nil)
	ctx := context.Background()

	seedDue(t, store, "alice", 2)
	claimed, err := svc.ClaimNext(ctx, worker, 1)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}

	pending, err := svc.ListPending(ctx, worker, 10)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].MonitorID != claimed[0].MonitorID {
		t.Fatalf("expected the claimed monitor pending, got %+v", pending)
	}
}

func newRecorder(store *sqlite.Store, bus storage.EventBus, timeout time.Duration) *RecorderService {
	return NewRecorderService(store, store, bus, probe.New(timeout), nil)
}

func TestRecorderRecord(t *testing.T) {
	store := newTestStore(t)
	bus := &captureBus{}
	svc := newRecorder(store, bus, time.Second)
	ctx := context.Background()

	monitor := seedDue(t, store, "alice", 1)[0]
	if err := store.Claim(ctx, monitor.ID, time.Now()); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	status := 200
	latency := 12.5
	result, err := svc.Record(ctx, worker, shared.ResultRequest{
		MonitorID:  monitor.ID,
		StatusCode: &status,
		LatencyMS:  &latency,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if result.ID == "" || result.CheckedAt.IsZero() {
		t.Errorf("result not fully populated: %+v", result)
	}

	got, err := store.GetByID(ctx, monitor.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Claimed {
		t.Error("claim not released by Record")
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(bus.published))
	}
	event, ok := bus.published[0].(shared.ResultEvent)
	if !ok || event.MonitorID != monitor.ID {
		t.Errorf("unexpected event payload: %+v", bus.published[0])
	}
}

func TestRecorderRecordUnclaimed(t *testing.T) {
	store := newTestStore(t)
	svc := newRecorder(store, &captureBus{}, time.Second)

	monitor := seedDue(t, store, "alice", 1)[0]

	status := 200
	_, err := svc.Record(context.Background(), worker, shared.ResultRequest{MonitorID: monitor.ID, StatusCode: &status})
	if !errors.Is(err, storage.ErrNotClaimed) {
		t.Fatalf("expected ErrNotClaimed, got %v", err)
	}
}

func TestRecorderExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store := newTestStore(t)
	svc := newRecorder(store, &captureBus{}, 2*time.Second)
	ctx := context.Background()

	monitor := &models.Monitor{OwnerID: "alice", URL: server.URL, FrequencyMinutes: 5}
	if err := store.Create(ctx, monitor); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	result, err := svc.Execute(ctx, owner, monitor.ID)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.StatusCode == nil || *result.StatusCode != http.StatusNoContent {
		t.Errorf("expected status 204, got %+v", result.StatusCode)
	}
	if result.LatencyMS == nil {
		t.Error("expected latency to be measured")
	}

	got, err := store.GetByID(ctx, monitor.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Claimed {
		t.Error("Execute left the monitor claimed")
	}
	if got.NextDueAt == nil {
		t.Error("Execute did not reschedule the monitor")
	}
}

func TestRecorderExecuteUnreachableTarget(t *testing.T) {
	// Grab a port with nothing listening on it.
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	store := newTestStore(t)
	svc := newRecorder(store, &captureBus{}, time.Second)
	ctx := context.Background()

	monitor := &models.Monitor{OwnerID: "alice", URL: target, FrequencyMinutes: 5}
	if err := store.Create(ctx, monitor); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	result, err := svc.Execute(ctx, owner, monitor.ID)
	if err != nil {
		t.Fatalf("a failed probe is still a recorded result, got error: %v", err)
	}
	if result.StatusCode != nil {
		t.Errorf("expected no status code, got %d", *result.StatusCode)
	}
	if result.ErrorText == nil {
		t.Error("expected error text for unreachable target")
	}
}

func TestRecorderExecuteWhileClaimed(t *testing.T) {
	store := newTestStore(t)
	svc := newRecorder(store, &captureBus{}, time.Second)
	ctx := context.Background()

	monitor := seedDue(t, store, "alice", 1)[0]
	if err := store.Claim(ctx, monitor.ID, time.Now()); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if _, err := svc.Execute(ctx, owner, monitor.ID); !errors.Is(err, storage.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestRecorderExecuteRejectsWorker(t *testing.T) {
	store := newTestStore(t)
	svc := newRecorder(store, &captureBus{}, time.Second)

	monitor := seedDue(t, store, "alice", 1)[0]

	if _, err := svc.Execute(context.Background(), worker, monitor.ID); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}
