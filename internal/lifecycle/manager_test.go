package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
)

// fakeStore — хранилище executions в памяти с CAS-семантикой БД.
type fakeStore struct {
	mu    sync.Mutex
	execs map[uuid.UUID]*domain.Execution
}

func newFakeStore() *fakeStore {
	return &fakeStore{execs: make(map[uuid.UUID]*domain.Execution)}
}

func (s *fakeStore) put(e *domain.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *e
	s.execs[e.ExecID] = &copied
}

func (s *fakeStore) GetByID(ctx context.Context, execID uuid.UUID) (*domain.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[execID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *fakeStore) UpdateStatusCAS(ctx context.Context, e *domain.Execution, from domain.ExecStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.execs[e.ExecID]
	if !ok {
		return repo.ErrNotFound
	}
	if current.Status != from {
		return repo.ErrStaleStatus
	}
	copied := *e
	s.execs[e.ExecID] = &copied
	return nil
}

func (s *fakeStore) ListStuck(ctx context.Context, status domain.ExecStatus, olderThan time.Time, limit int) ([]domain.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Execution
	for _, e := range s.execs {
		if e.Status != status {
			continue
		}
		ref := e.RequestedAt
		if e.StartedAt != nil {
			ref = *e.StartedAt
		}
		if ref.Before(olderThan) {
			out = append(out, *e)
		}
	}
	return out, nil
}

// fakeAudit — append-only журнал в памяти.
type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *fakeAudit) Append(ctx context.Context, e *domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *e)
	return nil
}

func (a *fakeAudit) last(t *testing.T) domain.AuditEntry {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		t.Fatal("no audit entries recorded")
	}
	return a.entries[len(a.entries)-1]
}

func newExec(status domain.ExecStatus) *domain.Execution {
	e := domain.NewExecution(domain.SchemaSnapshot{
		Partition: "default",
		SchemaID:  "restart-db",
		Runbook:   "restart_db.sh",
		Worker:    "linux-pool",
	}, domain.TriggerRequest{Source: domain.SourceManual, RequestedBy: "alice"})
	e.Status = status
	return e
}

func TestApply_Transition(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	m := New(Config{Store: store, Audit: audit})

	e := newExec(domain.StatusRouted)
	store.put(e)

	got, err := m.Apply(context.Background(), Transition{
		ExecID: e.ExecID,
		Next:   domain.StatusRunning,
		By:     "worker-1",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Status != domain.StatusRunning {
		t.Errorf("expected running, got %s", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("started_at should be set")
	}

	entry := audit.last(t)
	if entry.Action != domain.ActionStart {
		t.Errorf("expected START audit action, got %s", entry.Action)
	}
	if entry.Operator != "worker-1" {
		t.Errorf("expected operator worker-1, got %s", entry.Operator)
	}
	if entry.ExecID == nil || *entry.ExecID != e.ExecID {
		t.Error("audit entry should reference the execution")
	}
}

func TestApply_DropsInvalidTransition(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	m := New(Config{Store: store, Audit: audit})

	e := newExec(domain.StatusSucceeded)
	store.put(e)

	// Поздний callback после финального статуса.
	_, err := m.Apply(context.Background(), Transition{
		ExecID: e.ExecID,
		Next:   domain.StatusRunning,
		By:     "worker-1",
	})
	if !errors.Is(err, ErrTransitionDropped) {
		t.Fatalf("expected ErrTransitionDropped, got %v", err)
	}

	// Execution не изменился, audit-записи нет.
	current, _ := store.GetByID(context.Background(), e.ExecID)
	if current.Status != domain.StatusSucceeded {
		t.Errorf("status should stay succeeded, got %s", current.Status)
	}
	if len(audit.entries) != 0 {
		t.Errorf("dropped transition should not produce audit entries, got %d", len(audit.entries))
	}
}

func TestApply_NotFound(t *testing.T) {
	m := New(Config{Store: newFakeStore(), Audit: &fakeAudit{}})

	_, err := m.Apply(context.Background(), Transition{
		ExecID: uuid.New(),
		Next:   domain.StatusRunning,
	})
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Fatalf("expected ErrExecutionNotFound, got %v", err)
	}
}

func TestApply_TerminalHooks(t *testing.T) {
	store := newFakeStore()
	m := New(Config{Store: store, Audit: &fakeAudit{}})

	var hooked *domain.Execution
	m.OnTerminal(func(ctx context.Context, e *domain.Execution) {
		hooked = e
	})

	e := newExec(domain.StatusRunning)
	store.put(e)

	// Нефинальный переход хук не вызывает.
	e2 := newExec(domain.StatusAccepted)
	store.put(e2)
	if _, err := m.Apply(context.Background(), Transition{ExecID: e2.ExecID, Next: domain.StatusRouted}); err != nil {
		t.Fatal(err)
	}
	if hooked != nil {
		t.Fatal("hook fired on non-terminal transition")
	}

	if _, err := m.Apply(context.Background(), Transition{
		ExecID: e.ExecID,
		Next:   domain.StatusFailed,
		By:     "worker-1",
		Error:  "exit status 1",
	}); err != nil {
		t.Fatal(err)
	}

	if hooked == nil {
		t.Fatal("terminal hook should fire")
	}
	if hooked.Status != domain.StatusFailed {
		t.Errorf("hook should see failed execution, got %s", hooked.Status)
	}
	if hooked.Error != "exit status 1" {
		t.Errorf("hook should see error text, got %q", hooked.Error)
	}
}

func TestApply_CustomAction(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	m := New(Config{Store: store, Audit: audit})

	e := newExec(domain.StatusPending)
	store.put(e)

	_, err := m.Apply(context.Background(), Transition{
		ExecID: e.ExecID,
		Next:   domain.StatusSkipped,
		Error:  "approval request expired",
		Action: domain.ActionExpire,
	})
	if err != nil {
		t.Fatal(err)
	}

	entry := audit.last(t)
	if entry.Action != domain.ActionExpire {
		t.Errorf("expected EXPIRE action, got %s", entry.Action)
	}
	// Пустой By — системная операция.
	if entry.Operator != "system" {
		t.Errorf("expected operator system, got %s", entry.Operator)
	}
}

func TestWatchdogPass(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	m := New(Config{
		Store:        store,
		Audit:        audit,
		StartTimeout: 5 * time.Minute,
		RunTimeout:   2 * time.Hour,
	})

	// Завис в routed дольше StartTimeout.
	stale := newExec(domain.StatusRouted)
	stale.RequestedAt = time.Now().UTC().Add(-10 * time.Minute)
	store.put(stale)

	// Свежий routed — не трогаем.
	fresh := newExec(domain.StatusRouted)
	store.put(fresh)

	// Запущен слишком давно.
	hung := newExec(domain.StatusRunning)
	started := time.Now().UTC().Add(-3 * time.Hour)
	hung.StartedAt = &started
	store.put(hung)

	if err := m.WatchdogPass(context.Background()); err != nil {
		t.Fatalf("watchdog pass: %v", err)
	}

	for _, tc := range []struct {
		name string
		id   uuid.UUID
		want domain.ExecStatus
	}{
		{"stale routed", stale.ExecID, domain.StatusError},
		{"fresh routed", fresh.ExecID, domain.StatusRouted},
		{"hung running", hung.ExecID, domain.StatusError},
	} {
		e, _ := store.GetByID(context.Background(), tc.id)
		if e.Status != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, e.Status)
		}
	}
}

func TestApply_TruncatesResult(t *testing.T) {
	store := newFakeStore()
	m := New(Config{Store: store, Audit: &fakeAudit{}})

	e := newExec(domain.StatusRunning)
	store.put(e)

	long := make([]byte, maxDetailsLen*2)
	for i := range long {
		long[i] = 'x'
	}

	got, err := m.Apply(context.Background(), Transition{
		ExecID: e.ExecID,
		Next:   domain.StatusSucceeded,
		By:     "worker-1",
		Result: string(long),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Result) != maxDetailsLen {
		t.Errorf("result should be truncated to %d, got %d", maxDetailsLen, len(got.Result))
	}
}
