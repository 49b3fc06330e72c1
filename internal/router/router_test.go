package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/lifecycle"
	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
	"github.com/pagopa/payments-ClouDO-sub002/internal/registry"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
)

type fakeWorkers struct {
	workers []domain.Worker
	err     error
}

func (f *fakeWorkers) ActiveWorkers(ctx context.Context) ([]domain.Worker, error) {
	return f.workers, f.err
}

type fakeExecStore struct {
	mu    sync.Mutex
	execs map[uuid.UUID]domain.ExecStatus
	calls int
}

func newFakeExecStore() *fakeExecStore {
	return &fakeExecStore{execs: make(map[uuid.UUID]domain.ExecStatus)}
}

func (s *fakeExecStore) UpdateStatusCAS(ctx context.Context, e *domain.Execution, from domain.ExecStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	current, ok := s.execs[e.ExecID]
	if !ok {
		return repo.ErrNotFound
	}
	if current != from {
		return repo.ErrStaleStatus
	}
	s.execs[e.ExecID] = e.Status
	return nil
}

type dispatched struct {
	workerID string
	payload  mq.DispatchPayload
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []dispatched
	err  error
}

func (d *fakeDispatcher) PublishDispatch(ctx context.Context, workerID string, payload mq.DispatchPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, dispatched{workerID: workerID, payload: payload})
	return nil
}

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

func aliveWorker(id, pool string) domain.Worker {
	return domain.Worker{
		WorkerID:      id,
		Pool:          pool,
		Status:        domain.WorkerActive,
		LastHeartbeat: time.Now().UTC(),
	}
}

func acceptedExec(capability string) *domain.Execution {
	e := domain.NewExecution(domain.SchemaSnapshot{
		Partition: "default",
		SchemaID:  "restart-db",
		Runbook:   "restart_db.sh",
		RunArgs:   "--force",
		Worker:    capability,
	}, domain.TriggerRequest{Source: domain.SourceManual, RequestedBy: "alice"})
	e.Status = domain.StatusAccepted
	return e
}

func newTestRouter(workers *fakeWorkers, store *fakeExecStore, disp *fakeDispatcher, audit *fakeAudit) *Router {
	return New(Config{
		Workers:    workers,
		Store:      store,
		Dispatcher: disp,
		Audit:      audit,
		Backoff:    time.Millisecond,
	})
}

func TestRoute_PicksLeastLoaded(t *testing.T) {
	busy := aliveWorker("worker-a", "linux-pool")
	busy.ActiveProcesses = 5
	idle := aliveWorker("worker-b", "linux-pool")
	idle.ActiveProcesses = 1

	store := newFakeExecStore()
	disp := &fakeDispatcher{}
	audit := &fakeAudit{}
	r := newTestRouter(&fakeWorkers{workers: []domain.Worker{busy, idle}}, store, disp, audit)

	e := acceptedExec("linux-pool")
	store.execs[e.ExecID] = domain.StatusAccepted

	if err := r.Route(context.Background(), e); err != nil {
		t.Fatalf("route: %v", err)
	}

	if e.Status != domain.StatusRouted {
		t.Errorf("expected routed, got %s", e.Status)
	}
	if e.RoutedWorker != "worker-b" {
		t.Errorf("expected least loaded worker-b, got %s", e.RoutedWorker)
	}
	if len(disp.sent) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(disp.sent))
	}
	if disp.sent[0].workerID != "worker-b" {
		t.Errorf("dispatched to %s, want worker-b", disp.sent[0].workerID)
	}
	if disp.sent[0].payload.Runbook != "restart_db.sh" || disp.sent[0].payload.RunArgs != "--force" {
		t.Errorf("payload should carry runbook snapshot: %+v", disp.sent[0].payload)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != domain.ActionRoute {
		t.Error("routing should record a ROUTE audit entry")
	}
}

func TestRoute_TieBreaksByWorkerID(t *testing.T) {
	a := aliveWorker("worker-b", "linux-pool")
	b := aliveWorker("worker-a", "linux-pool")

	store := newFakeExecStore()
	r := newTestRouter(&fakeWorkers{workers: []domain.Worker{a, b}}, store, &fakeDispatcher{}, &fakeAudit{})

	e := acceptedExec("linux-pool")
	store.execs[e.ExecID] = domain.StatusAccepted

	if err := r.Route(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if e.RoutedWorker != "worker-a" {
		t.Errorf("equal load should break ties lexicographically, got %s", e.RoutedWorker)
	}
}

func TestRoute_AccountsLocalAssignments(t *testing.T) {
	// worker-a свободнее по heartbeat, но уже получил два назначения
	// с этого инстанса.
	a := aliveWorker("worker-a", "linux-pool")
	a.ActiveProcesses = 0
	b := aliveWorker("worker-b", "linux-pool")
	b.ActiveProcesses = 1

	loads := registry.NewLoadTracker()
	loads.Inc("worker-a")
	loads.Inc("worker-a")

	store := newFakeExecStore()
	r := New(Config{
		Workers:    &fakeWorkers{workers: []domain.Worker{a, b}},
		Store:      store,
		Dispatcher: &fakeDispatcher{},
		Audit:      &fakeAudit{},
		Loads:      loads,
		Backoff:    time.Millisecond,
	})

	e := acceptedExec("linux-pool")
	store.execs[e.ExecID] = domain.StatusAccepted

	if err := r.Route(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if e.RoutedWorker != "worker-b" {
		t.Errorf("expected worker-b after load correction, got %s", e.RoutedWorker)
	}
	// Назначение учтено для следующих выборов.
	if loads.Load("worker-b") != 1 {
		t.Errorf("expected worker-b load 1, got %d", loads.Load("worker-b"))
	}
}

func TestRoute_FiltersByCapability(t *testing.T) {
	w := aliveWorker("worker-win", "windows-pool")
	w.Capabilities = []string{"iis"}

	store := newFakeExecStore()
	disp := &fakeDispatcher{}
	audit := &fakeAudit{}

	lc := &fakeApplier{}
	r := New(Config{
		Workers:     &fakeWorkers{workers: []domain.Worker{w}},
		Store:       store,
		Dispatcher:  disp,
		Audit:       audit,
		Policy:      &TerminalErrorPolicy{Lifecycle: lc},
		MaxAttempts: 2,
		Backoff:     time.Millisecond,
	})

	e := acceptedExec("linux-pool")
	store.execs[e.ExecID] = domain.StatusAccepted

	if err := r.Route(context.Background(), e); err != nil {
		t.Fatalf("exhausted routing should be handled by policy: %v", err)
	}
	if len(disp.sent) != 0 {
		t.Error("nothing should be dispatched without matching capability")
	}
	if lc.applied == nil {
		t.Fatal("policy should apply terminal transition")
	}
	if lc.applied.Next != domain.StatusError {
		t.Errorf("expected error status, got %s", lc.applied.Next)
	}
	if lc.applied.By != "router" {
		t.Errorf("expected operator router, got %s", lc.applied.By)
	}
}

func TestRoute_LosesCASSilently(t *testing.T) {
	w := aliveWorker("worker-a", "linux-pool")

	store := newFakeExecStore()
	disp := &fakeDispatcher{}
	r := newTestRouter(&fakeWorkers{workers: []domain.Worker{w}}, store, disp, &fakeAudit{})

	e := acceptedExec("linux-pool")
	// Другой инстанс уже перевёл execution дальше.
	store.execs[e.ExecID] = domain.StatusRouted

	if err := r.Route(context.Background(), e); err != nil {
		t.Fatalf("lost CAS should not be an error: %v", err)
	}
	if len(disp.sent) != 0 {
		t.Error("lost CAS should not dispatch")
	}
}

func TestRoute_PublishFailureStillAudits(t *testing.T) {
	w := aliveWorker("worker-a", "linux-pool")

	store := newFakeExecStore()
	disp := &fakeDispatcher{err: errors.New("channel closed")}
	audit := &fakeAudit{}
	loads := registry.NewLoadTracker()
	r := New(Config{
		Workers:    &fakeWorkers{workers: []domain.Worker{w}},
		Store:      store,
		Dispatcher: disp,
		Audit:      audit,
		Loads:      loads,
		Backoff:    time.Millisecond,
	})

	e := acceptedExec("linux-pool")
	store.execs[e.ExecID] = domain.StatusAccepted

	if err := r.Route(context.Background(), e); err == nil {
		t.Fatal("lost dispatch should surface as an error")
	}

	// Переход в routed применён — audit и учёт нагрузки обязаны
	// отражать его, даже если сообщение не ушло (дальше watchdog).
	if e.Status != domain.StatusRouted {
		t.Errorf("expected routed, got %s", e.Status)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != domain.ActionRoute {
		t.Errorf("applied transition must produce a ROUTE audit entry: %+v", audit.entries)
	}
	if loads.Load("worker-a") != 1 {
		t.Errorf("expected worker-a load 1, got %d", loads.Load("worker-a"))
	}
}

func TestRoute_RejectsNonAccepted(t *testing.T) {
	r := newTestRouter(&fakeWorkers{}, newFakeExecStore(), &fakeDispatcher{}, &fakeAudit{})

	e := acceptedExec("linux-pool")
	e.Status = domain.StatusRunning

	if err := r.Route(context.Background(), e); err == nil {
		t.Fatal("routing a running execution should fail")
	}
}

func TestRoute_ExhaustedWithoutPolicy(t *testing.T) {
	store := newFakeExecStore()
	r := New(Config{
		Workers:     &fakeWorkers{},
		Store:       store,
		Dispatcher:  &fakeDispatcher{},
		Audit:       &fakeAudit{},
		MaxAttempts: 1,
		Backoff:     time.Millisecond,
	})

	e := acceptedExec("linux-pool")
	store.execs[e.ExecID] = domain.StatusAccepted

	if err := r.Route(context.Background(), e); !errors.Is(err, ErrRoutingExhausted) {
		t.Fatalf("expected ErrRoutingExhausted, got %v", err)
	}
}

// fakeApplier записывает последний применённый переход.
type fakeApplier struct {
	applied *lifecycle.Transition
	err     error
}

func (a *fakeApplier) Apply(ctx context.Context, t lifecycle.Transition) (*domain.Execution, error) {
	a.applied = &t
	return nil, a.err
}

func TestTerminalErrorPolicy_SwallowsDroppedTransition(t *testing.T) {
	p := &TerminalErrorPolicy{Lifecycle: &fakeApplier{err: lifecycle.ErrTransitionDropped}}

	e := acceptedExec("linux-pool")
	if err := p.OnExhausted(context.Background(), e); err != nil {
		t.Fatalf("dropped transition should be swallowed: %v", err)
	}
}
