package registry

import (
	"context"
	"testing"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
)

type fakeWorkerStore struct {
	workers map[string]*domain.Worker
}

func newFakeWorkerStore() *fakeWorkerStore {
	return &fakeWorkerStore{workers: make(map[string]*domain.Worker)}
}

func (s *fakeWorkerStore) Upsert(ctx context.Context, w *domain.Worker) error {
	copied := *w
	if existing, ok := s.workers[w.WorkerID]; ok {
		copied.RegisteredAt = existing.RegisteredAt
	}
	s.workers[w.WorkerID] = &copied
	return nil
}

func (s *fakeWorkerStore) Heartbeat(ctx context.Context, workerID string, at time.Time, activeProcesses int) error {
	w, ok := s.workers[workerID]
	if !ok {
		return repo.ErrNotFound
	}
	w.LastHeartbeat = at
	w.ActiveProcesses = activeProcesses
	w.Status = domain.WorkerActive
	return nil
}

func (s *fakeWorkerStore) Get(ctx context.Context, workerID string) (*domain.Worker, error) {
	w, ok := s.workers[workerID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *w
	return &copied, nil
}

func (s *fakeWorkerStore) List(ctx context.Context) ([]domain.Worker, error) {
	var out []domain.Worker
	for _, w := range s.workers {
		out = append(out, *w)
	}
	return out, nil
}

func (s *fakeWorkerStore) ListActive(ctx context.Context, deadline time.Time) ([]domain.Worker, error) {
	var out []domain.Worker
	for _, w := range s.workers {
		if w.Status == domain.WorkerActive && !w.LastHeartbeat.Before(deadline) {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *fakeWorkerStore) MarkInactive(ctx context.Context, deadline time.Time) ([]string, error) {
	var ids []string
	for _, w := range s.workers {
		if w.Status == domain.WorkerActive && w.LastHeartbeat.Before(deadline) {
			w.Status = domain.WorkerInactive
			ids = append(ids, w.WorkerID)
		}
	}
	return ids, nil
}

func TestRegister(t *testing.T) {
	store := newFakeWorkerStore()
	var declaredFor string
	r := New(Config{
		Store: store,
		DeclareQueue: func(ctx context.Context, workerID string) (string, error) {
			declaredFor = workerID
			return "dispatch." + workerID, nil
		},
	})

	w, err := r.Register(context.Background(), Registration{
		WorkerID:     "host-1",
		Pool:         "linux-pool",
		Capabilities: []string{"db"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if w.Status != domain.WorkerActive {
		t.Errorf("expected active, got %s", w.Status)
	}
	if w.Queue != "dispatch.host-1" {
		t.Errorf("expected dispatch queue, got %q", w.Queue)
	}
	if declaredFor != "host-1" {
		t.Error("queue should be declared for the worker")
	}
	if w.RegisteredAt.IsZero() || w.LastHeartbeat.IsZero() {
		t.Error("registration timestamps should be set")
	}
}

func TestRegister_RequiresWorkerID(t *testing.T) {
	r := New(Config{Store: newFakeWorkerStore()})

	if _, err := r.Register(context.Background(), Registration{Pool: "linux-pool"}); err == nil {
		t.Fatal("registration without worker_id should fail")
	}
}

func TestHeartbeat_AutoRegistersUnknown(t *testing.T) {
	store := newFakeWorkerStore()
	r := New(Config{Store: store})

	// Worker неизвестен реестру (чистка БД): heartbeat регистрирует.
	err := r.Heartbeat(context.Background(), Registration{
		WorkerID:        "host-1",
		Pool:            "linux-pool",
		ActiveProcesses: 2,
	})
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	w, err := store.Get(context.Background(), "host-1")
	if err != nil {
		t.Fatal("worker should be auto-registered")
	}
	if w.Pool != "linux-pool" {
		t.Errorf("expected pool linux-pool, got %s", w.Pool)
	}
}

func TestHeartbeat_UpdatesLoad(t *testing.T) {
	store := newFakeWorkerStore()
	r := New(Config{Store: store})

	if _, err := r.Register(context.Background(), Registration{WorkerID: "host-1"}); err != nil {
		t.Fatal(err)
	}

	if err := r.Heartbeat(context.Background(), Registration{WorkerID: "host-1", ActiveProcesses: 7}); err != nil {
		t.Fatal(err)
	}

	w, _ := store.Get(context.Background(), "host-1")
	if w.ActiveProcesses != 7 {
		t.Errorf("expected active_processes 7, got %d", w.ActiveProcesses)
	}
}

func TestActiveWorkersAndSweep(t *testing.T) {
	store := newFakeWorkerStore()
	r := New(Config{Store: store, HeartbeatTimeout: 90 * time.Second})

	now := time.Now().UTC()
	store.workers["fresh"] = &domain.Worker{
		WorkerID:      "fresh",
		Status:        domain.WorkerActive,
		LastHeartbeat: now,
	}
	store.workers["stale"] = &domain.Worker{
		WorkerID:      "stale",
		Status:        domain.WorkerActive,
		LastHeartbeat: now.Add(-5 * time.Minute),
	}

	active, err := r.ActiveWorkers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].WorkerID != "fresh" {
		t.Errorf("only fresh worker should be active, got %+v", active)
	}

	if err := r.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.workers["stale"].Status != domain.WorkerInactive {
		t.Error("stale worker should be marked inactive")
	}
	if store.workers["fresh"].Status != domain.WorkerActive {
		t.Error("fresh worker should stay active")
	}
}
