package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
)

// Default configuration values.
const (
	defaultHeartbeatTimeout = 90 * time.Second
)

// Store — хранилище worker'ов.
type Store interface {
	Upsert(ctx context.Context, w *domain.Worker) error
	Heartbeat(ctx context.Context, workerID string, at time.Time, activeProcesses int) error
	Get(ctx context.Context, workerID string) (*domain.Worker, error)
	List(ctx context.Context) ([]domain.Worker, error)
	ListActive(ctx context.Context, deadline time.Time) ([]domain.Worker, error)
	MarkInactive(ctx context.Context, deadline time.Time) ([]string, error)
}

// QueueDeclarer объявляет персональную dispatch-очередь worker'а.
// Возвращает имя очереди.
type QueueDeclarer func(ctx context.Context, workerID string) (string, error)

// Registry — реестр worker'ов.
type Registry struct {
	store        Store
	declareQueue QueueDeclarer
	timeout      time.Duration
	logger       *slog.Logger
}

// Config — конфигурация Registry.
type Config struct {
	Store Store

	// DeclareQueue — объявление dispatch-очереди при регистрации.
	// nil — очереди объявляют сами worker'ы.
	DeclareQueue QueueDeclarer

	// HeartbeatTimeout — окно, после которого worker считается
	// недоступным (default: 90s).
	HeartbeatTimeout time.Duration

	Logger *slog.Logger
}

// New создаёт новый Registry.
func New(cfg Config) *Registry {
	timeout := cfg.HeartbeatTimeout
	if timeout <= 0 {
		timeout = defaultHeartbeatTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		store:        cfg.Store,
		declareQueue: cfg.DeclareQueue,
		timeout:      timeout,
		logger:       logger,
	}
}

// Registration — данные регистрации worker'а.
type Registration struct {
	WorkerID        string
	Capabilities    []string
	Pool            string
	ActiveProcesses int
}

// Register регистрирует worker'а (или перерегистрирует после рестарта).
// Повторная регистрация обновляет capabilities и pool, сохраняя
// registered_at первой регистрации.
func (r *Registry) Register(ctx context.Context, reg Registration) (*domain.Worker, error) {
	if reg.WorkerID == "" {
		return nil, fmt.Errorf("worker_id is required")
	}

	queue := ""
	if r.declareQueue != nil {
		q, err := r.declareQueue(ctx, reg.WorkerID)
		if err != nil {
			return nil, fmt.Errorf("declare dispatch queue: %w", err)
		}
		queue = q
	}

	now := time.Now().UTC()
	w := &domain.Worker{
		WorkerID:        reg.WorkerID,
		Capabilities:    reg.Capabilities,
		Pool:            reg.Pool,
		Queue:           queue,
		LastHeartbeat:   now,
		ActiveProcesses: reg.ActiveProcesses,
		Status:          domain.WorkerActive,
		RegisteredAt:    now,
	}

	if err := r.store.Upsert(ctx, w); err != nil {
		return nil, fmt.Errorf("register worker: %w", err)
	}

	r.logger.Info("worker registered",
		"worker_id", reg.WorkerID,
		"pool", reg.Pool,
		"capabilities", reg.Capabilities,
	)
	return w, nil
}

// Heartbeat обновляет heartbeat worker'а.
// Неизвестный worker регистрируется автоматически: после потери БД
// или чистки реестра worker'ам не нужно перезапускаться.
func (r *Registry) Heartbeat(ctx context.Context, reg Registration) error {
	err := r.store.Heartbeat(ctx, reg.WorkerID, time.Now().UTC(), reg.ActiveProcesses)
	if errors.Is(err, repo.ErrNotFound) {
		r.logger.Info("heartbeat from unknown worker, registering", "worker_id", reg.WorkerID)
		_, err = r.Register(ctx, reg)
	}
	return err
}

// Get возвращает worker'а по ID.
func (r *Registry) Get(ctx context.Context, workerID string) (*domain.Worker, error) {
	return r.store.Get(ctx, workerID)
}

// List возвращает всех worker'ов, включая inactive.
func (r *Registry) List(ctx context.Context) ([]domain.Worker, error) {
	return r.store.List(ctx)
}

// ActiveWorkers возвращает worker'ов, пригодных для маршрутизации:
// active и с heartbeat не старше таймаута.
func (r *Registry) ActiveWorkers(ctx context.Context) ([]domain.Worker, error) {
	deadline := time.Now().UTC().Add(-r.timeout)
	return r.store.ListActive(ctx, deadline)
}

// Sweep помечает inactive worker'ов с истёкшим heartbeat.
func (r *Registry) Sweep(ctx context.Context) error {
	deadline := time.Now().UTC().Add(-r.timeout)
	ids, err := r.store.MarkInactive(ctx, deadline)
	if err != nil {
		return fmt.Errorf("sweep workers: %w", err)
	}
	for _, id := range ids {
		r.logger.Warn("worker marked inactive", "worker_id", id)
	}
	return nil
}
