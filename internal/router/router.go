package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/lifecycle"
	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
	"github.com/pagopa/payments-ClouDO-sub002/internal/registry"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
	"github.com/pagopa/payments-ClouDO-sub002/internal/telemetry"
)

// Default configuration values.
const (
	defaultMaxAttempts = 3
	defaultBackoff     = 5 * time.Second
)

// WorkerSource — источник active worker'ов.
type WorkerSource interface {
	ActiveWorkers(ctx context.Context) ([]domain.Worker, error)
}

// ExecutionStore — хранилище executions.
type ExecutionStore interface {
	UpdateStatusCAS(ctx context.Context, e *domain.Execution, from domain.ExecStatus) error
}

// Dispatcher отправляет задание в очередь worker'а.
type Dispatcher interface {
	PublishDispatch(ctx context.Context, workerID string, payload mq.DispatchPayload) error
}

// AuditStore — append-only журнал.
type AuditStore interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
}

// RequeuePolicy решает судьбу execution'а после исчерпания попыток.
type RequeuePolicy interface {
	OnExhausted(ctx context.Context, e *domain.Execution) error
}

// Router — маршрутизатор executions.
type Router struct {
	workers    WorkerSource
	store      ExecutionStore
	dispatcher Dispatcher
	loads      *registry.LoadTracker
	audit      AuditStore
	policy     RequeuePolicy

	maxAttempts int
	backoff     time.Duration

	logger *slog.Logger
}

// Config — конфигурация Router.
type Config struct {
	Workers    WorkerSource
	Store      ExecutionStore
	Dispatcher Dispatcher
	Loads      *registry.LoadTracker
	Audit      AuditStore

	// Policy — обработка исчерпания попыток.
	// nil — execution переводится в error (см. TerminalErrorPolicy).
	Policy RequeuePolicy

	// MaxAttempts — попыток маршрутизации на execution (default: 3).
	MaxAttempts int

	// Backoff — начальная задержка между попытками, удваивается
	// (default: 5s).
	Backoff time.Duration

	Logger *slog.Logger
}

// New создаёт новый Router.
func New(cfg Config) *Router {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loads := cfg.Loads
	if loads == nil {
		loads = registry.NewLoadTracker()
	}

	return &Router{
		workers:     cfg.Workers,
		store:       cfg.Store,
		dispatcher:  cfg.Dispatcher,
		loads:       loads,
		audit:       cfg.Audit,
		policy:      cfg.Policy,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
	}
}

// Route назначает accepted execution worker'у и отправляет задание
// в его очередь.
//
// Если кандидатов нет, повторяет с экспоненциальной задержкой до
// maxAttempts, после чего отдаёт execution в RequeuePolicy.
// Конкурентное назначение того же execution другим инстансом —
// не ошибка: CAS проигрывает, Route молча выходит.
func (r *Router) Route(ctx context.Context, e *domain.Execution) error {
	if e.Status != domain.StatusAccepted {
		return fmt.Errorf("execution %s is %s, want accepted", e.ExecID, e.Status)
	}

	backoff := r.backoff
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		telemetry.RoutingAttemptsTotal.Inc()
		e.RoutingAttempts = attempt

		routed, err := r.tryRoute(ctx, e)
		if err == nil {
			if routed {
				return nil
			}
			// CAS проиграл: execution уже routed или отменён.
			r.logger.Debug("routing lost to concurrent update", "exec_id", e.ExecID)
			return nil
		}
		if !errors.Is(err, ErrNoCandidates) {
			return err
		}

		r.logger.Warn("no candidate workers",
			"exec_id", e.ExecID,
			"capability", e.Schema.Worker,
			"attempt", attempt,
		)

		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return r.exhausted(ctx, e)
}

// tryRoute выполняет одну попытку назначения.
// Возвращает (false, nil), если CAS проиграл конкуренту.
func (r *Router) tryRoute(ctx context.Context, e *domain.Execution) (bool, error) {
	workers, err := r.workers.ActiveWorkers(ctx)
	if err != nil {
		return false, fmt.Errorf("list active workers: %w", err)
	}

	candidate := r.pick(workers, e.Schema.Worker)
	if candidate == nil {
		return false, ErrNoCandidates
	}

	routed := *e
	if err := routed.MarkRouted(candidate.WorkerID); err != nil {
		return false, err
	}

	if err := r.store.UpdateStatusCAS(ctx, &routed, domain.StatusAccepted); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			return false, nil
		}
		return false, fmt.Errorf("persist routing: %w", err)
	}
	*e = routed

	// Переход применён: audit-запись и учёт нагрузки фиксируются
	// независимо от судьбы dispatch-сообщения.
	r.loads.Inc(candidate.WorkerID)
	r.recordAudit(ctx, e, candidate.WorkerID)

	if err := r.dispatcher.PublishDispatch(ctx, candidate.WorkerID, mq.DispatchPayload{
		ExecID:  e.ExecID,
		Runbook: e.Schema.Runbook,
		RunArgs: e.Schema.RunArgs,
		Params:  e.Params,
	}); err != nil {
		// Статус уже routed: если сообщение потеряно, watchdog
		// переведёт execution в error по таймауту старта.
		r.logger.Error("failed to publish dispatch",
			"exec_id", e.ExecID,
			"worker_id", candidate.WorkerID,
			"error", err,
		)
		return true, fmt.Errorf("publish dispatch: %w", err)
	}

	r.logger.Info("execution routed",
		"exec_id", e.ExecID,
		"schema_id", e.Schema.SchemaID,
		"worker_id", candidate.WorkerID,
		"attempt", e.RoutingAttempts,
	)
	return true, nil
}

// pick выбирает наименее загруженного кандидата с нужной capability.
// Загрузка — active_processes из heartbeat плюс назначения этого
// инстанса с момента heartbeat. Ничья разрешается лексикографически
// по worker_id: выбор детерминирован при одинаковых входных данных.
func (r *Router) pick(workers []domain.Worker, capability string) *domain.Worker {
	var best *domain.Worker
	bestLoad := 0

	for i := range workers {
		w := &workers[i]
		if !w.HasCapability(capability) {
			continue
		}

		load := w.ActiveProcesses + r.loads.Load(w.WorkerID)
		if best == nil || load < bestLoad || (load == bestLoad && w.WorkerID < best.WorkerID) {
			best = w
			bestLoad = load
		}
	}
	return best
}

// exhausted отдаёт execution в RequeuePolicy.
func (r *Router) exhausted(ctx context.Context, e *domain.Execution) error {
	if r.policy != nil {
		return r.policy.OnExhausted(ctx, e)
	}
	return ErrRoutingExhausted
}

func (r *Router) recordAudit(ctx context.Context, e *domain.Execution, workerID string) {
	entry := domain.NewAuditEntry("router", domain.ActionRoute)
	execID := e.ExecID
	entry.ExecID = &execID
	entry.Target = e.Schema.SchemaID
	entry.Status = e.Status
	entry.Details = "assigned to " + workerID

	if err := r.audit.Append(ctx, &entry); err != nil {
		r.logger.Error("failed to append audit entry", "exec_id", e.ExecID, "error", err)
	}
}

// TerminalErrorPolicy — политика по умолчанию: после исчерпания
// попыток execution переводится в error.
type TerminalErrorPolicy struct {
	Lifecycle Applier
}

// Applier применяет переходы статусов.
type Applier interface {
	Apply(ctx context.Context, t lifecycle.Transition) (*domain.Execution, error)
}

// OnExhausted переводит execution в error.
func (p *TerminalErrorPolicy) OnExhausted(ctx context.Context, e *domain.Execution) error {
	_, err := p.Lifecycle.Apply(ctx, lifecycle.Transition{
		ExecID: e.ExecID,
		Next:   domain.StatusError,
		By:     "router",
		Error:  "routing attempts exhausted: no candidate workers",
	})
	if errors.Is(err, lifecycle.ErrTransitionDropped) {
		return nil
	}
	return err
}
