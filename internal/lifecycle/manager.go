package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
	"github.com/pagopa/payments-ClouDO-sub002/internal/telemetry"
)

// Default configuration values.
const (
	defaultStartTimeout = 5 * time.Minute
	defaultRunTimeout   = 2 * time.Hour
	defaultBatchSize    = 100
	maxDetailsLen       = 8192
)

// ExecutionStore — хранилище executions.
type ExecutionStore interface {
	GetByID(ctx context.Context, execID uuid.UUID) (*domain.Execution, error)
	UpdateStatusCAS(ctx context.Context, e *domain.Execution, from domain.ExecStatus) error
	ListStuck(ctx context.Context, status domain.ExecStatus, olderThan time.Time, limit int) ([]domain.Execution, error)
}

// AuditStore — append-only журнал.
type AuditStore interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
}

// Hook вызывается после достижения execution'ом финального статуса.
// Хуки не должны блокировать надолго: они выполняются синхронно
// внутри Apply.
type Hook func(ctx context.Context, e *domain.Execution)

// Manager — менеджер жизненного цикла executions.
type Manager struct {
	store ExecutionStore
	audit AuditStore

	startTimeout time.Duration
	runTimeout   time.Duration
	batchSize    int

	// Per-execution мьютексы: конкурентные переходы одного execution
	// сериализуются, разных — идут параллельно.
	mu    sync.Mutex
	locks map[uuid.UUID]*execLock

	hooks []Hook

	logger *slog.Logger
}

type execLock struct {
	sync.Mutex
	refs int
}

// Config — конфигурация Manager.
type Config struct {
	Store ExecutionStore
	Audit AuditStore

	// StartTimeout — сколько execution может висеть в routed
	// без подтверждения старта (default: 5m).
	StartTimeout time.Duration

	// RunTimeout — максимальная длительность running (default: 2h).
	RunTimeout time.Duration

	// BatchSize — размер выборки watchdog'а (default: 100).
	BatchSize int

	Logger *slog.Logger
}

// New создаёт новый Manager.
func New(cfg Config) *Manager {
	startTimeout := cfg.StartTimeout
	if startTimeout <= 0 {
		startTimeout = defaultStartTimeout
	}

	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:        cfg.Store,
		audit:        cfg.Audit,
		startTimeout: startTimeout,
		runTimeout:   runTimeout,
		batchSize:    batchSize,
		locks:        make(map[uuid.UUID]*execLock),
		logger:       logger,
	}
}

// OnTerminal регистрирует хук финального статуса.
// Не потокобезопасно: хуки регистрируются при сборке сервиса, до Start.
func (m *Manager) OnTerminal(hook Hook) {
	m.hooks = append(m.hooks, hook)
}

// Transition — запрос на смену статуса.
type Transition struct {
	ExecID uuid.UUID
	Next   domain.ExecStatus

	// By — кто инициировал переход (оператор, worker или компонент).
	By string

	// Result — вывод worker'а для succeeded/failed.
	Result string

	// Error — текст ошибки для failed/error.
	Error string

	// Action — действие для audit-записи.
	// Пустое — выводится из Next (см. actionFor).
	Action domain.AuditAction
}

// Apply применяет переход статуса.
//
// Недопустимый переход (поздний или дублирующий callback) не меняет
// execution: он логируется, учитывается в метриках и возвращается как
// ErrTransitionDropped.
func (m *Manager) Apply(ctx context.Context, t Transition) (*domain.Execution, error) {
	lock := m.acquire(t.ExecID)
	defer m.release(t.ExecID, lock)

	e, err := m.store.GetByID(ctx, t.ExecID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("load execution: %w", err)
	}

	from := e.Status
	if err := e.Transition(t.Next); err != nil {
		m.logger.Warn("transition dropped",
			"exec_id", t.ExecID,
			"from", from,
			"to", t.Next,
			"by", t.By,
		)
		telemetry.InvalidTransitionsTotal.Inc()
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionDropped, from, t.Next)
	}

	if t.Result != "" {
		e.Result = truncate(t.Result)
	}
	if t.Error != "" {
		e.Error = truncate(t.Error)
	}

	if err := m.store.UpdateStatusCAS(ctx, e, from); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			// Другой инстанс успел раньше.
			telemetry.InvalidTransitionsTotal.Inc()
			return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionDropped, from, t.Next)
		}
		return nil, fmt.Errorf("persist transition: %w", err)
	}

	m.recordAudit(ctx, e, t)

	m.logger.Info("execution transitioned",
		"exec_id", e.ExecID,
		"schema_id", e.Schema.SchemaID,
		"from", from,
		"to", e.Status,
		"by", t.By,
	)

	if e.Status.IsTerminal() {
		telemetry.ExecutionsTotal.WithLabelValues(string(e.Status)).Inc()
		if d := e.Duration(); d > 0 {
			telemetry.ExecutionDuration.Observe(d.Seconds())
		}
		for _, hook := range m.hooks {
			hook(ctx, e)
		}
	}

	return e, nil
}

// recordAudit пишет запись о переходе. Ошибка журнала не откатывает
// переход: статус уже в БД, потеря audit-записи логируется.
func (m *Manager) recordAudit(ctx context.Context, e *domain.Execution, t Transition) {
	action := t.Action
	if action == "" {
		action = actionFor(e.Status)
	}

	operator := t.By
	if operator == "" {
		operator = "system"
	}

	entry := domain.NewAuditEntry(operator, action)
	execID := e.ExecID
	entry.ExecID = &execID
	entry.Target = e.Schema.SchemaID
	entry.Status = e.Status
	entry.Details = truncate(firstNonEmpty(t.Error, t.Result))

	if err := m.audit.Append(ctx, &entry); err != nil {
		m.logger.Error("failed to append audit entry",
			"exec_id", e.ExecID,
			"action", action,
			"error", err,
		)
	}
}

// WatchdogPass переводит в error executions, зависшие в routed
// или running дольше таймаутов.
func (m *Manager) WatchdogPass(ctx context.Context) error {
	now := time.Now().UTC()

	stuck := []struct {
		status domain.ExecStatus
		before time.Time
		reason string
	}{
		{domain.StatusRouted, now.Add(-m.startTimeout), "worker did not confirm start"},
		{domain.StatusRunning, now.Add(-m.runTimeout), "worker stopped reporting progress"},
	}

	for _, s := range stuck {
		execs, err := m.store.ListStuck(ctx, s.status, s.before, m.batchSize)
		if err != nil {
			return fmt.Errorf("list stuck %s executions: %w", s.status, err)
		}

		for i := range execs {
			e := &execs[i]
			_, err := m.Apply(ctx, Transition{
				ExecID: e.ExecID,
				Next:   domain.StatusError,
				By:     "watchdog",
				Error:  s.reason,
			})
			if err != nil && !errors.Is(err, ErrTransitionDropped) {
				m.logger.Error("watchdog failed to error execution",
					"exec_id", e.ExecID,
					"error", err,
				)
			}
		}
	}

	return nil
}

// --- Helpers ---

func (m *Manager) acquire(execID uuid.UUID) *execLock {
	m.mu.Lock()
	lock, ok := m.locks[execID]
	if !ok {
		lock = &execLock{}
		m.locks[execID] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.Lock()
	return lock
}

func (m *Manager) release(execID uuid.UUID, lock *execLock) {
	lock.Unlock()

	m.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, execID)
	}
	m.mu.Unlock()
}

// actionFor возвращает audit-действие по умолчанию для статуса.
func actionFor(status domain.ExecStatus) domain.AuditAction {
	switch status {
	case domain.StatusAccepted:
		return domain.ActionApprove
	case domain.StatusRouted:
		return domain.ActionRoute
	case domain.StatusRunning:
		return domain.ActionStart
	case domain.StatusSucceeded, domain.StatusFailed:
		return domain.ActionComplete
	case domain.StatusError:
		return domain.ActionError
	case domain.StatusRejected:
		return domain.ActionReject
	case domain.StatusSkipped:
		return domain.ActionCancel
	default:
		return domain.ActionTrigger
	}
}

func truncate(s string) string {
	if len(s) > maxDetailsLen {
		return s[:maxDetailsLen]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
