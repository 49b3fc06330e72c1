package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
)

// Default configuration values.
const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultPrefetch          = 1
	maxOutputLen             = 8192
)

// Agent — worker-агент.
type Agent struct {
	workerID     string
	capabilities []string
	pool         string

	conn      *mq.Connection
	publisher *mq.Publisher
	runner    Runner

	consumer *mq.Consumer

	heartbeatInterval time.Duration
	prefetch          int

	// active — количество выполняемых сейчас runbook'ов.
	active atomic.Int64

	// procs — таблица выполняемых runbook'ов для listing/stop.
	procs *processTable

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Agent.
type Config struct {
	// WorkerID — имя worker'а (default: hostname).
	WorkerID string

	// Capabilities — поддерживаемые capability.
	Capabilities []string

	// Pool — пул worker'а.
	Pool string

	// MQ
	Conn      *mq.Connection
	Publisher *mq.Publisher

	// Runner — исполнитель runbook'ов.
	Runner Runner

	// HeartbeatInterval — период heartbeat (default: 30s).
	HeartbeatInterval time.Duration

	// Prefetch — параллелизм потребления dispatch-очереди (default: 1).
	Prefetch int

	Logger *slog.Logger
}

// New создаёт новый Agent.
func New(cfg Config) *Agent {
	workerID := cfg.WorkerID
	if workerID == "" {
		if host, err := os.Hostname(); err == nil {
			workerID = host
		} else {
			workerID = "worker"
		}
	}

	heartbeatInterval := cfg.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		workerID:          workerID,
		capabilities:      cfg.Capabilities,
		pool:              cfg.Pool,
		conn:              cfg.Conn,
		publisher:         cfg.Publisher,
		runner:            cfg.Runner,
		heartbeatInterval: heartbeatInterval,
		prefetch:          prefetch,
		procs:             newProcessTable(),
		logger:            logger.With("worker_id", workerID),
	}
}

// WorkerID возвращает имя агента.
func (a *Agent) WorkerID() string {
	return a.workerID
}

// ActiveProcesses возвращает количество выполняемых runbook'ов.
func (a *Agent) ActiveProcesses() int {
	return int(a.active.Load())
}

// Processes возвращает выполняемые сейчас runbook'и.
func (a *Agent) Processes() []Process {
	return a.procs.list()
}

// StopProcess отменяет выполняемый runbook. Runbook завершается
// как failed и отчитывается обычным путём через events.status.
// Возвращает false, если execution здесь не выполняется.
func (a *Agent) StopProcess(execID uuid.UUID) bool {
	stopped := a.procs.stop(execID)
	if stopped {
		a.logger.Info("process stopped by operator", "exec_id", execID)
	}
	return stopped
}

// Start запускает агент: объявляет dispatch-очередь, начинает
// её потребление и шлёт первый heartbeat (он же регистрация).
func (a *Agent) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel

	queue, err := mq.DeclareDispatchQueue(ctx, a.conn, a.workerID)
	if err != nil {
		return fmt.Errorf("declare dispatch queue: %w", err)
	}

	a.logger.Info("starting agent",
		"queue", queue,
		"pool", a.pool,
		"capabilities", a.capabilities,
	)

	a.consumer = mq.NewConsumer(a.conn, a.logger, mq.ConsumerConfig{
		Queue:    string(queue),
		Handler:  a.handleDispatch,
		Prefetch: a.prefetch,
	})

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("dispatch consumer error", "error", err)
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.heartbeatLoop(ctx)
	}()

	a.logger.Info("agent started")
	return nil
}

// Stop останавливает агент, дождавшись текущих runbook'ов.
func (a *Agent) Stop() {
	a.logger.Info("stopping agent...")

	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	if a.consumer != nil {
		a.consumer.Stop()
	}

	a.wg.Wait()
	a.logger.Info("agent stopped")
}

// heartbeatLoop шлёт heartbeat с регистрационными данными.
// Первый heartbeat уходит сразу: он регистрирует worker'а в реестре.
func (a *Agent) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(a.heartbeatInterval)
	defer ticker.Stop()

	a.sendHeartbeat(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sendHeartbeat(ctx)
		}
	}
}

func (a *Agent) sendHeartbeat(ctx context.Context) {
	err := a.publisher.PublishHeartbeat(ctx, mq.HeartbeatPayload{
		WorkerID:        a.workerID,
		Capabilities:    a.capabilities,
		Pool:            a.pool,
		ActiveProcesses: a.ActiveProcesses(),
	})
	if err != nil {
		a.logger.Warn("failed to publish heartbeat", "error", err)
	}
}
