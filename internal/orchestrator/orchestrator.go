package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/lifecycle"
	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
	"github.com/pagopa/payments-ClouDO-sub002/internal/registry"
)

// Default configuration values.
const (
	defaultPollInterval  = 10 * time.Second
	defaultSweepInterval = 30 * time.Second
	defaultBatchSize     = 100
	defaultConcurrency   = 8
)

// ExecutionStore — выборка executions для маршрутизации.
type ExecutionStore interface {
	ListByStatus(ctx context.Context, status domain.ExecStatus, limit int) ([]domain.Execution, error)
}

// Router маршрутизирует accepted executions.
type Router interface {
	Route(ctx context.Context, e *domain.Execution) error
}

// Lifecycle применяет переходы статусов (см. lifecycle.Manager).
type Lifecycle interface {
	Apply(ctx context.Context, t lifecycle.Transition) (*domain.Execution, error)
	WatchdogPass(ctx context.Context) error
}

// WorkerRegistry принимает heartbeat'ы и размечает inactive worker'ов.
type WorkerRegistry interface {
	Heartbeat(ctx context.Context, reg registry.Registration) error
	Sweep(ctx context.Context) error
}

// ApprovalSweeper переводит истёкшие approval-запросы в expired.
type ApprovalSweeper interface {
	SweepExpired(ctx context.Context) error
}

// Orchestrator — центральный сервис ядра.
type Orchestrator struct {
	store     ExecutionStore
	router    Router
	lifecycle Lifecycle
	registry  WorkerRegistry
	approvals ApprovalSweeper

	conn *mq.Connection

	statusConsumer    *mq.Consumer
	heartbeatConsumer *mq.Consumer

	pollInterval  time.Duration
	sweepInterval time.Duration
	batchSize     int
	concurrency   int

	// routing — executions, находящиеся в Route прямо сейчас.
	// Защищает от повторной выдачи router'у на следующем тике,
	// пока Route ждёт появления worker'ов.
	routing   map[string]struct{}
	routingMu sync.Mutex

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Orchestrator.
type Config struct {
	Store     ExecutionStore
	Router    Router
	Lifecycle Lifecycle
	Registry  WorkerRegistry
	Approvals ApprovalSweeper

	Conn *mq.Connection

	// PollInterval — период выборки accepted executions (default: 10s).
	PollInterval time.Duration

	// SweepInterval — период фоновых sweep'ов (default: 30s).
	SweepInterval time.Duration

	// BatchSize — executions за один poll (default: 100).
	BatchSize int

	// Concurrency — параллельных Route за один poll (default: 8).
	Concurrency int

	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		store:         cfg.Store,
		router:        cfg.Router,
		lifecycle:     cfg.Lifecycle,
		registry:      cfg.Registry,
		approvals:     cfg.Approvals,
		conn:          cfg.Conn,
		pollInterval:  pollInterval,
		sweepInterval: sweepInterval,
		batchSize:     batchSize,
		concurrency:   concurrency,
		routing:       make(map[string]struct{}),
		logger:        logger,
	}
}

// Start запускает Orchestrator.
//
// Запускает:
//   - Consumer для events.status
//   - Consumer для events.heartbeat
//   - Polling accepted executions
//   - Фоновые sweep'ы (watchdog, approvals, workers)
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	o.cancelFunc = cancel

	o.logger.Info("starting orchestrator",
		"poll_interval", o.pollInterval,
		"sweep_interval", o.sweepInterval,
		"batch_size", o.batchSize,
	)

	o.statusConsumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueEventsStatus),
		Handler:  o.handleStatus,
		Prefetch: 10,
	})

	o.heartbeatConsumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueEventsHeartbeat),
		Handler:  o.handleHeartbeat,
		Prefetch: 10,
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.statusConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Error("status consumer error", "error", err)
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.heartbeatConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Error("heartbeat consumer error", "error", err)
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.pollLoop(ctx)
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.sweepLoop(ctx)
	}()

	o.logger.Info("orchestrator started")
	return nil
}

// Stop останавливает Orchestrator.
func (o *Orchestrator) Stop() {
	o.logger.Info("stopping orchestrator...")

	if o.cancelFunc != nil {
		o.cancelFunc()
	}
	if o.statusConsumer != nil {
		o.statusConsumer.Stop()
	}
	if o.heartbeatConsumer != nil {
		o.heartbeatConsumer.Stop()
	}

	o.wg.Wait()
	o.logger.Info("orchestrator stopped")
}

// pollLoop периодически выбирает accepted executions и отдаёт router'у.
func (o *Orchestrator) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте: подхватываем executions,
	// принятые пока orchestrator был выключен.
	o.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

// poll выполняет один цикл выборки и маршрутизации.
func (o *Orchestrator) poll(ctx context.Context) {
	execs, err := o.store.ListByStatus(ctx, domain.StatusAccepted, o.batchSize)
	if err != nil {
		o.logger.Error("failed to list accepted executions", "error", err)
		return
	}

	if len(execs) == 0 {
		return
	}

	o.logger.Debug("poll found accepted executions", "count", len(execs))

	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	for i := range execs {
		e := execs[i]
		if !o.markRouting(e.ExecID.String()) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer o.unmarkRouting(e.ExecID.String())

			if err := o.router.Route(ctx, &e); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Error("failed to route execution",
					"exec_id", e.ExecID,
					"error", err,
				)
			}
		}()
	}

	wg.Wait()
}

// sweepLoop гоняет фоновые проверки.
func (o *Orchestrator) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.lifecycle.WatchdogPass(ctx); err != nil {
				o.logger.Error("watchdog pass failed", "error", err)
			}
			if err := o.approvals.SweepExpired(ctx); err != nil {
				o.logger.Error("approval sweep failed", "error", err)
			}
			if err := o.registry.Sweep(ctx); err != nil {
				o.logger.Error("registry sweep failed", "error", err)
			}
		}
	}
}

func (o *Orchestrator) markRouting(execID string) bool {
	o.routingMu.Lock()
	defer o.routingMu.Unlock()
	if _, ok := o.routing[execID]; ok {
		return false
	}
	o.routing[execID] = struct{}{}
	return true
}

func (o *Orchestrator) unmarkRouting(execID string) {
	o.routingMu.Lock()
	defer o.routingMu.Unlock()
	delete(o.routing, execID)
}
