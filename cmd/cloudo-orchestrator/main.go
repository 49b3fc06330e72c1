// ClouDO Orchestrator — ядро управления executions.
//
// Orchestrator:
//   - Принимает status-события и heartbeat'ы из RabbitMQ
//   - Маршрутизирует accepted executions на worker'ов
//   - Гоняет watchdog для зависших executions
//   - Переводит истёкшие approvals в expired
//   - Эскалирует провалы oncall-схем
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagopa/payments-ClouDO-sub002/internal/approval"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/escalation"
	"github.com/pagopa/payments-ClouDO-sub002/internal/lifecycle"
	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
	"github.com/pagopa/payments-ClouDO-sub002/internal/orchestrator"
	"github.com/pagopa/payments-ClouDO-sub002/internal/registry"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
	"github.com/pagopa/payments-ClouDO-sub002/internal/router"
	"github.com/pagopa/payments-ClouDO-sub002/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting cloudo-orchestrator")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	execRepo := repo.NewExecutionRepo(pool)
	workerRepo := repo.NewWorkerRepo(pool)
	approvalRepo := repo.NewApprovalRepo(pool)
	auditRepo := repo.NewAuditRepo(pool)
	escalationRepo := repo.NewEscalationRepo(pool)

	// RabbitMQ: без брокера orchestrator не может ни принимать
	// status-события, ни отправлять задания worker'ам.
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	// Создаём топологию
	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	publisher := mq.NewPublisher(mqConn, logger)

	// Lifecycle с эскалацией провалов и освобождением load-счётчиков.
	lcm := lifecycle.New(lifecycle.Config{
		Store:  execRepo,
		Audit:  auditRepo,
		Logger: logger,
	})

	var slack *escalation.SlackNotifier
	if webhook := os.Getenv("SLACK_WEBHOOK_URL"); webhook != "" {
		slack = escalation.NewSlackNotifier(webhook)
	}

	escCfg := escalation.Config{
		Pager:  opsgeniePager(),
		Dedup:  escalationRepo,
		Audit:  auditRepo,
		Logger: logger,
	}
	if slack != nil {
		escCfg.Notifier = slack
	}
	escMgr := escalation.New(escCfg)
	lcm.OnTerminal(escMgr.TerminalHook())

	loads := registry.NewLoadTracker()
	lcm.OnTerminal(func(ctx context.Context, e *domain.Execution) {
		if e.RoutedWorker != "" {
			loads.Dec(e.RoutedWorker)
		}
	})

	reg := registry.New(registry.Config{
		Store: workerRepo,
		DeclareQueue: func(ctx context.Context, workerID string) (string, error) {
			q, err := mq.DeclareDispatchQueue(ctx, mqConn, workerID)
			return string(q), err
		},
		Logger: logger,
	})

	rt := router.New(router.Config{
		Workers:    reg,
		Store:      execRepo,
		Dispatcher: publisher,
		Loads:      loads,
		Audit:      auditRepo,
		Policy:     &router.TerminalErrorPolicy{Lifecycle: lcm},
		Logger:     logger,
	})

	gateCfg := approval.Config{
		Store:     approvalRepo,
		Lifecycle: lcm,
		Logger:    logger,
	}
	if slack != nil {
		gateCfg.Notifier = slack
	}
	gate := approval.New(gateCfg)

	// Создаём orchestrator
	orch := orchestrator.New(orchestrator.Config{
		Store:     execRepo,
		Router:    rt,
		Lifecycle: lcm,
		Registry:  reg,
		Approvals: gate,
		Conn:      mqConn,
		Logger:    logger,
	})

	// Запускаем orchestrator
	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ORCH_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем orchestrator
	orch.Stop()
	logger.Info("cloudo-orchestrator stopped")
}

// opsgeniePager создаёт Opsgenie-пейджер, если задан OPSGENIE_API_KEY.
func opsgeniePager() escalation.Pager {
	apiKey := os.Getenv("OPSGENIE_API_KEY")
	if apiKey == "" {
		return nil
	}
	baseURL := os.Getenv("OPSGENIE_API_URL")
	return escalation.NewOpsgeniePager(baseURL, apiKey)
}
