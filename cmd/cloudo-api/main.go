package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagopa/payments-ClouDO-sub002/internal/api"
	"github.com/pagopa/payments-ClouDO-sub002/internal/approval"
	"github.com/pagopa/payments-ClouDO-sub002/internal/audit"
	"github.com/pagopa/payments-ClouDO-sub002/internal/escalation"
	"github.com/pagopa/payments-ClouDO-sub002/internal/gateway"
	"github.com/pagopa/payments-ClouDO-sub002/internal/lifecycle"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
	"github.com/pagopa/payments-ClouDO-sub002/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudo_api_http_requests_total",
		Help: "Total HTTP requests handled by cloudo_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting cloudo-api")

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	schemaRepo := repo.NewSchemaRepo(pool)
	execRepo := repo.NewExecutionRepo(pool)
	workerRepo := repo.NewWorkerRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)
	approvalRepo := repo.NewApprovalRepo(pool)
	auditRepo := repo.NewAuditRepo(pool)

	auditLog := audit.NewLog(auditRepo, logger)

	// Lifecycle: API применяет переходы для cancel и approval-решений.
	lcm := lifecycle.New(lifecycle.Config{
		Store:  execRepo,
		Audit:  auditRepo,
		Logger: logger,
	})

	gw := gateway.New(gateway.Config{
		Schemas:    schemaRepo,
		Executions: execRepo,
		Approvals:  approvalRepo,
		Audit:      auditRepo,
		Logger:     logger,
	})

	gate := approval.New(approval.Config{
		Store:     approvalRepo,
		Lifecycle: lcm,
		Notifier:  slackNotifier(),
		Logger:    logger,
	})

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Schemas:    schemaRepo,
		Executions: execRepo,
		Workers:    workerRepo,
		Schedules:  scheduleRepo,
		Gateway:    gw,
		Approvals:  gate,
		Lifecycle:  lcm,
		Audit:      auditLog,
		Logger:     logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// slackNotifier создаёт Slack-уведомления о решениях,
// если задан SLACK_WEBHOOK_URL.
func slackNotifier() approval.Notifier {
	webhook := os.Getenv("SLACK_WEBHOOK_URL")
	if webhook == "" {
		return nil
	}
	return escalation.NewSlackNotifier(webhook)
}
