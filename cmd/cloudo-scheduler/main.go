package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagopa/payments-ClouDO-sub002/internal/gateway"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
	"github.com/pagopa/payments-ClouDO-sub002/internal/scheduler"
	"github.com/pagopa/payments-ClouDO-sub002/internal/telemetry"
)

// schedLockKey — advisory-lock для выбора лидера: тикает
// только один экземпляр планировщика.
const schedLockKey int64 = 424242

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting cloudo-scheduler")

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
	schemaRepo := repo.NewSchemaRepo(pool)
	execRepo := repo.NewExecutionRepo(pool)
	approvalRepo := repo.NewApprovalRepo(pool)
	auditRepo := repo.NewAuditRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	gw := gateway.New(gateway.Config{
		Schemas:    schemaRepo,
		Executions: execRepo,
		Approvals:  approvalRepo,
		Audit:      auditRepo,
		Logger:     logger,
	})

	sched := scheduler.New(scheduler.Config{
		Store:   scheduleRepo,
		Gateway: gw,
		Logger:  logger,
	})

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// scheduler loop
	go func() {
		tk := time.NewTicker(1 * time.Second)
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				// пытаемся стать лидером (или подтвердить лидерство)
				if !hasLock {
					var ok bool
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
						logger.Error("leader lock error", "error", err)
						continue
					}
					if ok {
						logger.Info("became scheduler leader")
					}
					hasLock = ok
				}

				if !hasLock {
					// не лидер — пропускаем тик
					continue
				}

				if err := sched.Tick(ctx); err != nil {
					logger.Error("scheduler tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// serve
	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("cloudo-scheduler stopped")
}
