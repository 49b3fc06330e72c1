// ClouDO Worker — выполняет runbook'и.
//
// Worker:
//   - Объявляет персональную dispatch-очередь и потребляет из неё
//   - Запускает runbook-скрипты через ShellRunner
//   - Отчитывается о статусе в events.status
//   - Шлёт heartbeat'ы в events.heartbeat (первый — регистрация)
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagopa/payments-ClouDO-sub002/internal/agent"
	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
	"github.com/pagopa/payments-ClouDO-sub002/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting cloudo-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// RabbitMQ: worker без брокера бесполезен.
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

	runbookDir := os.Getenv("RUNBOOK_DIR")
	if runbookDir == "" {
		runbookDir = "./runbooks"
	}

	var capabilities []string
	if v := os.Getenv("WORKER_CAPABILITIES"); v != "" {
		capabilities = strings.Split(v, ",")
	}

	// Создаём agent
	a := agent.New(agent.Config{
		WorkerID:     os.Getenv("WORKER_ID"),
		Capabilities: capabilities,
		Pool:         os.Getenv("WORKER_POOL"),
		Conn:         mqConn,
		Publisher:    publisher,
		Runner: &agent.DispatchRunner{
			Shell:   &agent.ShellRunner{Dir: runbookDir},
			Webhook: agent.NewWebhookRunner(0),
		},
		Logger: logger,
	})

	// Запускаем agent
	if err := a.Start(ctx); err != nil {
		logger.Error("failed to start agent", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics + операторские endpoint'ы процессов
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	a.Routes(mux)

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
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

	// Останавливаем agent
	a.Stop()
	logger.Info("cloudo-worker stopped")
}
