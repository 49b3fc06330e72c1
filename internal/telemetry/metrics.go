package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики ядра. Регистрируются в default registry,
// отдаются через promhttp на /metrics каждого сервиса.
var (
	// ExecutionsTotal — количество executions по финальному статусу.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudo_executions_total",
		Help: "Executions that reached a terminal status",
	}, []string{"status"})

	// TriggersTotal — количество принятых триггеров по источнику.
	TriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudo_triggers_total",
		Help: "Trigger requests accepted by the gateway",
	}, []string{"source"})

	// RoutingAttemptsTotal — попытки маршрутизации (включая неудачные).
	RoutingAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudo_routing_attempts_total",
		Help: "Routing attempts performed by the router",
	})

	// ApprovalsTotal — решения approval gate.
	ApprovalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudo_approvals_total",
		Help: "Approval decisions by outcome",
	}, []string{"decision"})

	// EscalationsTotal — отправленные эскалации.
	EscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudo_escalations_total",
		Help: "Escalations delivered to the on-call pager",
	})

	// InvalidTransitionsTotal — отброшенные недопустимые переходы статусов.
	InvalidTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudo_invalid_transitions_total",
		Help: "Status transitions rejected by the lifecycle manager",
	})

	// ExecutionDuration — длительность выполнения от старта до финала.
	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cloudo_execution_duration_seconds",
		Help:    "Execution duration from running to terminal status",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
