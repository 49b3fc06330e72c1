package api

import (
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

// TriggerManualRequest — тело POST /triggers/manual.
type TriggerManualRequest struct {
	Partition   string            `json:"partition,omitempty"`
	SchemaID    string            `json:"schema_id"`
	Params      map[string]string `json:"params,omitempty"`
	RequestedBy string            `json:"requested_by"`
}

// TriggerAlertRequest — тело POST /triggers/alert (webhook мониторинга).
type TriggerAlertRequest struct {
	Partition        string            `json:"partition,omitempty"`
	SchemaID         string            `json:"schema_id"`
	AlertName        string            `json:"alert_name,omitempty"`
	Severity         string            `json:"severity,omitempty"`
	MonitorCondition string            `json:"monitor_condition,omitempty"`
	Params           map[string]string `json:"params,omitempty"`
}

// DecisionRequest — тело POST /executions/{id}/decision.
type DecisionRequest struct {
	Approver string `json:"approver"`
	Approve  bool   `json:"approve"`
}

// CancelRequest — тело POST /executions/{id}/cancel.
type CancelRequest struct {
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason,omitempty"`
}

// ScheduleEnabledRequest — тело PUT /schedules/{id}/enabled.
type ScheduleEnabledRequest struct {
	Enabled   bool   `json:"enabled"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

// ExecutionResponse — представление execution в ответах API.
type ExecutionResponse struct {
	domain.Execution

	// DurationSeconds — длительность выполнения для завершённых executions.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// ExecutionFromDomain собирает ExecutionResponse.
func ExecutionFromDomain(e *domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		Execution:       *e,
		DurationSeconds: e.Duration().Seconds(),
	}
}

// ExecutionsFromDomain собирает список ExecutionResponse.
func ExecutionsFromDomain(execs []domain.Execution) []ExecutionResponse {
	out := make([]ExecutionResponse, 0, len(execs))
	for i := range execs {
		out = append(out, ExecutionFromDomain(&execs[i]))
	}
	return out
}
