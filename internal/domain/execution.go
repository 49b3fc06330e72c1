package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Execution — один конкретный запуск runbook'а.
//
// Execution создаётся Trigger Gateway'ем (вручную, по алерту или по
// расписанию) и дальше мутируется исключительно Lifecycle Manager'ом:
// каждый переход статуса проходит проверку монотонности и порождает
// ровно одну запись в audit-журнале.
//
// Записи хранятся бессрочно (append-модель): финальные executions не
// удаляются, кроме явной операторской очистки вне ядра.
type Execution struct {
	// ExecID — уникальный идентификатор запуска.
	ExecID uuid.UUID `json:"exec_id"`

	// Schema — снимок схемы на момент создания.
	Schema SchemaSnapshot `json:"schema"`

	// Status — текущий статус (см. ExecStatus).
	Status ExecStatus `json:"status"`

	// Source — источник запуска: manual, alert или schedule.
	Source TriggerSource `json:"source"`

	// ScheduleID — идентификатор расписания для scheduled-запусков.
	ScheduleID *uuid.UUID `json:"schedule_id,omitempty"`

	// IdempotencyKey — ключ идемпотентности scheduled-запусков
	// ("{schedule_id}_{due_unix}"). Пуст для ручных запусков: два ручных
	// триггера одной схемы всегда дают два независимых execution.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Params — параметры, переданные при запуске (поверх RunArgs схемы).
	Params map[string]string `json:"params,omitempty"`

	// Severity — severity алерта-источника (например, "Sev2"), если есть.
	Severity string `json:"severity,omitempty"`

	// MonitorCondition — состояние монитора алерта-источника (Fired/Resolved).
	MonitorCondition string `json:"monitor_condition,omitempty"`

	// RequestedBy — кто инициировал запуск (оператор или система).
	RequestedBy string `json:"requested_by,omitempty"`

	// RequestedAt — время создания execution.
	RequestedAt time.Time `json:"requested_at"`

	// RoutedWorker — worker, которому назначен execution (после routed).
	RoutedWorker string `json:"routed_worker,omitempty"`

	// RoutingAttempts — число выполненных попыток маршрутизации.
	RoutingAttempts int `json:"routing_attempts,omitempty"`

	// StartedAt — время подтверждения старта worker'ом.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt — время достижения финального статуса.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result — финальный вывод worker'а (обрезанный лог выполнения).
	Result string `json:"result,omitempty"`

	// Error — текст ошибки для failed/error.
	Error string `json:"error,omitempty"`
}

// NewExecution создаёт pending execution из снимка схемы.
func NewExecution(snap SchemaSnapshot, req TriggerRequest) *Execution {
	e := &Execution{
		ExecID:           uuid.New(),
		Schema:           snap,
		Status:           StatusPending,
		Source:           req.Source,
		Params:           req.Params,
		Severity:         req.Severity,
		MonitorCondition: req.MonitorCondition,
		RequestedBy:      req.RequestedBy,
		RequestedAt:      time.Now().UTC(),
	}
	if req.Source == SourceSchedule {
		id := req.ScheduleID
		e.ScheduleID = &id
		e.IdempotencyKey = req.IdempotencyKey()
	}
	return e
}

// IsFinished возвращает true, если execution в финальном статусе.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, пока execution не завершён.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(*e.StartedAt)
}

// Transition применяет переход статуса с проверкой монотонности.
// Возвращает ErrInvalidTransition, не меняя execution, если переход
// недопустим (поздний или дублирующий callback).
func (e *Execution) Transition(next ExecStatus) error {
	if !e.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s (exec %s)", ErrInvalidTransition, e.Status, next, e.ExecID)
	}

	now := time.Now().UTC()
	e.Status = next

	switch {
	case next == StatusRunning:
		e.StartedAt = &now
	case next.IsTerminal():
		e.CompletedAt = &now
	}
	return nil
}

// MarkRouted фиксирует назначение worker'а.
func (e *Execution) MarkRouted(workerID string) error {
	if err := e.Transition(StatusRouted); err != nil {
		return err
	}
	e.RoutedWorker = workerID
	return nil
}
