package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction — тип операции в audit-журнале.
type AuditAction string

// Действия, порождающие записи журнала.
const (
	ActionTrigger        AuditAction = "TRIGGER"
	ActionApprove        AuditAction = "APPROVE"
	ActionReject         AuditAction = "REJECT"
	ActionExpire         AuditAction = "EXPIRE"
	ActionRoute          AuditAction = "ROUTE"
	ActionStart          AuditAction = "START"
	ActionComplete       AuditAction = "COMPLETE"
	ActionError          AuditAction = "ERROR"
	ActionCancel         AuditAction = "CANCEL"
	ActionEscalate       AuditAction = "ESCALATE"
	ActionSchemaDelete   AuditAction = "SCHEMA_DELETE"
	ActionScheduleToggle AuditAction = "SCHEDULE_TOGGLE"
)

// AuditEntry — одна запись append-only журнала.
//
// Журнал неизменяем: записи никогда не обновляются и не удаляются через
// ядро. Партиционируется по дню (PartitionKey "YYYYMMDD"), внутри дня
// упорядочивается по Timestamp.
type AuditEntry struct {
	// PartitionKey — день записи в формате YYYYMMDD (UTC).
	PartitionKey string `json:"partition_key"`

	// RowKey — уникальный ключ записи внутри партиции.
	RowKey uuid.UUID `json:"row_key"`

	// Timestamp — момент операции.
	Timestamp time.Time `json:"timestamp"`

	// Operator — кто выполнил операцию (оператор или компонент системы).
	Operator string `json:"operator"`

	// Action — тип операции.
	Action AuditAction `json:"action"`

	// ExecID — затронутый execution (если применимо).
	ExecID *uuid.UUID `json:"exec_id,omitempty"`

	// Target — затронутый объект (schema id, worker id, schedule id).
	Target string `json:"target,omitempty"`

	// Status — статус execution после операции (если применимо).
	Status ExecStatus `json:"status,omitempty"`

	// Details — произвольные детали (обрезанные логи, причина ошибки).
	Details string `json:"details,omitempty"`
}

// DayPartition возвращает ключ дневной партиции журнала для момента t.
func DayPartition(t time.Time) string {
	return t.UTC().Format("20060102")
}

// NewAuditEntry создаёт запись журнала с партицией текущего дня.
func NewAuditEntry(operator string, action AuditAction) AuditEntry {
	now := time.Now().UTC()
	return AuditEntry{
		PartitionKey: DayPartition(now),
		RowKey:       uuid.New(),
		Timestamp:    now,
		Operator:     operator,
		Action:       action,
	}
}
