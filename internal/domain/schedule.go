package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание автоматического запуска runbook'а.
//
// Scheduler проверяет NextDueAt и создаёт execution через Trigger Gateway,
// когда время подошло. Ключ идемпотентности "{id}_{due_unix}" гарантирует
// не более одного execution на один запланированный момент.
type Schedule struct {
	// ID — уникальный идентификатор расписания.
	ID uuid.UUID `json:"id"`

	// Name — имя расписания.
	Name string `json:"name"`

	// Partition, SchemaID — схема, которую запускаем.
	Partition string `json:"partition"`
	SchemaID  string `json:"schema_id"`

	// CronExpr — cron-выражение ("0 9 * * *" и т.п., 5 полей).
	CronExpr string `json:"cron_expr"`

	// Timezone — часовой пояс для вычисления времени (default "UTC").
	Timezone string `json:"timezone"`

	// Params — параметры запуска, передаются в каждый execution.
	Params map[string]string `json:"params,omitempty"`

	// Enabled — выключенные расписания игнорируются планировщиком.
	Enabled bool `json:"enabled"`

	// NextDueAt — время следующего запуска.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastExecID — последний созданный execution.
	LastExecID *uuid.UUID `json:"last_exec_id,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDue проверяет, пора ли запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled || s.NextDueAt == nil {
		return false
	}
	return !now.Before(*s.NextDueAt)
}

// RecordRun записывает факт запуска и следующее плановое время.
func (s *Schedule) RecordRun(execID uuid.UUID, nextDue time.Time) {
	now := time.Now().UTC()
	s.LastRunAt = &now
	s.LastExecID = &execID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}
