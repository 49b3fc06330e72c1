package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// TriggerSource — источник запуска execution.
type TriggerSource string

const (
	// SourceManual — запуск оператором через API/CLI.
	SourceManual TriggerSource = "manual"

	// SourceAlert — запуск внешним мониторингом (alert webhook).
	SourceAlert TriggerSource = "alert"

	// SourceSchedule — запуск планировщиком по расписанию.
	SourceSchedule TriggerSource = "schedule"
)

// TriggerRequest — унифицированный запрос на запуск runbook'а.
//
// Ручные, алертовые и scheduled запуски различаются только полем Source
// (и ScheduleID/DueAt для scheduled) — Trigger Gateway обрабатывает все
// варианты одинаково.
type TriggerRequest struct {
	// Partition — раздел реестра схем.
	Partition string

	// SchemaID — идентификатор схемы для запуска.
	SchemaID string

	// Source — источник запуска.
	Source TriggerSource

	// Params — параметры запуска (поверх RunArgs схемы).
	Params map[string]string

	// Severity — severity алерта-источника (только для SourceAlert).
	Severity string

	// MonitorCondition — состояние монитора (Fired/Resolved, только SourceAlert).
	MonitorCondition string

	// RequestedBy — инициатор (оператор, "scheduler", имя монитора).
	RequestedBy string

	// ScheduleID — расписание-источник (только для SourceSchedule).
	ScheduleID uuid.UUID

	// DueUnix — плановое время запуска в unix-секундах (только SourceSchedule).
	// Входит в ключ идемпотентности.
	DueUnix int64
}

// IdempotencyKey возвращает ключ идемпотентности для scheduled-запуска:
// "{schedule_id}_{due_unix}". Для остальных источников — пустую строку.
func (r TriggerRequest) IdempotencyKey() string {
	if r.Source != SourceSchedule {
		return ""
	}
	return fmt.Sprintf("%s_%d", r.ScheduleID, r.DueUnix)
}
