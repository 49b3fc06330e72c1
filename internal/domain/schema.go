package domain

import (
	"strings"
	"time"
)

// RunbookSchema — определение runbook'а в реестре схем.
//
// Schema — это "паспорт" операционного сценария: что запускать (runbook),
// с какими аргументами, на каком пуле worker'ов и с какими требованиями
// governance (approval, oncall-эскалация).
//
// Уникально идентифицируется парой (Partition, ID).
// После того как execution сослался на схему, её копия (SchemaSnapshot)
// живёт внутри execution и не зависит от последующих правок реестра.
type RunbookSchema struct {
	// Partition — раздел реестра (например, "default" или имя команды).
	Partition string `json:"partition"`

	// ID — уникальный идентификатор схемы внутри раздела.
	ID string `json:"id"`

	// Name — человекочитаемое имя сценария.
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// Runbook — ссылка на исполняемый сценарий (имя скрипта/артефакта).
	Runbook string `json:"runbook"`

	// RunArgs — аргументы запуска, передаются worker'у как есть.
	RunArgs string `json:"run_args,omitempty"`

	// Worker — требуемый worker или пул (capability), по которому
	// router отбирает кандидатов.
	Worker string `json:"worker"`

	// Oncall — если true, финальный failed/error execution эскалируется
	// во внешний paging.
	Oncall bool `json:"oncall"`

	// RequireApproval — если true, каждый запуск проходит через approval gate.
	RequireApproval bool `json:"require_approval"`

	// Tags — произвольные метки для поиска и маршрутизации алертов.
	Tags []string `json:"tags,omitempty"`

	// CreatedAt — время создания записи в реестре.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize приводит поля схемы к каноническому виду
// (обрезка пробелов, дефолтный partition).
func (s *RunbookSchema) Normalize() {
	s.Partition = strings.TrimSpace(s.Partition)
	if s.Partition == "" {
		s.Partition = "default"
	}
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Runbook = strings.TrimSpace(s.Runbook)
	s.RunArgs = strings.TrimSpace(s.RunArgs)
	s.Worker = strings.TrimSpace(s.Worker)
}

// Validate проверяет минимальную корректность схемы.
func (s *RunbookSchema) Validate() error {
	if s.ID == "" {
		return ErrSchemaIDRequired
	}
	if s.Runbook == "" {
		return ErrSchemaRunbookRequired
	}
	if s.Worker == "" {
		return ErrSchemaWorkerRequired
	}
	return nil
}

// Snapshot возвращает неизменяемую копию схемы для встраивания в Execution.
func (s *RunbookSchema) Snapshot() SchemaSnapshot {
	return SchemaSnapshot{
		Partition:       s.Partition,
		SchemaID:        s.ID,
		Name:            s.Name,
		Runbook:         s.Runbook,
		RunArgs:         s.RunArgs,
		Worker:          s.Worker,
		Oncall:          s.Oncall,
		RequireApproval: s.RequireApproval,
	}
}

// SchemaSnapshot — копия полей схемы на момент создания execution.
//
// Snapshot гарантирует, что правка или удаление схемы в реестре не меняет
// поведение уже созданных executions (инвариант "ровно одна владеющая
// схема на момент создания").
type SchemaSnapshot struct {
	Partition       string `json:"partition"`
	SchemaID        string `json:"schema_id"`
	Name            string `json:"name"`
	Runbook         string `json:"runbook"`
	RunArgs         string `json:"run_args,omitempty"`
	Worker          string `json:"worker"`
	Oncall          bool   `json:"oncall"`
	RequireApproval bool   `json:"require_approval"`
}
