package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/telemetry"
)

// Pager — внешний paging-провайдер (Opsgenie и совместимые).
type Pager interface {
	Page(ctx context.Context, alert Alert) error
}

// Alert — pager-алерт.
type Alert struct {
	// Alias — ключ дедупликации на стороне провайдера (exec_id).
	Alias string

	// Message — заголовок алерта.
	Message string

	// Description — детали (схема, статус, ошибка).
	Description string

	// Priority — приоритет в терминах провайдера (P1..P5).
	Priority string
}

// Dedup — барьер "не более одной эскалации на execution".
type Dedup interface {
	MarkEscalated(ctx context.Context, execID uuid.UUID, alias string, at time.Time) (bool, error)
}

// AuditStore — append-only журнал.
type AuditStore interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
}

// Notifier — best-effort уведомления о неуспехе (Slack).
type Notifier interface {
	NotifyFailure(ctx context.Context, e *domain.Execution) error
}

// Manager — менеджер эскалаций.
type Manager struct {
	pager    Pager
	dedup    Dedup
	audit    AuditStore
	notifier Notifier

	logger *slog.Logger
}

// Config — конфигурация Manager.
type Config struct {
	// Pager — paging-провайдер. nil — oncall-эскалации пропускаются.
	Pager Pager
	Dedup Dedup
	Audit AuditStore

	// Notifier — Slack-уведомления. nil — выключены.
	Notifier Notifier

	Logger *slog.Logger
}

// New создаёт новый Manager.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		pager:    cfg.Pager,
		dedup:    cfg.Dedup,
		audit:    cfg.Audit,
		notifier: cfg.Notifier,
		logger:   logger,
	}
}

// Escalate обрабатывает финальный статус execution'а.
//
// Эскалируются только failed/error executions схем с oncall=true.
// Дубликаты (повторная доставка terminal-события, конкурентные
// инстансы) отфильтровываются барьером в БД до обращения к pager'у.
func (m *Manager) Escalate(ctx context.Context, e *domain.Execution) error {
	if !e.Status.IsFailure() {
		return nil
	}

	if m.notifier != nil {
		if err := m.notifier.NotifyFailure(ctx, e); err != nil {
			m.logger.Warn("failed to send failure notification", "exec_id", e.ExecID, "error", err)
		}
	}

	if !e.Schema.Oncall {
		return nil
	}

	// Без pager'а (OPSGENIE_API_KEY не задан) барьер не берём:
	// алерт сможет уйти после рестарта с настроенным pager'ом.
	if m.pager == nil {
		m.logger.Warn("no pager configured, skipping escalation",
			"exec_id", e.ExecID,
			"schema_id", e.Schema.SchemaID,
		)
		return nil
	}

	alias := e.ExecID.String()
	first, err := m.dedup.MarkEscalated(ctx, e.ExecID, alias, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark escalated: %w", err)
	}
	if !first {
		m.logger.Debug("execution already escalated", "exec_id", e.ExecID)
		return nil
	}

	alert := Alert{
		Alias:   alias,
		Message: fmt.Sprintf("Runbook %s %s", e.Schema.SchemaID, e.Status),
		Description: fmt.Sprintf("runbook=%s worker=%s status=%s error=%s",
			e.Schema.Runbook, e.RoutedWorker, e.Status, e.Error),
		Priority: priorityFor(e.Severity),
	}

	if err := m.pager.Page(ctx, alert); err != nil {
		// Барьер уже взят: повторной эскалации не будет (at-most-once).
		m.logger.Error("failed to page on-call", "exec_id", e.ExecID, "error", err)
		return fmt.Errorf("page on-call: %w", err)
	}

	m.recordAudit(ctx, e)
	telemetry.EscalationsTotal.Inc()

	m.logger.Info("execution escalated",
		"exec_id", e.ExecID,
		"schema_id", e.Schema.SchemaID,
		"status", e.Status,
	)
	return nil
}

// TerminalHook возвращает lifecycle-хук, вызывающий Escalate.
func (m *Manager) TerminalHook() func(ctx context.Context, e *domain.Execution) {
	return func(ctx context.Context, e *domain.Execution) {
		if err := m.Escalate(ctx, e); err != nil {
			m.logger.Error("escalation failed", "exec_id", e.ExecID, "error", err)
		}
	}
}

func (m *Manager) recordAudit(ctx context.Context, e *domain.Execution) {
	entry := domain.NewAuditEntry("escalation", domain.ActionEscalate)
	execID := e.ExecID
	entry.ExecID = &execID
	entry.Target = e.Schema.SchemaID
	entry.Status = e.Status
	entry.Details = e.Error

	if err := m.audit.Append(ctx, &entry); err != nil {
		m.logger.Error("failed to append audit entry", "exec_id", e.ExecID, "error", err)
	}
}

// priorityFor сопоставляет severity алерта-источника приоритету pager'а.
func priorityFor(severity string) string {
	switch severity {
	case "Sev0", "Sev1":
		return "P1"
	case "Sev2":
		return "P2"
	case "Sev3":
		return "P3"
	default:
		return "P3"
	}
}
