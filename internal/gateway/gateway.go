package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
	"github.com/pagopa/payments-ClouDO-sub002/internal/telemetry"
)

// Default configuration values.
const (
	defaultApprovalTTL = 60 * time.Minute
)

// SchemaStore — реестр схем.
type SchemaStore interface {
	Get(ctx context.Context, partition, id string) (*domain.RunbookSchema, error)
}

// ExecutionStore — хранилище executions.
type ExecutionStore interface {
	Create(ctx context.Context, e *domain.Execution) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Execution, error)
	UpdateStatusCAS(ctx context.Context, e *domain.Execution, from domain.ExecStatus) error
}

// ApprovalStore — хранилище approval-запросов.
type ApprovalStore interface {
	Create(ctx context.Context, a *domain.ApprovalRequest) error
}

// AuditStore — append-only журнал.
type AuditStore interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
}

// Gateway — единая точка входа триггеров.
type Gateway struct {
	schemas    SchemaStore
	executions ExecutionStore
	approvals  ApprovalStore
	audit      AuditStore

	approvalTTL time.Duration

	logger *slog.Logger
}

// Config — конфигурация Gateway.
type Config struct {
	Schemas    SchemaStore
	Executions ExecutionStore
	Approvals  ApprovalStore
	Audit      AuditStore

	// ApprovalTTL — дедлайн решения по approval (default: 60m).
	ApprovalTTL time.Duration

	Logger *slog.Logger
}

// New создаёт новый Gateway.
func New(cfg Config) *Gateway {
	approvalTTL := cfg.ApprovalTTL
	if approvalTTL <= 0 {
		approvalTTL = defaultApprovalTTL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{
		schemas:     cfg.Schemas,
		executions:  cfg.Executions,
		approvals:   cfg.Approvals,
		audit:       cfg.Audit,
		approvalTTL: approvalTTL,
		logger:      logger,
	}
}

// Submit создаёт execution из запроса на запуск.
//
// Схема снимается в execution на момент создания: последующие правки
// реестра на него не влияют. Схемы с require_approval остаются
// в pending до решения approval gate, остальные сразу переходят
// в accepted и готовы к маршрутизации.
//
// Для scheduled-запусков Submit идемпотентен: повтор того же планового
// момента возвращает существующий execution и ErrDuplicateTrigger.
func (g *Gateway) Submit(ctx context.Context, req domain.TriggerRequest) (*domain.Execution, error) {
	switch req.Source {
	case domain.SourceManual, domain.SourceAlert, domain.SourceSchedule:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, req.Source)
	}

	partition := strings.TrimSpace(req.Partition)
	if partition == "" {
		partition = "default"
	}

	schema, err := g.schemas.Get(ctx, partition, req.SchemaID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrSchemaNotFound, partition, req.SchemaID)
		}
		return nil, fmt.Errorf("load schema: %w", err)
	}

	e := domain.NewExecution(schema.Snapshot(), req)
	if !schema.RequireApproval {
		if err := e.Transition(domain.StatusAccepted); err != nil {
			return nil, err
		}
	}

	if err := g.executions.Create(ctx, e); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) && e.IdempotencyKey != "" {
			existing, getErr := g.executions.GetByIdempotencyKey(ctx, e.IdempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("load duplicate execution: %w", getErr)
			}
			g.logger.Debug("duplicate scheduled trigger",
				"idempotency_key", e.IdempotencyKey,
				"exec_id", existing.ExecID,
			)
			return existing, ErrDuplicateTrigger
		}
		return nil, fmt.Errorf("create execution: %w", err)
	}

	if schema.RequireApproval {
		approval := &domain.ApprovalRequest{
			ExecID:      e.ExecID,
			SchemaID:    schema.ID,
			Status:      domain.ApprovalPending,
			RequestedAt: e.RequestedAt,
			ExpiresAt:   e.RequestedAt.Add(g.approvalTTL),
		}
		if err := g.approvals.Create(ctx, approval); err != nil {
			// Без approval-запроса execution никогда не получит решения —
			// закрываем его, чтобы не висел в pending навсегда.
			g.skipOrphaned(ctx, e)
			return nil, fmt.Errorf("create approval request: %w", err)
		}
	}

	g.recordAudit(ctx, e, req)
	telemetry.TriggersTotal.WithLabelValues(string(req.Source)).Inc()

	g.logger.Info("trigger accepted",
		"exec_id", e.ExecID,
		"schema_id", schema.ID,
		"source", req.Source,
		"status", e.Status,
		"requested_by", req.RequestedBy,
	)
	return e, nil
}

// skipOrphaned закрывает execution, оставшийся без approval-запроса.
// Best-effort: если CAS не прошёл (execution уже сдвинули), watchdog
// или оператор разберутся позже.
func (g *Gateway) skipOrphaned(ctx context.Context, e *domain.Execution) {
	skipped := *e
	if err := skipped.Transition(domain.StatusSkipped); err != nil {
		g.logger.Error("failed to skip orphaned execution", "exec_id", e.ExecID, "error", err)
		return
	}
	skipped.Error = "approval request could not be created"

	if err := g.executions.UpdateStatusCAS(ctx, &skipped, domain.StatusPending); err != nil {
		g.logger.Error("failed to skip orphaned execution", "exec_id", e.ExecID, "error", err)
		return
	}
	*e = skipped

	entry := domain.NewAuditEntry("system", domain.ActionCancel)
	execID := e.ExecID
	entry.ExecID = &execID
	entry.Target = e.Schema.SchemaID
	entry.Status = e.Status
	entry.Details = e.Error
	if err := g.audit.Append(ctx, &entry); err != nil {
		g.logger.Error("failed to append audit entry", "exec_id", e.ExecID, "error", err)
	}

	g.logger.Warn("execution skipped, approval request was not created",
		"exec_id", e.ExecID,
		"schema_id", e.Schema.SchemaID,
	)
}

func (g *Gateway) recordAudit(ctx context.Context, e *domain.Execution, req domain.TriggerRequest) {
	operator := req.RequestedBy
	if operator == "" {
		operator = string(req.Source)
	}

	entry := domain.NewAuditEntry(operator, domain.ActionTrigger)
	execID := e.ExecID
	entry.ExecID = &execID
	entry.Target = e.Schema.SchemaID
	entry.Status = e.Status
	if req.Severity != "" {
		entry.Details = "severity=" + req.Severity
	}

	if err := g.audit.Append(ctx, &entry); err != nil {
		g.logger.Error("failed to append audit entry", "exec_id", e.ExecID, "error", err)
	}
}
