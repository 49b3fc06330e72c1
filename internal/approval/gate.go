package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/lifecycle"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
	"github.com/pagopa/payments-ClouDO-sub002/internal/telemetry"
)

// Default configuration values.
const (
	defaultSweepBatch = 100
)

// Store — хранилище approval-запросов.
type Store interface {
	Get(ctx context.Context, execID uuid.UUID) (*domain.ApprovalRequest, error)
	ListPending(ctx context.Context, limit int) ([]domain.ApprovalRequest, error)
	DecideCAS(ctx context.Context, execID uuid.UUID, next domain.ApprovalStatus, decidedBy string, decidedAt time.Time) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.ApprovalRequest, error)
}

// Applier применяет переходы статусов executions.
type Applier interface {
	Apply(ctx context.Context, t lifecycle.Transition) (*domain.Execution, error)
}

// Notifier уведомляет о решении (Slack и т.п.). Best-effort:
// ошибка уведомления логируется и не влияет на решение.
type Notifier interface {
	NotifyDecision(ctx context.Context, a *domain.ApprovalRequest, approved bool) error
}

// Gate — approval gate.
type Gate struct {
	store     Store
	lifecycle Applier
	notifier  Notifier

	sweepBatch int

	logger *slog.Logger
}

// Config — конфигурация Gate.
type Config struct {
	Store     Store
	Lifecycle Applier

	// Notifier — уведомления о решениях. nil — уведомления выключены.
	Notifier Notifier

	// SweepBatch — размер выборки sweep'а (default: 100).
	SweepBatch int

	Logger *slog.Logger
}

// New создаёт новый Gate.
func New(cfg Config) *Gate {
	sweepBatch := cfg.SweepBatch
	if sweepBatch <= 0 {
		sweepBatch = defaultSweepBatch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gate{
		store:      cfg.Store,
		lifecycle:  cfg.Lifecycle,
		notifier:   cfg.Notifier,
		sweepBatch: sweepBatch,
		logger:     logger,
	}
}

// Get возвращает approval-запрос execution'а.
func (g *Gate) Get(ctx context.Context, execID uuid.UUID) (*domain.ApprovalRequest, error) {
	a, err := g.store.Get(ctx, execID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListPending возвращает нерешённые запросы.
func (g *Gate) ListPending(ctx context.Context, limit int) ([]domain.ApprovalRequest, error) {
	if limit <= 0 {
		limit = defaultSweepBatch
	}
	return g.store.ListPending(ctx, limit)
}

// Decide фиксирует решение по approval-запросу.
//
// Повтор того же решения — идемпотентный no-op. Противоположное
// решение по уже разрешённому запросу — ErrAlreadyDecided. Решение
// по истёкшему запросу — ErrExpired.
//
// На approve execution переходит pending → accepted и подхватывается
// router'ом, на reject — в терминальный rejected.
func (g *Gate) Decide(ctx context.Context, execID uuid.UUID, approver string, approve bool) (*domain.ApprovalRequest, error) {
	a, err := g.store.Get(ctx, execID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load approval: %w", err)
	}

	if a.Status.IsDecided() {
		return g.resolveDecided(a, approve)
	}
	if a.IsExpired(time.Now().UTC()) {
		return nil, ErrExpired
	}

	next := domain.ApprovalRejected
	if approve {
		next = domain.ApprovalApproved
	}

	now := time.Now().UTC()
	if err := g.store.DecideCAS(ctx, execID, next, approver, now); err != nil {
		if errors.Is(err, repo.ErrStaleStatus) {
			// Конкурент решил первым: перечитываем и сверяем решения.
			a, err = g.store.Get(ctx, execID)
			if err != nil {
				return nil, fmt.Errorf("reload approval: %w", err)
			}
			return g.resolveDecided(a, approve)
		}
		return nil, fmt.Errorf("persist decision: %w", err)
	}

	a.Decide(approver, approve)

	nextStatus := domain.StatusRejected
	action := domain.ActionReject
	decision := "rejected"
	if approve {
		nextStatus = domain.StatusAccepted
		action = domain.ActionApprove
		decision = "approved"
	}

	if _, err := g.lifecycle.Apply(ctx, lifecycle.Transition{
		ExecID: execID,
		Next:   nextStatus,
		By:     approver,
		Action: action,
	}); err != nil && !errors.Is(err, lifecycle.ErrTransitionDropped) {
		return nil, fmt.Errorf("apply decision transition: %w", err)
	}

	telemetry.ApprovalsTotal.WithLabelValues(decision).Inc()
	g.notify(ctx, a, approve)

	g.logger.Info("approval decided",
		"exec_id", execID,
		"schema_id", a.SchemaID,
		"decision", decision,
		"approver", approver,
	)
	return a, nil
}

// resolveDecided обрабатывает решение по уже разрешённому запросу.
func (g *Gate) resolveDecided(a *domain.ApprovalRequest, approve bool) (*domain.ApprovalRequest, error) {
	same := (approve && a.Status == domain.ApprovalApproved) ||
		(!approve && a.Status == domain.ApprovalRejected)
	if same {
		return a, nil
	}
	if a.Status == domain.ApprovalExpired {
		return nil, ErrExpired
	}
	return nil, fmt.Errorf("%w: %s", ErrAlreadyDecided, a.Status)
}

// SweepExpired переводит нерешённые запросы с истёкшим TTL в expired,
// а их executions — в skipped с записью EXPIRE в журнале.
func (g *Gate) SweepExpired(ctx context.Context) error {
	now := time.Now().UTC()

	expired, err := g.store.ListExpired(ctx, now, g.sweepBatch)
	if err != nil {
		return fmt.Errorf("list expired approvals: %w", err)
	}

	for i := range expired {
		a := &expired[i]

		if err := g.store.DecideCAS(ctx, a.ExecID, domain.ApprovalExpired, "", now); err != nil {
			if errors.Is(err, repo.ErrStaleStatus) {
				continue
			}
			g.logger.Error("failed to expire approval", "exec_id", a.ExecID, "error", err)
			continue
		}

		if _, err := g.lifecycle.Apply(ctx, lifecycle.Transition{
			ExecID: a.ExecID,
			Next:   domain.StatusSkipped,
			By:     "system",
			Error:  "approval request expired",
			Action: domain.ActionExpire,
		}); err != nil && !errors.Is(err, lifecycle.ErrTransitionDropped) {
			g.logger.Error("failed to skip expired execution", "exec_id", a.ExecID, "error", err)
			continue
		}

		telemetry.ApprovalsTotal.WithLabelValues("expired").Inc()
		g.logger.Info("approval expired",
			"exec_id", a.ExecID,
			"schema_id", a.SchemaID,
			"expired_at", a.ExpiresAt,
		)
	}
	return nil
}

func (g *Gate) notify(ctx context.Context, a *domain.ApprovalRequest, approved bool) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.NotifyDecision(ctx, a, approved); err != nil {
		g.logger.Warn("failed to send decision notification", "exec_id", a.ExecID, "error", err)
	}
}
