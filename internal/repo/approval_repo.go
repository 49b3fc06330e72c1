package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

// ApprovalRepo — репозиторий запросов на approval.
type ApprovalRepo struct {
	pool *pgxpool.Pool
}

// NewApprovalRepo создаёт новый ApprovalRepo.
func NewApprovalRepo(pool *pgxpool.Pool) *ApprovalRepo {
	return &ApprovalRepo{pool: pool}
}

// Create создаёт pending-запрос 1:1 с execution.
func (r *ApprovalRepo) Create(ctx context.Context, a *domain.ApprovalRequest) error {
	query := `
		INSERT INTO approvals (exec_id, schema_id, status, requested_at, expires_at, decided_by, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ExecID,
		a.SchemaID,
		a.Status,
		a.RequestedAt,
		a.ExpiresAt,
		nullString(a.DecidedBy),
		a.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

// Get возвращает запрос по exec_id.
func (r *ApprovalRepo) Get(ctx context.Context, execID uuid.UUID) (*domain.ApprovalRequest, error) {
	query := `
		SELECT exec_id, schema_id, status, requested_at, expires_at, decided_by, decided_at
		FROM approvals
		WHERE exec_id = $1
	`
	return r.scanApproval(r.pool.QueryRow(ctx, query, execID))
}

// ListPending возвращает нерешённые запросы, старые первыми.
func (r *ApprovalRepo) ListPending(ctx context.Context, limit int) ([]domain.ApprovalRequest, error) {
	query := `
		SELECT exec_id, schema_id, status, requested_at, expires_at, decided_by, decided_at
		FROM approvals
		WHERE status = $1
		ORDER BY requested_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, domain.ApprovalPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var approvals []domain.ApprovalRequest
	for rows.Next() {
		a, err := r.scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, *a)
	}
	return approvals, rows.Err()
}

// DecideCAS фиксирует решение при условии, что запрос всё ещё pending.
// Возвращает ErrStaleStatus, если решение уже принято или TTL истёк —
// вызывающий сам решает, конфликт это или идемпотентный повтор.
func (r *ApprovalRepo) DecideCAS(ctx context.Context, execID uuid.UUID, next domain.ApprovalStatus, decidedBy string, decidedAt time.Time) error {
	query := `
		UPDATE approvals
		SET status = $2, decided_by = $3, decided_at = $4
		WHERE exec_id = $1 AND status = $5
	`
	result, err := r.pool.Exec(ctx, query, execID, next, nullString(decidedBy), decidedAt, domain.ApprovalPending)
	if err != nil {
		return fmt.Errorf("cas decide approval: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

// ListExpired возвращает pending-запросы с истёкшим дедлайном.
func (r *ApprovalRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.ApprovalRequest, error) {
	query := `
		SELECT exec_id, schema_id, status, requested_at, expires_at, decided_by, decided_at
		FROM approvals
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, domain.ApprovalPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired approvals: %w", err)
	}
	defer rows.Close()

	var approvals []domain.ApprovalRequest
	for rows.Next() {
		a, err := r.scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, *a)
	}
	return approvals, rows.Err()
}

// scanApproval сканирует одну строку в ApprovalRequest.
func (r *ApprovalRepo) scanApproval(row pgx.Row) (*domain.ApprovalRequest, error) {
	var a domain.ApprovalRequest
	var decidedBy *string

	err := row.Scan(
		&a.ExecID,
		&a.SchemaID,
		&a.Status,
		&a.RequestedAt,
		&a.ExpiresAt,
		&decidedBy,
		&a.DecidedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan approval: %w", err)
	}

	if decidedBy != nil {
		a.DecidedBy = *decidedBy
	}
	return &a, nil
}
