package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

// AuditRepo — репозиторий append-only журнала операций.
//
// Журнал только пополняется: ни Update, ни Delete здесь намеренно нет.
type AuditRepo struct {
	pool *pgxpool.Pool
}

// NewAuditRepo создаёт новый AuditRepo.
func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Append добавляет запись в журнал.
func (r *AuditRepo) Append(ctx context.Context, e *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (partition_key, row_key, ts, operator, action,
		                       exec_id, target, status, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		e.PartitionKey,
		e.RowKey,
		e.Timestamp,
		e.Operator,
		e.Action,
		nullUUID(e.ExecID),
		nullString(e.Target),
		nullString(string(e.Status)),
		nullString(e.Details),
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Query возвращает записи журнала по фильтру, новые первыми.
func (r *AuditRepo) Query(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error) {
	query := `
		SELECT partition_key, row_key, ts, operator, action, exec_id, target, status, details
		FROM audit_log
		WHERE ($1::text IS NULL OR partition_key = $1)
		  AND ($2::uuid IS NULL OR exec_id = $2)
		  AND ($3::text IS NULL OR action = $3)
		  AND ($4::text IS NULL OR operator = $4)
		ORDER BY ts DESC
		LIMIT $5
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.Day),
		nullUUID(filter.ExecID),
		nullString(string(filter.Action)),
		nullString(filter.Operator),
		filter.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ListByExec возвращает полную историю одного execution, старые первыми.
func (r *AuditRepo) ListByExec(ctx context.Context, execID uuid.UUID) ([]domain.AuditEntry, error) {
	query := `
		SELECT partition_key, row_key, ts, operator, action, exec_id, target, status, details
		FROM audit_log
		WHERE exec_id = $1
		ORDER BY ts ASC
	`
	rows, err := r.pool.Query(ctx, query, execID)
	if err != nil {
		return nil, fmt.Errorf("list audit by exec: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// --- Helpers ---

// AuditFilter — параметры выборки из журнала.
type AuditFilter struct {
	// Day — дневная партиция "YYYYMMDD". Пустой — все дни.
	Day      string
	ExecID   *uuid.UUID
	Action   domain.AuditAction
	Operator string
	Limit    int
}

// scanEntry сканирует одну строку в AuditEntry.
func (r *AuditRepo) scanEntry(rows pgx.Rows) (*domain.AuditEntry, error) {
	var e domain.AuditEntry
	var target *string
	var status *string
	var details *string

	err := rows.Scan(
		&e.PartitionKey,
		&e.RowKey,
		&e.Timestamp,
		&e.Operator,
		&e.Action,
		&e.ExecID,
		&target,
		&status,
		&details,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}

	if target != nil {
		e.Target = *target
	}
	if status != nil {
		e.Status = domain.ExecStatus(*status)
	}
	if details != nil {
		e.Details = *details
	}
	return &e, nil
}
