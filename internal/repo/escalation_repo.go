package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EscalationRepo — дедупликация эскалаций.
//
// Таблица escalations хранит по одной строке на execution и служит
// барьером "не более одной эскалации на execution": кто первым вставил
// строку, тот и зовёт on-call.
type EscalationRepo struct {
	pool *pgxpool.Pool
}

// NewEscalationRepo создаёт новый EscalationRepo.
func NewEscalationRepo(pool *pgxpool.Pool) *EscalationRepo {
	return &EscalationRepo{pool: pool}
}

// MarkEscalated атомарно фиксирует факт эскалации execution'а.
// Возвращает true, если запись создана этим вызовом (эскалацию надо
// отправить), и false, если execution уже был эскалирован ранее.
func (r *EscalationRepo) MarkEscalated(ctx context.Context, execID uuid.UUID, alias string, at time.Time) (bool, error) {
	query := `
		INSERT INTO escalations (exec_id, alias, escalated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (exec_id) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query, execID, alias, at)
	if err != nil {
		return false, fmt.Errorf("mark escalated: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// IsEscalated проверяет, был ли execution уже эскалирован.
func (r *EscalationRepo) IsEscalated(ctx context.Context, execID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM escalations WHERE exec_id = $1)`, execID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check escalated: %w", err)
	}
	return exists, nil
}
