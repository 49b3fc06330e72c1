package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

// ScheduleRepo — репозиторий расписаний.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// Create создаёт новое расписание.
func (r *ScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	paramsJSON, err := json.Marshal(s.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	query := `
		INSERT INTO schedules (id, name, partition, schema_id, cron_expr, timezone, params,
		                       enabled, next_due_at, last_run_at, last_exec_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.Name,
		s.Partition,
		s.SchemaID,
		s.CronExpr,
		s.Timezone,
		paramsJSON,
		s.Enabled,
		s.NextDueAt,
		s.LastRunAt,
		nullUUID(s.LastExecID),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetByID возвращает расписание по ID.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	query := scheduleSelect + ` WHERE id = $1`
	return r.scanSchedule(r.pool.QueryRow(ctx, query, id))
}

// List возвращает все расписания.
func (r *ScheduleRepo) List(ctx context.Context) ([]domain.Schedule, error) {
	query := scheduleSelect + ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

// ListDue возвращает включённые расписания, чьё время подошло.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	query := scheduleSelect + `
		WHERE enabled AND next_due_at IS NOT NULL AND next_due_at <= $1
		ORDER BY next_due_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

// Update обновляет расписание.
func (r *ScheduleRepo) Update(ctx context.Context, s *domain.Schedule) error {
	paramsJSON, err := json.Marshal(s.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	query := `
		UPDATE schedules
		SET name = $2, partition = $3, schema_id = $4, cron_expr = $5, timezone = $6,
		    params = $7, enabled = $8, next_due_at = $9, last_run_at = $10,
		    last_exec_id = $11, updated_at = $12
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Name,
		s.Partition,
		s.SchemaID,
		s.CronExpr,
		s.Timezone,
		paramsJSON,
		s.Enabled,
		s.NextDueAt,
		s.LastRunAt,
		nullUUID(s.LastExecID),
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет расписание.
func (r *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

const scheduleSelect = `
	SELECT id, name, partition, schema_id, cron_expr, timezone, params,
	       enabled, next_due_at, last_run_at, last_exec_id, created_at, updated_at
	FROM schedules
`

func (r *ScheduleRepo) collect(rows pgx.Rows) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	for rows.Next() {
		s, err := r.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

// scanSchedule сканирует одну строку в Schedule.
func (r *ScheduleRepo) scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var s domain.Schedule
	var paramsJSON []byte

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Partition,
		&s.SchemaID,
		&s.CronExpr,
		&s.Timezone,
		&paramsJSON,
		&s.Enabled,
		&s.NextDueAt,
		&s.LastRunAt,
		&s.LastExecID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &s.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	return &s, nil
}
