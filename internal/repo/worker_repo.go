package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

// WorkerRepo — репозиторий реестра worker'ов.
type WorkerRepo struct {
	pool *pgxpool.Pool
}

// NewWorkerRepo создаёт новый WorkerRepo.
func NewWorkerRepo(pool *pgxpool.Pool) *WorkerRepo {
	return &WorkerRepo{pool: pool}
}

// Upsert регистрирует worker'а или обновляет его запись при перерегистрации.
func (r *WorkerRepo) Upsert(ctx context.Context, w *domain.Worker) error {
	query := `
		INSERT INTO workers (worker_id, capabilities, pool, queue, last_heartbeat,
		                     active_processes, status, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (worker_id) DO UPDATE SET
			capabilities = EXCLUDED.capabilities,
			pool = EXCLUDED.pool,
			queue = EXCLUDED.queue,
			last_heartbeat = EXCLUDED.last_heartbeat,
			active_processes = EXCLUDED.active_processes,
			status = EXCLUDED.status
	`
	_, err := r.pool.Exec(ctx, query,
		w.WorkerID,
		w.Capabilities,
		w.Pool,
		w.Queue,
		w.LastHeartbeat,
		w.ActiveProcesses,
		w.Status,
		w.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("upsert worker: %w", err)
	}
	return nil
}

// Heartbeat обновляет время последнего heartbeat и текущую загрузку.
// Worker, помеченный inactive, heartbeat'ом возвращается в active.
func (r *WorkerRepo) Heartbeat(ctx context.Context, workerID string, at time.Time, activeProcesses int) error {
	query := `
		UPDATE workers
		SET last_heartbeat = $2, active_processes = $3, status = $4
		WHERE worker_id = $1
	`
	result, err := r.pool.Exec(ctx, query, workerID, at, activeProcesses, domain.WorkerActive)
	if err != nil {
		return fmt.Errorf("heartbeat worker: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get возвращает worker'а по ID.
func (r *WorkerRepo) Get(ctx context.Context, workerID string) (*domain.Worker, error) {
	query := `
		SELECT worker_id, capabilities, pool, queue, last_heartbeat,
		       active_processes, status, registered_at
		FROM workers
		WHERE worker_id = $1
	`
	return r.scanWorker(r.pool.QueryRow(ctx, query, workerID))
}

// List возвращает всех worker'ов, включая inactive.
func (r *WorkerRepo) List(ctx context.Context) ([]domain.Worker, error) {
	query := `
		SELECT worker_id, capabilities, pool, queue, last_heartbeat,
		       active_processes, status, registered_at
		FROM workers
		ORDER BY worker_id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var workers []domain.Worker
	for rows.Next() {
		w, err := r.scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, *w)
	}
	return workers, rows.Err()
}

// ListActive возвращает active worker'ов с heartbeat не старше deadline.
func (r *WorkerRepo) ListActive(ctx context.Context, deadline time.Time) ([]domain.Worker, error) {
	query := `
		SELECT worker_id, capabilities, pool, queue, last_heartbeat,
		       active_processes, status, registered_at
		FROM workers
		WHERE status = $1 AND last_heartbeat >= $2
		ORDER BY worker_id
	`
	rows, err := r.pool.Query(ctx, query, domain.WorkerActive, deadline)
	if err != nil {
		return nil, fmt.Errorf("list active workers: %w", err)
	}
	defer rows.Close()

	var workers []domain.Worker
	for rows.Next() {
		w, err := r.scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, *w)
	}
	return workers, rows.Err()
}

// MarkInactive помечает inactive всех active worker'ов, чей heartbeat
// старше deadline. Возвращает идентификаторы помеченных.
func (r *WorkerRepo) MarkInactive(ctx context.Context, deadline time.Time) ([]string, error) {
	query := `
		UPDATE workers
		SET status = $1
		WHERE status = $2 AND last_heartbeat < $3
		RETURNING worker_id
	`
	rows, err := r.pool.Query(ctx, query, domain.WorkerInactive, domain.WorkerActive, deadline)
	if err != nil {
		return nil, fmt.Errorf("mark inactive workers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan worker id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanWorker сканирует одну строку в Worker.
func (r *WorkerRepo) scanWorker(row pgx.Row) (*domain.Worker, error) {
	var w domain.Worker
	err := row.Scan(
		&w.WorkerID,
		&w.Capabilities,
		&w.Pool,
		&w.Queue,
		&w.LastHeartbeat,
		&w.ActiveProcesses,
		&w.Status,
		&w.RegisteredAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan worker: %w", err)
	}
	return &w, nil
}
