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

// ExecutionRepo — репозиторий executions.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Create создаёт новый execution.
// Конфликт по idempotency_key возвращает ErrAlreadyExists.
func (r *ExecutionRepo) Create(ctx context.Context, e *domain.Execution) error {
	schemaJSON, err := json.Marshal(e.Schema)
	if err != nil {
		return fmt.Errorf("marshal schema snapshot: %w", err)
	}
	paramsJSON, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	result, err := r.pool.Exec(ctx, insertExecutionQuery,
		e.ExecID,
		schemaJSON,
		e.Status,
		e.Source,
		nullUUID(e.ScheduleID),
		nullString(e.IdempotencyKey),
		paramsJSON,
		nullString(e.Severity),
		nullString(e.MonitorCondition),
		nullString(e.RequestedBy),
		e.RequestedAt,
		nullString(e.RoutedWorker),
		e.RoutingAttempts,
		e.StartedAt,
		e.CompletedAt,
		nullString(e.Result),
		nullString(e.Error),
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// GetByID возвращает execution по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, execID uuid.UUID) (*domain.Execution, error) {
	query := execSelect + ` WHERE exec_id = $1`
	return r.scanExecution(r.pool.QueryRow(ctx, query, execID))
}

// GetByIdempotencyKey возвращает execution по ключу идемпотентности.
func (r *ExecutionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Execution, error) {
	query := execSelect + ` WHERE idempotency_key = $1`
	return r.scanExecution(r.pool.QueryRow(ctx, query, key))
}

// List возвращает executions с фильтрацией, новые первыми.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := execSelect + `
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR schema->>'schema_id' = $2)
		  AND ($3::text IS NULL OR source = $3)
		ORDER BY requested_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		nullString(filter.SchemaID),
		nullString(string(filter.Source)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.Execution
	for rows.Next() {
		e, err := r.scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *e)
	}
	return execs, rows.Err()
}

// UpdateStatusCAS обновляет execution при условии, что текущий статус в БД
// равен from. Если строка уже ушла в другой статус (поздний или дублирующий
// callback), возвращает ErrStaleStatus и ничего не меняет.
func (r *ExecutionRepo) UpdateStatusCAS(ctx context.Context, e *domain.Execution, from domain.ExecStatus) error {
	query := `
		UPDATE executions
		SET status = $2, routed_worker = $3, routing_attempts = $4,
		    started_at = $5, completed_at = $6, result = $7, error = $8
		WHERE exec_id = $1 AND status = $9
	`
	result, err := r.pool.Exec(ctx, query,
		e.ExecID,
		e.Status,
		nullString(e.RoutedWorker),
		e.RoutingAttempts,
		e.StartedAt,
		e.CompletedAt,
		nullString(e.Result),
		nullString(e.Error),
		from,
	)
	if err != nil {
		return fmt.Errorf("cas update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

// ListByStatus возвращает executions в заданном статусе, старые первыми.
func (r *ExecutionRepo) ListByStatus(ctx context.Context, status domain.ExecStatus, limit int) ([]domain.Execution, error) {
	query := execSelect + `
		WHERE status = $1
		ORDER BY requested_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions by status: %w", err)
	}
	defer rows.Close()

	var execs []domain.Execution
	for rows.Next() {
		e, err := r.scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *e)
	}
	return execs, rows.Err()
}

// ListStuck возвращает executions, которые висят в нефинальном статусе
// дольше дедлайна (кандидаты на перевод watchdog'ом в error).
func (r *ExecutionRepo) ListStuck(ctx context.Context, status domain.ExecStatus, olderThan time.Time, limit int) ([]domain.Execution, error) {
	// Для routed отсчёт от момента запроса, для running — от старта.
	query := execSelect + `
		WHERE status = $1
		  AND COALESCE(started_at, requested_at) < $2
		ORDER BY requested_at ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, status, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stuck executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.Execution
	for rows.Next() {
		e, err := r.scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *e)
	}
	return execs, rows.Err()
}

// --- Helpers ---

// ExecutionFilter — параметры фильтрации executions.
type ExecutionFilter struct {
	Status   domain.ExecStatus
	SchemaID string
	Source   domain.TriggerSource
	Limit    int
	Offset   int
}

// Индекс по idempotency_key частичный (WHERE idempotency_key IS NOT NULL),
// поэтому ON CONFLICT обязан повторять его предикат — без него Postgres
// не сопоставит конфликт с индексом и отклонит INSERT.
const insertExecutionQuery = `
	INSERT INTO executions (exec_id, schema, status, source, schedule_id, idempotency_key,
	                        params, severity, monitor_condition, requested_by, requested_at,
	                        routed_worker, routing_attempts, started_at, completed_at, result, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT (idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
`

const execSelect = `
	SELECT exec_id, schema, status, source, schedule_id, idempotency_key,
	       params, severity, monitor_condition, requested_by, requested_at,
	       routed_worker, routing_attempts, started_at, completed_at, result, error
	FROM executions
`

// scanExecution сканирует одну строку в Execution.
func (r *ExecutionRepo) scanExecution(row pgx.Row) (*domain.Execution, error) {
	var e domain.Execution
	var schemaJSON []byte
	var paramsJSON []byte
	var idempotencyKey *string
	var severity *string
	var monitorCondition *string
	var requestedBy *string
	var routedWorker *string
	var result *string
	var execError *string

	err := row.Scan(
		&e.ExecID,
		&schemaJSON,
		&e.Status,
		&e.Source,
		&e.ScheduleID,
		&idempotencyKey,
		&paramsJSON,
		&severity,
		&monitorCondition,
		&requestedBy,
		&e.RequestedAt,
		&routedWorker,
		&e.RoutingAttempts,
		&e.StartedAt,
		&e.CompletedAt,
		&result,
		&execError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if err := json.Unmarshal(schemaJSON, &e.Schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema snapshot: %w", err)
	}
	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &e.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}

	if idempotencyKey != nil {
		e.IdempotencyKey = *idempotencyKey
	}
	if severity != nil {
		e.Severity = *severity
	}
	if monitorCondition != nil {
		e.MonitorCondition = *monitorCondition
	}
	if requestedBy != nil {
		e.RequestedBy = *requestedBy
	}
	if routedWorker != nil {
		e.RoutedWorker = *routedWorker
	}
	if result != nil {
		e.Result = *result
	}
	if execError != nil {
		e.Error = *execError
	}

	return &e, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
