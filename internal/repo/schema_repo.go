package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

// SchemaRepo — репозиторий реестра runbook-схем.
type SchemaRepo struct {
	pool *pgxpool.Pool
}

// NewSchemaRepo создаёт новый SchemaRepo.
func NewSchemaRepo(pool *pgxpool.Pool) *SchemaRepo {
	return &SchemaRepo{pool: pool}
}

// Upsert создаёт или обновляет схему по ключу (partition, id).
func (r *SchemaRepo) Upsert(ctx context.Context, s *domain.RunbookSchema) error {
	query := `
		INSERT INTO runbook_schemas (partition, id, name, description, runbook, run_args,
		                             worker, oncall, require_approval, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (partition, id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			runbook = EXCLUDED.runbook,
			run_args = EXCLUDED.run_args,
			worker = EXCLUDED.worker,
			oncall = EXCLUDED.oncall,
			require_approval = EXCLUDED.require_approval,
			tags = EXCLUDED.tags,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		s.Partition,
		s.ID,
		s.Name,
		nullString(s.Description),
		s.Runbook,
		nullString(s.RunArgs),
		s.Worker,
		s.Oncall,
		s.RequireApproval,
		s.Tags,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert schema: %w", err)
	}
	return nil
}

// Get возвращает схему по (partition, id).
func (r *SchemaRepo) Get(ctx context.Context, partition, id string) (*domain.RunbookSchema, error) {
	query := `
		SELECT partition, id, name, description, runbook, run_args,
		       worker, oncall, require_approval, tags, created_at, updated_at
		FROM runbook_schemas
		WHERE partition = $1 AND id = $2
	`
	return r.scanSchema(r.pool.QueryRow(ctx, query, partition, id))
}

// List возвращает все схемы раздела. Пустой partition — все разделы.
func (r *SchemaRepo) List(ctx context.Context, partition string) ([]domain.RunbookSchema, error) {
	query := `
		SELECT partition, id, name, description, runbook, run_args,
		       worker, oncall, require_approval, tags, created_at, updated_at
		FROM runbook_schemas
		WHERE ($1::text IS NULL OR partition = $1)
		ORDER BY partition, id
	`
	rows, err := r.pool.Query(ctx, query, nullString(partition))
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []domain.RunbookSchema
	for rows.Next() {
		s, err := r.scanSchema(rows)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, *s)
	}
	return schemas, rows.Err()
}

// Delete удаляет схему из реестра. Уже созданные executions хранят
// свой snapshot и удаления не замечают.
func (r *SchemaRepo) Delete(ctx context.Context, partition, id string) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM runbook_schemas WHERE partition = $1 AND id = $2`, partition, id)
	if err != nil {
		return fmt.Errorf("delete schema: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanSchema сканирует одну строку в RunbookSchema.
func (r *SchemaRepo) scanSchema(row pgx.Row) (*domain.RunbookSchema, error) {
	var s domain.RunbookSchema
	var description *string
	var runArgs *string

	err := row.Scan(
		&s.Partition,
		&s.ID,
		&s.Name,
		&description,
		&s.Runbook,
		&runArgs,
		&s.Worker,
		&s.Oncall,
		&s.RequireApproval,
		&s.Tags,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schema: %w", err)
	}

	if description != nil {
		s.Description = *description
	}
	if runArgs != nil {
		s.RunArgs = *runArgs
	}
	return &s, nil
}
