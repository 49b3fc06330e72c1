// Package audit — сервис append-only журнала операций.
//
// Журнал партиционирован по дню ("YYYYMMDD"): выборка за день —
// основной способ чтения. Записи никогда не изменяются и не удаляются.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
)

// Лимиты выборки.
const (
	defaultQueryLimit = 200
	maxQueryLimit     = 5000
)

// Store — хранилище журнала.
type Store interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
	Query(ctx context.Context, f repo.AuditFilter) ([]domain.AuditEntry, error)
	ListByExec(ctx context.Context, execID uuid.UUID) ([]domain.AuditEntry, error)
}

// Log — сервис журнала.
type Log struct {
	store  Store
	logger *slog.Logger
}

// NewLog создаёт новый Log.
func NewLog(store Store, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{store: store, logger: logger}
}

// Record добавляет запись журнала, заполняя партицию и ключ,
// если вызывающий их не задал.
func (l *Log) Record(ctx context.Context, e domain.AuditEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.PartitionKey == "" {
		e.PartitionKey = domain.DayPartition(e.Timestamp)
	}
	if e.RowKey == uuid.Nil {
		e.RowKey = uuid.New()
	}

	if err := l.store.Append(ctx, &e); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// QueryFilter — параметры выборки.
type QueryFilter struct {
	// Day — дневная партиция "YYYYMMDD". Пустой — все дни.
	Day string

	// ExecID — фильтр по execution.
	ExecID *uuid.UUID

	// Action — фильтр по действию.
	Action domain.AuditAction

	// Operator — фильтр по инициатору.
	Operator string

	// Limit — максимум записей (default: 200, max: 5000).
	Limit int
}

// Query возвращает записи журнала, новые первыми.
func (l *Log) Query(ctx context.Context, f QueryFilter) ([]domain.AuditEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	return l.store.Query(ctx, repo.AuditFilter{
		Day:      f.Day,
		ExecID:   f.ExecID,
		Action:   f.Action,
		Operator: f.Operator,
		Limit:    limit,
	})
}

// History возвращает полную историю execution'а, старые записи первыми.
func (l *Log) History(ctx context.Context, execID uuid.UUID) ([]domain.AuditEntry, error) {
	return l.store.ListByExec(ctx, execID)
}
