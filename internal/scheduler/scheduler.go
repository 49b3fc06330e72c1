package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/gateway"
)

// Default configuration values.
const (
	defaultBatchSize = 100
)

// ScheduleStore — хранилище расписаний.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
}

// Gateway — точка входа триггеров.
type Gateway interface {
	Submit(ctx context.Context, req domain.TriggerRequest) (*domain.Execution, error)
}

// Scheduler — планировщик scheduled-запусков.
type Scheduler struct {
	store     ScheduleStore
	gateway   Gateway
	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Scheduler.
type Config struct {
	Store   ScheduleStore
	Gateway Gateway
	Logger  *slog.Logger

	// BatchSize — количество расписаний за один тик (default: 100).
	BatchSize int
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		store:     cfg.Store,
		gateway:   cfg.Gateway,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due расписания (enabled=true, next_due_at <= now)
// 2. Для каждого отправляет scheduled-триггер через gateway
// 3. Сдвигает next_due_at по cron-выражению
//
// Ошибки одного расписания не блокируют обработку остальных.
// Дубликат триггера (после рестарта или failover лидера) — не ошибка:
// gateway вернёт существующий execution.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now().UTC()

	schedules, err := s.store.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		execCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if execCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"executions_created", created,
	)
	return nil
}

// processSchedule обрабатывает одно расписание.
// Возвращает true, если execution был создан (не был дубликатом).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	due := *sched.NextDueAt

	exec, err := s.gateway.Submit(ctx, domain.TriggerRequest{
		Partition:   sched.Partition,
		SchemaID:    sched.SchemaID,
		Source:      domain.SourceSchedule,
		Params:      sched.Params,
		RequestedBy: "scheduler",
		ScheduleID:  sched.ID,
		DueUnix:     due.Unix(),
	})

	var execID uuid.UUID
	execCreated := false
	switch {
	case err == nil:
		execID = exec.ExecID
		execCreated = true
		s.logger.Info("created execution from schedule",
			"exec_id", exec.ExecID,
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
			"schema_id", sched.SchemaID,
		)

	case errors.Is(err, gateway.ErrDuplicateTrigger):
		// Этот плановый момент уже обработан (рестарт, failover).
		execID = exec.ExecID
		s.logger.Debug("execution already exists for due time",
			"exec_id", exec.ExecID,
			"schedule_id", sched.ID,
		)

	case errors.Is(err, gateway.ErrSchemaNotFound):
		// Схема удалена из реестра — пропускаем запуск, но сдвигаем
		// next_due_at, чтобы расписание не застревало.
		s.logger.Warn("schema not found for schedule, skipping run",
			"schedule_id", sched.ID,
			"schema_id", sched.SchemaID,
		)

	default:
		return false, fmt.Errorf("submit trigger: %w", err)
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// Невалидное cron-выражение: next_due_at не трогаем,
		// расписание чинится оператором.
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
		return execCreated, nil
	}

	sched.RecordRun(execID, nextDue)
	if err := s.store.Update(ctx, sched); err != nil {
		return execCreated, fmt.Errorf("update schedule: %w", err)
	}

	return execCreated, nil
}
