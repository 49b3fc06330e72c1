package agent

import (
	"context"
	"fmt"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
)

// handleDispatch обрабатывает задание из dispatch-очереди.
//
// Ошибка выполнения runbook'а — не ошибка обработки сообщения:
// она уезжает в events.status как failed, сообщение ack'ается.
// В requeue/DLQ сообщение уходит только при ошибке парсинга
// или невозможности отчитаться.
func (a *Agent) handleDispatch(ctx context.Context, delivery *mq.Delivery) error {
	task, err := mq.ParsePayload[mq.DispatchPayload](&delivery.Message)
	if err != nil {
		a.logger.Error("failed to parse dispatch payload", "error", err)
		return fmt.Errorf("%w: %w", mq.ErrDropMessage, err)
	}

	logger := a.logger.With("exec_id", task.ExecID)

	a.active.Add(1)
	defer a.active.Add(-1)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	a.procs.add(task.ExecID, task.Runbook, cancelRun)
	defer a.procs.remove(task.ExecID)

	// Подтверждаем старт до запуска: orchestrator переводит
	// execution в running и сбрасывает таймер watchdog'а.
	if err := a.publishStatus(ctx, mq.StatusPayload{
		ExecID:   task.ExecID,
		WorkerID: a.workerID,
		Status:   string(domain.StatusRunning),
	}); err != nil {
		logger.Error("failed to report start", "error", err)
		return err
	}

	logger.Info("runbook started", "runbook", task.Runbook)

	output, runErr := a.runner.Run(runCtx, task)

	status := mq.StatusPayload{
		ExecID:   task.ExecID,
		WorkerID: a.workerID,
		Status:   string(domain.StatusSucceeded),
		Result:   truncateOutput(output),
	}
	if runErr != nil {
		status.Status = string(domain.StatusFailed)
		status.Error = runErr.Error()
		logger.Warn("runbook failed", "runbook", task.Runbook, "error", runErr)
	} else {
		logger.Info("runbook succeeded", "runbook", task.Runbook)
	}

	if err := a.publishStatus(ctx, status); err != nil {
		// Результат потерян — пусть сообщение вернётся и runbook
		// прогонится заново: watchdog в любом случае закрыл бы
		// execution как error.
		logger.Error("failed to report result", "error", err)
		return err
	}
	return nil
}

func (a *Agent) publishStatus(ctx context.Context, payload mq.StatusPayload) error {
	return a.publisher.PublishStatus(ctx, payload)
}

func truncateOutput(s string) string {
	if len(s) > maxOutputLen {
		return s[:maxOutputLen]
	}
	return s
}
