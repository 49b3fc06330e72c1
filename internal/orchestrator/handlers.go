package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/lifecycle"
	"github.com/pagopa/payments-ClouDO-sub002/internal/mq"
	"github.com/pagopa/payments-ClouDO-sub002/internal/registry"
)

// handleStatus обрабатывает сообщение о смене статуса из events.status.
//
// Поздние и дублирующие сообщения (RabbitMQ переотправил, worker
// повторил отчёт) lifecycle отбрасывает как недопустимые переходы —
// для consumer'а это успех: сообщение ack'ается и не зацикливается.
func (o *Orchestrator) handleStatus(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.StatusPayload](&delivery.Message)
	if err != nil {
		o.logger.Error("failed to parse status payload", "error", err)
		return fmt.Errorf("%w: %w", mq.ErrDropMessage, err)
	}

	status, ok := domain.ParseExecStatus(payload.Status)
	if !ok {
		o.logger.Error("unknown status in payload",
			"exec_id", payload.ExecID,
			"status", payload.Status,
		)
		// Невалидный payload — в DLQ, а не в бесконечный requeue.
		return fmt.Errorf("%w: unknown status %q", mq.ErrDropMessage, payload.Status)
	}

	_, err = o.lifecycle.Apply(ctx, lifecycle.Transition{
		ExecID: payload.ExecID,
		Next:   status,
		By:     payload.WorkerID,
		Result: payload.Result,
		Error:  payload.Error,
	})
	if err != nil {
		if errors.Is(err, lifecycle.ErrTransitionDropped) ||
			errors.Is(err, lifecycle.ErrExecutionNotFound) {
			o.logger.Debug("status message dropped",
				"exec_id", payload.ExecID,
				"status", status,
				"reason", err,
			)
			return nil
		}
		return err
	}
	return nil
}

// handleHeartbeat обрабатывает heartbeat из events.heartbeat.
// Первый heartbeat неизвестного worker'а регистрирует его.
func (o *Orchestrator) handleHeartbeat(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.HeartbeatPayload](&delivery.Message)
	if err != nil {
		o.logger.Error("failed to parse heartbeat payload", "error", err)
		return fmt.Errorf("%w: %w", mq.ErrDropMessage, err)
	}

	return o.registry.Heartbeat(ctx, registry.Registration{
		WorkerID:        payload.WorkerID,
		Capabilities:    payload.Capabilities,
		Pool:            payload.Pool,
		ActiveProcesses: payload.ActiveProcesses,
	})
}
