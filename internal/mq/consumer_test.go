package mq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeAck записывает решение consumer'а по сообщению.
type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func testConsumer(handler Handler) *Consumer {
	return NewConsumer(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), ConsumerConfig{
		Queue:   "dispatch.host-1",
		Handler: handler,
	})
}

func delivery(ack *fakeAck, redelivered bool) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{"id":"m1","type":"dispatch","payload":{}}`),
		Redelivered:  redelivered,
	}
}

func TestHandle_Ack(t *testing.T) {
	c := testConsumer(func(ctx context.Context, msg *Delivery) error {
		return nil
	})

	ack := &fakeAck{}
	c.handle(context.Background(), delivery(ack, false))

	if !ack.acked || ack.nacked {
		t.Errorf("successful handling should ack: %+v", ack)
	}
}

func TestHandle_DropToDLQ(t *testing.T) {
	c := testConsumer(func(ctx context.Context, msg *Delivery) error {
		return ErrDropMessage
	})

	ack := &fakeAck{}
	c.handle(context.Background(), delivery(ack, false))

	if !ack.nacked || ack.requeue {
		t.Errorf("unprocessable message should go straight to DLQ: %+v", ack)
	}
}

func TestHandle_TransientErrorRequeuesOnce(t *testing.T) {
	c := testConsumer(func(ctx context.Context, msg *Delivery) error {
		return errors.New("db unavailable")
	})

	// Первая доставка — requeue.
	ack := &fakeAck{}
	c.handle(context.Background(), delivery(ack, false))
	if !ack.nacked || !ack.requeue {
		t.Errorf("first failure should requeue: %+v", ack)
	}

	// Повторная доставка — DLQ: dispatch-сообщение не должно
	// перезапускать runbook бесконечно.
	ack = &fakeAck{}
	c.handle(context.Background(), delivery(ack, true))
	if !ack.nacked || ack.requeue {
		t.Errorf("redelivered failure should go to DLQ: %+v", ack)
	}
}

func TestHandle_MalformedBody(t *testing.T) {
	c := testConsumer(func(ctx context.Context, msg *Delivery) error {
		t.Error("handler should not be called for malformed body")
		return nil
	})

	ack := &fakeAck{}
	c.handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte("not json"),
	})

	if !ack.nacked || ack.requeue {
		t.Errorf("malformed message should go to DLQ: %+v", ack)
	}
}

func TestParsePayload(t *testing.T) {
	execID := uuid.New()
	msg := &Message{
		ID:   "m1",
		Type: "status",
		Payload: map[string]any{
			"exec_id":   execID.String(),
			"worker_id": "host-1",
			"status":    "running",
		},
	}

	payload, err := ParsePayload[StatusPayload](msg)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.ExecID != execID || payload.WorkerID != "host-1" || payload.Status != "running" {
		t.Errorf("unexpected payload %+v", payload)
	}
}
