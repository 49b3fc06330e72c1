package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeDispatch  MessageType = "exec.dispatch"
	MessageTypeStatus    MessageType = "exec.status"
	MessageTypeHeartbeat MessageType = "worker.heartbeat"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// DispatchPayload — задание worker'у на выполнение runbook'а.
type DispatchPayload struct {
	ExecID  uuid.UUID         `json:"exec_id"`
	Runbook string            `json:"runbook"`
	RunArgs string            `json:"run_args,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

// StatusPayload — сообщение worker'а о смене статуса execution.
type StatusPayload struct {
	ExecID   uuid.UUID `json:"exec_id"`
	WorkerID string    `json:"worker_id"`
	Status   string    `json:"status"` // running, succeeded, failed
	Result   string    `json:"result,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// HeartbeatPayload — периодический heartbeat worker'а.
type HeartbeatPayload struct {
	WorkerID        string   `json:"worker_id"`
	Capabilities    []string `json:"capabilities,omitempty"`
	Pool            string   `json:"pool,omitempty"`
	ActiveProcesses int      `json:"active_processes"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishDispatch отправляет задание в персональную очередь worker'а.
// Потребитель: Worker.
func (p *Publisher) PublishDispatch(ctx context.Context, workerID string, payload DispatchPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeDispatch,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeDispatch, RoutingKey(workerID), msg)
}

// PublishStatus публикует смену статуса execution.
// Потребитель: Orchestrator.
func (p *Publisher) PublishStatus(ctx context.Context, payload StatusPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeStatus,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeEvents, RoutingKeyStatus, msg)
}

// PublishHeartbeat публикует heartbeat worker'а.
// Потребитель: Orchestrator.
func (p *Publisher) PublishHeartbeat(ctx context.Context, payload HeartbeatPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeHeartbeat,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeEvents, RoutingKeyHeartbeat, msg)
}
