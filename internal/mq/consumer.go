package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDropMessage — сигнал обработчика: сообщение невозможно обработать
// никогда (битый payload, неизвестный статус). Такое сообщение уходит
// в DLQ сразу, без requeue.
var ErrDropMessage = errors.New("message cannot be processed")

// Handler — функция обработки сообщения.
//
// nil — ack. ErrDropMessage — сразу в DLQ. Любая другая ошибка
// считается временной: сообщение возвращается в очередь один раз,
// повторный провал уводит его в DLQ. Для dispatch-очередей это
// предел перезапусков runbook'а, для events.* — предел повторных
// применений события.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — распарсенный конверт.
	Message Message

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Consumer потребляет одну очередь RabbitMQ и переживает
// реконнекты Connection.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — параллелизм обработки (default: 1).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start потребляет очередь до отмены контекста.
// При потере канала ждёт переподключения Connection и продолжает.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.open()
		if err != nil {
			c.logger.Error("failed to open consume channel", "error", err)
			if err := c.awaitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started")

		if err := c.drain(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting")
			if err := c.awaitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

func (c *Consumer) awaitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		return nil
	}
}

// open устанавливает prefetch и начинает потребление очереди.
func (c *Consumer) open() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return deliveries, nil
}

// drain обрабатывает сообщения до закрытия канала доставки.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.handle(ctx, raw)
		}
	}
}

// handle обрабатывает одно сообщение и решает его судьбу.
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message",
			"error", err,
			"body", string(raw.Body),
		)
		raw.Nack(false, false)
		return
	}

	c.logger.Debug("received message", "message_id", msg.ID, "type", msg.Type)

	err := c.handler(ctx, &Delivery{Message: msg, Raw: raw})
	if err == nil {
		raw.Ack(false)
		return
	}

	if errors.Is(err, ErrDropMessage) {
		c.logger.Error("message dropped to DLQ",
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		raw.Nack(false, false)
		return
	}

	// Временная ошибка: одна повторная доставка, дальше DLQ.
	// Для dispatch-очереди requeue означает повторный запуск
	// runbook'а — бесконечный цикл здесь недопустим.
	requeue := !raw.Redelivered
	c.logger.Error("handler failed",
		"message_id", msg.ID,
		"type", msg.Type,
		"requeue", requeue,
		"error", err,
	)
	raw.Nack(false, requeue)
}

// ParsePayload парсит payload конверта в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload после Unmarshal конверта — map; прогоняем через JSON
	// ещё раз, чтобы получить типизированную структуру.
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
