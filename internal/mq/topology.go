package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeDispatch Exchange = "cloudo.dispatch"
	ExchangeEvents   Exchange = "cloudo.events"
	ExchangeDLQ      Exchange = "cloudo.dlq"
)

// Queues — статические очереди.
const (
	QueueEventsStatus    Queue = "events.status"
	QueueEventsHeartbeat Queue = "events.heartbeat"
	QueueDLQDispatch     Queue = "dlq.dispatch"
)

// Routing keys.
const (
	RoutingKeyStatus      RoutingKey = "status"
	RoutingKeyHeartbeat   RoutingKey = "heartbeat"
	RoutingKeyDLQDispatch RoutingKey = "dispatch"
)

// DispatchQueue возвращает имя персональной очереди worker'а.
func DispatchQueue(workerID string) Queue {
	return Queue("dispatch." + workerID)
}

// SetupTopology объявляет обменники и статические очереди.
// Персональные очереди worker'ов объявляются при их регистрации
// через DeclareDispatchQueue.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareStaticQueues(ch); err != nil {
			return err
		}
		return bindStaticQueues(ch)
	})
}

// DeclareDispatchQueue объявляет очередь worker'а и привязывает её
// к dispatch-обменнику с routing key = worker_id. Идемпотентна:
// повторная регистрация того же worker'а — no-op.
func DeclareDispatchQueue(ctx context.Context, conn *Connection, workerID string) (Queue, error) {
	queue := DispatchQueue(workerID)
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQDispatch),
	}

	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if _, err := ch.QueueDeclare(string(queue), true, false, false, false, dlqArgs); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(string(queue), workerID, string(ExchangeDispatch), false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return queue, nil
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeDispatch, "direct"},
		{ExchangeEvents, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareStaticQueues создаёт статические очереди.
func declareStaticQueues(ch *amqp.Channel) error {
	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// events.status — статусы executions, потребляет orchestrator
		{QueueEventsStatus, nil},

		// events.heartbeat — heartbeat'ы worker'ов
		{QueueEventsHeartbeat, nil},

		// dlq.dispatch — сюда падают недоставленные dispatch-сообщения
		{QueueDLQDispatch, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindStaticQueues привязывает статические очереди к обменникам.
func bindStaticQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueEventsStatus, RoutingKeyStatus, ExchangeEvents},
		{QueueEventsHeartbeat, RoutingKeyHeartbeat, ExchangeEvents},
		{QueueDLQDispatch, RoutingKeyDLQDispatch, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  ClouDO RabbitMQ Topology:

    cloudo.dispatch (direct)
    └── dispatch.<worker_id> [routing: <worker_id>]
            Consumer: Worker
            DLQ: dlq.dispatch

    cloudo.events (direct)
    ├── events.status [routing: status]
    │       Consumer: Orchestrator
    └── events.heartbeat [routing: heartbeat]
            Consumer: Orchestrator

    cloudo.dlq (direct)
    └── dlq.dispatch [routing: dispatch]
            Manual processing
  `
}
