// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - exec.dispatch  — execution назначен worker'у и ждёт выполнения
//   - exec.status    — worker сообщает о смене статуса (running/succeeded/failed)
//   - worker.heartbeat — периодический heartbeat worker'а
//
// Exchanges:
//   - cloudo.dispatch — очереди worker'ов (по одной на worker, routing key = worker_id)
//   - cloudo.events   — статусы executions и heartbeat'ы, потребляет orchestrator
//   - cloudo.dlq      — dead letter queue
package mq
