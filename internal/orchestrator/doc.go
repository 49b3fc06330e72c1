// Package orchestrator — центральный сервис ядра.
//
// Orchestrator соединяет gateway, approval gate, router и lifecycle:
//   - потребляет events.status (статусы от worker'ов) и
//     events.heartbeat (регистрация и heartbeat worker'ов)
//   - периодически выбирает accepted executions и отдаёт их router'у
//     (event-driven путь + polling fallback в одном механизме)
//   - фоновым sweep'ом гоняет watchdog зависших executions,
//     истечение approval-запросов и разметку inactive worker'ов
package orchestrator
