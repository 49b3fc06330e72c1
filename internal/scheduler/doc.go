// Package scheduler реализует запуск runbook'ов по расписанию.
//
// Scheduler работает тиками: каждый тик выбирает due расписания,
// отправляет scheduled-триггер через gateway и сдвигает next_due_at
// по cron-выражению (5 полей, timezone расписания).
//
// Единственность запуска на плановый момент обеспечивается ключом
// идемпотентности "{schedule_id}_{due_unix}" в gateway: после рестарта
// или failover лидера повторный тик того же момента — no-op.
//
// Лидерство между инстансами — pg_try_advisory_lock (см. cmd).
package scheduler
