// Package agent реализует worker-агент, выполняющий runbook'и.
//
// Агент — stateless процесс на краю системы:
//   - объявляет и потребляет персональную dispatch-очередь
//   - выполняет runbook через Runner (по умолчанию — shell)
//   - отчитывается о статусах через events.status
//   - шлёт периодический heartbeat с текущей загрузкой
//
// Регистрация в реестре — через первый heartbeat: отдельного
// registration-вызова нет, агенту достаточно очередей.
package agent
