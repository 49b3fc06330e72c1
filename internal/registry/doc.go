// Package registry реализует реестр worker'ов.
//
// Worker'ы регистрируются сами: первый heartbeat с capabilities создаёт
// запись, последующие обновляют её. Реестр помечает inactive worker'ов,
// чей heartbeat не приходил дольше таймаута, но никогда не удаляет
// записи — история worker'ов остаётся наблюдаемой.
//
// LoadTracker ведёт in-memory счётчики назначенных executions на worker'а.
// Router инкрементирует счётчик при dispatch, lifecycle декрементирует
// при финальном статусе.
package registry
