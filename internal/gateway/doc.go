// Package gateway реализует единую точку входа триггеров.
//
// Manual-запуски, алерты мониторинга и scheduled-запуски проходят один
// и тот же путь: валидация схемы, снимок схемы в execution, approval
// gate для схем с require_approval и запись TRIGGER в audit-журнал.
//
// Scheduled-запуски идемпотентны по ключу "{schedule_id}_{due_unix}":
// повторный Submit того же планового момента возвращает уже созданный
// execution. Ручные запуски дедупликации не подлежат.
package gateway
