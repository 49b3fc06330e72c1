// Package api реализует HTTP API ядра.
//
// Поверхность:
//   - триггеры (manual + alert webhook)
//   - реестр схем (CRUD)
//   - executions (список, карточка, отмена, история)
//   - approvals (список, решение)
//   - worker'ы (список, карточка)
//   - расписания (CRUD, enable/disable)
//   - audit-журнал (выборка по дню/execution/действию)
//
// Маршрутизация — stdlib http.ServeMux (method+pattern), ответы —
// единый конверт {"data": ...} / {"error": {code, message}}.
package api
