// Package escalation реализует эскалацию неуспешных executions.
//
// Финальный failed/error execution схемы с oncall=true порождает
// не более одного pager-алерта: барьер — строка в таблице escalations
// (INSERT ... ON CONFLICT DO NOTHING), alias алерта — exec_id, так что
// и на стороне pager-провайдера дубликаты схлопываются.
//
// Slack-уведомления — best-effort дополнение: их потеря не считается
// потерей эскалации.
package escalation
