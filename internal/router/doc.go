// Package router реализует маршрутизацию executions на worker'ов.
//
// Кандидаты — active worker'ы, чья capability совпадает с требованием
// схемы (конкретный worker, пул или запись в capabilities). Из кандидатов
// детерминированно выбирается наименее загруженный; при равной загрузке —
// лексикографически меньший worker_id, чтобы два инстанса router'а
// приходили к одному решению.
//
// Назначение фиксируется CAS-переходом accepted → routed: проигравший
// конкурент получает stale-статус и молча выходит, execution
// отправляется worker'у не более одного раза.
package router
