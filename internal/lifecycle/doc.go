// Package lifecycle реализует машину статусов executions.
//
// Все смены статуса проходят через Manager.Apply: он сериализует
// конкурентные переходы одного execution, проверяет монотонность
// (поздние и дублирующие callback'и отбрасываются), пишет ровно одну
// запись в audit-журнал на успешный переход и вызывает terminal-хуки
// (эскалация, декремент счётчиков загрузки).
//
// Watchdog переводит в error executions, зависшие в routed (worker не
// подтвердил старт) или running (worker перестал отвечать).
package lifecycle
