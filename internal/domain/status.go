package domain

// ExecStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	pending → accepted → routed → running → succeeded
//	                                      ↘ failed
//	         routed | running → error (по таймауту)
//	pending | accepted → rejected | skipped
//	routed → skipped (отмена оператором)
type ExecStatus string

const (
	// StatusPending — execution создан, ожидает approval или маршрутизации.
	StatusPending ExecStatus = "pending"

	// StatusAccepted — approval получен (или не требовался), можно маршрутизировать.
	StatusAccepted ExecStatus = "accepted"

	// StatusRouted — execution назначен worker'у и отправлен в его очередь.
	StatusRouted ExecStatus = "routed"

	// StatusRunning — worker подтвердил начало выполнения.
	StatusRunning ExecStatus = "running"

	// StatusSucceeded — worker сообщил об успешном завершении.
	StatusSucceeded ExecStatus = "succeeded"

	// StatusFailed — worker сообщил об ошибке выполнения runbook'а.
	StatusFailed ExecStatus = "failed"

	// StatusError — инфраструктурная ошибка: worker не подтвердил старт,
	// перестал отвечать или маршрутизация исчерпала попытки.
	StatusError ExecStatus = "error"

	// StatusRejected — approval отклонён.
	StatusRejected ExecStatus = "rejected"

	// StatusSkipped — execution отменён оператором или approval истёк.
	StatusSkipped ExecStatus = "skipped"
)

// statusRank — частичный порядок статусов.
// Переход разрешён только к статусу со строго большим рангом (§ монотонность).
var statusRank = map[ExecStatus]int{
	StatusPending:   0,
	StatusAccepted:  1,
	StatusRouted:    2,
	StatusRunning:   3,
	StatusSucceeded: 4,
	StatusFailed:    4,
	StatusError:     4,
	StatusRejected:  4,
	StatusSkipped:   4,
}

// Rank возвращает ранг статуса в частичном порядке.
// Неизвестный статус имеет ранг -1.
func (s ExecStatus) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// IsValid возвращает true, если статус принадлежит множеству известных.
func (s ExecStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal возвращает true, если статус финальный.
func (s ExecStatus) IsTerminal() bool {
	return s.Rank() == 4
}

// IsFailure возвращает true для финальных статусов, считающихся неуспехом
// выполнения (кандидаты на эскалацию).
func (s ExecStatus) IsFailure() bool {
	return s == StatusFailed || s == StatusError
}

// CanTransitionTo проверяет допустимость перехода s → next.
//
// Правила:
//   - next должен иметь строго больший ранг (монотонность);
//   - rejected и skipped достижимы только из pending/accepted
//     (skipped дополнительно из routed — отмена оператором);
//   - running достижим только из routed.
func (s ExecStatus) CanTransitionTo(next ExecStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if next.Rank() <= s.Rank() {
		return false
	}

	switch next {
	case StatusAccepted:
		return s == StatusPending
	case StatusRouted:
		return s == StatusAccepted
	case StatusRunning:
		return s == StatusRouted
	case StatusSucceeded, StatusFailed:
		return s == StatusRunning
	case StatusError:
		// Таймаут старта (routed) или прогресса (running),
		// а также исчерпание попыток маршрутизации (accepted).
		return s == StatusAccepted || s == StatusRouted || s == StatusRunning
	case StatusRejected:
		return s == StatusPending || s == StatusAccepted
	case StatusSkipped:
		return s == StatusPending || s == StatusAccepted || s == StatusRouted
	default:
		return false
	}
}

// ParseExecStatus парсит строку в ExecStatus.
// Статус "completed" из устаревших worker'ов нормализуется в succeeded.
func ParseExecStatus(s string) (ExecStatus, bool) {
	if s == "completed" {
		return StatusSucceeded, true
	}
	st := ExecStatus(s)
	return st, st.IsValid()
}

// ApprovalStatus — статус запроса на approval.
type ApprovalStatus string

const (
	// ApprovalPending — решение ещё не принято.
	ApprovalPending ApprovalStatus = "pending"

	// ApprovalApproved — выполнение одобрено.
	ApprovalApproved ApprovalStatus = "approved"

	// ApprovalRejected — выполнение отклонено.
	ApprovalRejected ApprovalStatus = "rejected"

	// ApprovalExpired — решение не принято в течение TTL.
	ApprovalExpired ApprovalStatus = "expired"
)

// IsDecided возвращает true, если запрос уже разрешён (в любую сторону).
func (s ApprovalStatus) IsDecided() bool {
	return s != ApprovalPending
}

// WorkerStatus — статус worker'а в реестре.
type WorkerStatus string

const (
	// WorkerActive — worker присылает heartbeat и участвует в маршрутизации.
	WorkerActive WorkerStatus = "active"

	// WorkerInactive — heartbeat не приходил дольше таймаута;
	// worker исключён из маршрутизации, но запись сохраняется.
	WorkerInactive WorkerStatus = "inactive"
)
