package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalRequest — запрос на одобрение запуска.
//
// Создаётся Trigger Gateway'ем 1:1 с execution, у которого схема требует
// approval. Терминален после первого решения: повтор того же решения —
// идемпотентный no-op, противоположное решение — конфликт.
type ApprovalRequest struct {
	// ExecID — execution, ожидающий решения.
	ExecID uuid.UUID `json:"exec_id"`

	// SchemaID — схема execution'а (для удобства списков).
	SchemaID string `json:"schema_id"`

	// Status — pending / approved / rejected / expired.
	Status ApprovalStatus `json:"status"`

	// RequestedAt — время создания запроса.
	RequestedAt time.Time `json:"requested_at"`

	// ExpiresAt — дедлайн решения; по истечении execution переводится
	// в skipped.
	ExpiresAt time.Time `json:"expires_at"`

	// DecidedBy — кто принял решение.
	DecidedBy string `json:"decided_by,omitempty"`

	// DecidedAt — время решения.
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// IsExpired проверяет, истёк ли дедлайн нерешённого запроса.
func (a *ApprovalRequest) IsExpired(now time.Time) bool {
	return a.Status == ApprovalPending && now.After(a.ExpiresAt)
}

// Decide фиксирует решение. Не проверяет текущий статус —
// это обязанность approval gate.
func (a *ApprovalRequest) Decide(approver string, approve bool) {
	now := time.Now().UTC()
	if approve {
		a.Status = ApprovalApproved
	} else {
		a.Status = ApprovalRejected
	}
	a.DecidedBy = approver
	a.DecidedAt = &now
}
