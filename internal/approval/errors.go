package approval

import "errors"

// Ошибки approval gate.
var (
	// ErrNotFound — approval-запрос не найден.
	ErrNotFound = errors.New("approval request not found")

	// ErrAlreadyDecided — запрос уже разрешён противоположным решением.
	ErrAlreadyDecided = errors.New("approval already decided")

	// ErrExpired — TTL запроса истёк, решение больше не принимается.
	ErrExpired = errors.New("approval request expired")
)
