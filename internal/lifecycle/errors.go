package lifecycle

import "errors"

// Ошибки lifecycle manager'а.
var (
	// ErrExecutionNotFound — execution не найден.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrTransitionDropped — переход отброшен: execution уже ушёл
	// дальше по жизненному циклу (поздний или дублирующий callback).
	ErrTransitionDropped = errors.New("transition dropped")
)
