package domain

import "errors"

// Ошибки валидации доменных объектов.
var (
	// ErrSchemaIDRequired — схема без идентификатора.
	ErrSchemaIDRequired = errors.New("schema id is required")

	// ErrSchemaRunbookRequired — схема без ссылки на runbook.
	ErrSchemaRunbookRequired = errors.New("schema runbook is required")

	// ErrSchemaWorkerRequired — схема без требуемого worker/пула.
	ErrSchemaWorkerRequired = errors.New("schema worker is required")

	// ErrInvalidTransition — попытка немонотонного или недопустимого
	// перехода статуса execution.
	ErrInvalidTransition = errors.New("invalid status transition")
)
