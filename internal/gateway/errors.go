package gateway

import "errors"

// Ошибки gateway.
var (
	// ErrSchemaNotFound — схема не найдена в реестре.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrInvalidSource — неизвестный источник триггера.
	ErrInvalidSource = errors.New("invalid trigger source")

	// ErrDuplicateTrigger — scheduled-запуск этого планового момента
	// уже существует. Возвращается вместе с существующим execution.
	ErrDuplicateTrigger = errors.New("duplicate trigger")
)
