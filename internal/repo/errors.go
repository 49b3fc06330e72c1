package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrStaleStatus — CAS-обновление не применилось: статус в БД
	// уже не тот, от которого отталкивался вызывающий.
	ErrStaleStatus = errors.New("stale status")
)
