package router

import "errors"

// Ошибки router'а.
var (
	// ErrNoCandidates — нет active worker'ов с нужной capability.
	ErrNoCandidates = errors.New("no candidate workers")

	// ErrRoutingExhausted — попытки маршрутизации исчерпаны.
	ErrRoutingExhausted = errors.New("routing attempts exhausted")
)
