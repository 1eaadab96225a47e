package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrBackpressure      = errors.New("event queue is full")
	ErrInvalidTransition = errors.New("invalid session transition")
)
