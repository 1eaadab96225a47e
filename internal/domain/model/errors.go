package model

import "errors"

// Sentinel kinds for contract violations on incoming records.
var (
	ErrInvalidEvent     = errors.New("invalid event")
	ErrInvalidEventData = errors.New("invalid event data")
	ErrInvalidSession   = errors.New("invalid session")
)
