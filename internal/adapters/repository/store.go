// Package repository persists interview sessions and their event logs.
package repository

import (
	"context"

	"github.com/okian/proctor/internal/domain/model"
)

// Store provides read/write access to sessions and their events.
type Store interface {
	// CreateSession inserts a new session. Returns ErrDuplicate if the id is taken.
	CreateSession(ctx context.Context, s model.Session) error
	// Session returns a session by id. Returns ErrNotFound if it is unknown.
	Session(ctx context.Context, id string) (model.Session, error)
	// UpdateSession replaces a stored session. Returns ErrNotFound if it is unknown.
	UpdateSession(ctx context.Context, s model.Session) error
	// Sessions returns every session ordered by creation time.
	Sessions(ctx context.Context) ([]model.Session, error)

	// AppendEvent stores an event under its session. Returns ErrNotFound for an
	// unknown session and ErrDuplicate when the event id was already stored.
	AppendEvent(ctx context.Context, e model.Event) error
	// Events returns a session's events ordered by timestamp ascending.
	Events(ctx context.Context, sessionID string) ([]model.Event, error)
	// RecentEvents returns the n latest events, still in ascending order.
	RecentEvents(ctx context.Context, sessionID string, n int) ([]model.Event, error)

	// Count returns the number of sessions tracked.
	Count(ctx context.Context) int
	Close() error
}
