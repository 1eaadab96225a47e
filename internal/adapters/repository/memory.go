package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/metrics"
)

// MemoryStore keeps sessions and event logs in process memory. Every read
// returns a copy so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionLog
	order    []string // session ids in creation order
	now      func() time.Time
}

type sessionLog struct {
	session model.Session
	events  []model.Event // ascending by timestamp, insertion order for ties
	ids     map[string]struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*sessionLog),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) CreateSession(ctx context.Context, sess model.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer observeWrite(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("session %s: %w", sess.ID, ErrDuplicate)
	}
	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	s.sessions[sess.ID] = &sessionLog{session: cloneSession(sess), ids: make(map[string]struct{})}
	s.order = append(s.order, sess.ID)
	metrics.UpdateSessionsTotal(len(s.sessions))
	return nil
}

func (s *MemoryStore) Session(ctx context.Context, id string) (model.Session, error) {
	if err := ctx.Err(); err != nil {
		return model.Session{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.sessions[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return cloneSession(l.session), nil
}

func (s *MemoryStore) UpdateSession(ctx context.Context, sess model.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer observeWrite(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	sess.CreatedAt = l.session.CreatedAt
	sess.UpdatedAt = s.now()
	l.session = cloneSession(sess)
	return nil
}

func (s *MemoryStore) Sessions(ctx context.Context) ([]model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer observeQuery(start)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneSession(s.sessions[id].session))
	}
	return out, nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, e model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer observeWrite(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sessions[e.SessionID]
	if !ok {
		return ErrNotFound
	}
	if e.ID != "" {
		if _, seen := l.ids[e.ID]; seen {
			return fmt.Errorf("event %s: %w", e.ID, ErrDuplicate)
		}
		l.ids[e.ID] = struct{}{}
	}
	// Insert after every event with an equal or earlier timestamp.
	i := sort.Search(len(l.events), func(i int) bool {
		return l.events[i].Timestamp.After(e.Timestamp)
	})
	l.events = slices.Insert(l.events, i, e)
	return nil
}

func (s *MemoryStore) Events(ctx context.Context, sessionID string) ([]model.Event, error) {
	return s.RecentEvents(ctx, sessionID, -1)
}

// RecentEvents returns the n latest events. A negative n returns all of them.
func (s *MemoryStore) RecentEvents(ctx context.Context, sessionID string, n int) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer observeQuery(start)

	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	events := l.events
	if n >= 0 && n < len(events) {
		events = events[len(events)-n:]
	}
	return slices.Clone(events), nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error { return nil }

// cloneSession detaches the pointer fields of a session.
func cloneSession(s model.Session) model.Session {
	if s.StartedAt != nil {
		t := *s.StartedAt
		s.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		s.EndedAt = &t
	}
	if s.BehavioralScore != nil {
		v := *s.BehavioralScore
		s.BehavioralScore = &v
	}
	return s
}

func observeWrite(start time.Time) {
	metrics.RecordRepositoryWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}
