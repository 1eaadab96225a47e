package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/proctor/internal/domain/model"

	_ "modernc.org/sqlite"
)

// SQLStore persists sessions and events in SQLite.
type SQLStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite creates or opens a SQLite database at path and migrates it.
func OpenSQLite(path string, opts ...SQLOption) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return newSQLStore(db, path, opts)
}

// OpenSQLiteMemory creates an in-memory database, useful for tests.
func OpenSQLiteMemory(opts ...SQLOption) (*SQLStore, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every connection would get its own empty database.
	db.SetMaxOpenConns(1)
	return newSQLStore(db, ":memory:", opts)
}

func newSQLStore(db *sql.DB, path string, opts []SQLOption) (*SQLStore, error) {
	s := &SQLStore{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    candidate_name TEXT NOT NULL,
    candidate_email TEXT NOT NULL DEFAULT '',
    interviewer_name TEXT NOT NULL DEFAULT '',
    position TEXT NOT NULL DEFAULT '',
    scheduled_at INTEGER NOT NULL,
    duration_minutes INTEGER NOT NULL,
    status TEXT NOT NULL,
    started_at INTEGER,
    ended_at INTEGER,
    summary TEXT NOT NULL DEFAULT '{}',
    legacy_score INTEGER NOT NULL DEFAULT 100,
    behavioral_score INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    seq INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    ts INTEGER NOT NULL,
    severity TEXT NOT NULL,
    event_data TEXT NOT NULL DEFAULT '{}',
    duration REAL,
    confidence REAL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id, id) WHERE id != '';
CREATE INDEX IF NOT EXISTS idx_events_session_ts ON events(session_id, ts, seq);
`

const sessionColumns = `id, candidate_name, candidate_email, interviewer_name, position,
	scheduled_at, duration_minutes, status, started_at, ended_at, summary,
	legacy_score, behavioral_score, created_at, updated_at`

func (s *SQLStore) CreateSession(ctx context.Context, sess model.Session) error {
	start := time.Now()
	defer observeWrite(start)

	now := s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	summary, err := json.Marshal(sess.Summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        (SELECT COALESCE(MAX(seq), 0) + 1 FROM sessions))`,
		sess.ID, sess.CandidateName, sess.CandidateEmail, sess.InterviewerName, sess.Position,
		sess.ScheduledAt.UnixNano(), sess.DurationMinutes, string(sess.Status),
		nullTime(sess.StartedAt), nullTime(sess.EndedAt), string(summary),
		sess.LegacyScore, nullInt(sess.BehavioralScore),
		sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano())
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("session %s: %w", sess.ID, ErrDuplicate)
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *SQLStore) Session(ctx context.Context, id string) (model.Session, error) {
	start := time.Now()
	defer observeQuery(start)

	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	return sess, err
}

func (s *SQLStore) UpdateSession(ctx context.Context, sess model.Session) error {
	start := time.Now()
	defer observeWrite(start)

	summary, err := json.Marshal(sess.Summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET
		candidate_name = ?, candidate_email = ?, interviewer_name = ?, position = ?,
		scheduled_at = ?, duration_minutes = ?, status = ?, started_at = ?, ended_at = ?,
		summary = ?, legacy_score = ?, behavioral_score = ?, updated_at = ?
		WHERE id = ?`,
		sess.CandidateName, sess.CandidateEmail, sess.InterviewerName, sess.Position,
		sess.ScheduledAt.UnixNano(), sess.DurationMinutes, string(sess.Status),
		nullTime(sess.StartedAt), nullTime(sess.EndedAt), string(summary),
		sess.LegacyScore, nullInt(sess.BehavioralScore), s.now().UnixNano(), sess.ID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Sessions(ctx context.Context) ([]model.Session, error) {
	start := time.Now()
	defer observeQuery(start)

	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	out := []model.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLStore) AppendEvent(ctx context.Context, e model.Event) error {
	start := time.Now()
	defer observeWrite(start)

	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, e.SessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO events
		(id, session_id, event_type, ts, severity, event_data, duration, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, string(e.Type), e.Timestamp.UnixNano(), string(e.Severity),
		string(data), nullFloat(e.Duration), nullFloat(e.Confidence))
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("event %s: %w", e.ID, ErrDuplicate)
		}
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (s *SQLStore) Events(ctx context.Context, sessionID string) ([]model.Event, error) {
	return s.RecentEvents(ctx, sessionID, -1)
}

// RecentEvents returns the n latest events. A negative n returns all of them.
func (s *SQLStore) RecentEvents(ctx context.Context, sessionID string, n int) ([]model.Event, error) {
	start := time.Now()
	defer observeQuery(start)

	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}

	// SQLite treats a negative LIMIT as no limit.
	rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, event_type, ts, severity, event_data, duration, confidence
		FROM (
			SELECT * FROM events WHERE session_id = ?
			ORDER BY ts DESC, seq DESC LIMIT ?
		) ORDER BY ts ASC, seq ASC`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		var (
			e                    model.Event
			typ, severity, data  string
			ts                   int64
			duration, confidence sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &typ, &ts, &severity, &data, &duration, &confidence); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Type = model.EventType(typ)
		e.Severity = model.Severity(severity)
		e.Timestamp = time.Unix(0, ts).UTC()
		if e.Data, err = model.DecodeEventData(e.Type, []byte(data)); err != nil {
			return nil, fmt.Errorf("decoding event %s: %w", e.ID, err)
		}
		e.Duration = floatPtr(duration)
		e.Confidence = floatPtr(confidence)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *SQLStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (model.Session, error) {
	var (
		sess               model.Session
		status, summary    string
		scheduled          int64
		created, updated   int64
		startedAt, endedAt sql.NullInt64
		behavioral         sql.NullInt64
	)
	err := row.Scan(&sess.ID, &sess.CandidateName, &sess.CandidateEmail, &sess.InterviewerName, &sess.Position,
		&scheduled, &sess.DurationMinutes, &status, &startedAt, &endedAt, &summary,
		&sess.LegacyScore, &behavioral, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, err
		}
		return model.Session{}, fmt.Errorf("scanning session: %w", err)
	}
	if err := json.Unmarshal([]byte(summary), &sess.Summary); err != nil {
		return model.Session{}, fmt.Errorf("decoding summary: %w", err)
	}
	sess.Status = model.SessionStatus(status)
	sess.ScheduledAt = time.Unix(0, scheduled).UTC()
	sess.CreatedAt = time.Unix(0, created).UTC()
	sess.UpdatedAt = time.Unix(0, updated).UTC()
	sess.StartedAt = timePtr(startedAt)
	sess.EndedAt = timePtr(endedAt)
	if behavioral.Valid {
		v := int(behavioral.Int64)
		sess.BehavioralScore = &v
	}
	return sess, nil
}

func isConstraint(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY")
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
