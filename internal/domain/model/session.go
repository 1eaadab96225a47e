package model

import (
	"fmt"
	"strings"
	"time"
)

// SessionStatus tracks the interview lifecycle.
type SessionStatus string

// Session lifecycle states.
const (
	StatusScheduled  SessionStatus = "scheduled"
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
)

// Summary holds the per-session counters the legacy scorer works from.
type Summary struct {
	FocusLostEvents         int     `json:"total_focus_lost_events"`
	ObjectDetections        int     `json:"total_object_detections"`
	MultipleFaceEvents      int     `json:"total_multiple_face_events"`
	AudioViolations         int     `json:"total_audio_violations"`
	FocusPercentage         float64 `json:"focus_percentage"`
	MaxConsecutiveFocusLoss float64 `json:"max_consecutive_focus_loss"` // seconds
}

// Session is one interview record.
type Session struct {
	ID              string        `json:"id"`
	CandidateName   string        `json:"candidate_name"`
	CandidateEmail  string        `json:"candidate_email,omitempty"`
	InterviewerName string        `json:"interviewer_name,omitempty"`
	Position        string        `json:"position,omitempty"`
	ScheduledAt     time.Time     `json:"scheduled_at"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	Summary         Summary       `json:"summary"`
	// LegacyScore is refreshed on every recorded event.
	LegacyScore int `json:"legacy_score"`
	// BehavioralScore is set once the full engine has run.
	BehavioralScore *int      `json:"behavioral_score,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Session duration bounds, in minutes.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 180
)

// Validate checks a new session record.
func (s Session) Validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidSession)
	case strings.TrimSpace(s.CandidateName) == "":
		return fmt.Errorf("%w: missing candidate_name", ErrInvalidSession)
	case !Storable(s.ScheduledAt):
		return fmt.Errorf("%w: scheduled_at out of range", ErrInvalidSession)
	case s.DurationMinutes < MinDurationMinutes || s.DurationMinutes > MaxDurationMinutes:
		return fmt.Errorf("%w: duration_minutes must be between %d and %d", ErrInvalidSession, MinDurationMinutes, MaxDurationMinutes)
	}
	return nil
}

// Elapsed returns how long the interview has run as of now: end minus start
// once finished, now minus start while running, the scheduled length before
// it starts.
func (s Session) Elapsed(now time.Time) time.Duration {
	switch {
	case s.StartedAt != nil && s.EndedAt != nil:
		return s.EndedAt.Sub(*s.StartedAt)
	case s.StartedAt != nil:
		return now.Sub(*s.StartedAt)
	}
	return time.Duration(s.DurationMinutes) * time.Minute
}
