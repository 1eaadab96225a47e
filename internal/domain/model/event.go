// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// EventType identifies what a proctoring event reports.
type EventType string

// Known event types. Anything else is carried through as an unknown category.
const (
	EventInterviewStarted           EventType = "interview-started"
	EventInterviewEnded             EventType = "interview-ended"
	EventFocusLost                  EventType = "focus-lost"
	EventFocusGained                EventType = "focus-gained"
	EventFaceAbsent                 EventType = "face-absent"
	EventFaceDetected               EventType = "face-detected"
	EventMultipleFaces              EventType = "multiple-faces"
	EventObjectDetected             EventType = "object-detected"
	EventAudioViolation             EventType = "audio-violation"
	EventEyeClosureDetected         EventType = "eye-closure-detected"
	EventDrowsinessDetected         EventType = "drowsiness-detected"
	EventSystemAlert                EventType = "system-alert"
	EventCameraPermissionDenied     EventType = "camera-permission-denied"
	EventMicrophonePermissionDenied EventType = "microphone-permission-denied"
	EventConnectionLost             EventType = "connection-lost"
	EventConnectionRestored         EventType = "connection-restored"
)

// Severity is the coarse seriousness of a single event.
type Severity string

// Severity levels.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// defaultSeverities maps each known event type to the severity it gets when
// the producer did not set one.
var defaultSeverities = map[EventType]Severity{
	EventInterviewStarted:           SeverityLow,
	EventInterviewEnded:             SeverityLow,
	EventFocusLost:                  SeverityMedium,
	EventFocusGained:                SeverityLow,
	EventFaceAbsent:                 SeverityHigh,
	EventFaceDetected:               SeverityLow,
	EventMultipleFaces:              SeverityCritical,
	EventObjectDetected:             SeverityHigh,
	EventAudioViolation:             SeverityMedium,
	EventEyeClosureDetected:         SeverityMedium,
	EventDrowsinessDetected:         SeverityHigh,
	EventSystemAlert:                SeverityMedium,
	EventCameraPermissionDenied:     SeverityCritical,
	EventMicrophonePermissionDenied: SeverityHigh,
	EventConnectionLost:             SeverityHigh,
	EventConnectionRestored:         SeverityLow,
}

// Known reports whether t belongs to the fixed taxonomy.
func (t EventType) Known() bool {
	_, ok := defaultSeverities[t]
	return ok
}

// IsFocus reports whether the type name mentions focus.
func (t EventType) IsFocus() bool {
	return strings.Contains(string(t), "focus")
}

// DefaultSeverity returns the static severity for t, medium for unknown types.
func DefaultSeverity(t EventType) Severity {
	if s, ok := defaultSeverities[t]; ok {
		return s
	}
	return SeverityMedium
}

// Valid reports whether s is one of the four severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Timestamps must fit in int64 nanoseconds since the epoch, the unit the
// stores persist and order by.
var (
	minTimestamp = time.Unix(0, math.MinInt64) //nolint:gochecknoglobals // fixed bounds
	maxTimestamp = time.Unix(0, math.MaxInt64) //nolint:gochecknoglobals // fixed bounds
)

// Storable reports whether t round-trips through the stores.
func Storable(t time.Time) bool {
	return !t.Before(minTimestamp) && !t.After(maxTimestamp)
}

// Event is a single timestamped proctoring observation for one session.
// Events are immutable once created.
type Event struct {
	ID         string    `json:"event_id"`
	SessionID  string    `json:"session_id"`
	Type       EventType `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
	Severity   Severity  `json:"severity"`
	Data       EventData `json:"event_data"`
	Duration   *float64  `json:"duration,omitempty"`   // seconds
	Confidence *float64  `json:"confidence,omitempty"` // detector confidence in [0,1]
}

// WithDefaults returns a copy of e with severity filled from the static table
// when it is missing or not a recognised level.
func (e Event) WithDefaults() Event {
	if !e.Severity.Valid() {
		e.Severity = DefaultSeverity(e.Type)
	}
	return e
}

// Validate checks the fields the pipeline cannot do without. An unknown event
// type is not a violation; it only scores as an unknown category.
func (e Event) Validate() error {
	switch {
	case strings.TrimSpace(e.SessionID) == "":
		return fmt.Errorf("%w: missing session_id", ErrInvalidEvent)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	case !Storable(e.Timestamp):
		return fmt.Errorf("%w: timestamp out of range", ErrInvalidEvent)
	case e.Duration != nil && *e.Duration < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidEvent)
	case e.Confidence != nil && (*e.Confidence < 0 || *e.Confidence > 1):
		return fmt.Errorf("%w: confidence out of range", ErrInvalidEvent)
	}
	return nil
}

// Description renders a human readable line for reports and live feeds.
func Description(e Event) string {
	switch e.Type {
	case EventInterviewStarted:
		return "Interview session started"
	case EventInterviewEnded:
		return "Interview session ended"
	case EventFocusLost:
		return "Candidate stopped looking at screen"
	case EventFocusGained:
		return "Candidate resumed looking at screen"
	case EventFaceAbsent:
		return "No face detected in video feed"
	case EventFaceDetected:
		return "Face detected in video feed"
	case EventMultipleFaces:
		count := "unknown"
		if p, ok := e.Data.Payload.(FacePayload); ok && p.FaceCount > 0 {
			count = fmt.Sprintf("%d", p.FaceCount)
		}
		return fmt.Sprintf("Multiple faces detected (%s faces)", count)
	case EventObjectDetected:
		name := "unknown object"
		if p, ok := e.Data.Payload.(ObjectPayload); ok && p.ObjectType != "" {
			name = p.ObjectType
		}
		return "Unauthorized object detected: " + name
	case EventAudioViolation:
		return "Background voices or unauthorized audio detected"
	case EventEyeClosureDetected:
		return "Prolonged eye closure detected"
	case EventDrowsinessDetected:
		return "Signs of drowsiness detected"
	case EventSystemAlert:
		return "System generated alert"
	case EventCameraPermissionDenied:
		return "Camera access permission denied"
	case EventMicrophonePermissionDenied:
		return "Microphone access permission denied"
	case EventConnectionLost:
		return "Network connection lost"
	case EventConnectionRestored:
		return "Network connection restored"
	}
	return "Unknown event type"
}
