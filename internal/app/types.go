package service

import (
	"time"

	"github.com/okian/proctor/internal/domain/integrity"
	"github.com/okian/proctor/internal/domain/model"
)

// NewSession carries the fields a caller supplies when scheduling an interview.
type NewSession struct {
	CandidateName   string    `json:"candidate_name"`
	CandidateEmail  string    `json:"candidate_email,omitempty"`
	InterviewerName string    `json:"interviewer_name,omitempty"`
	Position        string    `json:"position,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Receipt acknowledges an ingested event.
type Receipt struct {
	EventID   string `json:"event_id"`
	SessionID string `json:"session_id"`
	Duplicate bool   `json:"duplicate"`
}

// Forecast is the live prediction view of a session.
type Forecast struct {
	SessionID        string               `json:"session_id"`
	Prediction       integrity.Prediction `json:"prediction"`
	CurrentRiskLevel integrity.RiskLevel  `json:"current_risk_level"`
	ConfidenceLevel  float64              `json:"confidence_level"`
	RecentInsights   []integrity.Insight  `json:"recent_insights"`
	Timestamp        time.Time            `json:"timestamp"`
}

// Report is the behavioral report envelope of a session.
type Report struct {
	SessionID       string           `json:"session_id"`
	Candidate       string           `json:"candidate"`
	DurationSeconds float64          `json:"duration"`
	Timestamp       time.Time        `json:"timestamp"`
	Analysis        integrity.Result `json:"ai_analysis"`
	ModelVersion    string           `json:"model_version"`
	TotalEvents     int              `json:"total_events"`
	LegacyScore     int              `json:"legacy_score"`
	// EffectiveScore applies the behavioral-over-legacy precedence.
	EffectiveScore int `json:"effective_score"`
}

// LiveMetrics is the headline block of a live snapshot.
type LiveMetrics struct {
	CurrentRiskLevel integrity.RiskLevel        `json:"current_risk_level"`
	TotalEvents      int                        `json:"total_events"`
	IntegrityScore   int                        `json:"integrity_score"`
	BehaviorInsights []integrity.Insight        `json:"behavior_insights"`
	Recommendations  []integrity.Recommendation `json:"recommendations"`
}

// LiveSnapshot is what the interviewer monitor polls or receives over the
// websocket feed.
type LiveSnapshot struct {
	SessionID string              `json:"session_id"`
	Status    model.SessionStatus `json:"status"`
	Report    Report              `json:"ai_report"`
	Metrics   LiveMetrics         `json:"live_metrics"`
	Timestamp time.Time           `json:"timestamp"`
}
