package integrity

import (
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

// RiskLevel is the coarse categorical severity of a session.
type RiskLevel string

// Risk levels, lowest first.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Priority orders recommended actions.
type Priority string

// Recommendation priorities.
const (
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Insight explains one detected behavioral pattern.
type Insight struct {
	Type       string  `json:"type"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
}

// Recommendation is an action suggested to the interviewer.
type Recommendation struct {
	Type     string   `json:"type"`
	Action   string   `json:"action"`
	Priority Priority `json:"priority"`
}

// Episode summarises a run of temporally adjacent events.
type Episode struct {
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Intensity int               `json:"intensity"`
	Types     []model.EventType `json:"types"`
}

// Temporal is the outcome of the phase and clustering analysis.
type Temporal struct {
	EarlyViolations  int       `json:"early_violations"`
	MidViolations    int       `json:"mid_violations"`
	LateViolations   int       `json:"late_violations"`
	Clusters         []Episode `json:"violation_clusters"`
	AttentionDecline bool      `json:"attention_decline"`
	StressPatterns   []Episode `json:"stress_patterns"`
}

// RepeatedPattern is a three-event signature seen more than once.
type RepeatedPattern struct {
	Sequence  string            `json:"sequence"`
	Types     []model.EventType `json:"types"`
	Frequency int               `json:"frequency"`
}

// Frequency is the outcome of the per-type counting analysis.
type Frequency struct {
	TotalViolations    int               `json:"total_violations"`
	CriticalViolations int               `json:"critical_violations"`
	FrequencyScore     float64           `json:"frequency_score"`
	ViolationDiversity int               `json:"violation_diversity"`
	RepeatedPatterns   []RepeatedPattern `json:"repeated_patterns"`
}

// Consistency is the outcome of the variability analysis.
type Consistency struct {
	FocusConsistency   float64 `json:"focus_consistency"`
	BehaviorStability  float64 `json:"behavior_stability"`
	OverallConsistency float64 `json:"overall_consistency"`
}

// Result is the full behavioral analysis of one session.
type Result struct {
	IntegrityScore     int              `json:"integrity_score"`
	RiskLevel          RiskLevel        `json:"risk_level"`
	BehaviorInsights   []Insight        `json:"behavior_insights"`
	RecommendedActions []Recommendation `json:"recommended_actions"`
	ConfidenceLevel    float64          `json:"confidence_level"`

	Temporal    Temporal    `json:"temporal"`
	Frequency   Frequency   `json:"frequency"`
	Consistency Consistency `json:"consistency"`
}

// Prediction estimates the next violation for a live dashboard.
type Prediction struct {
	Probability       float64         `json:"probability"`
	Type              model.EventType `json:"type"`
	TimeWindowSeconds int             `json:"time_window"`
	ConfidenceLabel   string          `json:"confidence"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
