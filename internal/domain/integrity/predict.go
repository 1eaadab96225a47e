package integrity

import (
	"math"
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

// Prediction constants.
const (
	predictionWindowSeconds = 60
	recentEvents            = 5
	minPredictionEvents     = 3
	baselineProbability     = 0.1
	patternProbabilityStep  = 0.2
	maxProbability          = 0.8
	highProbabilityAbove    = 0.5

	// UnknownType is reported when there is too little data to predict.
	UnknownType model.EventType = "unknown"
	// FallbackType is predicted when no pattern repeats.
	FallbackType = model.EventFocusLost
)

// Confidence labels attached to predictions.
const (
	LabelLow    = "low"
	LabelMedium = "medium"
	LabelHigh   = "high"
)

// Predict estimates the likelihood and type of the next violation from the
// five most recent events. The input is not modified.
func Predict(events []model.Event, now time.Time) Prediction {
	p := Prediction{
		Probability:       baselineProbability,
		Type:              UnknownType,
		TimeWindowSeconds: predictionWindowSeconds,
		ConfidenceLabel:   LabelLow,
		GeneratedAt:       now,
	}
	if len(events) < minPredictionEvents {
		return p
	}

	sorted := Sorted(events)
	if len(sorted) > recentEvents {
		sorted = sorted[len(sorted)-recentEvents:]
	}

	p.Type = FallbackType
	if top, ok := topPattern(RepeatedPatterns(sorted)); ok {
		p.Probability = math.Min(maxProbability, float64(top.Frequency)*patternProbabilityStep)
		p.Type = top.Types[0]
	}

	p.ConfidenceLabel = LabelMedium
	if p.Probability > highProbabilityAbove {
		p.ConfidenceLabel = LabelHigh
	}
	return p
}
