package integrity

import (
	"math"
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

const maxScore = 100

// Score fusion penalties and weights.
const (
	declinePenalty        = 15
	clusterPenalty        = 10
	stressPenalty         = 5
	frequencyShare        = 0.6
	consistencyShare      = 0.3
	clusterPenaltyAbove   = 2
	erraticClustersAbove  = 3
	erraticPenalty        = 3
	focusedDiversityBelow = 3
	focusedBonus          = 2
)

// Risk thresholds.
const (
	criticalScoreBelow  = 50
	highScoreBelow      = 70
	mediumScoreBelow    = 85
	criticalEventsAbove = 3
	highEventsAbove     = 1
)

// Confidence level bounds and adjustments.
const (
	baseConfidence = 0.95
	minConfidence  = 0.5
	maxConfidence  = 0.99
	sparseEvents   = 5
	sparsePenalty  = 0.1
	shortSession   = 300 * time.Second
	shortPenalty   = 0.05
	richEvents     = 20
	richBonus      = 0.02
)

// FuseScore combines the three analyses into an integrity score in [0, 100].
func FuseScore(t Temporal, f Frequency, c Consistency) int {
	base := float64(maxScore)
	if t.AttentionDecline {
		base -= declinePenalty
	}
	if len(t.Clusters) > clusterPenaltyAbove {
		base -= clusterPenalty
	}
	if len(t.StressPatterns) > 0 {
		base -= stressPenalty
	}

	freq := clamp(f.FrequencyScore, 0, maxScore)
	cons := clamp(c.OverallConsistency, 0, maxScore)
	base -= (maxScore - freq) * frequencyShare
	base -= (maxScore - cons) * consistencyShare

	adjustment := 0.0
	if f.ViolationDiversity < focusedDiversityBelow {
		adjustment += focusedBonus
	}
	if len(t.Clusters) > erraticClustersAbove {
		adjustment -= erraticPenalty
	}
	base += adjustment

	return int(clamp(math.Round(base), 0, maxScore))
}

// ClassifyRisk maps a score and the count of object and multiple-face events
// to a risk level. The first matching rule wins.
func ClassifyRisk(score int, events []model.Event) RiskLevel {
	critical := 0
	for _, e := range events {
		if riskTypes[e.Type] {
			critical++
		}
	}

	switch {
	case score < criticalScoreBelow || critical > criticalEventsAbove:
		return RiskCritical
	case score < highScoreBelow || critical > highEventsAbove:
		return RiskHigh
	case score < mediumScoreBelow:
		return RiskMedium
	}
	return RiskLow
}

// Confidence rates how much data backs an analysis: eventCount events over
// duration.
func Confidence(eventCount int, duration time.Duration) float64 {
	c := baseConfidence
	if eventCount < sparseEvents {
		c -= sparsePenalty
	}
	if duration < shortSession {
		c -= shortPenalty
	}
	if eventCount > richEvents {
		c += richBonus
	}
	return clamp(c, minConfidence, maxConfidence)
}

// clamp bounds v to [lo, hi]; NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
