// Package integrity turns the proctoring event stream of one interview
// session into an integrity score, a risk level, explanatory insights,
// recommended actions and a short-horizon violation prediction.
//
// Every function in the package is pure. Inputs are treated as snapshots
// and never modified, so analyses of different sessions may run in
// parallel without coordination.
package integrity

import (
	"slices"
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

// ModelVersion identifies the scoring rules in reports.
const ModelVersion = "1.0.0"

// Sorted returns a copy of events ordered by timestamp. Events with equal
// timestamps keep their arrival order.
func Sorted(events []model.Event) []model.Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// Neutral is the result for a session with nothing to analyze.
func Neutral(eventCount int, duration time.Duration) Result {
	return Result{
		IntegrityScore:     maxScore,
		RiskLevel:          RiskLow,
		BehaviorInsights:   []Insight{},
		RecommendedActions: []Recommendation{},
		ConfidenceLevel:    Confidence(eventCount, duration),
		Temporal: Temporal{
			Clusters:       []Episode{},
			StressPatterns: []Episode{},
		},
		Frequency: Frequency{
			FrequencyScore:   maxScore,
			RepeatedPatterns: []RepeatedPattern{},
		},
		Consistency: Consistency{
			FocusConsistency:   maxScore,
			BehaviorStability:  maxScore,
			OverallConsistency: maxScore,
		},
	}
}

// Analyze runs the full behavioral analysis over events spanning duration.
// An empty stream or a non-positive duration yields the neutral result.
func Analyze(events []model.Event, duration time.Duration) Result {
	if len(events) == 0 || duration <= 0 {
		return Neutral(len(events), duration)
	}

	sorted := Sorted(events)
	temporal := AnalyzeTemporal(sorted, duration)
	frequency := AnalyzeFrequency(sorted)
	consistency := AnalyzeConsistency(sorted)

	score := FuseScore(temporal, frequency, consistency)
	risk := ClassifyRisk(score, sorted)
	insights := Insights(sorted, temporal)

	return Result{
		IntegrityScore:     score,
		RiskLevel:          risk,
		BehaviorInsights:   insights,
		RecommendedActions: Recommendations(score, risk, insights),
		ConfidenceLevel:    Confidence(len(sorted), duration),
		Temporal:           temporal,
		Frequency:          frequency,
		Consistency:        consistency,
	}
}

// TopInsights returns the first n insights in generation order.
func TopInsights(insights []Insight, n int) []Insight {
	if n < 0 || n > len(insights) {
		n = len(insights)
	}
	return append([]Insight{}, insights[:n]...)
}
