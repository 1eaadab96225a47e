package integrity

import (
	"strings"

	"github.com/okian/proctor/internal/domain/model"
)

// Insight and recommendation type tags.
const (
	InsightFocusPattern       = "focus_pattern"
	InsightAttentionDecline   = "attention_decline"
	InsightBehaviorClustering = "behavior_clustering"
	InsightUnauthorizedItems  = "unauthorized_objects"

	ActionIntegrityConcern    = "integrity_concern"
	ActionImmediate           = "immediate_action"
	ActionInterviewAdjustment = "interview_adjustment"
)

const (
	frequentFocusAbove  = 5
	unnamedObject       = "unidentified object"
	recommendScoreBelow = 70
)

// Insights explains the patterns found in events. Every rule fires
// independently; the confidences are fixed per rule.
func Insights(events []model.Event, t Temporal) []Insight {
	out := []Insight{}

	focus := 0
	for _, e := range events {
		if e.Type.IsFocus() {
			focus++
		}
	}
	if focus > frequentFocusAbove {
		out = append(out, Insight{
			Type:       InsightFocusPattern,
			Message:    "Candidate shows frequent focus shifts, indicating possible distraction or nervousness",
			Confidence: 0.85,
		})
	}

	if t.AttentionDecline {
		out = append(out, Insight{
			Type:       InsightAttentionDecline,
			Message:    "Attention appears to decline over time, suggesting fatigue or disengagement",
			Confidence: 0.78,
		})
	}

	if len(t.Clusters) > 0 {
		out = append(out, Insight{
			Type:       InsightBehaviorClustering,
			Message:    "Violations occur in clusters, suggesting specific trigger moments or stress periods",
			Confidence: 0.82,
		})
	}

	if names, found := objectNames(events); found {
		out = append(out, Insight{
			Type:       InsightUnauthorizedItems,
			Message:    "Detected unauthorized items: " + strings.Join(names, ", "),
			Confidence: 0.95,
		})
	}
	return out
}

// objectNames lists the distinct detected object names in first-seen order.
// found is true when any object-detected event exists, named or not.
func objectNames(events []model.Event) (names []string, found bool) {
	seen := make(map[string]bool)
	for _, e := range events {
		if e.Type != model.EventObjectDetected {
			continue
		}
		found = true
		if name := e.Data.ObjectType(); name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if found && len(names) == 0 {
		names = []string{unnamedObject}
	}
	return names, found
}

// Recommendations turns a score, risk level and insights into prioritized
// actions for the interviewer.
func Recommendations(score int, risk RiskLevel, insights []Insight) []Recommendation {
	out := []Recommendation{}
	if score < recommendScoreBelow {
		out = append(out, Recommendation{
			Type:     ActionIntegrityConcern,
			Action:   "Consider additional verification or follow-up interview",
			Priority: PriorityHigh,
		})
	}
	if risk == RiskCritical {
		out = append(out, Recommendation{
			Type:     ActionImmediate,
			Action:   "Immediate intervention required - contact candidate or pause interview",
			Priority: PriorityCritical,
		})
	}
	for _, in := range insights {
		if in.Type == InsightAttentionDecline {
			out = append(out, Recommendation{
				Type:     ActionInterviewAdjustment,
				Action:   "Consider shortening remaining interview time or providing a break",
				Priority: PriorityMedium,
			})
			break
		}
	}
	return out
}
