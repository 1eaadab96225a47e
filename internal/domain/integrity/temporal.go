package integrity

import (
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

// Temporal analysis constants.
const (
	clusterWindow     = 120 * time.Second
	minClusterSize    = 2
	stressClusterSize = 4
	declineRatio      = 1.5
	phaseCount        = 3
)

// AnalyzeTemporal buckets events into early, mid and late thirds of the
// session and groups them into clusters. events must be sorted by
// timestamp; phases are measured from the first event, not the wall clock.
func AnalyzeTemporal(events []model.Event, duration time.Duration) Temporal {
	t := Temporal{
		Clusters:       []Episode{},
		StressPatterns: []Episode{},
	}
	if len(events) == 0 {
		return t
	}

	third := duration.Seconds() / phaseCount
	first := events[0].Timestamp

	var current []model.Event
	var last time.Time
	for i, e := range events {
		elapsed := e.Timestamp.Sub(first).Seconds()
		switch {
		case elapsed < third:
			t.EarlyViolations++
		case elapsed < third*2:
			t.MidViolations++
		default:
			t.LateViolations++
		}

		if i == 0 || e.Timestamp.Sub(last) < clusterWindow {
			current = append(current, e)
		} else {
			if len(current) >= minClusterSize {
				t.Clusters = append(t.Clusters, summarize(current))
			}
			current = []model.Event{e}
		}
		last = e.Timestamp
	}
	if len(current) >= minClusterSize {
		t.Clusters = append(t.Clusters, summarize(current))
	}

	t.AttentionDecline = float64(t.LateViolations) > float64(t.EarlyViolations)*declineRatio
	for _, c := range t.Clusters {
		if c.Intensity >= stressClusterSize {
			t.StressPatterns = append(t.StressPatterns, c)
		}
	}
	return t
}

func summarize(cluster []model.Event) Episode {
	return Episode{
		StartTime: cluster[0].Timestamp,
		EndTime:   cluster[len(cluster)-1].Timestamp,
		Intensity: len(cluster),
		Types:     uniqueTypes(cluster),
	}
}

// uniqueTypes lists event types in first-seen order.
func uniqueTypes(events []model.Event) []model.EventType {
	seen := make(map[model.EventType]bool, len(events))
	out := make([]model.EventType, 0, len(events))
	for _, e := range events {
		if !seen[e.Type] {
			seen[e.Type] = true
			out = append(out, e.Type)
		}
	}
	return out
}
