package integrity

import (
	"math"
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

// Consistency analysis constants.
const (
	stabilityWindow   = 5 * time.Minute
	variationFactor   = 20
	varianceFactor    = 10
	focusShare        = 0.4
	stabilityShare    = 0.6
	minFocusForSpread = 2
)

// AnalyzeConsistency measures how irregular focus changes are and how much
// behavior varies between five-minute windows. events must be sorted.
func AnalyzeConsistency(events []model.Event) Consistency {
	c := Consistency{FocusConsistency: maxScore, BehaviorStability: maxScore}

	var focus []model.Event
	for _, e := range events {
		if e.Type.IsFocus() {
			focus = append(focus, e)
		}
	}
	if len(focus) >= minFocusForSpread {
		c.FocusConsistency = clamp(maxScore-variation(focus)*variationFactor, 0, maxScore)
	}

	windows := splitWindows(events, stabilityWindow)
	scores := make([]float64, len(windows))
	for i, w := range windows {
		scores[i] = windowScore(w)
	}
	c.BehaviorStability = clamp(maxScore-variance(scores)*varianceFactor, 0, maxScore)

	c.OverallConsistency = clamp(c.FocusConsistency*focusShare+c.BehaviorStability*stabilityShare, 0, maxScore)
	return c
}

// variation is the coefficient of variation of the gaps between consecutive
// events. It is 0 when the mean gap is not positive.
func variation(events []model.Event) float64 {
	if len(events) < minFocusForSpread {
		return 0
	}
	gaps := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		gaps = append(gaps, events[i].Timestamp.Sub(events[i-1].Timestamp).Seconds())
	}
	m := mean(gaps)
	if m <= 0 {
		return 0
	}
	return math.Sqrt(variance(gaps)) / m
}

// splitWindows groups events into consecutive windows. A window opens at an
// event and takes every following event less than size after that opening.
func splitWindows(events []model.Event, size time.Duration) [][]model.Event {
	if len(events) == 0 {
		return nil
	}
	var (
		windows [][]model.Event
		current []model.Event
	)
	start := events[0].Timestamp
	for _, e := range events {
		if e.Timestamp.Sub(start) < size {
			current = append(current, e)
			continue
		}
		if len(current) > 0 {
			windows = append(windows, current)
		}
		current = []model.Event{e}
		start = e.Timestamp
	}
	if len(current) > 0 {
		windows = append(windows, current)
	}
	return windows
}

func windowScore(events []model.Event) float64 {
	score := float64(maxScore)
	for _, e := range events {
		score -= weightFor(e.Type, defaultWeight)
	}
	return math.Max(0, score)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return sum / float64(len(values))
}
