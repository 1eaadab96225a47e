package integrity

import (
	"strings"

	"github.com/okian/proctor/internal/domain/model"
)

const (
	patternLength    = 3
	patternSeparator = ","
)

// AnalyzeFrequency counts events per type and turns the weighted counts into
// a frequency score in [0, 100].
func AnalyzeFrequency(events []model.Event) Frequency {
	counts := make(map[model.EventType]int)
	order := make([]model.EventType, 0)
	critical := 0
	for _, e := range events {
		if counts[e.Type] == 0 {
			order = append(order, e.Type)
		}
		counts[e.Type]++
		if IsCritical(e.Type) {
			critical++
		}
	}

	var penalty float64
	for _, t := range order {
		penalty += float64(counts[t]) * frequencyWeight(t)
	}

	return Frequency{
		TotalViolations:    len(events),
		CriticalViolations: critical,
		FrequencyScore:     clamp(maxScore-penalty, 0, maxScore),
		ViolationDiversity: len(order),
		RepeatedPatterns:   RepeatedPatterns(events),
	}
}

// RepeatedPatterns slides a three-event window over events and reports every
// signature seen more than once, in order of first occurrence.
func RepeatedPatterns(events []model.Event) []RepeatedPattern {
	out := []RepeatedPattern{}
	if len(events) < patternLength {
		return out
	}

	index := make(map[string]int)
	var all []RepeatedPattern
	for i := 0; i+patternLength <= len(events); i++ {
		types := make([]model.EventType, patternLength)
		names := make([]string, patternLength)
		for j := range patternLength {
			types[j] = events[i+j].Type
			names[j] = string(events[i+j].Type)
		}
		sig := strings.Join(names, patternSeparator)
		if k, ok := index[sig]; ok {
			all[k].Frequency++
			continue
		}
		index[sig] = len(all)
		all = append(all, RepeatedPattern{Sequence: sig, Types: types, Frequency: 1})
	}

	for _, p := range all {
		if p.Frequency > 1 {
			out = append(out, p)
		}
	}
	return out
}

// topPattern picks the most frequent pattern, the earliest one on ties.
func topPattern(patterns []RepeatedPattern) (RepeatedPattern, bool) {
	if len(patterns) == 0 {
		return RepeatedPattern{}, false
	}
	best := patterns[0]
	for _, p := range patterns[1:] {
		if p.Frequency > best.Frequency {
			best = p
		}
	}
	return best, true
}
