// Package legacy implements the simple rule-based integrity score kept on
// the session record between full behavioral analyses.
package legacy

import (
	"math"
	"slices"
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

// Deduction caps and rates.
const (
	maxScore = 100

	focusLostRate   = 2
	focusLostCap    = 30
	objectRate      = 5
	objectCap       = 25
	multiFaceRate   = 3
	multiFaceCap    = 20
	audioRate       = 3
	audioCap        = 15
	focusFloor      = 70
	focusFloorRate  = 0.3
	streakAllowance = 30 // seconds
	streakRate      = 0.5
	streakCap       = 10
)

// Summarize builds the legacy counters for a session of the given length.
// Face absence counts as lost focus. Focus percentage and the longest streak
// come from pairing each focus-lost with the next focus-gained; a span still
// open at the end is ignored.
func Summarize(events []model.Event, duration time.Duration) model.Summary {
	s := model.Summary{FocusPercentage: maxScore}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	var (
		lostSeconds float64
		lostAt      *time.Time
		focusEvents int
	)
	for _, e := range sorted {
		switch e.Type {
		case model.EventFocusLost:
			s.FocusLostEvents++
			focusEvents++
			ts := e.Timestamp
			lostAt = &ts
		case model.EventFocusGained:
			focusEvents++
			if lostAt != nil {
				span := e.Timestamp.Sub(*lostAt).Seconds()
				lostSeconds += span
				s.MaxConsecutiveFocusLoss = math.Max(s.MaxConsecutiveFocusLoss, span)
				lostAt = nil
			}
		case model.EventFaceAbsent:
			s.FocusLostEvents++
		case model.EventObjectDetected:
			s.ObjectDetections++
		case model.EventMultipleFaces:
			s.MultipleFaceEvents++
		case model.EventAudioViolation:
			s.AudioViolations++
		}
	}

	total := duration.Seconds()
	if focusEvents > 0 && total > 0 {
		s.FocusPercentage = math.Max(0, math.Round((total-lostSeconds)/total*maxScore))
	}
	return s
}

// Score applies the linear deductions to a summary. The result is in
// [0, 100].
func Score(s model.Summary) int {
	score := float64(maxScore)
	score -= math.Min(float64(s.FocusLostEvents*focusLostRate), focusLostCap)
	score -= math.Min(float64(s.ObjectDetections*objectRate), objectCap)
	score -= math.Min(float64(s.MultipleFaceEvents*multiFaceRate), multiFaceCap)
	score -= math.Min(float64(s.AudioViolations*audioRate), audioCap)

	if s.FocusPercentage < focusFloor {
		score -= (focusFloor - s.FocusPercentage) * focusFloorRate
	}
	if s.MaxConsecutiveFocusLoss > streakAllowance {
		score -= math.Min((s.MaxConsecutiveFocusLoss-streakAllowance)*streakRate, streakCap)
	}
	return int(math.Max(0, math.Round(score)))
}

// EffectiveScore returns the behavioral score when the full analysis has
// run, the legacy score otherwise.
func EffectiveScore(behavioral *int, legacy int) int {
	if behavioral != nil {
		return *behavioral
	}
	return legacy
}
