package integrity

import (
	"strings"

	"github.com/okian/proctor/internal/domain/model"
)

// Fallback penalty weights for types the weight table does not resolve.
const (
	defaultCriticalWeight = 10
	defaultWeight         = 5
)

// behaviorWeights holds the per-behavior penalty weights. Keys are camelCase
// behavior names, not event type strings; see weightFor.
var behaviorWeights = map[string]float64{
	"faceAbsence":     15,
	"multipleFaces":   20,
	"objectDetection": 25,
	"focusLoss":       8,
	"audioViolation":  12,
	"eyeClosure":      5,
}

// criticalTypes weigh most heavily in frequency scoring.
var criticalTypes = map[model.EventType]bool{
	model.EventObjectDetected: true,
	model.EventMultipleFaces:  true,
	model.EventAudioViolation: true,
}

// riskTypes count toward the critical-event threshold of the risk classifier.
var riskTypes = map[model.EventType]bool{
	model.EventObjectDetected: true,
	model.EventMultipleFaces:  true,
}

// IsCritical reports whether t belongs to the critical class.
func IsCritical(t model.EventType) bool { return criticalTypes[t] }

// weightKey strips only the first hyphen of the type name. For the known
// taxonomy this never produces a behaviorWeights key, so the fallback is
// what applies in practice.
func weightKey(t model.EventType) string {
	return strings.Replace(string(t), "-", "", 1)
}

// weightFor resolves the penalty for one event of type t.
func weightFor(t model.EventType, fallback float64) float64 {
	if w, ok := behaviorWeights[weightKey(t)]; ok {
		return w
	}
	return fallback
}

// frequencyWeight is the per-occurrence weight used by the frequency analysis.
func frequencyWeight(t model.EventType) float64 {
	if IsCritical(t) {
		return weightFor(t, defaultCriticalWeight)
	}
	return weightFor(t, defaultWeight)
}
