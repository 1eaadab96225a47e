// Package simulate generates synthetic interview streams and replays them
// against a running proctoring service.
package simulate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/proctor/internal/domain/model"
)

// Profile names a candidate behavior pattern.
type Profile string

// Known profiles.
const (
	ProfileClean      Profile = "clean"
	ProfileDistracted Profile = "distracted"
	ProfileSuspicious Profile = "suspicious"
)

// ErrUnknownProfile is returned for a profile name outside Profiles.
var ErrUnknownProfile = errors.New("unknown profile")

// Profiles lists every known profile.
func Profiles() []Profile {
	return []Profile{ProfileClean, ProfileDistracted, ProfileSuspicious}
}

// ParseProfiles parses a comma separated profile list. "all" expands to
// every profile.
func ParseProfiles(s string) ([]Profile, error) {
	var out []Profile
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		switch {
		case name == "":
			continue
		case name == "all":
			out = append(out, Profiles()...)
		case behaviors[Profile(name)] != nil:
			out = append(out, Profile(name))
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrUnknownProfile)
	}
	return out, nil
}

// Generation constants.
const (
	burstGapMin  = 8 * time.Second
	burstGapSpan = 20 * time.Second
	minGapFactor = 0.5
)

var objectTypes = []string{"cell phone", "book", "laptop", "tablet", "notes"}

// behavior is one recurring pattern within a profile. Occurrences are spaced
// by a gap drawn uniformly from [every/2, every*3/2) and only start inside
// the [from, to) fraction of the session.
type behavior struct {
	kind     model.EventType
	every    time.Duration
	from, to float64
	burst    int
	closer   model.EventType
	holdMin  time.Duration
	holdSpan time.Duration
	data     func(r *rand.Rand) model.EventData
	detector bool
}

var behaviors = map[Profile][]behavior{
	ProfileClean: {
		{kind: model.EventFocusLost, every: 15 * time.Minute, to: 1, burst: 1,
			closer: model.EventFocusGained, holdMin: 2 * time.Second, holdSpan: 4 * time.Second},
	},
	ProfileDistracted: {
		{kind: model.EventFocusLost, every: 90 * time.Second, to: 1, burst: 1,
			closer: model.EventFocusGained, holdMin: 5 * time.Second, holdSpan: 15 * time.Second},
		{kind: model.EventFaceAbsent, every: 6 * time.Minute, to: 1, burst: 1,
			closer: model.EventFaceDetected, holdMin: 5 * time.Second, holdSpan: 10 * time.Second},
		{kind: model.EventEyeClosureDetected, every: 4 * time.Minute, from: 0.5, to: 1, burst: 1,
			data: eyeClosure, detector: true},
		{kind: model.EventDrowsinessDetected, every: 8 * time.Minute, from: 0.66, to: 1, burst: 1, detector: true},
	},
	ProfileSuspicious: {
		{kind: model.EventFocusLost, every: 2 * time.Minute, to: 1, burst: 1,
			closer: model.EventFocusGained, holdMin: 10 * time.Second, holdSpan: 20 * time.Second},
		{kind: model.EventObjectDetected, every: 7 * time.Minute, to: 1, burst: 2,
			data: objectSighting, detector: true},
		{kind: model.EventMultipleFaces, every: 10 * time.Minute, to: 1, burst: 1,
			data: extraFaces, detector: true},
		{kind: model.EventAudioViolation, every: 5 * time.Minute, to: 1, burst: 3,
			data: backgroundVoices, detector: true},
	},
}

func objectSighting(r *rand.Rand) model.EventData {
	return model.EventData{Payload: model.ObjectPayload{
		ObjectType:  objectTypes[r.IntN(len(objectTypes))],
		ObjectCount: 1,
		Coordinates: &model.Box{
			X:      float64(r.IntN(480)),
			Y:      float64(r.IntN(320)),
			Width:  float64(40 + r.IntN(120)),
			Height: float64(40 + r.IntN(120)),
		},
	}}
}

func extraFaces(r *rand.Rand) model.EventData {
	return model.EventData{Payload: model.FacePayload{FaceCount: 2 + r.IntN(2)}}
}

func backgroundVoices(r *rand.Rand) model.EventData {
	return model.EventData{Payload: model.AudioPayload{AudioLevel: 0.6 + 0.4*r.Float64()}}
}

func eyeClosure(r *rand.Rand) model.EventData {
	return model.EventData{Payload: model.EyeClosurePayload{EyeClosureDuration: 1.5 + 3*r.Float64()}}
}

// Script is one generated interview: the boundary events and the body in
// between, sorted by timestamp.
type Script struct {
	SessionID string
	Profile   Profile
	Start     time.Time
	Length    time.Duration
	Started   model.Event
	Body      []model.Event
	Ended     model.Event
}

// Events returns the whole stream from interview-started to interview-ended.
func (s Script) Events() []model.Event {
	out := make([]model.Event, 0, len(s.Body)+2)
	out = append(out, s.Started)
	out = append(out, s.Body...)
	return append(out, s.Ended)
}

// NewScript generates the stream of profile p for a session running length
// from start. The same seed always yields the same events, ids included.
func NewScript(sessionID string, p Profile, start time.Time, length time.Duration, seed uint64) (Script, error) {
	plan, ok := behaviors[p]
	if !ok {
		return Script{}, fmt.Errorf("%w: %s", ErrUnknownProfile, p)
	}
	if length <= 0 {
		return Script{}, fmt.Errorf("non-positive session length %s", length)
	}

	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	src := rand.NewChaCha8(key)
	r := rand.New(src)
	end := start.Add(length)

	var body []model.Event
	for _, b := range plan {
		body = append(body, b.occurrences(r, sessionID, start, length)...)
	}
	body = slices.DeleteFunc(body, func(e model.Event) bool { return !e.Timestamp.Before(end) })
	slices.SortStableFunc(body, func(a, b model.Event) int { return a.Timestamp.Compare(b.Timestamp) })

	s := Script{
		SessionID: sessionID,
		Profile:   p,
		Start:     start,
		Length:    length,
		Started:   model.Event{SessionID: sessionID, Type: model.EventInterviewStarted, Timestamp: start},
		Body:      body,
		Ended:     model.Event{SessionID: sessionID, Type: model.EventInterviewEnded, Timestamp: end},
	}
	seconds := length.Seconds()
	s.Ended.Duration = &seconds

	ids := func(e *model.Event) error {
		id, err := uuid.NewRandomFromReader(src)
		if err != nil {
			return err
		}
		e.ID = id.String()
		*e = e.WithDefaults()
		return nil
	}
	if err := ids(&s.Started); err != nil {
		return Script{}, fmt.Errorf("generating event id: %w", err)
	}
	for i := range s.Body {
		if err := ids(&s.Body[i]); err != nil {
			return Script{}, fmt.Errorf("generating event id: %w", err)
		}
	}
	if err := ids(&s.Ended); err != nil {
		return Script{}, fmt.Errorf("generating event id: %w", err)
	}
	return s, nil
}

// occurrences lays out every occurrence of b inside its active span.
func (b behavior) occurrences(r *rand.Rand, sessionID string, start time.Time, length time.Duration) []model.Event {
	spanStart := start.Add(time.Duration(float64(length) * b.from))
	spanEnd := start.Add(time.Duration(float64(length) * b.to))

	var out []model.Event
	at := spanStart.Add(b.gap(r))
	for at.Before(spanEnd) {
		t := at
		for i := 0; i < max(b.burst, 1); i++ {
			if i > 0 {
				t = t.Add(burstGapMin + time.Duration(r.Int64N(int64(burstGapSpan))))
			}
			e := model.Event{SessionID: sessionID, Type: b.kind, Timestamp: t}
			if b.data != nil {
				e.Data = b.data(r)
			}
			if b.detector {
				c := 0.7 + 0.28*r.Float64()
				e.Confidence = &c
			}
			out = append(out, e)
		}
		if b.closer != "" {
			hold := b.holdMin + time.Duration(r.Int64N(int64(b.holdSpan)))
			seconds := hold.Seconds()
			out = append(out, model.Event{
				SessionID: sessionID,
				Type:      b.closer,
				Timestamp: t.Add(hold),
				Duration:  &seconds,
			})
		}
		at = at.Add(b.gap(r))
	}
	return out
}

func (b behavior) gap(r *rand.Rand) time.Duration {
	return time.Duration(float64(b.every) * (minGapFactor + r.Float64()))
}
