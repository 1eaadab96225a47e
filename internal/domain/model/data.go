package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Payload is one of the known per-type event data shapes.
type Payload interface {
	payloadKind() string
}

// Box is a detection bounding box in frame coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ObjectPayload accompanies object-detected events.
type ObjectPayload struct {
	ObjectType  string `json:"objectType,omitempty"`
	ObjectCount int    `json:"objectCount,omitempty"`
	Coordinates *Box   `json:"coordinates,omitempty"`
}

// FacePayload accompanies multiple-faces events.
type FacePayload struct {
	FaceCount int `json:"faceCount,omitempty"`
}

// AudioPayload accompanies audio-violation events.
type AudioPayload struct {
	AudioLevel float64 `json:"audioLevel,omitempty"`
}

// EyeClosurePayload accompanies eye-closure-detected events.
type EyeClosurePayload struct {
	EyeClosureDuration float64 `json:"eyeClosureDuration,omitempty"`
}

func (ObjectPayload) payloadKind() string     { return "object" }
func (FacePayload) payloadKind() string       { return "faces" }
func (AudioPayload) payloadKind() string      { return "audio" }
func (EyeClosurePayload) payloadKind() string { return "eye_closure" }

// EventData is the event payload: at most one known shape plus any fields
// the known shapes do not cover.
type EventData struct {
	Payload Payload
	Extra   map[string]any
}

// ObjectType returns the detected object name, or "" when the payload is not
// an object detection.
func (d EventData) ObjectType() string {
	if p, ok := d.Payload.(ObjectPayload); ok {
		return p.ObjectType
	}
	return ""
}

// MarshalJSON flattens the payload and extra fields into one object.
func (d EventData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+4)
	maps.Copy(out, d.Extra)
	if d.Payload != nil {
		raw, err := json.Marshal(d.Payload)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		maps.Copy(out, fields)
	}
	return json.Marshal(out)
}

// UnmarshalJSON infers the payload shape from the keys present. Use
// DecodeEventData when the event type is known.
func (d *EventData) UnmarshalJSON(raw []byte) error {
	decoded, err := DecodeEventData("", raw)
	if err != nil {
		return err
	}
	*d = decoded
	return nil
}

// DecodeEventData decodes a raw payload for an event of type t. An empty
// type falls back to inferring the shape from the keys present. A payload
// that is not a JSON object, or a known field with the wrong type, is a
// contract violation.
func DecodeEventData(t EventType, raw []byte) (EventData, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return EventData{}, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return EventData{}, fmt.Errorf("%w: %v", ErrInvalidEventData, err)
	}
	if t == "" {
		t = inferType(fields)
	}

	var (
		payload Payload
		err     error
	)
	switch t {
	case EventObjectDetected:
		payload, err = decodeObject(fields)
	case EventMultipleFaces:
		var n float64
		n, err = takeNumber(fields, "faceCount")
		payload = FacePayload{FaceCount: int(n)}
	case EventAudioViolation:
		var n float64
		n, err = takeNumber(fields, "audioLevel")
		payload = AudioPayload{AudioLevel: n}
	case EventEyeClosureDetected:
		var n float64
		n, err = takeNumber(fields, "eyeClosureDuration")
		payload = EyeClosurePayload{EyeClosureDuration: n}
	}
	if err != nil {
		return EventData{}, err
	}

	d := EventData{Payload: payload}
	if len(fields) > 0 {
		d.Extra = fields
	}
	return d, nil
}

func inferType(fields map[string]any) EventType {
	switch {
	case has(fields, "objectType"), has(fields, "objectCount"), has(fields, "coordinates"):
		return EventObjectDetected
	case has(fields, "faceCount"):
		return EventMultipleFaces
	case has(fields, "audioLevel"):
		return EventAudioViolation
	case has(fields, "eyeClosureDuration"):
		return EventEyeClosureDetected
	}
	return ""
}

func has(fields map[string]any, key string) bool {
	_, ok := fields[key]
	return ok
}

func decodeObject(fields map[string]any) (Payload, error) {
	var p ObjectPayload
	if v, ok := fields["objectType"]; ok {
		s, isString := v.(string)
		if !isString && v != nil {
			return nil, fmt.Errorf("%w: objectType must be a string", ErrInvalidEventData)
		}
		p.ObjectType = s
		delete(fields, "objectType")
	}
	n, err := takeNumber(fields, "objectCount")
	if err != nil {
		return nil, err
	}
	p.ObjectCount = int(n)
	if v, ok := fields["coordinates"]; ok {
		box, isMap := v.(map[string]any)
		if !isMap && v != nil {
			return nil, fmt.Errorf("%w: coordinates must be an object", ErrInvalidEventData)
		}
		if box != nil {
			b := &Box{}
			for key, dst := range map[string]*float64{"x": &b.X, "y": &b.Y, "width": &b.Width, "height": &b.Height} {
				if *dst, err = takeNumber(box, key); err != nil {
					return nil, err
				}
			}
			p.Coordinates = b
		}
		delete(fields, "coordinates")
	}
	return p, nil
}

// takeNumber removes key from fields and returns its numeric value, 0 when
// absent or null.
func takeNumber(fields map[string]any, key string) (float64, error) {
	v, ok := fields[key]
	if !ok {
		return 0, nil
	}
	delete(fields, key)
	if v == nil {
		return 0, nil
	}
	n, isNumber := v.(float64)
	if !isNumber {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidEventData, key)
	}
	return n, nil
}
