package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/proctor/internal/domain/model"
)

// eventRequest is the body of POST /sessions/{id}/events. event_data is
// decoded once the event type is known. A missing event_type is kept empty
// and scored as an unknown category.
type eventRequest struct {
	EventID    string          `json:"event_id"`
	SessionID  string          `json:"session_id"`
	EventType  string          `json:"event_type"`
	Timestamp  string          `json:"timestamp"`
	Severity   string          `json:"severity"`
	EventData  json.RawMessage `json:"event_data"`
	Duration   *float64        `json:"duration"`
	Confidence *float64        `json:"confidence"`
}

func (e eventRequest) toEvent(sessionID string) (model.Event, error) {
	switch {
	case strings.TrimSpace(e.Timestamp) == "":
		return model.Event{}, errors.New("missing timestamp")
	case e.SessionID != "" && e.SessionID != sessionID:
		return model.Event{}, errors.New("session_id does not match the path")
	}
	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return model.Event{}, errors.New("invalid timestamp; must be RFC3339")
	}
	typ := model.EventType(e.EventType)
	data, err := model.DecodeEventData(typ, e.EventData)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		ID:         e.EventID,
		SessionID:  sessionID,
		Type:       typ,
		Timestamp:  ts,
		Severity:   model.Severity(e.Severity),
		Data:       data,
		Duration:   e.Duration,
		Confidence: e.Confidence,
	}, nil
}

// eventView is a stored event with its human readable description.
type eventView struct {
	model.Event
	Description string `json:"description"`
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /sessions/{id}/events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, wrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := req.toEvent(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, wrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.Ingest(r.Context(), e)
	if err != nil {
		writeError(w, err)
		return
	}
	if receipt.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: receipt.EventID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: receipt.EventID})
}

// HandleListEvents handles GET /sessions/{id}/events requests.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.deps.Events(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{Event: e, Description: model.Description(e)})
	}
	writeJSON(w, http.StatusOK, views)
}
