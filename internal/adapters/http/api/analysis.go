package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AnalysisHandler serves the behavioral engine views of a session.
type AnalysisHandler struct {
	deps AnalysisDependencies
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(deps AnalysisDependencies) *AnalysisHandler {
	return &AnalysisHandler{deps: deps}
}

// HandleAnalysis handles GET /sessions/{id}/analysis requests.
func (h *AnalysisHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Analyze(r.Context(), chi.URLParam(r, "id"))
	respond(w, res, err)
}

// HandlePredict handles GET /sessions/{id}/predict requests.
func (h *AnalysisHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Predict(r.Context(), chi.URLParam(r, "id"))
	respond(w, res, err)
}

// HandleReport handles GET /sessions/{id}/report requests.
func (h *AnalysisHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Report(r.Context(), chi.URLParam(r, "id"))
	respond(w, res, err)
}

// HandleLive handles GET /sessions/{id}/live requests.
func (h *AnalysisHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Live(r.Context(), chi.URLParam(r, "id"))
	respond(w, res, err)
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
