package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/proctor/internal/domain/integrity"
	"github.com/okian/proctor/pkg/metrics"
)

// HealthHandler handles liveness, model health and metrics requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type modelHealth struct {
	Status       string    `json:"model_status"`
	ModelVersion string    `json:"model_version"`
	Capabilities []string  `json:"capabilities"`
	Timestamp    time.Time `json:"timestamp"`
}

// HandleModelHealth handles GET /ai/health requests.
func (h *HealthHandler) HandleModelHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, modelHealth{
		Status:       "operational",
		ModelVersion: integrity.ModelVersion,
		Capabilities: []string{
			"Behavioral Pattern Analysis",
			"Risk Assessment",
			"Violation Prediction",
			"Intelligent Recommendations",
			"Real-time Monitoring",
		},
		Timestamp: time.Now().UTC(),
	})
}

// MetricsHandler serves the custom metrics registry.
func (h *HealthHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
