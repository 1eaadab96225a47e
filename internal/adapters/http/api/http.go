// Package api exposes the proctoring service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/proctor/internal/adapters/repository"
	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/domain/integrity"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
)

// SessionDependencies covers the session lifecycle.
type SessionDependencies interface {
	CreateSession(ctx context.Context, in service.NewSession) (model.Session, error)
	Session(ctx context.Context, id string) (model.Session, error)
	StartSession(ctx context.Context, id string) (model.Session, error)
	EndSession(ctx context.Context, id string) (model.Session, error)
}

// EventDependencies covers event ingest and listing.
type EventDependencies interface {
	Ingest(ctx context.Context, e model.Event) (service.Receipt, error)
	Events(ctx context.Context, sessionID string) ([]model.Event, error)
}

// AnalysisDependencies covers the behavioral engine views.
type AnalysisDependencies interface {
	Analyze(ctx context.Context, id string) (integrity.Result, error)
	Predict(ctx context.Context, id string) (service.Forecast, error)
	Report(ctx context.Context, id string) (service.Report, error)
	Live(ctx context.Context, id string) (service.LiveSnapshot, error)
}

// WatchlistDependencies covers the cross-session ranking.
type WatchlistDependencies interface {
	Watchlist(ctx context.Context, limit int) ([]repository.WatchEntry, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	SessionDependencies
	EventDependencies
	AnalysisDependencies
	WatchlistDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	opts options

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	sessionsHandler  *SessionsHandler
	eventsHandler    *EventsHandler
	analysisHandler  *AnalysisHandler
	liveHandler      *LiveHandler
	watchlistHandler *WatchlistHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Named("api")
	}
	return &Server{
		opts:             o,
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		sessionsHandler:  NewSessionsHandler(deps),
		eventsHandler:    NewEventsHandler(deps),
		analysisHandler:  NewAnalysisHandler(deps),
		liveHandler:      NewLiveHandler(deps, o.liveInterval, o.logger),
		watchlistHandler: NewWatchlistHandler(deps, o.maxWatchlistLimit),
	}
}

// Routes builds the chi router with middleware and every route attached.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/ai/health", s.healthHandler.HandleModelHealth)
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Get("/watchlist", s.watchlistHandler.HandleGetWatchlist)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.sessionsHandler.HandleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.sessionsHandler.HandleGet)
			r.Post("/start", s.sessionsHandler.HandleStart)
			r.Post("/end", s.sessionsHandler.HandleEnd)

			r.Post("/events", s.eventsHandler.HandlePostEvent)
			r.Get("/events", s.eventsHandler.HandleListEvents)

			r.Get("/analysis", s.analysisHandler.HandleAnalysis)
			r.Get("/predict", s.analysisHandler.HandlePredict)
			r.Get("/report", s.analysisHandler.HandleReport)
			r.Get("/live", s.analysisHandler.HandleLive)
			r.Get("/live/ws", s.liveHandler.HandleFeed)
		})
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
