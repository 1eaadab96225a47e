// Package service ties the session store, the ingest queue, the recording
// workers and the integrity engine together behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/proctor/internal/adapters/mq/queue"
	workerpool "github.com/okian/proctor/internal/adapters/mq/worker"
	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/domain/dedupe"
	"github.com/okian/proctor/internal/domain/integrity"
	"github.com/okian/proctor/internal/domain/legacy"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

const (
	defaultPredictionWindow = 10
	recentInsightCount      = 3
	sessionLockStripes      = 64
)

// Service implements the API dependencies for the proctoring backend.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	predictionWindow int
	now              func() time.Time

	// Record is read-modify-write on the session row; events of one
	// session are serialised on a stripe.
	sessionLocks [sessionLockStripes]sync.Mutex

	started bool
	logger  logger.Logger
}

var _ workerpool.Recorder = (*Service)(nil)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the session store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of recording workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPredictionWindow sets how many recent events feed a prediction.
func WithPredictionWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.predictionWindow = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        10_000,
		dedupeSize:       100_000,
		predictionWindow: defaultPredictionWindow,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	return s
}

// Start creates the ingest pipeline and launches the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s,
		workerpool.WithName("recorder"),
		workerpool.WithLogger(s.logger.Named("recorder")),
	)
	// Workers outlive the caller's context; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	metrics.UpdateSessionsTotal(s.store.Count(ctx))
	s.logger.Info(ctx, "proctoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue, waits for the workers to drain it and closes the
// store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	// Workers may still log through s.log while draining.
	s.started = false
	pool, store, log := s.pool, s.store, s.logger
	s.mu.Unlock()

	log.Info(ctx, "stopping proctoring service...")

	var errs []error
	if err := pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	log.Info(ctx, "proctoring service stopped",
		logger.Any("processed", pool.Processed()),
		logger.Any("failed", pool.Failed()),
	)
	return errors.Join(errs...)
}

// CreateSession schedules a new interview session.
func (s *Service) CreateSession(ctx context.Context, in NewSession) (model.Session, error) {
	sess := model.Session{
		ID:              uuid.NewString(),
		CandidateName:   strings.TrimSpace(in.CandidateName),
		CandidateEmail:  in.CandidateEmail,
		InterviewerName: in.InterviewerName,
		Position:        in.Position,
		ScheduledAt:     in.ScheduledAt,
		DurationMinutes: in.DurationMinutes,
		Status:          model.StatusScheduled,
		Summary:         model.Summary{FocusPercentage: 100},
		LegacyScore:     100,
	}
	if sess.ScheduledAt.IsZero() {
		sess.ScheduledAt = s.now()
	}
	if err := sess.Validate(); err != nil {
		return model.Session{}, err
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("creating session: %w", err)
	}
	s.log().Info(ctx, "session scheduled", logger.Session(sess.ID),
		logger.Int("durationMinutes", sess.DurationMinutes))
	return s.store.Session(ctx, sess.ID)
}

// Session returns one session.
func (s *Service) Session(ctx context.Context, id string) (model.Session, error) {
	return s.store.Session(ctx, id)
}

// Events returns a session's events in timestamp order.
func (s *Service) Events(ctx context.Context, id string) ([]model.Event, error) {
	return s.store.Events(ctx, id)
}

// Ingest validates an event and hands it to the recording workers. A
// duplicate is acknowledged without being queued again.
func (s *Service) Ingest(ctx context.Context, e model.Event) (Receipt, error) { //nolint:gocritic // hugeParam: events travel by value
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return Receipt{}, ErrNotStarted
	}

	e = e.WithDefaults()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		metrics.RecordEventRejected("invalid")
		return Receipt{}, err
	}
	if _, err := s.store.Session(ctx, e.SessionID); err != nil {
		metrics.RecordEventRejected("unknown_session")
		return Receipt{}, err
	}

	receipt := Receipt{EventID: e.ID, SessionID: e.SessionID}
	key := dedupe.Key(e.SessionID, e.ID)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordEventDuplicate()
		s.log().Debug(ctx, "duplicate event skipped", logger.Session(e.SessionID), logger.Event(e.ID))
		receipt.Duplicate = true
		return receipt, nil
	}

	if err := s.queue.Enqueue(ctx, e); err != nil {
		// Let the client retry the same id.
		s.deduper.Unrecord(ctx, key)
		if errors.Is(err, eventqueue.ErrFull) {
			metrics.RecordEventRejected("backpressure")
			return Receipt{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		if errors.Is(err, eventqueue.ErrClosed) {
			return Receipt{}, fmt.Errorf("%w: %w", ErrNotStarted, err)
		}
		return Receipt{}, err
	}
	metrics.RecordEventIngested(string(e.Type))
	return receipt, nil
}

// Record persists one event, applies lifecycle transitions and refreshes
// the legacy summary and score. The workers call it for every queued event.
func (s *Service) Record(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events travel by value
	lock := s.sessionLock(e.SessionID)
	lock.Lock()
	defer lock.Unlock()
	return s.record(ctx, e)
}

// record is Record without the session lock; callers must hold it.
func (s *Service) record(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events travel by value
	if err := s.store.AppendEvent(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.log().Debug(ctx, "event already stored", logger.Session(e.SessionID), logger.Event(e.ID))
			return nil
		}
		return fmt.Errorf("appending event: %w", err)
	}

	sess, err := s.store.Session(ctx, e.SessionID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	applyTransition(&sess, e)

	events, err := s.store.Events(ctx, e.SessionID)
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}
	sess.Summary = legacy.Summarize(events, sess.Elapsed(s.now()))
	sess.LegacyScore = legacy.Score(sess.Summary)
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	metrics.RecordEventRecorded()
	metrics.RecordLegacyScoreUpdate()
	return nil
}

// applyTransition moves the session along its lifecycle for boundary events.
func applyTransition(sess *model.Session, e model.Event) { //nolint:gocritic // hugeParam: events travel by value
	switch e.Type {
	case model.EventInterviewStarted:
		if sess.Status == model.StatusScheduled {
			at := e.Timestamp
			sess.Status = model.StatusInProgress
			sess.StartedAt = &at
		}
	case model.EventInterviewEnded:
		if sess.Status == model.StatusInProgress {
			at := e.Timestamp
			sess.Status = model.StatusCompleted
			sess.EndedAt = &at
		}
	}
}

// StartSession moves a scheduled session to in-progress and logs the
// interview-started event.
func (s *Service) StartSession(ctx context.Context, id string) (model.Session, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.store.Session(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if sess.Status != model.StatusScheduled {
		return model.Session{}, fmt.Errorf("%w: session is %s", ErrInvalidTransition, sess.Status)
	}
	e := model.Event{
		ID:        uuid.NewString(),
		SessionID: id,
		Type:      model.EventInterviewStarted,
		Timestamp: s.now(),
	}.WithDefaults()
	if err := s.record(ctx, e); err != nil {
		return model.Session{}, err
	}
	s.log().Info(ctx, "interview started", logger.Session(id))
	return s.store.Session(ctx, id)
}

// EndSession completes an in-progress session, logs the interview-ended
// event and stores the behavioral score.
func (s *Service) EndSession(ctx context.Context, id string) (model.Session, error) {
	seconds, err := s.endLocked(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if _, err := s.Analyze(ctx, id); err != nil {
		return model.Session{}, err
	}
	s.log().Info(ctx, "interview ended", logger.Session(id), logger.Float64("seconds", seconds))
	return s.store.Session(ctx, id)
}

// endLocked checks and logs the interview-ended boundary under the session
// lock. It returns the interview length in seconds.
func (s *Service) endLocked(ctx context.Context, id string) (float64, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.store.Session(ctx, id)
	if err != nil {
		return 0, err
	}
	if sess.Status != model.StatusInProgress {
		return 0, fmt.Errorf("%w: session is %s", ErrInvalidTransition, sess.Status)
	}
	now := s.now()
	seconds := now.Sub(*sess.StartedAt).Seconds()
	e := model.Event{
		ID:        uuid.NewString(),
		SessionID: id,
		Type:      model.EventInterviewEnded,
		Timestamp: now,
		Duration:  &seconds,
	}.WithDefaults()
	if err := s.record(ctx, e); err != nil {
		return 0, err
	}
	return seconds, nil
}

// Analyze runs the behavioral engine over every stored event of a session
// and the time elapsed so far, then stores the resulting score.
func (s *Service) Analyze(ctx context.Context, id string) (integrity.Result, error) {
	sess, err := s.store.Session(ctx, id)
	if err != nil {
		return integrity.Result{}, err
	}
	events, err := s.store.Events(ctx, id)
	if err != nil {
		return integrity.Result{}, err
	}
	res := s.analyze(events, sess.Elapsed(s.now()))
	if err := s.storeBehavioralScore(ctx, id, res.IntegrityScore); err != nil {
		return integrity.Result{}, err
	}
	return res, nil
}

// Predict forecasts the next violation from the most recent events.
func (s *Service) Predict(ctx context.Context, id string) (Forecast, error) {
	sess, err := s.store.Session(ctx, id)
	if err != nil {
		return Forecast{}, err
	}
	recent, err := s.store.RecentEvents(ctx, id, s.predictionWindow)
	if err != nil {
		return Forecast{}, err
	}

	now := s.now()
	since := sess.ScheduledAt
	if sess.StartedAt != nil {
		since = *sess.StartedAt
	}
	// Partial windows stay out of the analysis metrics.
	res := integrity.Analyze(recent, now.Sub(since))
	prediction := integrity.Predict(recent, now)
	metrics.RecordPrediction(prediction.ConfidenceLabel)

	return Forecast{
		SessionID:        id,
		Prediction:       prediction,
		CurrentRiskLevel: res.RiskLevel,
		ConfidenceLevel:  res.ConfidenceLevel,
		RecentInsights:   integrity.TopInsights(res.BehaviorInsights, recentInsightCount),
		Timestamp:        now,
	}, nil
}

// Report builds the report envelope over the session's actual length, or
// its scheduled length while it has not finished.
func (s *Service) Report(ctx context.Context, id string) (Report, error) {
	sess, events, err := s.sessionWithEvents(ctx, id)
	if err != nil {
		return Report{}, err
	}
	report := s.report(sess, events)
	if err := s.storeBehavioralScore(ctx, id, report.Analysis.IntegrityScore); err != nil {
		return Report{}, err
	}
	return report, nil
}

// Live builds the interviewer monitor snapshot.
func (s *Service) Live(ctx context.Context, id string) (LiveSnapshot, error) {
	sess, events, err := s.sessionWithEvents(ctx, id)
	if err != nil {
		return LiveSnapshot{}, err
	}
	report := s.report(sess, events)
	res := report.Analysis
	return LiveSnapshot{
		SessionID: id,
		Status:    sess.Status,
		Report:    report,
		Metrics: LiveMetrics{
			CurrentRiskLevel: integrity.ClassifyRisk(res.IntegrityScore, events),
			TotalEvents:      len(events),
			IntegrityScore:   res.IntegrityScore,
			BehaviorInsights: res.BehaviorInsights,
			Recommendations:  res.RecommendedActions,
		},
		Timestamp: report.Timestamp,
	}, nil
}

// Watchlist ranks sessions most at risk first.
func (s *Service) Watchlist(ctx context.Context, limit int) ([]repository.WatchEntry, error) {
	sessions, err := s.store.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	return repository.Watchlist(sessions, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"dedupeSize":       s.dedupeSize,
		"predictionWindow": s.predictionWindow,
	}

	if s.started {
		queueLen := s.queue.Len()
		sessions := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalSessions"] = sessions
		stats["dedupeEntries"] = s.deduper.Size()
		stats["eventsProcessed"] = s.pool.Processed()
		stats["eventsFailed"] = s.pool.Failed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateSessionsTotal(sessions)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

func (s *Service) sessionWithEvents(ctx context.Context, id string) (model.Session, []model.Event, error) {
	sess, err := s.store.Session(ctx, id)
	if err != nil {
		return model.Session{}, nil, err
	}
	events, err := s.store.Events(ctx, id)
	if err != nil {
		return model.Session{}, nil, err
	}
	return sess, events, nil
}

func (s *Service) report(sess model.Session, events []model.Event) Report { //nolint:gocritic // hugeParam: sessions travel by value
	duration := reportDuration(sess)
	res := s.analyze(events, duration)
	return Report{
		SessionID:       sess.ID,
		Candidate:       sess.CandidateName,
		DurationSeconds: duration.Seconds(),
		Timestamp:       s.now(),
		Analysis:        res,
		ModelVersion:    integrity.ModelVersion,
		TotalEvents:     len(events),
		LegacyScore:     sess.LegacyScore,
		EffectiveScore:  legacy.EffectiveScore(&res.IntegrityScore, sess.LegacyScore),
	}
}

// reportDuration is the actual length in whole minutes once the session has
// finished, the scheduled length otherwise.
func reportDuration(sess model.Session) time.Duration { //nolint:gocritic // hugeParam: sessions travel by value
	if sess.StartedAt != nil && sess.EndedAt != nil {
		minutes := math.Round(sess.EndedAt.Sub(*sess.StartedAt).Minutes())
		if minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return time.Duration(sess.DurationMinutes) * time.Minute
}

func (s *Service) analyze(events []model.Event, duration time.Duration) integrity.Result {
	start := time.Now()
	res := integrity.Analyze(events, duration)
	metrics.RecordAnalysis(float64(time.Since(start).Microseconds())/1000, res.IntegrityScore, string(res.RiskLevel))
	return res
}

func (s *Service) storeBehavioralScore(ctx context.Context, id string, score int) error {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.store.Session(ctx, id)
	if err != nil {
		return err
	}
	sess.BehavioralScore = &score
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("storing behavioral score: %w", err)
	}
	return nil
}

func (s *Service) sessionLock(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.sessionLocks[h.Sum32()%sessionLockStripes]
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Named("service")
	}
	return l
}
