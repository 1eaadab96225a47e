package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
)

// ErrSubmission is returned when some events could not be delivered.
var ErrSubmission = errors.New("event submission failed")

// Run executes a complete simulation: it schedules the interviews, replays
// their streams and collects the resulting reports and watchlist.
func Run(ctx context.Context, config *Config) (*Result, error) {
	config = withDefaults(config)
	log := logger.Named("simulate")
	stats := Stats{StartTime: time.Now()}

	log.Info(ctx, "starting interview simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Any("profiles", config.Profiles),
		logger.Int("durationMinutes", config.DurationMinutes),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Any("seed", config.Seed))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Schedule sessions and generate their streams
	scripts, err := scheduleSessions(ctx, config, client, &stats)
	if err != nil {
		return nil, fmt.Errorf("scheduling sessions failed: %w", err)
	}

	// Step 3: Open every interview
	if err := replayBoundary(ctx, config, client, scripts, true); err != nil {
		return nil, fmt.Errorf("starting interviews failed: %w", err)
	}

	// Step 4: Submit the bodies concurrently
	var body []model.Event
	for _, s := range scripts {
		body = append(body, s.Body...)
	}
	submitEvents(ctx, config, client, body, &stats)
	if stats.EventsFailed > 0 {
		return nil, fmt.Errorf("%w: %d of %d events", ErrSubmission, stats.EventsFailed, stats.EventsSubmitted)
	}

	// Step 5: Wait for processing
	log.Info(ctx, "waiting for events to be recorded")
	for _, s := range scripts {
		if err := waitForEvents(ctx, config, client, s.SessionID, len(s.Body)+1); err != nil {
			return nil, fmt.Errorf("waiting for session %s: %w", s.SessionID, err)
		}
	}

	// Step 6: Close every interview
	if err := replayBoundary(ctx, config, client, scripts, false); err != nil {
		return nil, fmt.Errorf("ending interviews failed: %w", err)
	}

	// Step 7: Retrieve reports
	outcomes, err := retrieveReports(ctx, config, client, scripts, &stats)
	if err != nil {
		return nil, fmt.Errorf("report retrieval failed: %w", err)
	}

	// Step 8: Get the watchlist
	watchlist, err := client.watchlist(ctx, config.WatchlistLimit)
	if err != nil {
		return nil, fmt.Errorf("watchlist retrieval failed: %w", err)
	}
	stats.WatchlistEntries = len(watchlist)

	// Step 9: Verify results
	if err := verifyWatchlist(outcomes, watchlist); err != nil {
		log.Warn(ctx, "watchlist does not order profiles as expected", logger.Error(err))
	} else {
		log.Info(ctx, "watchlist ordering verified")
	}

	// Step 10: Save events to file
	if config.OutputFile != "" {
		if err := saveEventsToFile(ctx, config.OutputFile, scripts); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, &stats)
	displayOutcomes(ctx, outcomes, config.Verbose)

	return &Result{Outcomes: outcomes, Watchlist: watchlist, Stats: stats}, nil
}

func withDefaults(config *Config) *Config {
	c := *config
	if len(c.Profiles) == 0 {
		c.Profiles = Profiles()
	}
	if c.Sessions <= 0 {
		c.Sessions = len(c.Profiles)
	}
	if c.DurationMinutes == 0 {
		c.DurationMinutes = 30
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.WatchlistLimit <= 0 {
		c.WatchlistLimit = c.Sessions
	}
	return &c
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")
	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return fmt.Errorf("failed to reach service: %w", err)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// scheduleSessions creates one session per script. Streams are replays of
// interviews that ended just now.
func scheduleSessions(ctx context.Context, config *Config, client *HTTPClient, stats *Stats) ([]Script, error) {
	length := time.Duration(config.DurationMinutes) * time.Minute
	start := time.Now().UTC().Truncate(time.Second).Add(-length)

	scripts := make([]Script, 0, config.Sessions)
	for i := 0; i < config.Sessions; i++ {
		profile := config.Profiles[i%len(config.Profiles)]
		sess, err := client.createSession(ctx, service.NewSession{
			CandidateName:   fmt.Sprintf("sim-%s-%03d", profile, i+1),
			CandidateEmail:  fmt.Sprintf("sim-%03d@example.com", i+1),
			InterviewerName: "simulator",
			Position:        string(profile),
			ScheduledAt:     start,
			DurationMinutes: config.DurationMinutes,
		})
		if err != nil {
			return nil, fmt.Errorf("creating session %d: %w", i+1, err)
		}
		stats.SessionsCreated++

		script, err := NewScript(sess.ID, profile, start, length, config.Seed+uint64(i))
		if err != nil {
			return nil, err
		}
		stats.EventsGenerated += len(script.Body) + 2
		scripts = append(scripts, script)
	}

	logger.Get().Info(ctx, "scheduled sessions",
		logger.Int("sessions", len(scripts)),
		logger.Int("events", stats.EventsGenerated))
	return scripts, nil
}

// replayBoundary posts the interview-started (or interview-ended) event of
// every script and waits until each session reaches the matching status.
func replayBoundary(ctx context.Context, config *Config, client *HTTPClient, scripts []Script, opening bool) error {
	want := model.StatusCompleted
	if opening {
		want = model.StatusInProgress
	}
	for _, s := range scripts {
		e := s.Ended
		if opening {
			e = s.Started
		}
		if result, _ := submitWithRetry(ctx, client, e); result == "failed" {
			return fmt.Errorf("%w: %s for session %s", ErrSubmission, e.Type, s.SessionID)
		}
	}
	for _, s := range scripts {
		err := poll(ctx, config.PollInterval, func() (bool, error) {
			sess, err := client.session(ctx, s.SessionID)
			return sess.Status == want, err
		})
		if err != nil {
			return fmt.Errorf("session %s never reached %s: %w", s.SessionID, want, err)
		}
	}
	return nil
}

// waitForEvents polls until the service has recorded want events for id.
func waitForEvents(ctx context.Context, config *Config, client *HTTPClient, id string, want int) error {
	return poll(ctx, config.PollInterval, func() (bool, error) {
		events, err := client.events(ctx, id)
		return len(events) >= want, err
	})
}

// poll calls check every interval until it reports done, fails, or ctx ends.
func poll(ctx context.Context, interval time.Duration, check func() (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		done, err := check()
		if err != nil || done {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// retrieveReports fetches the behavioral report of every session.
func retrieveReports(ctx context.Context, config *Config, client *HTTPClient, scripts []Script, stats *Stats) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(scripts))
	for _, s := range scripts {
		r, err := client.report(ctx, s.SessionID)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", s.SessionID, err)
		}
		stats.ReportsFetched++
		outcomes = append(outcomes, Outcome{
			SessionID: s.SessionID,
			Profile:   s.Profile,
			Events:    len(s.Body) + 2,
			Report:    r,
		})
		if config.Verbose {
			logger.Get().Debug(ctx, "report retrieved",
				logger.Session(s.SessionID),
				logger.Int("score", r.EffectiveScore))
		}
	}
	return outcomes, nil
}

// saveEventsToFile writes every generated stream as one JSON document.
func saveEventsToFile(ctx context.Context, filename string, scripts []Script) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	type dump struct {
		SessionID string        `json:"session_id"`
		Profile   Profile       `json:"profile"`
		Events    []model.Event `json:"events"`
	}
	out := make([]dump, 0, len(scripts))
	for _, s := range scripts {
		out = append(out, dump{SessionID: s.SessionID, Profile: s.Profile, Events: s.Events()})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, eventsPerSecond float64

	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("sessionsCreated", stats.SessionsCreated),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsRetried", stats.EventsRetried),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("reportsFetched", stats.ReportsFetched),
		logger.Int("watchlistEntries", stats.WatchlistEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
