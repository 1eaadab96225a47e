package simulate

import (
	"time"

	"github.com/okian/proctor/internal/adapters/repository"
	service "github.com/okian/proctor/internal/app"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Sessions        int           // Number of interviews to simulate
	Profiles        []Profile     // Profiles assigned round-robin to sessions
	DurationMinutes int           // Scheduled length of each interview
	Workers         int           // Number of concurrent submitters
	Timeout         time.Duration // HTTP request timeout
	PollInterval    time.Duration // Delay between processing checks
	WatchlistLimit  int           // Entries to fetch from the watchlist
	Seed            uint64        // Base seed; session i uses Seed+i
	OutputFile      string        // Optional JSON dump of generated events
	Verbose         bool          // Log every session outcome
}

// Outcome is what the service concluded about one simulated interview.
type Outcome struct {
	SessionID string
	Profile   Profile
	Events    int
	Report    service.Report
}

// Result collects the outcomes and the watchlist of a run.
type Result struct {
	Outcomes  []Outcome
	Watchlist []repository.WatchEntry
	Stats     Stats
}

// AckResponse represents the response from event submission.
type AckResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	SessionsCreated  int
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsDuplicate  int
	EventsRetried    int
	EventsFailed     int
	ReportsFetched   int
	WatchlistEntries int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
