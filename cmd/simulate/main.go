// Command simulate replays synthetic interviews against a proctoring service.
package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/proctor/internal/simulate"
)

// Default configuration constants.
const (
	defaultSessions    = 9
	defaultDuration    = 30
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSeed        = 1
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions   = flag.Int("sessions", defaultSessions, "Number of interviews to simulate")
		profiles   = flag.String("profiles", "all", "Comma separated profiles: clean, distracted, suspicious or all")
		duration   = flag.Int("duration", defaultDuration, "Interview length in minutes")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		seed       = flag.Uint64("seed", defaultSeed, "Base seed for the generated streams")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the generated events to this JSON file")
		logFile    = flag.String("log", "", "Also write log output to this file")
		verbose    = flag.Bool("verbose", false, "Log every session outcome")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	parsed, err := simulate.ParseProfiles(*profiles)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:         *baseURL,
		Sessions:        *sessions,
		Profiles:        parsed,
		DurationMinutes: *duration,
		Workers:         *workers,
		Timeout:         *timeout,
		Seed:            *seed,
		OutputFile:      *outputFile,
		Verbose:         *verbose,
	}

	if _, err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: cancel already called
	}
}
