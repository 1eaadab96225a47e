package simulate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/proctor/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initialises the logger on stdout and, when logFile is set,
// on that file as well.
func SetupLogging(logFile string, verbose bool) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}

	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Proctor Interview Simulator
===========================

Replays synthetic interviews against a running proctoring service and prints
the behavioral analysis each one receives.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of interviews to simulate (default 9)
  -profiles string
        Comma separated profiles: clean, distracted, suspicious or all (default "all")
  -duration int
        Interview length in minutes (default 30)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -seed uint
        Base seed for the generated streams (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write the generated events to this JSON file
  -log string
        Also write log output to this file
  -verbose
        Log every session outcome
  -help
        Show this help message

Examples:
  # Three interviews of each profile
  go run ./cmd/simulate

  # Load test with suspicious candidates only
  go run ./cmd/simulate -sessions 200 -profiles suspicious -workers 32

  # Reproduce a run and keep the streams
  go run ./cmd/simulate -seed 42 -output sim/events.json -verbose
`)
}
