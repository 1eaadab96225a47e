package simulate

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Submission retry constants. The service answers 429 when its queue is full.
const (
	maxSubmitAttempts = 5
	retryBackoff      = 50 * time.Millisecond
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	defaultPollInterval  = 100 * time.Millisecond
	directoryPermission  = 0o750
)
