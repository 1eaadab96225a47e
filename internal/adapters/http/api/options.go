package api

import (
	"time"

	"github.com/okian/proctor/pkg/logger"
)

const (
	defaultMaxWatchlistLimit = 100
	defaultLiveInterval      = 2 * time.Second
)

type options struct {
	maxWatchlistLimit int
	liveInterval      time.Duration
	allowedOrigins    []string
	logger            logger.Logger
}

func defaultOptions() options {
	return options{
		maxWatchlistLimit: defaultMaxWatchlistLimit,
		liveInterval:      defaultLiveInterval,
		allowedOrigins:    []string{"*"},
	}
}

// Option configures the Server.
type Option func(*options)

// WithMaxWatchlistLimit caps GET /watchlist?limit.
func WithMaxWatchlistLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxWatchlistLimit = n
		}
	}
}

// WithLiveInterval sets the push period of the live websocket feed.
func WithLiveInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.liveInterval = d
		}
	}
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(o *options) {
		if len(origins) > 0 {
			o.allowedOrigins = origins
		}
	}
}

// WithLogger sets the logger used by long-lived handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
