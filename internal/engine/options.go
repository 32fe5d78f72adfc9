package engine

import (
	"io"
	"log/slog"
)

// Option configures a single Apply call.
type Option func(*config)

type config struct {
	clock    Clock
	logger   *slog.Logger
	useCache bool
}

func defaultConfig() config {
	return config{
		clock:    SystemClock{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		useCache: true,
	}
}

// WithClock sets the clock NOW literals read from.
//
// Default: SystemClock.
// Use WithClock(FixedClock(t)) for reproducible applications.
func WithClock(c Clock) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// WithLogger sets the logger for per-statement debug output.
// By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithoutSubqueryCache disables memoization of uncorrelated value
// expressions. Results are identical either way; only Stats change.
func WithoutSubqueryCache() Option {
	return func(cfg *config) {
		cfg.useCache = false
	}
}
