package internal

import (
	"io"
	"log/slog"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	verbose   bool
	logOutput io.Writer
	logger    *slog.Logger
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVerbose forces debug logging regardless of the configured level.
func WithVerbose(verbose bool) Option {
	return func(a *application) {
		a.verbose = verbose
	}
}

// WithLogOutput redirects the log when no log file is configured.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
