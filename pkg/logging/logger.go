// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error and critical messages only.
	LevelError LogLevel = "error"
)

// SeverityCritical is attached as the "severity" field of critical events.
const SeverityCritical = "critical"

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "critical":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Critical starts an error-level event tagged with severity=critical.
// zerolog's own fatal/panic levels terminate the process, so critical
// conditions that the pipeline recovers from are logged this way instead.
func Critical(logger zerolog.Logger) *zerolog.Event {
	return logger.Error().Str("severity", SeverityCritical)
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Built request URLs
//   - Rate limit gate decisions
//   - Per-item pass-through of untyped records
//
// Info: Normal operation events
//   - Successful fetch attempts
//   - Per-endpoint processing summaries
//   - Run start/finish with elapsed time
//
// Warn: Warning conditions that don't prevent operation
//   - Failed fetch attempts that will be retried
//   - Empty payloads skipped by the processor
//   - Rate limit throttling
//
// Error: Error conditions requiring attention
//   - Item validation failures (item dropped)
//   - Configuration errors
//
// Critical (Error + severity=critical):
//   - Retry budget exhausted for an endpoint
//   - Endpoint missing from the dataset because its fetch failed
//
// Context Fields:
//   - run_id: pipeline run identifier
//   - key: batch key of a fetch request
//   - endpoint: endpoint path
//   - attempt / max_attempts: retry progress
//   - status_code: HTTP status code
//   - error_class: error classification (network, client, server, status, decode, rate_limit)
//   - backoff: sleep before the next attempt
//   - duration: elapsed time
