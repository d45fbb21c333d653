// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = cfg.TimeFormat

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", "ai-interview-engine").
		Logger()
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithInterview returns a logger with interview context.
func WithInterview(base zerolog.Logger, interviewID string) zerolog.Logger {
	return base.With().
		Str("interviewId", interviewID).
		Logger()
}

// WithSession returns a logger with session context.
func WithSession(base zerolog.Logger, interviewID, sessionID string) zerolog.Logger {
	return base.With().
		Str("interviewId", interviewID).
		Str("sessionId", sessionID).
		Logger()
}

// WithTurn returns a logger with per-turn context.
func WithTurn(base zerolog.Logger, interviewID, sessionID string, questionIndex int) zerolog.Logger {
	return base.With().
		Str("interviewId", interviewID).
		Str("sessionId", sessionID).
		Int("questionIndex", questionIndex).
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().
		Str("component", component).
		Logger()
}
