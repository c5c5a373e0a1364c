// Package log provides the structured logging interface used across churnlab.
//
// The Logger interface follows log/slog conventions (message plus alternating
// key/value fields) and is backed by zerolog in production and by TestLogger in
// tests. Standard attribute keys live in attributes.go.
//
//	logger := log.GetLoggerWithName("bench").With(log.ModelNameKey, "XGBoost")
//	logger.Info("model evaluated", log.AUCKey, 0.91, log.DurationMsKey, 420)
package log

import (
	"context"
	"strings"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Logger defines a structured logging interface compatible with log/slog.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general progress of a pipeline stage.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the run.
	Warn(msg string, fields ...any)

	// Error logs a failure. An error value passed as the first field is
	// attached together with its stack trace.
	Error(msg string, fields ...any)

	// With returns a Logger that adds the given fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level are emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses "debug", "info", "warn" or "error" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log_level", "must be one of debug, info, warn, error", s)
	}
}

// ToLogLevel is ParseLevel for trusted constants; unknown values fall back to info.
func ToLogLevel(s string) Level {
	l, err := ParseLevel(s)
	if err != nil {
		return LevelInfo
	}
	return l
}

// LoggerProvider creates loggers that share one backend and level.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
