// Package logger builds the service's root structured logger and the
// per-component child loggers handed to individual constructors (spec
// §3a: one *slog.Logger per component, injected, never a package-level
// global).
package logger

import (
	"log/slog"
	"os"
)

var levelByName = map[string]slog.Level{
	"DEBUG": slog.LevelDebug,
	"INFO":  slog.LevelInfo,
	"WARN":  slog.LevelWarn,
	"ERROR": slog.LevelError,
}

// NewLogger builds the root JSON logger for serviceName, reading its level
// from LOG_LEVEL (default INFO). Per-component loggers are derived from
// this one via Component rather than constructed independently.
func NewLogger(serviceName string) *slog.Logger {
	level, ok := levelByName[os.Getenv("LOG_LEVEL")]
	if !ok {
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", serviceName))
}

// Component scopes base to a single component (e.g. "worker", "intake",
// "service-registry") so its constructor gets its own logger identity instead
// of sharing an undifferentiated root logger.
func Component(base *slog.Logger, name string) *slog.Logger {
	return base.With(slog.String("component", name))
}
