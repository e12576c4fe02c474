// Package telemetry sets up the structured logger of the command line.
package telemetry

import (
	"io"
	"log/slog"
	"strings"
)

// LogLevel parses DEBUG, INFO, WARN or ERROR, case insensitive. Anything else is INFO.
func LogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger creates a logger writing to wrt and installs it as the default logger.
//
// format is "text" for a human readable output; anything else logs JSON.
func SetupLogger(level, format string, wrt io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     LogLevel(level),
		AddSource: LogLevel(level) == slog.LevelDebug,
	}

	if format == "text" {
		handler = slog.NewTextHandler(wrt, opts)
	} else {
		handler = slog.NewJSONHandler(wrt, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
