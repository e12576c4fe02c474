package telemetry_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-stagerun/internal/telemetry"
)

func TestLogLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]slog.Level{
		"DEBUG": slog.LevelDebug,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}

	for in, want := range tcs {
		assert.Equal(t, want, telemetry.LogLevel(in), in)
	}
}

// SetupLogger replaces the default logger: not parallel.
func TestSetupLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	tcs := map[string]struct {
		level, format string
		contains      string
		debug         bool
	}{
		"json": {level: "INFO", format: "json", contains: `"msg":"hello"`},
		"text": {level: "DEBUG", format: "text", contains: "msg=hello", debug: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := telemetry.SetupLogger(tc.level, tc.format, buf)

			logger.Info("hello")
			slog.Debug("debug only")

			assert.Contains(t, buf.String(), tc.contains)
			assert.Equal(t, tc.debug, bytes.Contains(buf.Bytes(), []byte("debug only")))
		})
	}
}
