package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-stagerun/internal/config"
	"github.com/askiada/go-stagerun/pkg/pipeline"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stagerun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// Load reads the process environment: these tests set variables and cannot run in parallel.

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, &config.Config{
		Log: config.LogConfig{Level: "INFO", Format: "text"},
		Run: config.RunConfig{AfterAll: "last-job"},
	}, cfg)

	mode, err := cfg.AfterAllMode()
	require.NoError(t, err)
	assert.Equal(t, pipeline.AfterAllLastJobEnv, mode)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
log:
  level: DEBUG
  format: json
run:
  after_all: last-job
  graph: plan.dot
  trace: true
`)

	t.Setenv("STAGERUN_RUN__AFTER_ALL", "baseline")
	t.Setenv("STAGERUN_RUN__METRICS", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, &config.Config{
		Log: config.LogConfig{Level: "DEBUG", Format: "json"},
		Run: config.RunConfig{AfterAll: "baseline", Graph: "plan.dot", Trace: true, Metrics: true},
	}, cfg)
}

func TestLoadErrors(t *testing.T) {
	tcs := map[string]struct {
		path func(t *testing.T) string
		want error
	}{
		"missing explicit file": {
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
		},
		"invalid yaml": {
			path: func(t *testing.T) string { return writeFile(t, "log: [") },
		},
		"unknown after-all mode": {
			path: func(t *testing.T) string { return writeFile(t, "run:\n  after_all: sometimes\n") },
			want: pipeline.ErrUnknownAfterAllMode,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(tc.path(t))
			require.Error(t, err)

			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}
