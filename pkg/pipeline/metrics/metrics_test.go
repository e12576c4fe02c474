package metrics_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-stagerun/pkg/pipeline"
	"github.com/askiada/go-stagerun/pkg/pipeline/metrics"
)

func run(t *testing.T, reg prometheus.Registerer, jobErr error) {
	t.Helper()

	opt, err := metrics.PipelineMetrics(reg)
	require.NoError(t, err)

	pipe := pipeline.New(pipeline.WithOptions(opt))
	require.NoError(t, pipe.Declare("counted", func(_ context.Context, env pipeline.Env) (pipeline.Env, error) {
		return env, nil
	}, "s1", "s2"))

	noop := func(context.Context, pipeline.Env) error { return nil }
	require.NoError(t, pipe.AddAfterEach(noop))
	require.NoError(t, pipe.AddJob(noop))
	require.NoError(t, pipe.AddJob(func(context.Context, pipeline.Env) error {
		return jobErr
	}, pipeline.OnStage("s2")))

	_, err = pipe.Run(t.Context(), nil)
	require.ErrorIs(t, err, jobErr)
}

func TestPipelineMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	run(t, reg, nil)
	run(t, reg, assert.AnError)

	expected := `
# HELP stagerun_runs_total Total pipeline runs, by status
# TYPE stagerun_runs_total counter
stagerun_runs_total{status="error"} 1
stagerun_runs_total{status="ok"} 1
# HELP stagerun_units_total Total units executed, by kind, stage and status
# TYPE stagerun_units_total counter
stagerun_units_total{kind="after-each",stage="s1",status="ok"} 2
stagerun_units_total{kind="after-each",stage="s2",status="ok"} 3
stagerun_units_total{kind="entry",stage="",status="ok"} 2
stagerun_units_total{kind="job",stage="s1",status="ok"} 2
stagerun_units_total{kind="job",stage="s2",status="error"} 1
stagerun_units_total{kind="job",stage="s2",status="ok"} 3
`
	err := testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "stagerun_runs_total", "stagerun_units_total")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "stagerun_unit_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestWrite(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	run(t, reg, nil)

	buf := &bytes.Buffer{}
	require.NoError(t, metrics.Write(buf, reg))
	assert.Contains(t, buf.String(), `stagerun_runs_total{status="ok"} 1`)
	assert.Contains(t, buf.String(), "# TYPE stagerun_unit_duration_seconds histogram")
}

func TestPipelineMetricsConflict(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: "stagerun_runs_total", Help: "other"}))

	_, err := metrics.PipelineMetrics(reg)
	require.Error(t, err)
}
