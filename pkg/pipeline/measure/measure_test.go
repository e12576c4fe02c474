package measure_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-stagerun/pkg/pipeline"
	"github.com/askiada/go-stagerun/pkg/pipeline/measure"
	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

func TestDefaultMetric(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	mt := msr.AddMetric("s1/job")
	assert.Same(t, mt, msr.AddMetric("s1/job"))
	assert.Zero(t, mt.AVGDuration())

	mt.AddDuration(10 * time.Millisecond)
	mt.AddDuration(30 * time.Millisecond)
	mt.AddHookDuration(model.BeforeEachKind, 2*time.Millisecond)
	mt.AddHookDuration(model.BeforeEachKind, 4*time.Millisecond)
	mt.AddFailure()
	mt.SetTotalDuration(time.Second)

	assert.Equal(t, 20*time.Millisecond, mt.AVGDuration())
	assert.Equal(t, int64(2), mt.Count())
	assert.Equal(t, int64(1), mt.Failures())
	assert.Equal(t, time.Second, mt.GetTotalDuration())
	assert.Equal(t, 3*time.Millisecond, mt.AVGHookDuration()[model.BeforeEachKind].Elapsed)
	assert.Equal(t, 6*time.Millisecond, mt.AllHooks()[model.BeforeEachKind].Elapsed)
	assert.Len(t, msr.AllMetrics(), 1)
	assert.Nil(t, msr.GetMetric("missing"))
}

func TestPipelineMeasure(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	pipe := pipeline.New(pipeline.WithOptions(measure.PipelineMeasure(msr)))
	require.NoError(t, pipe.Declare("measured", func(_ context.Context, env pipeline.Env) (pipeline.Env, error) {
		return env, nil
	}, "s1", "s2"))

	noop := func(context.Context, pipeline.Env) error { return nil }
	require.NoError(t, pipe.AddBeforeAll(noop, pipeline.WithName("setup")))
	require.NoError(t, pipe.AddJob(noop, pipeline.WithName("job")))
	require.NoError(t, pipe.AddBeforeEach(noop, pipeline.WithName("enter"), pipeline.OnStage("s2")))
	require.NoError(t, pipe.AddAfterEach(noop, pipeline.WithName("exit")))

	_, err := pipe.Run(t.Context(), nil)
	require.NoError(t, err)

	keys := make([]string, 0)
	for key := range msr.AllMetrics() {
		keys = append(keys, key)
	}

	assert.ElementsMatch(t, []string{
		model.StartKey, model.EndKey, "entry", "before-all/setup",
		"stage:s1", "stage:s2", "s1/job", "s2/job",
	}, keys)

	assert.Equal(t, int64(1), msr.GetMetric("s1/job").Count())
	assert.NotContains(t, msr.GetMetric("s1/job").AllHooks(), model.BeforeEachKind)
	assert.Contains(t, msr.GetMetric("s1/job").AllHooks(), model.AfterEachKind)
	assert.Contains(t, msr.GetMetric("s2/job").AllHooks(), model.BeforeEachKind)
	assert.Positive(t, msr.GetMetric(model.EndKey).GetTotalDuration())
}

func TestPipelineMeasureFailure(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	pipe := pipeline.New(pipeline.WithOptions(measure.PipelineMeasure(msr)))
	require.NoError(t, pipe.Declare("failing", func(_ context.Context, env pipeline.Env) (pipeline.Env, error) {
		return env, nil
	}, "s1"))
	require.NoError(t, pipe.AddJob(func(context.Context, pipeline.Env) error {
		return assert.AnError
	}, pipeline.WithName("boom")))

	_, err := pipe.Run(t.Context(), nil)
	require.Error(t, err)
	assert.Equal(t, int64(1), msr.GetMetric("s1/boom").Failures())
	assert.Nil(t, msr.GetMetric("stage:s1"))
}
