package pipeline_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/askiada/go-stagerun/pkg/pipeline"
	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

const typicalTrace = "aTypicalPipeline:(su)(efs)B(x)(efs)A(x)(efs)H(x)C(x)F(x)D(x)H(x)E(x)G(x)H(x)(td)"

var typicalStages = []string{"first_stage", "second_stage", "third_stage"}

func record(trace *strings.Builder, s string) pipeline.UnitFunc {
	return func(context.Context, pipeline.Env) error {
		trace.WriteString(s)

		return nil
	}
}

// typicalPipeline registers jobs in the order B, A, C, F, E, D, G, H.
func typicalPipeline(t *testing.T, trace *strings.Builder, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()

	pipe := pipeline.New(opts...)
	err := pipe.Declare("aTypicalPipeline", func(_ context.Context, env pipeline.Env) (pipeline.Env, error) {
		trace.Reset()
		trace.WriteString("aTypicalPipeline:")

		return env, nil
	}, typicalStages...)
	require.NoError(t, err)

	jobs := []struct {
		name  string
		stage string
	}{
		{"B", "first_stage"},
		{"A", "first_stage"},
		{"C", "second_stage"},
		{"F", "second_stage"},
		{"E", "third_stage"},
		{"D", "second_stage"},
		{"G", "third_stage"},
		{"H", ""},
	}
	for _, job := range jobs {
		unitOpts := []pipeline.UnitOption{pipeline.WithName(job.name)}
		if job.stage != "" {
			unitOpts = append(unitOpts, pipeline.OnStage(job.stage))
		}

		require.NoError(t, pipe.AddJob(record(trace, job.name), unitOpts...))
	}

	require.NoError(t, pipe.AddBeforeAll(record(trace, "(su)"), pipeline.WithName("setup")))
	require.NoError(t, pipe.AddAfterAll(record(trace, "(td)"), pipeline.WithName("teardown")))
	require.NoError(t, pipe.AddBeforeEach(record(trace, "(efs)"), pipeline.WithName("enter_first_stage_job"), pipeline.OnStage("first_stage")))
	require.NoError(t, pipe.AddAfterEach(record(trace, "(x)"), pipeline.WithName("exit_job")))

	return pipe
}

func keys(env pipeline.Env) []string {
	out := make([]string, 0, len(env))
	for k := range env {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}

// recorder is a pipeline option that records every callback it receives.
type recorder struct {
	events []string
}

func (r *recorder) New(_ context.Context, run *model.RunInfo) error {
	r.events = append(r.events, "new "+run.Pipeline)

	return nil
}

func (r *recorder) BeforeStage(_ context.Context, _ *model.RunInfo, stage *model.StageInfo) error {
	r.events = append(r.events, fmt.Sprintf("before-stage %s jobs=%d", stage.Name, stage.Jobs))

	return nil
}

func (r *recorder) AfterStage(_ context.Context, _ *model.RunInfo, stage *model.StageInfo, _ time.Duration) error {
	r.events = append(r.events, "after-stage "+stage.Name)

	return nil
}

func (r *recorder) BeforeUnit(_ context.Context, _ *model.RunInfo, unit *model.UnitInfo) error {
	r.events = append(r.events, fmt.Sprintf("before-unit %s %s", unit.Kind, unit.Name))

	return nil
}

func (r *recorder) AfterUnit(_ context.Context, _ *model.RunInfo, unit *model.UnitInfo, res model.UnitResult) error {
	status := "ok"
	if res.Err != nil {
		status = "error"
	}

	r.events = append(r.events, fmt.Sprintf("after-unit %s %s %s", unit.Kind, unit.Name, status))

	return nil
}

func (r *recorder) Finish(_ context.Context, _ *model.RunInfo, res model.RunResult) error {
	status := "ok"
	if res.Err != nil {
		status = "error"
	}

	r.events = append(r.events, fmt.Sprintf("finish %s jobs=%d", status, res.JobsRun))

	return nil
}

// failingOption fails or panics on every callback.
type failingOption struct {
	model.NopOption
	panics bool
}

func (f failingOption) fail() error {
	if f.panics {
		panic("observer exploded")
	}

	return fmt.Errorf("observer failed")
}

func (f failingOption) New(context.Context, *model.RunInfo) error { return f.fail() }

func (f failingOption) BeforeStage(context.Context, *model.RunInfo, *model.StageInfo) error {
	return f.fail()
}

func (f failingOption) AfterUnit(context.Context, *model.RunInfo, *model.UnitInfo, model.UnitResult) error {
	return f.fail()
}

func (f failingOption) Finish(context.Context, *model.RunInfo, model.RunResult) error {
	return f.fail()
}
