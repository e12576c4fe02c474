package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-stagerun/pkg/pipeline"
	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

func noop(context.Context, pipeline.Env) error { return nil }

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()

	first, err := reg.Register(model.JobKind, noop)
	require.NoError(t, err)
	assert.Equal(t, "job#0", first.Name)
	assert.True(t, first.Stage.IsGlobal())

	second, err := reg.Register(model.JobKind, noop, pipeline.WithName("named"), pipeline.OnStage("s1"))
	require.NoError(t, err)
	assert.Equal(t, "named", second.Name)
	assert.Equal(t, pipeline.Named("s1"), second.Stage)

	hook, err := reg.Register(model.BeforeEachKind, noop)
	require.NoError(t, err)
	assert.Equal(t, "before-each#0", hook.Name)

	assert.Equal(t, 2, reg.Len(model.JobKind))
	assert.Equal(t, 1, reg.Len(model.BeforeEachKind))
	assert.Zero(t, reg.Len(model.AfterAllKind))

	units := reg.Units(model.JobKind)
	require.Len(t, units, 2)
	assert.Equal(t, "job#0", units[0].Name)
	assert.Equal(t, "named", units[1].Name)

	units[0].Name = "mutated"
	assert.Equal(t, "job#0", reg.Units(model.JobKind)[0].Name)
}

func TestRegistryGlobalOnlyKinds(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()

	_, err := reg.Register(model.BeforeAllKind, noop, pipeline.WithStage(pipeline.Global()))
	require.NoError(t, err)

	_, err = reg.Register(model.AfterAllKind, noop, pipeline.OnStage(""))
	require.ErrorIs(t, err, pipeline.ErrStageNotAllowed)
	assert.Zero(t, reg.Len(model.AfterAllKind))
}

func TestStage(t *testing.T) {
	t.Parallel()

	global := pipeline.Global()
	assert.True(t, global.IsGlobal())
	assert.True(t, global.Matches("anything"))
	assert.True(t, global.Matches(""))
	assert.Equal(t, "*", global.String())

	name, named := global.Name()
	assert.Empty(t, name)
	assert.False(t, named)

	empty := pipeline.Named("")
	assert.False(t, empty.IsGlobal())
	assert.True(t, empty.Matches(""))
	assert.False(t, empty.Matches("s1"))

	s1 := pipeline.Named("s1")
	assert.True(t, s1.Matches("s1"))
	assert.False(t, s1.Matches("s2"))

	name, named = s1.Name()
	assert.Equal(t, "s1", name)
	assert.True(t, named)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	units := []pipeline.Unit{
		{Name: "a", Stage: pipeline.Named("s1")},
		{Name: "b", Stage: pipeline.Global()},
		{Name: "c", Stage: pipeline.Named("s2")},
		{Name: "d", Stage: pipeline.Named("s1")},
	}

	names := func(units []pipeline.Unit) []string {
		out := make([]string, 0, len(units))
		for _, u := range units {
			out = append(out, u.Name)
		}

		return out
	}

	assert.Equal(t, []string{"a", "b", "d"}, names(pipeline.Select(units, "s1")))
	assert.Equal(t, []string{"b", "c"}, names(pipeline.Select(units, "s2")))
	assert.Equal(t, []string{"b"}, names(pipeline.Select(units, "s3")))
	assert.Empty(t, pipeline.Select(nil, "s1"))
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "before-all", pipeline.Phase{Kind: pipeline.PhaseBeforeAll}.String())
	assert.Equal(t, "stage(2:third, after-each)", pipeline.Phase{
		Kind:       pipeline.PhaseStage,
		Stage:      "third",
		StageIndex: 2,
		Step:       model.AfterEachKind,
	}.String())
	assert.Equal(t, "failed", pipeline.Failed.String())
}
