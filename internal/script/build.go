package script

import (
	"context"
	"fmt"
	"maps"

	"github.com/pkg/errors"

	"github.com/askiada/go-stagerun/pkg/pipeline"
	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// Build compiles the scripts and returns the declared pipeline.
func (d *Definition) Build(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	err := d.Validate()
	if err != nil {
		return nil, err
	}

	entry, err := d.entry()
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(opts...)

	err = pipe.Declare(d.Name, entry, d.Stages...)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to declare %s", d.Name)
	}

	add := map[model.UnitKind]func(pipeline.UnitFunc, ...pipeline.UnitOption) error{
		model.JobKind:        pipe.AddJob,
		model.BeforeAllKind:  pipe.AddBeforeAll,
		model.AfterAllKind:   pipe.AddAfterAll,
		model.BeforeEachKind: pipe.AddBeforeEach,
		model.AfterEachKind:  pipe.AddAfterEach,
	}

	for _, group := range d.groups() {
		for idx, unit := range group.units {
			name := unit.Name
			if name == "" {
				name = fmt.Sprintf("%s#%d", group.kind, idx)
			}

			prog, err := compile(name, unit.Script, unit.Timeout)
			if err != nil {
				return nil, err
			}

			unitOpts := []pipeline.UnitOption{pipeline.WithName(name)}
			if unit.Stage != nil {
				unitOpts = append(unitOpts, pipeline.OnStage(*unit.Stage))
			}

			err = add[group.kind](prog.unitFunc(), unitOpts...)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to register %s %s", group.kind, name)
			}
		}
	}

	return pipe, nil
}

// entry seeds the environment with the env section of the definition, overridden by the
// initial environment, and runs the entry script on it. A table returned by the script
// becomes the baseline; otherwise the seeded environment does.
func (d *Definition) entry() (pipeline.EntryFunc, error) {
	var prog *program

	if d.Entry != "" {
		var err error

		prog, err = compile(d.Name, d.Entry, 0)
		if err != nil {
			return nil, err
		}
	}

	defaults, err := pipeline.Snapshot(d.Env)
	if err != nil {
		return nil, errors.Wrap(err, "unable to copy the env section")
	}

	return func(ctx context.Context, initial pipeline.Env) (pipeline.Env, error) {
		env := defaults.Clone()
		maps.Copy(env, initial)

		if prog == nil {
			return env, nil
		}

		ret, err := prog.call(ctx, env)
		if err != nil {
			return nil, err
		}

		if baseline, ok := ret.(map[string]any); ok {
			return pipeline.Env(baseline), nil
		}

		return env, nil
	}, nil
}
