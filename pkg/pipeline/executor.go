package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// execution holds the state of a single run.
type execution struct {
	pipe    *Pipeline
	run     *model.RunInfo
	lastEnv Env
	jobsRun int
}

// Run executes the pipeline once and returns the baseline: the environment returned by the
// entry function as modified by the before-all hooks. Changes made by jobs and their
// before-each/after-each hooks are not part of it.
//
// Run stops on the first failing unit and returns a *UnitError wrapping its error.
func (p *Pipeline) Run(ctx context.Context, initial Env) (Env, error) {
	err := p.start()
	if err != nil {
		return nil, err
	}

	exec := &execution{
		pipe: p,
		run: &model.RunInfo{
			ID:        uuid.NewString(),
			Pipeline:  p.name,
			Stages:    p.Stages(),
			StartTime: time.Now(),
		},
	}

	p.notify(ctx, "new", func(opt model.PipelineOption) error {
		return opt.New(ctx, exec.run)
	})

	baseline, err := exec.execute(ctx, initial)

	p.finish(err)
	p.notify(ctx, "finish", func(opt model.PipelineOption) error {
		return opt.Finish(ctx, exec.run, model.RunResult{
			Elapsed: time.Since(exec.run.StartTime),
			Err:     err,
			JobsRun: exec.jobsRun,
		})
	})

	if err != nil {
		return nil, err
	}

	return baseline, nil
}

func (p *Pipeline) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared {
		return ErrNotDeclared
	}

	if p.state == Running {
		return errors.Wrapf(ErrAlreadyRunning, "unable to run %s", p.name)
	}

	p.state = Running
	p.phase = Phase{}

	return nil
}

func (p *Pipeline) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.state = Failed

		return
	}

	p.state = Completed
	p.phase = Phase{}
}

func (p *Pipeline) setPhase(phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.phase = phase
}

func (e *execution) execute(ctx context.Context, initial Env) (Env, error) {
	e.pipe.setPhase(Phase{Kind: PhaseEntry})

	baseline, err := e.entry(ctx, initial)
	if err != nil {
		return nil, err
	}

	e.pipe.setPhase(Phase{Kind: PhaseBeforeAll})

	for _, unit := range e.pipe.registry.Units(model.BeforeAllKind) {
		err := e.invoke(ctx, unit, baseline, "", "")
		if err != nil {
			return nil, err
		}
	}

	for idx, stageName := range e.pipe.stages {
		err := e.runStage(ctx, idx, stageName, baseline)
		if err != nil {
			return nil, err
		}
	}

	err = e.afterAll(ctx, baseline)
	if err != nil {
		return nil, err
	}

	return baseline, nil
}

func (e *execution) entry(ctx context.Context, initial Env) (Env, error) {
	info := &model.UnitInfo{Name: e.pipe.name, Kind: model.EntryKind, Tag: Global().String()}

	var baseline Env

	err := e.observe(ctx, info, func() error {
		var err error
		baseline, err = e.pipe.entry(ctx, initial)

		return err
	})
	if err != nil {
		return nil, &UnitError{Err: err, Kind: model.EntryKind, Unit: e.pipe.name}
	}

	if baseline == nil {
		baseline = Env{}
	}

	return baseline, nil
}

func (e *execution) runStage(ctx context.Context, idx int, stageName string, baseline Env) error {
	jobs := Select(e.pipe.registry.Units(model.JobKind), stageName)
	befores := Select(e.pipe.registry.Units(model.BeforeEachKind), stageName)
	afters := Select(e.pipe.registry.Units(model.AfterEachKind), stageName)

	stage := &model.StageInfo{Name: stageName, Index: idx, Jobs: len(jobs)}
	e.pipe.notify(ctx, "before stage", func(opt model.PipelineOption) error {
		return opt.BeforeStage(ctx, e.run, stage)
	})

	start := time.Now()

	for _, job := range jobs {
		envCopy, err := Snapshot(baseline)
		if err != nil {
			return errors.Wrapf(err, "stage %s, job %s", stageName, job.Name)
		}

		e.lastEnv = envCopy

		err = e.runJob(ctx, idx, stageName, job, befores, afters, envCopy)
		if err != nil {
			return err
		}

		e.jobsRun++
	}

	elapsed := time.Since(start)
	e.pipe.notify(ctx, "after stage", func(opt model.PipelineOption) error {
		return opt.AfterStage(ctx, e.run, stage, elapsed)
	})

	return nil
}

func (e *execution) runJob(ctx context.Context, idx int, stageName string, job Unit, befores, afters []Unit, env Env) error {
	phase := Phase{Kind: PhaseStage, Stage: stageName, StageIndex: idx}

	phase.Step = model.BeforeEachKind
	e.pipe.setPhase(phase)

	for _, unit := range befores {
		err := e.invoke(ctx, unit, env, stageName, job.Name)
		if err != nil {
			return err
		}
	}

	phase.Step = model.JobKind
	e.pipe.setPhase(phase)

	err := e.invoke(ctx, job, env, stageName, "")
	if err != nil {
		return err
	}

	phase.Step = model.AfterEachKind
	e.pipe.setPhase(phase)

	for _, unit := range afters {
		err := e.invoke(ctx, unit, env, stageName, job.Name)
		if err != nil {
			return err
		}
	}

	return nil
}

func (e *execution) afterAll(ctx context.Context, baseline Env) error {
	units := e.pipe.registry.Units(model.AfterAllKind)
	if len(units) == 0 {
		return nil
	}

	e.pipe.setPhase(Phase{Kind: PhaseAfterAll})

	env := baseline
	if e.pipe.afterAll == AfterAllLastJobEnv {
		if e.lastEnv == nil {
			return errors.Wrapf(ErrNoJobEnvironment, "unable to run after-all units of %s", e.pipe.name)
		}

		env = e.lastEnv
	}

	for _, unit := range units {
		err := e.invoke(ctx, unit, env, "", "")
		if err != nil {
			return err
		}
	}

	return nil
}

// invoke runs a unit on env. jobName is the job wrapped by a before-each or after-each unit.
func (e *execution) invoke(ctx context.Context, unit Unit, env Env, stageName, jobName string) error {
	err := e.observe(ctx, unit.info(stageName, jobName), func() error {
		return unit.Fn(ctx, env)
	})
	if err != nil {
		return &UnitError{Err: err, Kind: unit.Kind, Unit: unit.Name, Stage: stageName}
	}

	return nil
}

func (e *execution) observe(ctx context.Context, info *model.UnitInfo, fn func() error) error {
	e.pipe.notify(ctx, "before unit", func(opt model.PipelineOption) error {
		return opt.BeforeUnit(ctx, e.run, info)
	})

	start := time.Now()
	err := fn()
	result := model.UnitResult{Start: start, Elapsed: time.Since(start), Err: err}

	e.pipe.notify(ctx, "after unit", func(opt model.PipelineOption) error {
		return opt.AfterUnit(ctx, e.run, info, result)
	})

	return err
}
