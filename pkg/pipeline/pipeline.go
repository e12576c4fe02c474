package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// EntryFunc starts a run. The environment it returns becomes the baseline; a nil return is an
// empty baseline.
type EntryFunc func(ctx context.Context, env Env) (Env, error)

// Pipeline is a declared sequence of stages with its registered jobs and hooks.
type Pipeline struct {
	registry *Registry
	logger   *slog.Logger
	entry    EntryFunc
	name     string
	stages   []string
	opts     []model.PipelineOption
	afterAll AfterAllMode
	declared bool

	mu    sync.Mutex
	state State
	phase Phase
}

// New creates a pipeline with an empty registry.
func New(opts ...Option) *Pipeline {
	pipe := &Pipeline{
		registry: NewRegistry(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(pipe)
	}

	return pipe
}

// Declare sets the entry function and the stages, in execution order.
// A pipeline can only be declared once.
func (p *Pipeline) Declare(name string, entry EntryFunc, stages ...string) error {
	if p == nil {
		return ErrNotDeclared
	}

	if entry == nil {
		return ErrNilEntry
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.declared {
		return errors.Wrapf(ErrAlreadyDeclared, "unable to declare %s, %s is declared", name, p.name)
	}

	p.name = name
	p.entry = entry
	p.stages = append([]string(nil), stages...)
	p.declared = true

	p.logger.Debug("declare pipeline", slog.String("pipeline", name), slog.Any("stages", p.stages))

	return nil
}

// Name returns the declared name of the pipeline.
func (p *Pipeline) Name() string {
	return p.name
}

// Stages returns the declared stages in execution order.
func (p *Pipeline) Stages() []string {
	return append([]string(nil), p.stages...)
}

// Registry returns the registry holding the pipeline units.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// State returns the lifecycle state of the pipeline.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Phase returns the part of the run being executed. It is only meaningful while running
// or after a failure, where it locates the failing unit.
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.phase
}

func (p *Pipeline) register(kind model.UnitKind, fn UnitFunc, opts ...UnitOption) error {
	unit, err := p.registry.Register(kind, fn, opts...)
	if err != nil {
		return err
	}

	p.logger.Debug("register unit",
		slog.String("kind", string(unit.Kind)),
		slog.String("unit", unit.Name),
		slog.String("stage", unit.Stage.String()),
	)

	return nil
}

// AddJob registers a job. Use OnStage to attach it to a stage, otherwise it runs in every stage.
func (p *Pipeline) AddJob(fn UnitFunc, opts ...UnitOption) error {
	return p.register(model.JobKind, fn, opts...)
}

// AddBeforeAll registers a hook that runs once, on the baseline, before any stage.
func (p *Pipeline) AddBeforeAll(fn UnitFunc, opts ...UnitOption) error {
	return p.register(model.BeforeAllKind, fn, opts...)
}

// AddAfterAll registers a hook that runs once, after every stage.
func (p *Pipeline) AddAfterAll(fn UnitFunc, opts ...UnitOption) error {
	return p.register(model.AfterAllKind, fn, opts...)
}

// AddBeforeEach registers a hook that runs before each job of its stage, or of every stage.
func (p *Pipeline) AddBeforeEach(fn UnitFunc, opts ...UnitOption) error {
	return p.register(model.BeforeEachKind, fn, opts...)
}

// AddAfterEach registers a hook that runs after each job of its stage, or of every stage.
func (p *Pipeline) AddAfterEach(fn UnitFunc, opts ...UnitOption) error {
	return p.register(model.AfterEachKind, fn, opts...)
}
