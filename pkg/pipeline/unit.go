package pipeline

import (
	"context"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// UnitFunc is the body of a job or a hook. It mutates env in place; returning an error aborts the run.
type UnitFunc func(ctx context.Context, env Env) error

// Unit is one registered job or hook.
type Unit struct {
	Fn    UnitFunc
	Name  string
	Kind  model.UnitKind
	Stage Stage
}

func (u Unit) info(stageName, jobName string) *model.UnitInfo {
	return &model.UnitInfo{
		Name:  u.Name,
		Kind:  u.Kind,
		Stage: stageName,
		Tag:   u.Stage.String(),
		Job:   jobName,
	}
}

// UnitOption configures a unit at registration time.
type UnitOption func(u *Unit)

// OnStage attaches the unit to a single stage. Units registered without it are global.
func OnStage(name string) UnitOption {
	return func(u *Unit) {
		u.Stage = Named(name)
	}
}

// WithStage sets the stage tag of the unit.
func WithStage(stage Stage) UnitOption {
	return func(u *Unit) {
		u.Stage = stage
	}
}

// WithName names the unit in logs, traces and errors.
func WithName(name string) UnitOption {
	return func(u *Unit) {
		u.Name = name
	}
}
