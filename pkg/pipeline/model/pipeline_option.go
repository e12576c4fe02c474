package model

import (
	"context"
	"time"
)

// PipelineOption defines the interface for pipeline options.
//
// Options observe a run. Errors they return are reported by the pipeline and never change
// the outcome of the run.
type PipelineOption interface {
	// New runs when the pipeline starts, before the entry unit.
	New(ctx context.Context, run *RunInfo) error

	pipelineStageOption
	pipelineUnitOption

	// Finish runs after the pipeline is finished, whether it failed or not.
	Finish(ctx context.Context, run *RunInfo, result RunResult) error
}

// pipelineStageOption defines the interface for stage options at the pipeline level.
type pipelineStageOption interface {
	// BeforeStage runs before the jobs of a stage are selected and executed.
	BeforeStage(ctx context.Context, run *RunInfo, stage *StageInfo) error
	// AfterStage runs once every job of the stage has completed.
	AfterStage(ctx context.Context, run *RunInfo, stage *StageInfo, elapsed time.Duration) error
}

// pipelineUnitOption defines the interface for unit options at the pipeline level.
type pipelineUnitOption interface {
	// BeforeUnit runs before a unit is invoked.
	BeforeUnit(ctx context.Context, run *RunInfo, unit *UnitInfo) error
	// AfterUnit runs after a unit returned, including when it failed.
	AfterUnit(ctx context.Context, run *RunInfo, unit *UnitInfo, result UnitResult) error
}

// NopOption implements PipelineOption with no-op callbacks.
// Embed it to implement only the callbacks you need.
type NopOption struct{}

func (NopOption) New(context.Context, *RunInfo) error { return nil }

func (NopOption) BeforeStage(context.Context, *RunInfo, *StageInfo) error { return nil }

func (NopOption) AfterStage(context.Context, *RunInfo, *StageInfo, time.Duration) error {
	return nil
}

func (NopOption) BeforeUnit(context.Context, *RunInfo, *UnitInfo) error { return nil }

func (NopOption) AfterUnit(context.Context, *RunInfo, *UnitInfo, UnitResult) error { return nil }

func (NopOption) Finish(context.Context, *RunInfo, RunResult) error { return nil }

var _ PipelineOption = NopOption{}
