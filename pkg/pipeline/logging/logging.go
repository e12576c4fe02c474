// Package logging provides a pipeline option logging the progress of a run with slog.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

type pipelineLogger struct {
	logger *slog.Logger
}

// PipelineLogger returns an option logging pipeline and stage boundaries at info level and
// every unit at debug level. A nil logger uses slog.Default.
func PipelineLogger(logger *slog.Logger) model.PipelineOption {
	if logger == nil {
		logger = slog.Default()
	}

	return &pipelineLogger{logger: logger}
}

func (pl *pipelineLogger) run(run *model.RunInfo) *slog.Logger {
	return pl.logger.With(slog.String("run_id", run.ID), slog.String("pipeline", run.Pipeline))
}

func (pl *pipelineLogger) New(ctx context.Context, run *model.RunInfo) error {
	pl.run(run).InfoContext(ctx, fmt.Sprintf("===[ START OF PIPELINE %s ]===", run.Pipeline),
		slog.Any("stages", run.Stages))

	return nil
}

func (pl *pipelineLogger) BeforeStage(ctx context.Context, run *model.RunInfo, stage *model.StageInfo) error {
	pl.run(run).InfoContext(ctx, fmt.Sprintf("======[ START OF STAGE %s ]======", stage.Name),
		slog.String("stage", stage.Name),
		slog.Int("jobs", stage.Jobs),
	)

	return nil
}

func (pl *pipelineLogger) AfterStage(ctx context.Context, run *model.RunInfo, stage *model.StageInfo, elapsed time.Duration) error {
	pl.run(run).InfoContext(ctx, fmt.Sprintf("======[ END OF STAGE %s ]======", stage.Name),
		slog.String("stage", stage.Name),
		slog.Duration("elapsed", elapsed),
	)

	return nil
}

func (pl *pipelineLogger) BeforeUnit(ctx context.Context, run *model.RunInfo, unit *model.UnitInfo) error {
	pl.run(run).DebugContext(ctx, "start unit", unitAttrs(unit)...)

	return nil
}

func (pl *pipelineLogger) AfterUnit(ctx context.Context, run *model.RunInfo, unit *model.UnitInfo, result model.UnitResult) error {
	attrs := append(unitAttrs(unit), slog.Duration("elapsed", result.Elapsed))

	if result.Err != nil {
		pl.run(run).ErrorContext(ctx, "unit failed", append(attrs, slog.Any("error", result.Err))...)

		return nil
	}

	pl.run(run).DebugContext(ctx, "end unit", attrs...)

	return nil
}

func (pl *pipelineLogger) Finish(ctx context.Context, run *model.RunInfo, result model.RunResult) error {
	attrs := []any{
		slog.Duration("elapsed", result.Elapsed),
		slog.Int("jobs", result.JobsRun),
	}

	if result.Err != nil {
		attrs = append(attrs, slog.Any("error", result.Err))
	}

	pl.run(run).InfoContext(ctx, fmt.Sprintf("===[ END OF PIPELINE %s ]===", run.Pipeline), attrs...)

	return nil
}

func unitAttrs(unit *model.UnitInfo) []any {
	attrs := []any{
		slog.String("unit", unit.Name),
		slog.String("kind", string(unit.Kind)),
	}

	if unit.Kind.Staged() {
		attrs = append(attrs, slog.String("stage", unit.Stage))
	}

	if unit.Kind == model.BeforeEachKind || unit.Kind == model.AfterEachKind {
		attrs = append(attrs, slog.String("job", unit.Job))
	}

	return attrs
}
