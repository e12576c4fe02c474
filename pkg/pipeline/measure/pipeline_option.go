package measure

import (
	"context"
	"time"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

type pipelineMeasure struct {
	model.NopOption
	Measure
}

func (pm *pipelineMeasure) New(context.Context, *model.RunInfo) error {
	pm.AddMetric(model.StartKey)
	pm.AddMetric(model.EndKey)

	return nil
}

func (pm *pipelineMeasure) AfterStage(_ context.Context, _ *model.RunInfo, stage *model.StageInfo, elapsed time.Duration) error {
	pm.AddMetric(model.StageKey(stage.Name)).SetTotalDuration(elapsed)

	return nil
}

// AfterUnit records unit durations. Hook durations are recorded on the job they wrap.
func (pm *pipelineMeasure) AfterUnit(_ context.Context, _ *model.RunInfo, unit *model.UnitInfo, result model.UnitResult) error {
	mt := pm.AddMetric(unit.JobKey())

	switch unit.Kind {
	case model.BeforeEachKind, model.AfterEachKind:
		mt.AddHookDuration(unit.Kind, result.Elapsed)
	default:
		mt.AddDuration(result.Elapsed)
	}

	if result.Err != nil {
		mt.AddFailure()
	}

	return nil
}

func (pm *pipelineMeasure) Finish(_ context.Context, _ *model.RunInfo, result model.RunResult) error {
	pm.AddMetric(model.EndKey).SetTotalDuration(result.Elapsed)

	return nil
}

// PipelineMeasure returns an option recording unit, stage and run durations in measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}
