package drawer

import (
	"context"
	"strconv"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-stagerun/pkg/pipeline"
	"github.com/askiada/go-stagerun/pkg/pipeline/measure"
	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// pipelineDrawer builds the plan graph from the units it is notified of:
// start -> entry -> before-all -> stage -> jobs -> next stage -> ... -> after-all -> end.
// A stage declared more than once gets its own nodes per occurrence, suffixed with "#<n>" from
// the second one. Measures only label the first occurrence.
type pipelineDrawer struct {
	model.NopOption
	Drawer
	m         measure.Measure
	startTime time.Time

	// anchors are the nodes the next node is linked from.
	anchors   []string
	stage     string
	stageJobs []string
	// occurrences counts how many times each stage name was drawn.
	occurrences map[string]int
	suffix      string
}

func (pd *pipelineDrawer) New(_ context.Context, run *model.RunInfo) error {
	pd.startTime = run.StartTime
	pd.anchors = []string{model.StartKey}
	pd.stage = ""
	pd.stageJobs = nil
	pd.occurrences = map[string]int{}
	pd.suffix = ""

	err := pd.AddStep(model.StartKey, graph.VertexAttribute("shape", "circle"))
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}

	err = pd.AddStep(model.EndKey, graph.VertexAttribute("shape", "doublecircle"))
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) BeforeStage(_ context.Context, _ *model.RunInfo, stage *model.StageInfo) error {
	pd.closeStage()

	pd.occurrences[stage.Name]++
	if n := pd.occurrences[stage.Name]; n > 1 {
		pd.suffix = "#" + strconv.Itoa(n)
	}

	name := model.StageKey(stage.Name) + pd.suffix

	err := pd.chain(name, graph.VertexAttribute("shape", "box"), graph.VertexAttribute("style", "rounded"))
	if err != nil {
		return err
	}

	pd.stage = name

	return nil
}

func (pd *pipelineDrawer) BeforeUnit(_ context.Context, _ *model.RunInfo, unit *model.UnitInfo) error {
	switch unit.Kind {
	case model.EntryKind, model.BeforeAllKind, model.AfterAllKind:
		pd.closeStage()

		return pd.chain(unit.Key())
	case model.JobKind:
		name := unit.Key() + pd.suffix

		err := pd.AddStep(name, graph.VertexAttribute("shape", "box"))
		if err != nil {
			return errors.Wrapf(err, "unable to add job %s to drawer", name)
		}

		err = pd.AddLink(pd.stage, name)
		if err != nil {
			return err
		}

		pd.stageJobs = append(pd.stageJobs, name)
	}

	return nil
}

func (pd *pipelineDrawer) Finish(context.Context, *model.RunInfo, model.RunResult) error {
	pd.closeStage()

	for _, anchor := range pd.anchors {
		err := pd.AddLink(anchor, model.EndKey)
		if err != nil {
			return err
		}
	}

	if pd.m != nil {
		err := pd.SetTotalTime(model.EndKey, pd.startTime)
		if err != nil {
			return errors.Wrap(err, "unable to set total time")
		}

		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// chain adds name and links it from every anchor.
func (pd *pipelineDrawer) chain(name string, options ...func(*graph.VertexProperties)) error {
	err := pd.AddStep(name, options...)
	if err != nil {
		return errors.Wrapf(err, "unable to add %s to drawer", name)
	}

	for _, anchor := range pd.anchors {
		err := pd.AddLink(anchor, name)
		if err != nil {
			return err
		}
	}

	pd.anchors = []string{name}

	return nil
}

// closeStage makes the jobs of the current stage the anchors of the next node.
// A stage without jobs stays the anchor itself.
func (pd *pipelineDrawer) closeStage() {
	if len(pd.stageJobs) > 0 {
		pd.anchors = pd.stageJobs
	}

	pd.stage = ""
	pd.stageJobs = nil
	pd.suffix = ""
}

// PipelineDrawer returns an option drawing the units of a run once it finishes.
// When measure is set, the nodes carry the durations it recorded; it must observe the same run.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure}
}

// DrawPlan draws the plan of pipe without running it.
func DrawPlan(ctx context.Context, drawer Drawer, pipe *pipeline.Pipeline) error {
	plan, err := pipe.Plan()
	if err != nil {
		return errors.Wrap(err, "unable to plan pipeline")
	}

	pd := &pipelineDrawer{Drawer: drawer}
	run := &model.RunInfo{Pipeline: pipe.Name(), Stages: pipe.Stages(), StartTime: time.Now()}

	err = pd.New(ctx, run)
	if err != nil {
		return err
	}

	for _, step := range plan {
		if step.Stage != nil {
			err = pd.BeforeStage(ctx, run, step.Stage)
		} else {
			err = pd.BeforeUnit(ctx, run, step.Unit)
		}

		if err != nil {
			return err
		}
	}

	return pd.Finish(ctx, run, model.RunResult{})
}
