package pipeline

import (
	"fmt"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// State is the lifecycle state of a pipeline.
type State int

const (
	NotStarted State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PhaseKind identifies the part of a run being executed.
type PhaseKind string

const (
	PhaseNone      PhaseKind = ""
	PhaseEntry     PhaseKind = "entry"
	PhaseBeforeAll PhaseKind = "before-all"
	PhaseStage     PhaseKind = "stage"
	PhaseAfterAll  PhaseKind = "after-all"
)

// Phase locates a running pipeline. Stage, StageIndex and Step are only set in PhaseStage,
// Step being one of model.BeforeEachKind, model.JobKind or model.AfterEachKind.
type Phase struct {
	Kind       PhaseKind
	Stage      string
	StageIndex int
	Step       model.UnitKind
}

func (ph Phase) String() string {
	if ph.Kind != PhaseStage {
		return string(ph.Kind)
	}

	return fmt.Sprintf("stage(%d:%s, %s)", ph.StageIndex, ph.Stage, ph.Step)
}
