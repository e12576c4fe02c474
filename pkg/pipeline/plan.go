package pipeline

import (
	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// PlanStep is one entry of an execution plan: either a stage boundary or a unit.
type PlanStep struct {
	Stage *model.StageInfo
	Unit  *model.UnitInfo
}

// Plan lists, in order, the units a run would invoke if none of them failed. Nothing is executed.
func (p *Pipeline) Plan() ([]PlanStep, error) {
	p.mu.Lock()
	declared := p.declared
	p.mu.Unlock()

	if !declared {
		return nil, ErrNotDeclared
	}

	plan := []PlanStep{{Unit: &model.UnitInfo{Name: p.name, Kind: model.EntryKind, Tag: Global().String()}}}

	for _, unit := range p.registry.Units(model.BeforeAllKind) {
		plan = append(plan, PlanStep{Unit: unit.info("", "")})
	}

	for idx, stageName := range p.stages {
		jobs := Select(p.registry.Units(model.JobKind), stageName)
		befores := Select(p.registry.Units(model.BeforeEachKind), stageName)
		afters := Select(p.registry.Units(model.AfterEachKind), stageName)

		plan = append(plan, PlanStep{Stage: &model.StageInfo{Name: stageName, Index: idx, Jobs: len(jobs)}})

		for _, job := range jobs {
			for _, unit := range befores {
				plan = append(plan, PlanStep{Unit: unit.info(stageName, job.Name)})
			}

			plan = append(plan, PlanStep{Unit: job.info(stageName, "")})

			for _, unit := range afters {
				plan = append(plan, PlanStep{Unit: unit.info(stageName, job.Name)})
			}
		}
	}

	for _, unit := range p.registry.Units(model.AfterAllKind) {
		plan = append(plan, PlanStep{Unit: unit.info("", "")})
	}

	return plan, nil
}
