package model

import (
	"time"
)

// UnitKind identifies which registry a unit belongs to.
type UnitKind string

const (
	JobKind        UnitKind = "job"
	BeforeAllKind  UnitKind = "before-all"
	AfterAllKind   UnitKind = "after-all"
	BeforeEachKind UnitKind = "before-each"
	AfterEachKind  UnitKind = "after-each"
	// EntryKind is the kind of the entry function. It has no registry.
	EntryKind UnitKind = "entry"
)

// Staged reports whether units of kind k run inside a stage. Their stage may be named "".
func (k UnitKind) Staged() bool {
	switch k {
	case JobKind, BeforeEachKind, AfterEachKind:
		return true
	default:
		return false
	}
}

// AllKinds lists the unit kinds in registry order.
var AllKinds = []UnitKind{JobKind, BeforeAllKind, AfterAllKind, BeforeEachKind, AfterEachKind}

// RunInfo describes one execution of a pipeline.
type RunInfo struct {
	ID        string
	Pipeline  string
	Stages    []string
	StartTime time.Time
}

// StageInfo describes a declared stage while it is being executed.
type StageInfo struct {
	Name  string
	Index int
	// Jobs is the number of jobs selected for the stage.
	Jobs int
}

// UnitInfo describes a registered unit at the moment it is invoked.
type UnitInfo struct {
	Name string
	Kind UnitKind
	// Stage is the stage the unit runs in. Empty for entry, before-all and after-all units.
	Stage string
	// Tag is the stage tag the unit was registered with, "*" for global units.
	Tag string
	// Job is the job a before-each or after-each unit wraps.
	Job string
}

// UnitResult is the outcome of a single unit invocation.
type UnitResult struct {
	Start   time.Time
	Elapsed time.Duration
	Err     error
}

// RunResult is the outcome of a whole run.
type RunResult struct {
	Elapsed time.Duration
	Err     error
	// JobsRun counts the job invocations across all stages.
	JobsRun int
}

// Plan graph and measure keys of the nodes that are not units.
const (
	StartKey = "start"
	EndKey   = "end"
)

// StageKey returns the key of a stage.
func StageKey(name string) string {
	return "stage:" + name
}

func (u *UnitInfo) wrapsJob() bool {
	return u.Kind == BeforeEachKind || u.Kind == AfterEachKind
}

// Key identifies the unit in plan graphs and measures.
// Hooks wrapping a job are keyed under that job.
func (u *UnitInfo) Key() string {
	switch u.Kind {
	case EntryKind:
		return string(EntryKind)
	case JobKind:
		return u.Stage + "/" + u.Name
	case BeforeEachKind, AfterEachKind:
		return u.Stage + "/" + u.Job + "/" + string(u.Kind) + "/" + u.Name
	default:
		return string(u.Kind) + "/" + u.Name
	}
}

// JobKey returns the key of the job a hook wraps, or the unit key for any other unit.
func (u *UnitInfo) JobKey() string {
	if u.wrapsJob() {
		return u.Stage + "/" + u.Job
	}

	return u.Key()
}
