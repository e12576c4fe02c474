package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// Registry holds the jobs and hooks of a pipeline in registration order.
// It only grows: units cannot be removed.
type Registry struct {
	units map[model.UnitKind][]Unit
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		units: make(map[model.UnitKind][]Unit, len(model.AllKinds)),
	}
}

// Register appends a unit of the given kind.
// Stage names are not checked against the declared stages: a unit attached to a stage
// that is never declared never runs.
func (r *Registry) Register(kind model.UnitKind, fn UnitFunc, opts ...UnitOption) (Unit, error) {
	if fn == nil {
		return Unit{}, errors.Wrapf(ErrNilUnit, "unable to register %s", kind)
	}

	unit := Unit{Fn: fn, Kind: kind}
	for _, opt := range opts {
		opt(&unit)
	}

	if !unit.Stage.IsGlobal() && (kind == model.BeforeAllKind || kind == model.AfterAllKind) {
		return Unit{}, errors.Wrapf(ErrStageNotAllowed, "unable to register %s on stage %s", kind, unit.Stage)
	}

	if unit.Name == "" {
		unit.Name = fmt.Sprintf("%s#%d", kind, len(r.units[kind]))
	}

	r.units[kind] = append(r.units[kind], unit)

	return unit, nil
}

// Units returns a copy of the units of the given kind, in registration order.
func (r *Registry) Units(kind model.UnitKind) []Unit {
	units := r.units[kind]
	out := make([]Unit, len(units))
	copy(out, units)

	return out
}

// Len returns the number of units of the given kind.
func (r *Registry) Len(kind model.UnitKind) int {
	return len(r.units[kind])
}
