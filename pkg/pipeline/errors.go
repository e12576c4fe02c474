package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// Registration errors.
var (
	ErrNilUnit         = errors.New("unit function must be set")
	ErrStageNotAllowed = errors.New("before-all and after-all units cannot be attached to a stage")
)

// Declaration errors. A pipeline is declared exactly once before it runs.
var (
	ErrNilEntry        = errors.New("entry function must be set")
	ErrNotDeclared     = errors.New("pipeline must be declared before it runs")
	ErrAlreadyDeclared = errors.New("pipeline already declared")
	ErrAlreadyRunning  = errors.New("pipeline is already running")
)

// Execution errors raised by the engine itself.
var (
	ErrNoJobEnvironment = errors.New("after-all units need a job environment but no job ran")
	ErrSnapshot         = errors.New("unable to snapshot environment")
)

// IsRegistrationError reports whether err was caused by an invalid registration.
func IsRegistrationError(err error) bool {
	return errors.Is(err, ErrNilUnit) || errors.Is(err, ErrStageNotAllowed)
}

// IsConfigurationError reports whether err was caused by a missing or duplicated declaration.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrNilEntry) ||
		errors.Is(err, ErrNotDeclared) ||
		errors.Is(err, ErrAlreadyDeclared) ||
		errors.Is(err, ErrAlreadyRunning)
}

// UnitError is returned by Run when a unit fails. It unwraps to the error returned by the unit.
// Stage is only meaningful for jobs and the hooks wrapping them.
type UnitError struct {
	Err   error
	Kind  model.UnitKind
	Unit  string
	Stage string
}

func (e *UnitError) Error() string {
	if e.Kind.Staged() {
		return fmt.Sprintf("%s %s (stage %s): %v", e.Kind, e.Unit, e.Stage, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Kind, e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}
