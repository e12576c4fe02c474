package pipeline

import (
	"github.com/pkg/errors"
)

// AfterAllMode selects the environment after-all hooks receive.
type AfterAllMode int

const (
	// AfterAllLastJobEnv hands after-all hooks the working copy of the last job that ran,
	// not the baseline. Run fails with ErrNoJobEnvironment when after-all hooks exist but no
	// job ran. This is the default.
	AfterAllLastJobEnv AfterAllMode = iota
	// AfterAllBaseline hands after-all hooks the baseline, as left by the entry function and the
	// before-all hooks.
	AfterAllBaseline
)

// ErrUnknownAfterAllMode is returned by ParseAfterAllMode.
var ErrUnknownAfterAllMode = errors.New("unknown after-all mode")

func (m AfterAllMode) String() string {
	switch m {
	case AfterAllLastJobEnv:
		return "last-job"
	case AfterAllBaseline:
		return "baseline"
	default:
		return "unknown"
	}
}

// ParseAfterAllMode parses "last-job" or "baseline". An empty string is the default mode.
func ParseAfterAllMode(s string) (AfterAllMode, error) {
	switch s {
	case "", "last-job":
		return AfterAllLastJobEnv, nil
	case "baseline":
		return AfterAllBaseline, nil
	default:
		return 0, errors.Wrapf(ErrUnknownAfterAllMode, "%q", s)
	}
}
