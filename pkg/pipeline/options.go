package pipeline

import (
	"log/slog"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithLogger sets the logger used for registration traces and observer failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithAfterAllMode selects the environment handed to after-all hooks.
func WithAfterAllMode(mode AfterAllMode) Option {
	return func(p *Pipeline) {
		p.afterAll = mode
	}
}

// WithOptions adds observers notified of the run lifecycle, in the given order.
func WithOptions(opts ...model.PipelineOption) Option {
	return func(p *Pipeline) {
		for _, opt := range opts {
			if opt != nil {
				p.opts = append(p.opts, opt)
			}
		}
	}
}
