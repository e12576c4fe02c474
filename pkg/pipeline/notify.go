package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// notify calls fn for every option. Option failures and panics are logged and dropped.
func (p *Pipeline) notify(ctx context.Context, callback string, fn func(opt model.PipelineOption) error) {
	for _, opt := range p.opts {
		err := safeCall(opt, fn)
		if err != nil {
			p.logger.WarnContext(ctx, "pipeline option failed",
				slog.String("pipeline", p.name),
				slog.String("callback", callback),
				slog.String("option", fmt.Sprintf("%T", opt)),
				slog.Any("error", err),
			)
		}
	}
}

func safeCall(opt model.PipelineOption, fn func(opt model.PipelineOption) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn(opt)
}
