package measure

import (
	"time"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// Measure holds a metric per plan node, keyed like model.UnitInfo.Key.
type Measure interface {
	AddMetric(key string) Metric
	GetMetric(key string) Metric
	AllMetrics() map[string]Metric
}

// Metric aggregates the invocations of one plan node.
type Metric interface {
	AddDuration(elapsed time.Duration)
	AddFailure()
	AddHookDuration(kind model.UnitKind, elapsed time.Duration)
	AVGDuration() time.Duration
	AVGHookDuration() map[model.UnitKind]*HookInfo
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
	Count() int64
	Failures() int64
	AllHooks() map[model.UnitKind]*HookInfo
}
