package measure

import (
	"sync"
	"time"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

// HookInfo accumulates the time spent in before-each or after-each hooks around a job.
type HookInfo struct {
	Elapsed time.Duration
	total   int64
}

type DefaultMetric struct {
	allHooks    map[model.UnitKind]*HookInfo
	mu          *sync.Mutex
	EndDuration time.Duration
	unitElapsed time.Duration
	total       int64
	failures    int64
}

func (mt *DefaultMetric) AddDuration(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.unitElapsed += elapsed
}

func (mt *DefaultMetric) AddFailure() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.failures++
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.EndDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.EndDuration
}

func (mt *DefaultMetric) Count() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.total
}

func (mt *DefaultMetric) Failures() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.failures
}

// AddHookDuration adds the time spent in one hook of the given kind around the job.
func (mt *DefaultMetric) AddHookDuration(kind model.UnitKind, elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.allHooks[kind] == nil {
		mt.allHooks[kind] = &HookInfo{}
	}
	hook := mt.allHooks[kind]
	hook.Elapsed += elapsed
	hook.total++
}

func (mt *DefaultMetric) AVGDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.unitElapsed) / float64(mt.total)))
}

// AVGHookDuration returns the average time per hook kind. It does not modify the metric.
func (mt *DefaultMetric) AVGHookDuration() map[model.UnitKind]*HookInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	out := make(map[model.UnitKind]*HookInfo, len(mt.allHooks))
	for kind, hook := range mt.allHooks {
		avg := &HookInfo{total: hook.total}
		if hook.total > 0 {
			avg.Elapsed = round(time.Duration(float64(hook.Elapsed) / float64(hook.total)))
		}
		out[kind] = avg
	}

	return out
}

func (mt *DefaultMetric) AllHooks() map[model.UnitKind]*HookInfo {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	out := make(map[model.UnitKind]*HookInfo, len(mt.allHooks))
	for kind, hook := range mt.allHooks {
		cp := *hook
		out[kind] = &cp
	}

	return out
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Minute:
		d = d.Round(time.Second)
	case d > time.Second:
		d = d.Round(time.Millisecond)
	case d > time.Millisecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
