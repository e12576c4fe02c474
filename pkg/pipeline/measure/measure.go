package measure

import (
	"sync"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

type DefaultMeasure struct {
	mu    sync.Mutex
	Nodes map[string]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		Nodes: make(map[string]Metric),
	}
}

// AddMetric returns the metric of key, creating it on first use.
func (m *DefaultMeasure) AddMetric(key string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mt, ok := m.Nodes[key]; ok {
		return mt
	}

	mt := &DefaultMetric{
		mu:       &sync.Mutex{},
		allHooks: make(map[model.UnitKind]*HookInfo),
	}
	m.Nodes[key] = mt

	return mt
}

func (m *DefaultMeasure) GetMetric(key string) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Nodes[key]
}

func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Metric, len(m.Nodes))
	for k, v := range m.Nodes {
		out[k] = v
	}

	return out
}

var _ Measure = (*DefaultMeasure)(nil)
