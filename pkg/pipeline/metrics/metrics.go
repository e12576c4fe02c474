// Package metrics provides a pipeline option exporting unit and run counters to Prometheus.
package metrics

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

type pipelineMetrics struct {
	model.NopOption
	units    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// PipelineMetrics returns an option counting units and runs on reg. Collectors already
// registered on reg by a previous call are reused.
func PipelineMetrics(reg prometheus.Registerer) (model.PipelineOption, error) {
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stagerun_units_total",
		Help: "Total units executed, by kind, stage and status",
	}, []string{"kind", "stage", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stagerun_unit_duration_seconds",
		Help:    "Duration of unit executions",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stagerun_runs_total",
		Help: "Total pipeline runs, by status",
	}, []string{"status"})

	var err error

	pm := &pipelineMetrics{}

	pm.units, err = register(reg, units)
	if err != nil {
		return nil, err
	}

	pm.duration, err = register(reg, duration)
	if err != nil {
		return nil, err
	}

	pm.runs, err = register(reg, runs)
	if err != nil {
		return nil, err
	}

	return pm, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		existing, ok := already.ExistingCollector.(C)
		if ok {
			return existing, nil
		}
	}

	return collector, errors.Wrap(err, "unable to register collector")
}

func (pm *pipelineMetrics) AfterUnit(_ context.Context, _ *model.RunInfo, unit *model.UnitInfo, result model.UnitResult) error {
	pm.units.WithLabelValues(string(unit.Kind), unit.Stage, status(result.Err)).Inc()
	pm.duration.WithLabelValues(string(unit.Kind)).Observe(result.Elapsed.Seconds())

	return nil
}

func (pm *pipelineMetrics) Finish(_ context.Context, _ *model.RunInfo, result model.RunResult) error {
	pm.runs.WithLabelValues(status(result.Err)).Inc()

	return nil
}

func status(err error) string {
	if err != nil {
		return statusError
	}

	return statusOK
}

// Write writes the metrics of gatherer to wrt in the Prometheus text format.
func Write(wrt io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return errors.Wrap(err, "unable to gather metrics")
	}

	enc := expfmt.NewEncoder(wrt, expfmt.FmtText)
	for _, family := range families {
		err := enc.Encode(family)
		if err != nil {
			return errors.Wrapf(err, "unable to encode %s", family.GetName())
		}
	}

	return nil
}
