// Package tracing provides a pipeline option recording runs, stages and units as OpenTelemetry spans.
//
// Spans are nested run > stage > unit. Units that run outside of a stage (entry, before-all and
// after-all) are children of the run span.
package tracing

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/askiada/go-stagerun/pkg/pipeline/model"
)

const instrumentationName = "github.com/askiada/go-stagerun/pkg/pipeline"

// Attribute keys set on the spans.
const (
	RunIDKey    = attribute.Key("stagerun.run_id")
	PipelineKey = attribute.Key("stagerun.pipeline")
	StageKey    = attribute.Key("stagerun.stage")
	UnitKey     = attribute.Key("stagerun.unit")
	KindKey     = attribute.Key("stagerun.kind")
	JobKey      = attribute.Key("stagerun.job")
	JobsKey     = attribute.Key("stagerun.jobs")
)

// NewProvider returns a tracer provider exporting spans to wrt as JSON.
func NewProvider(serviceName, serviceVersion string, wrt io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(wrt))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create stdout exporter")
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create resource")
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	), nil
}

type runSpans struct {
	ctx   context.Context
	span  trace.Span
	stage context.Context
	units map[*model.UnitInfo]trace.Span
}

type pipelineTracer struct {
	tracer trace.Tracer

	mu   sync.Mutex
	runs map[string]*runSpans
}

// PipelineTracer returns an option creating spans with the tracers of tp.
// A nil tp uses the global tracer provider.
func PipelineTracer(tp trace.TracerProvider) model.PipelineOption {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &pipelineTracer{
		tracer: tp.Tracer(instrumentationName),
		runs:   make(map[string]*runSpans),
	}
}

func (pt *pipelineTracer) get(run *model.RunInfo) (*runSpans, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	spans, ok := pt.runs[run.ID]
	if !ok {
		return nil, errors.Errorf("no span for run %s", run.ID)
	}

	return spans, nil
}

func (pt *pipelineTracer) New(ctx context.Context, run *model.RunInfo) error {
	ctx, span := pt.tracer.Start(ctx, "pipeline "+run.Pipeline,
		trace.WithTimestamp(run.StartTime),
		trace.WithAttributes(
			RunIDKey.String(run.ID),
			PipelineKey.String(run.Pipeline),
			StageKey.StringSlice(run.Stages),
		),
	)

	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.runs[run.ID] = &runSpans{ctx: ctx, span: span, units: make(map[*model.UnitInfo]trace.Span)}

	return nil
}

func (pt *pipelineTracer) BeforeStage(_ context.Context, run *model.RunInfo, stage *model.StageInfo) error {
	spans, err := pt.get(run)
	if err != nil {
		return err
	}

	spans.stage, _ = pt.tracer.Start(spans.ctx, "stage "+stage.Name,
		trace.WithAttributes(
			RunIDKey.String(run.ID),
			StageKey.String(stage.Name),
			JobsKey.Int(stage.Jobs),
		),
	)

	return nil
}

func (pt *pipelineTracer) AfterStage(_ context.Context, run *model.RunInfo, _ *model.StageInfo, _ time.Duration) error {
	spans, err := pt.get(run)
	if err != nil {
		return err
	}

	endStage(spans, nil)

	return nil
}

func (pt *pipelineTracer) BeforeUnit(_ context.Context, run *model.RunInfo, unit *model.UnitInfo) error {
	spans, err := pt.get(run)
	if err != nil {
		return err
	}

	parent := spans.ctx
	if unit.Kind.Staged() && spans.stage != nil {
		parent = spans.stage
	}

	attrs := []attribute.KeyValue{
		RunIDKey.String(run.ID),
		UnitKey.String(unit.Name),
		KindKey.String(string(unit.Kind)),
	}
	if unit.Kind.Staged() {
		attrs = append(attrs, StageKey.String(unit.Stage))
	}

	if unit.Kind == model.BeforeEachKind || unit.Kind == model.AfterEachKind {
		attrs = append(attrs, JobKey.String(unit.Job))
	}

	_, span := pt.tracer.Start(parent, string(unit.Kind)+" "+unit.Name, trace.WithAttributes(attrs...))

	pt.mu.Lock()
	spans.units[unit] = span
	pt.mu.Unlock()

	return nil
}

func (pt *pipelineTracer) AfterUnit(_ context.Context, run *model.RunInfo, unit *model.UnitInfo, result model.UnitResult) error {
	spans, err := pt.get(run)
	if err != nil {
		return err
	}

	pt.mu.Lock()
	span, ok := spans.units[unit]
	delete(spans.units, unit)
	pt.mu.Unlock()

	if !ok {
		return errors.Errorf("no span for %s %s", unit.Kind, unit.Name)
	}

	setStatus(span, result.Err)
	span.End()

	return nil
}

func (pt *pipelineTracer) Finish(_ context.Context, run *model.RunInfo, result model.RunResult) error {
	spans, err := pt.get(run)
	if err != nil {
		return err
	}

	pt.mu.Lock()
	delete(pt.runs, run.ID)
	pt.mu.Unlock()

	// A failed stage never gets its AfterStage callback.
	endStage(spans, result.Err)

	spans.span.SetAttributes(attribute.Int("stagerun.jobs_run", result.JobsRun))
	setStatus(spans.span, result.Err)
	spans.span.End()

	return nil
}

func endStage(spans *runSpans, err error) {
	if spans.stage == nil {
		return
	}

	span := trace.SpanFromContext(spans.stage)
	setStatus(span, err)
	span.End()

	spans.stage = nil
}

func setStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return
	}

	span.SetStatus(codes.Ok, "")
}
