// Package oteltrace records scurry migration runs as OpenTelemetry spans: one span per run with a
// child span per applied script.
package oteltrace

import (
	"context"
	"sync"

	"github.com/scurrydb/scurry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/scurrydb/scurry"

// Observer is a scurry.Observer that emits spans. A single Observer follows one run at a time,
// which matches how a Session is driven.
type Observer struct {
	tracer trace.Tracer

	mu     sync.Mutex
	runCtx context.Context
	run    trace.Span
	script trace.Span
}

var _ scurry.Observer = (*Observer)(nil)

// New returns an Observer using tp, or the global TracerProvider when tp is nil.
func New(tp trace.TracerProvider) *Observer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Observer{tracer: tp.Tracer(instrumentationName)}
}

// Observe implements scurry.Observer.
func (o *Observer) Observe(ctx context.Context, e scurry.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch e.Type {
	case scurry.RunStarted:
		o.runCtx, o.run = o.tracer.Start(ctx, "scurry.migrate")
	case scurry.LockAcquired, scurry.HistoryValidated, scurry.PlanComputed:
		if o.run != nil {
			o.run.AddEvent(e.Type.String(), trace.WithAttributes(attribute.Int("scurry.count", e.Count)))
		}
	case scurry.ScriptStarted:
		parent := ctx
		if o.runCtx != nil {
			parent = o.runCtx
		}
		_, o.script = o.tracer.Start(parent, "scurry.apply "+e.Version, trace.WithAttributes(
			attribute.String("scurry.version", e.Version),
			attribute.String("scurry.name", e.Name),
		))
	case scurry.ScriptApplied:
		if o.script != nil {
			o.script.End()
			o.script = nil
		}
	case scurry.ScriptFailed:
		if o.script != nil {
			fail(o.script, e.Err)
			o.script.End()
			o.script = nil
		}
	case scurry.RunFinished:
		if o.run == nil {
			return
		}
		o.run.SetAttributes(attribute.Int("scurry.applied", e.Count))
		if e.Err != nil {
			fail(o.run, e.Err)
		}
		o.run.End()
		o.run, o.runCtx = nil, nil
	case scurry.SchemaLevelSet:
		_, span := o.tracer.Start(ctx, "scurry.mark", trace.WithAttributes(
			attribute.Int("scurry.count", e.Count),
		))
		span.End()
	}
}

func fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
