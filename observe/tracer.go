package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/assetmigrate/failure"
)

// Span names emitted by the engine.
const (
	SpanBatchProcess = "batch.process"
	SpanBatchItem    = "batch.item"
)

// OperationMeta describes one provider operation for telemetry purposes.
type OperationMeta struct {
	Type     string // Operation type id (required)
	Target   string // Resilience target the call runs under
	Provider string // Provider id (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: operation.<type>
func (m OperationMeta) SpanName() string {
	return "operation." + m.Type
}

// Attributes returns the span and metric attributes for the operation.
func (m OperationMeta) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("operation.type", m.Type),
	}
	if m.Target != "" {
		attrs = append(attrs, attribute.String("resilience.target", m.Target))
	}
	if m.Provider != "" {
		attrs = append(attrs, attribute.String("provider.id", m.Provider))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with engine span conventions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new internal span.
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status and kind if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", failure.KindOf(err).String()))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer whose spans are never recorded.
func NopTracer() Tracer {
	return NewTracer(tracenoop.NewTracerProvider().Tracer("noop"))
}
