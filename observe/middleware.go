package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature of an operation invocation that Middleware wraps.
type ExecuteFunc func(ctx context.Context, meta OperationMeta, params map[string]any) (any, error)

// Middleware wraps operation invocations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Params and results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, meta OperationMeta, params map[string]any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta.SpanName(), meta.Attributes()...)

		start := time.Now()
		result, err := fn(ctx, meta, params)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordOperation(ctx, meta, duration, err)

		logger := m.logger.With(F("operation.type", meta.Type), F("resilience.target", meta.Target))
		fields := []Field{F("duration_ms", float64(duration.Milliseconds()))}
		if err != nil {
			fields = append(fields, F("error", err.Error()))
			logger.Error(ctx, "operation failed", fields...)
		} else {
			logger.Debug(ctx, "operation completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromInstruments creates a Middleware from derived instruments.
func MiddlewareFromInstruments(in *Instruments) *Middleware {
	return NewMiddleware(in.Tracer, in.Metrics, in.Logger)
}
