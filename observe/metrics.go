package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/assetmigrate/failure"
)

// Metrics records engine metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one call through a resilience policy.
	RecordCall(ctx context.Context, target string, duration time.Duration, err error)

	// RecordTransition records a circuit breaker state change.
	RecordTransition(ctx context.Context, target, from, to string)

	// RecordBatch records a finished batch.
	RecordBatch(ctx context.Context, status string, total, failed int, duration time.Duration)

	// RecordOperation records one provider operation invocation.
	RecordOperation(ctx context.Context, meta OperationMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	callTotal    metric.Int64Counter
	callErrors   metric.Int64Counter
	callDuration metric.Float64Histogram
	transitions  metric.Int64Counter

	batchItems    metric.Int64Counter
	batchFailed   metric.Int64Counter
	batchDuration metric.Float64Histogram

	opTotal    metric.Int64Counter
	opErrors   metric.Int64Counter
	opDuration metric.Float64Histogram
}

// NewMetrics creates Metrics backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.callTotal, "resilience.calls.total", "Total number of calls through resilience policies", "{call}"},
		{&m.callErrors, "resilience.calls.errors", "Calls through resilience policies that failed", "{error}"},
		{&m.transitions, "resilience.circuit.transitions", "Circuit breaker state transitions", "{transition}"},
		{&m.batchItems, "batch.items.total", "Items dispatched by batch runs", "{item}"},
		{&m.batchFailed, "batch.items.failed", "Items that failed in batch runs", "{item}"},
		{&m.opTotal, "operation.exec.total", "Total number of provider operation invocations", "{call}"},
		{&m.opErrors, "operation.exec.errors", "Provider operation invocations that failed", "{error}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.callDuration, "resilience.call.duration_ms", "Duration of calls through resilience policies in milliseconds"},
		{&m.batchDuration, "batch.duration_ms", "Batch wall-clock duration in milliseconds"},
		{&m.opDuration, "operation.exec.duration_ms", "Provider operation duration in milliseconds"},
	}
	for _, h := range histograms {
		*h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("ms"))
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, target string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("resilience.target", target))
	m.callTotal.Add(ctx, 1, opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("resilience.target", target),
			attribute.String("error.kind", failure.KindOf(err).String()),
		))
	}
	m.callDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordTransition(ctx context.Context, target, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resilience.target", target),
		attribute.String("circuit.from", from),
		attribute.String("circuit.to", to),
	))
}

func (m *metricsImpl) RecordBatch(ctx context.Context, status string, total, failed int, duration time.Duration) {
	opt := metric.WithAttributes(attribute.String("batch.status", status))
	m.batchItems.Add(ctx, int64(total), opt)
	m.batchFailed.Add(ctx, int64(failed), opt)
	m.batchDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta OperationMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.Attributes()...)
	m.opTotal.Add(ctx, 1, opt)
	if err != nil {
		m.opErrors.Add(ctx, 1, opt)
	}
	m.opDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// NopMetrics returns a Metrics implementation that does nothing.
func NopMetrics() Metrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) RecordCall(context.Context, string, time.Duration, error)             {}
func (nopMetrics) RecordTransition(context.Context, string, string, string)             {}
func (nopMetrics) RecordBatch(context.Context, string, int, int, time.Duration)         {}
func (nopMetrics) RecordOperation(context.Context, OperationMeta, time.Duration, error) {}
