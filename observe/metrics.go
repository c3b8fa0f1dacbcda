package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records resilience telemetry for protected operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records a protected-operation execution with
	// duration and error status.
	RecordExecution(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordDenial records a fail-fast denial (circuit open, bulkhead
	// full, rate limited, retry budget exceeded).
	RecordDenial(ctx context.Context, meta OpMeta, reason string)

	// RecordRetry records a retry attempt.
	RecordRetry(ctx context.Context, meta OpMeta, attempt int)

	// RecordStateChange records a circuit breaker state transition.
	RecordStateChange(ctx context.Context, meta OpMeta, from, to string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	denialCount  metric.Int64Counter
	retryCount   metric.Int64Counter
	transitions  metric.Int64Counter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"resilience.exec.total",
		metric.WithDescription("Total number of protected-operation executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"resilience.exec.errors",
		metric.WithDescription("Total number of protected-operation failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"resilience.exec.duration_ms",
		metric.WithDescription("Protected-operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	denialCount, err := meter.Int64Counter(
		"resilience.denied.total",
		metric.WithDescription("Fail-fast denials by reason"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"resilience.retry.attempts",
		metric.WithDescription("Retry attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"resilience.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		denialCount:  denialCount,
		retryCount:   retryCount,
		transitions:  transitions,
	}, nil
}

func (m *metricsImpl) opAttrs(meta OpMeta) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("op.id", meta.ID()),
		attribute.String("op.name", meta.Op),
	}
	if meta.Resource != "" {
		attrs = append(attrs, attribute.String("op.resource", meta.Resource))
	}
	return attrs
}

// RecordExecution records metrics for a protected-operation execution.
func (m *metricsImpl) RecordExecution(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(m.opAttrs(meta)...)

	m.totalCount.Add(ctx, 1, opt)

	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordDenial records a fail-fast denial.
func (m *metricsImpl) RecordDenial(ctx context.Context, meta OpMeta, reason string) {
	attrs := append(m.opAttrs(meta), attribute.String("reason", reason))
	m.denialCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRetry records a retry attempt.
func (m *metricsImpl) RecordRetry(ctx context.Context, meta OpMeta, attempt int) {
	attrs := append(m.opAttrs(meta), attribute.Int("attempt", attempt))
	m.retryCount.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStateChange records a circuit breaker state transition.
func (m *metricsImpl) RecordStateChange(ctx context.Context, meta OpMeta, from, to string) {
	attrs := append(m.opAttrs(meta),
		attribute.String("from", from),
		attribute.String("to", to),
	)
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordExecution(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
}
func (m *noopMetrics) RecordDenial(ctx context.Context, meta OpMeta, reason string)       {}
func (m *noopMetrics) RecordRetry(ctx context.Context, meta OpMeta, attempt int)          {}
func (m *noopMetrics) RecordStateChange(ctx context.Context, meta OpMeta, from, to string) {}
