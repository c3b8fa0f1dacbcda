package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature for protected operations this package wraps.
type ExecuteFunc func(ctx context.Context) (any, error)

// DenialReason maps a resilience fail-fast error onto a metrics label.
// Returns "" for errors that are not fail-fast denials.
type DenialReason func(err error) string

// Middleware wraps protected-operation execution with observability
// (tracing, metrics, logging). It composes around the resilience
// primitives by nesting, the same way the primitives compose with each
// other.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: propagates context through tracing spans.
//   - Errors: errors from the wrapped function are recorded and propagated
//     unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger

	// denialReason classifies fail-fast errors for the denial counter.
	denialReason DenialReason
}

// NewMiddleware creates a new Middleware with the given observability
// components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// WithDenialReason installs a classifier that labels fail-fast denials.
func (m *Middleware) WithDenialReason(fn DenialReason) *Middleware {
	m.denialReason = fn
	return m
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging for the
// given operation.
func (m *Middleware) Wrap(meta OpMeta, fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		result, err := fn(ctx)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, meta, duration, err)

		if err != nil && m.denialReason != nil {
			if reason := m.denialReason(err); reason != "" {
				m.metrics.RecordDenial(ctx, meta, reason)
			}
		}

		opLogger := m.logger.WithOp(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			opLogger.Error(ctx, "protected operation failed", fields...)
		} else {
			opLogger.Info(ctx, "protected operation completed", fields...)
		}

		return result, err
	}
}

// BreakerHook returns a callback that records breaker transitions for the
// operation. It takes plain state names so this package stays decoupled
// from the resilience package; adapt it to a breaker's OnStateChange with
// a one-line closure calling String() on both states.
func (m *Middleware) BreakerHook(meta OpMeta) func(from, to string) {
	return func(from, to string) {
		ctx := context.Background()
		m.metrics.RecordStateChange(ctx, meta, from, to)
		m.logger.WithOp(meta).Warn(ctx, "circuit breaker state change",
			Field{Key: "from", Value: from},
			Field{Key: "to", Value: to},
		)
	}
}

// RetryHook returns an OnRetry callback that records retry attempts.
func (m *Middleware) RetryHook(meta OpMeta) func(attempt int, err error, delay time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		ctx := context.Background()
		m.metrics.RecordRetry(ctx, meta, attempt)
		m.logger.WithOp(meta).Debug(ctx, "retrying operation",
			Field{Key: "attempt", Value: attempt},
			Field{Key: "delay_ms", Value: float64(delay.Milliseconds())},
			Field{Key: "error", Value: err.Error()},
		)
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
