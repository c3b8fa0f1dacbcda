package resilience

import (
	"context"
)

// Executor composes multiple resilience patterns around one operation.
type Executor struct {
	rateLimiter  *TokenBucket
	bulkhead     *Bulkhead
	circuit      *CircuitBreaker
	retry        *Retry
	retryManager *Manager
	timeout      *AdaptiveTimeout
	priority     Priority
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{priority: PriorityMedium}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter adds rate limiting to the executor.
func WithRateLimiter(tb *TokenBucket) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = tb
	}
}

// WithBulkhead adds bulkhead isolation to the executor.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithPriority sets the bulkhead priority for this executor's operations.
func WithPriority(p Priority) ExecutorOption {
	return func(e *Executor) {
		e.priority = p
	}
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuit = cb
	}
}

// WithRetry adds plain retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
		e.retryManager = nil
	}
}

// WithRetryManager adds budget-aware, idempotency-capable retry logic to
// the executor. Takes precedence over WithRetry.
func WithRetryManager(m *Manager) ExecutorOption {
	return func(e *Executor) {
		e.retryManager = m
		e.retry = nil
	}
}

// WithAdaptiveTimeout adds a latency-tracking timeout to the executor.
func WithAdaptiveTimeout(at *AdaptiveTimeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = at
	}
}

// Execute runs the operation through all configured resilience patterns.
//
// The execution order, outermost first, is:
//  1. Rate Limiter - limits request rate
//  2. Bulkhead - limits concurrency
//  3. Circuit Breaker - fails fast on a broken dependency
//  4. Retry - retries on failure
//  5. Adaptive Timeout - bounds each attempt's duration
//
// The order is part of the contract: retries run inside the circuit
// breaker, so the breaker observes one outcome per composed call rather
// than one per attempt. Moving the retry outside the breaker would make
// the breaker open faster under flapping failures.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	// Build the execution chain from inside out
	execute := op

	// Wrap with adaptive timeout (innermost)
	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	// Wrap with retry
	switch {
	case e.retryManager != nil:
		inner := execute
		execute = func(ctx context.Context) error {
			_, err := e.retryManager.Do(ctx, func(ctx context.Context) (any, error) {
				return nil, inner(ctx)
			})
			return err
		}
	case e.retry != nil:
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	// Wrap with circuit breaker
	if e.circuit != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuit.Execute(ctx, inner)
		}
	}

	// Wrap with bulkhead
	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.bulkhead.ExecutePriority(ctx, e.priority, inner)
		}
	}

	// Wrap with rate limiter (outermost)
	if e.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}
