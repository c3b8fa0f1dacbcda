// Package resilience provides composable failure-handling primitives.
//
// Each primitive is a self-contained concurrent state machine guarded by a
// single mutex; none depends on another's internal state. Composition is
// by nesting calls, never shared locking, so there is no cross-primitive
// lock ordering to get wrong.
//
// # Primitives
//
//   - Circuit Breaker: fails fast once a dependency crosses a consecutive
//     failure threshold, probing for recovery after a cool-down.
//
//   - Retry Manager: retries with configurable backoff and jitter under a
//     sliding-window retry budget, deduplicating keyed operations through
//     an idempotency cache.
//
//   - Bulkhead: bounds concurrent execution with a priority-ordered,
//     bounded wait queue.
//
//   - Adaptive Timeout: derives a dynamic deadline from the rolling p95 of
//     observed latencies.
//
//   - Fallback Chain: tries an ordered list of degraded alternatives until
//     one succeeds.
//
//   - Rate Limiters: token bucket, sliding window counter, and leaky
//     bucket, all answering "allow now?" without blocking.
//
// # Usage
//
// Primitives can be used independently or composed:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    ResetTimeout:     time.Minute,
//	})
//
//	mgr := resilience.NewManager(resilience.ManagerConfig{
//	    Retry:  resilience.RetryConfig{MaxAttempts: 3},
//	    Budget: resilience.BudgetConfig{MaxRetryPct: 20},
//	})
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{
//	    MaxConcurrent: 8,
//	    MaxQueue:      16,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithBulkhead(bh),
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetryManager(mgr),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalService(ctx)
//	})
//
// A Registry hands out named, shared instances so independent callers
// protecting the same logical resource share breaker, retry, and bulkhead
// state:
//
//	reg := resilience.NewRegistry()
//	exec := reg.Protect("db-pool", "db-breaker", "db-retry")
//
// All state is local to the process and none of it survives a restart;
// the package performs no distributed coordination.
package resilience
