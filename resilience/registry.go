package resilience

import (
	"sync"
	"time"
)

// Kind identifies a primitive type within the registry.
type Kind string

const (
	KindCircuitBreaker  Kind = "circuit_breaker"
	KindRetry           Kind = "retry"
	KindBulkhead        Kind = "bulkhead"
	KindRateLimiter     Kind = "rate_limiter"
	KindAdaptiveTimeout Kind = "adaptive_timeout"
	KindFallback        Kind = "fallback"
)

// Registry holds named primitive instances so callers share breaker, retry,
// and bulkhead state per logical resource. Instances are created lazily on
// first request; repeat requests return the existing instance and ignore
// any differing config (first-writer-wins). Callers needing to reconfigure
// must Remove and recreate.
//
// The registry is an explicit object meant to be passed through a
// composition root, not ambient process-global state.
type Registry struct {
	mu        sync.RWMutex
	breakers  map[string]*CircuitBreaker
	retries   map[string]*Manager
	bulkheads map[string]*Bulkhead
	limiters  map[string]Limiter
	timeouts  map[string]*AdaptiveTimeout
	fallbacks map[string]*FallbackChain
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		retries:   make(map[string]*Manager),
		bulkheads: make(map[string]*Bulkhead),
		limiters:  make(map[string]Limiter),
		timeouts:  make(map[string]*AdaptiveTimeout),
		fallbacks: make(map[string]*FallbackChain),
	}
}

// CircuitBreaker returns the named breaker, creating it with the config on
// first use.
func (r *Registry) CircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cb = NewCircuitBreaker(config)
	r.breakers[name] = cb
	return cb
}

// Retry returns the named retry manager, creating it with the config on
// first use.
func (r *Registry) Retry(name string, config ManagerConfig) *Manager {
	r.mu.RLock()
	m, ok := r.retries[name]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.retries[name]; ok {
		return m
	}
	m = NewManager(config)
	r.retries[name] = m
	return m
}

// Bulkhead returns the named bulkhead, creating it with the config on
// first use.
func (r *Registry) Bulkhead(name string, config BulkheadConfig) *Bulkhead {
	r.mu.RLock()
	b, ok := r.bulkheads[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bulkheads[name]; ok {
		return b
	}
	b = NewBulkhead(config)
	r.bulkheads[name] = b
	return b
}

// TokenBucket returns the named limiter, creating a token bucket on first
// use. The name is shared across limiter algorithms: whichever algorithm
// claims it first wins.
func (r *Registry) TokenBucket(name string, config TokenBucketConfig) Limiter {
	return r.limiter(name, func() Limiter { return NewTokenBucket(config) })
}

// SlidingWindow returns the named limiter, creating a sliding window
// counter on first use.
func (r *Registry) SlidingWindow(name string, config SlidingWindowConfig) Limiter {
	return r.limiter(name, func() Limiter { return NewSlidingWindow(config) })
}

// LeakyBucket returns the named limiter, creating a leaky bucket on first
// use.
func (r *Registry) LeakyBucket(name string, config LeakyBucketConfig) Limiter {
	return r.limiter(name, func() Limiter { return NewLeakyBucket(config) })
}

func (r *Registry) limiter(name string, create func() Limiter) Limiter {
	r.mu.RLock()
	l, ok := r.limiters[name]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	l = create()
	r.limiters[name] = l
	return l
}

// AdaptiveTimeout returns the named adaptive timeout, creating it with the
// config on first use.
func (r *Registry) AdaptiveTimeout(name string, config AdaptiveTimeoutConfig) *AdaptiveTimeout {
	r.mu.RLock()
	at, ok := r.timeouts[name]
	r.mu.RUnlock()
	if ok {
		return at
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if at, ok := r.timeouts[name]; ok {
		return at
	}
	at = NewAdaptiveTimeout(config)
	r.timeouts[name] = at
	return at
}

// FallbackChain returns the named fallback chain, creating an empty one on
// first use.
func (r *Registry) FallbackChain(name string) *FallbackChain {
	r.mu.RLock()
	c, ok := r.fallbacks[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.fallbacks[name]; ok {
		return c
	}
	c = NewFallbackChain()
	r.fallbacks[name] = c
	return c
}

// Remove deletes a named instance so it can be recreated with a new
// config. Returns false if no such instance existed.
func (r *Registry) Remove(kind Kind, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case KindCircuitBreaker:
		if _, ok := r.breakers[name]; ok {
			delete(r.breakers, name)
			return true
		}
	case KindRetry:
		if _, ok := r.retries[name]; ok {
			delete(r.retries, name)
			return true
		}
	case KindBulkhead:
		if _, ok := r.bulkheads[name]; ok {
			delete(r.bulkheads, name)
			return true
		}
	case KindRateLimiter:
		if _, ok := r.limiters[name]; ok {
			delete(r.limiters, name)
			return true
		}
	case KindAdaptiveTimeout:
		if _, ok := r.timeouts[name]; ok {
			delete(r.timeouts, name)
			return true
		}
	case KindFallback:
		if _, ok := r.fallbacks[name]; ok {
			delete(r.fallbacks, name)
			return true
		}
	}
	return false
}

// Protect builds an executor composing the three named primitives around a
// protected operation in the fixed order bulkhead, then circuit breaker,
// then retry (innermost). The order is deliberate: the breaker admits a
// composed call once and observes the retry loop's final outcome, so a
// dependency that recovers within the retry budget never opens it.
func (r *Registry) Protect(bulkheadName string, breakerName string, retryName string) *Executor {
	return NewExecutor(
		WithBulkhead(r.Bulkhead(bulkheadName, BulkheadConfig{})),
		WithCircuitBreaker(r.CircuitBreaker(breakerName, CircuitBreakerConfig{})),
		WithRetryManager(r.Retry(retryName, ManagerConfig{})),
	)
}

// CircuitBreakerStats is the JSON snapshot for a named breaker.
type CircuitBreakerStats struct {
	State                string `json:"state"`
	ConsecutiveFailures  int    `json:"consecutive_failures"`
	ConsecutiveSuccesses int    `json:"consecutive_successes"`
	TotalRequests        int64  `json:"total_requests"`
	TotalFailures        int64  `json:"total_failures"`
	Rejected             int64  `json:"rejected"`
}

// RetryStats is the JSON snapshot for a named retry manager.
type RetryStats struct {
	TotalRequests int64   `json:"total_requests"`
	TotalRetries  int64   `json:"total_retries"`
	BudgetDenials int64   `json:"budget_denials"`
	RetryRatePct  float64 `json:"retry_rate_percent"`
	WithinBudget  bool    `json:"within_budget"`
	CachedResults int     `json:"cached_results"`
}

// BulkheadStats is the JSON snapshot for a named bulkhead.
type BulkheadStats struct {
	Active         int     `json:"active_calls"`
	Queued         int     `json:"queued_calls"`
	MaxConcurrent  int     `json:"max_concurrent"`
	UtilizationPct float64 `json:"utilization_percent"`
	Rejected       int64   `json:"rejected_calls"`
	TimedOut       int64   `json:"timed_out_calls"`
}

// LimiterStats is the JSON snapshot for a named rate limiter.
type LimiterStats struct {
	Algorithm string  `json:"algorithm"`
	Allowed   int64   `json:"allowed"`
	Denied    int64   `json:"denied"`
	Level     float64 `json:"level"`
	Capacity  int     `json:"capacity"`
}

// TimeoutStats is the JSON snapshot for a named adaptive timeout.
type TimeoutStats struct {
	Samples          int   `json:"samples"`
	P50Ms            int64 `json:"p50_ms"`
	P95Ms            int64 `json:"p95_ms"`
	P99Ms            int64 `json:"p99_ms"`
	CurrentTimeoutMs int64 `json:"current_timeout_ms"`
}

// FallbackStats is the JSON snapshot for a named fallback chain.
type FallbackStats struct {
	Executions int64            `json:"executions"`
	Degraded   int64            `json:"degraded"`
	ByLevel    map[string]int64 `json:"by_level,omitempty"`
}

// Stats is a timestamped snapshot across every named instance.
type Stats struct {
	Timestamp       string                         `json:"timestamp"`
	CircuitBreakers map[string]CircuitBreakerStats `json:"circuit_breakers,omitempty"`
	Retries         map[string]RetryStats          `json:"retries,omitempty"`
	Bulkheads       map[string]BulkheadStats       `json:"bulkheads,omitempty"`
	RateLimiters    map[string]LimiterStats        `json:"rate_limiters,omitempty"`
	Timeouts        map[string]TimeoutStats        `json:"adaptive_timeouts,omitempty"`
	Fallbacks       map[string]FallbackStats       `json:"fallbacks,omitempty"`
}

func snapshotBreaker(cb *CircuitBreaker) CircuitBreakerStats {
	m := cb.Metrics()
	return CircuitBreakerStats{
		State:                m.State.String(),
		ConsecutiveFailures:  m.ConsecutiveFailures,
		ConsecutiveSuccesses: m.ConsecutiveSuccesses,
		TotalRequests:        m.TotalRequests,
		TotalFailures:        m.TotalFailures,
		Rejected:             m.Rejected,
	}
}

func snapshotRetry(mgr *Manager) RetryStats {
	m := mgr.Metrics()
	return RetryStats{
		TotalRequests: m.TotalRequests,
		TotalRetries:  m.TotalRetries,
		BudgetDenials: m.BudgetDenials,
		RetryRatePct:  m.RetryRatePct,
		WithinBudget:  m.WithinBudget,
		CachedResults: m.CachedResults,
	}
}

func snapshotBulkhead(b *Bulkhead) BulkheadStats {
	m := b.Metrics()
	return BulkheadStats{
		Active:         m.Active,
		Queued:         m.Queued,
		MaxConcurrent:  m.MaxConcurrent,
		UtilizationPct: m.UtilizationPct,
		Rejected:       m.Rejected,
		TimedOut:       m.TimedOut,
	}
}

func snapshotLimiter(l Limiter) (LimiterStats, bool) {
	lm, ok := l.(interface{ Metrics() LimiterMetrics })
	if !ok {
		return LimiterStats{}, false
	}
	m := lm.Metrics()
	return LimiterStats{
		Algorithm: m.Algorithm,
		Allowed:   m.Allowed,
		Denied:    m.Denied,
		Level:     m.Level,
		Capacity:  m.Capacity,
	}, true
}

func snapshotTimeout(at *AdaptiveTimeout) TimeoutStats {
	s := at.Snapshot()
	return TimeoutStats{
		Samples:          s.Samples,
		P50Ms:            s.P50.Milliseconds(),
		P95Ms:            s.P95.Milliseconds(),
		P99Ms:            s.P99.Milliseconds(),
		CurrentTimeoutMs: s.CurrentTimeout.Milliseconds(),
	}
}

func snapshotFallback(c *FallbackChain) FallbackStats {
	m := c.Metrics()
	return FallbackStats{
		Executions: m.Executions,
		Degraded:   m.Degraded,
		ByLevel:    m.ByLevel,
	}
}

// Stats returns the snapshot for one named instance. The concrete type
// matches the kind: CircuitBreakerStats, RetryStats, BulkheadStats,
// LimiterStats, TimeoutStats, or FallbackStats. ok is false when nothing
// is registered under the name.
func (r *Registry) Stats(kind Kind, name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch kind {
	case KindCircuitBreaker:
		if cb, ok := r.breakers[name]; ok {
			return snapshotBreaker(cb), true
		}
	case KindRetry:
		if m, ok := r.retries[name]; ok {
			return snapshotRetry(m), true
		}
	case KindBulkhead:
		if b, ok := r.bulkheads[name]; ok {
			return snapshotBulkhead(b), true
		}
	case KindRateLimiter:
		if l, ok := r.limiters[name]; ok {
			if s, ok := snapshotLimiter(l); ok {
				return s, true
			}
		}
	case KindAdaptiveTimeout:
		if at, ok := r.timeouts[name]; ok {
			return snapshotTimeout(at), true
		}
	case KindFallback:
		if c, ok := r.fallbacks[name]; ok {
			return snapshotFallback(c), true
		}
	}
	return nil, false
}

// ComprehensiveStats aggregates the counters of every named instance.
func (r *Registry) ComprehensiveStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if len(r.breakers) > 0 {
		stats.CircuitBreakers = make(map[string]CircuitBreakerStats, len(r.breakers))
		for name, cb := range r.breakers {
			stats.CircuitBreakers[name] = snapshotBreaker(cb)
		}
	}

	if len(r.retries) > 0 {
		stats.Retries = make(map[string]RetryStats, len(r.retries))
		for name, mgr := range r.retries {
			stats.Retries[name] = snapshotRetry(mgr)
		}
	}

	if len(r.bulkheads) > 0 {
		stats.Bulkheads = make(map[string]BulkheadStats, len(r.bulkheads))
		for name, b := range r.bulkheads {
			stats.Bulkheads[name] = snapshotBulkhead(b)
		}
	}

	if len(r.limiters) > 0 {
		stats.RateLimiters = make(map[string]LimiterStats, len(r.limiters))
		for name, l := range r.limiters {
			if s, ok := snapshotLimiter(l); ok {
				stats.RateLimiters[name] = s
			}
		}
	}

	if len(r.timeouts) > 0 {
		stats.Timeouts = make(map[string]TimeoutStats, len(r.timeouts))
		for name, at := range r.timeouts {
			stats.Timeouts[name] = snapshotTimeout(at)
		}
	}

	if len(r.fallbacks) > 0 {
		stats.Fallbacks = make(map[string]FallbackStats, len(r.fallbacks))
		for name, c := range r.fallbacks {
			stats.Fallbacks[name] = snapshotFallback(c)
		}
	}

	return stats
}
