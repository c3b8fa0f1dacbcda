package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Operation is a protected operation: a zero-argument callable producing a
// result. The engine never inspects the result beyond caching and
// propagating it.
type Operation func(ctx context.Context) (any, error)

// ManagerConfig configures a retry Manager.
type ManagerConfig struct {
	// Retry configures attempts, backoff, and jitter.
	Retry RetryConfig

	// Budget configures the sliding-window retry budget.
	Budget BudgetConfig

	// IdempotencyTTL is how long cached keyed results live.
	// Default: 1 hour
	IdempotencyTTL time.Duration
}

// Manager retries operations with backoff under a global retry budget and
// deduplicates keyed operations through an idempotency cache.
//
// Concurrent calls presenting the same in-flight idempotency key coalesce:
// the second caller waits for and receives the first caller's result
// instead of executing the operation twice.
type Manager struct {
	retry  *Retry
	budget *Budget
	cache  *IdempotencyCache
	group  singleflight.Group

	mu            sync.Mutex
	totalRequests int64
	totalRetries  int64
	budgetDenials int64
}

// NewManager creates a new retry manager.
func NewManager(config ManagerConfig) *Manager {
	return &Manager{
		retry:  NewRetry(config.Retry),
		budget: NewBudget(config.Budget),
		cache:  NewIdempotencyCache(config.IdempotencyTTL),
	}
}

// Do runs the operation with retries, without idempotency deduplication.
func (m *Manager) Do(ctx context.Context, op Operation) (any, error) {
	return m.run(ctx, "", op)
}

// DoKeyed runs the operation with retries under an idempotency key.
// An unexpired cached result for the key is returned without invoking the
// operation; otherwise the first success is cached. Concurrent calls with
// the same key coalesce into a single execution.
func (m *Manager) DoKeyed(ctx context.Context, key string, op Operation) (any, error) {
	if key == "" {
		return m.run(ctx, "", op)
	}

	if v, ok := m.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// Re-check under the flight: a completed sibling may have
		// populated the cache between our miss and our turn.
		if v, ok := m.cache.Get(key); ok {
			return v, nil
		}
		return m.run(ctx, key, op)
	})
	return v, err
}

func (m *Manager) run(ctx context.Context, key string, op Operation) (any, error) {
	cfg := m.retry.Config()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		isRetry := attempt > 1

		m.budget.Record(isRetry)
		m.mu.Lock()
		m.totalRequests++
		if isRetry {
			m.totalRetries++
		}
		m.mu.Unlock()

		res, err := op(ctx)
		if err == nil {
			if key != "" {
				m.cache.Set(key, res)
			}
			return res, nil
		}

		lastErr = err

		// Non-retryable errors fail immediately.
		if !cfg.RetryIf(err) {
			return nil, err
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		// Consult the budget before sleeping: over budget means fail
		// fast, not retry.
		if !m.budget.Allow() {
			m.mu.Lock()
			m.budgetDenials++
			m.mu.Unlock()
			return nil, ErrRetryBudgetExceeded
		}

		delay := m.retry.calculateDelay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, &RetriesExhaustedError{Attempts: cfg.MaxAttempts, Err: lastErr}
}

// Budget returns the manager's retry budget.
func (m *Manager) Budget() *Budget {
	return m.budget
}

// Cache returns the manager's idempotency cache.
func (m *Manager) Cache() *IdempotencyCache {
	return m.cache
}

// Metrics returns current retry manager metrics.
func (m *Manager) Metrics() ManagerMetrics {
	budget := m.budget.Metrics()

	m.mu.Lock()
	defer m.mu.Unlock()

	return ManagerMetrics{
		TotalRequests: m.totalRequests,
		TotalRetries:  m.totalRetries,
		BudgetDenials: m.budgetDenials,
		RetryRatePct:  budget.RetryRatePct,
		WithinBudget:  budget.WithinBudget,
		CachedResults: m.cache.Len(),
	}
}

// ManagerMetrics contains retry manager statistics.
type ManagerMetrics struct {
	TotalRequests int64
	TotalRetries  int64
	BudgetDenials int64
	RetryRatePct  float64
	WithinBudget  bool
	CachedResults int
}
