package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_NoPatterns(t *testing.T) {
	e := NewExecutor()

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecutor_AllPatterns(t *testing.T) {
	e := NewExecutor(
		WithRateLimiter(NewTokenBucket(TokenBucketConfig{Capacity: 10, RefillRate: 100})),
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 5})),
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
		WithAdaptiveTimeout(NewAdaptiveTimeout(AdaptiveTimeoutConfig{Ceiling: time.Second})),
	)

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecutor_RateLimiterOutermost(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 5})
	e := NewExecutor(
		WithRateLimiter(NewTokenBucket(TokenBucketConfig{Capacity: 1, RefillRate: 0.001})),
		WithBulkhead(bh),
	)

	_ = e.Execute(context.Background(), func(ctx context.Context) error { return nil })

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("operation should not run when rate limited")
		return nil
	})
	if err != ErrRateLimitExceeded {
		t.Errorf("Execute() = %v, want ErrRateLimitExceeded", err)
	}

	// The denial happened before the bulkhead: no slot was consumed.
	if got := bh.Metrics().MaxActive; got != 1 {
		t.Errorf("MaxActive = %d, want 1", got)
	}
}

func TestExecutor_OpenBreakerSkipsRetry(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	calls := 0
	_ = e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	// The retry loop ran inside the breaker: 3 attempts, one admission.
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	// Open breaker fails fast without invoking retries at all.
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != ErrCircuitOpen {
		t.Errorf("Execute() = %v, want ErrCircuitOpen", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d after short-circuit, want 3", calls)
	}
}

func TestExecutor_BreakerSeesOneOutcomePerComposedCall(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	// The operation fails twice then recovers within the retry budget.
	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flap")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() = %v", err)
	}
	// The breaker saw one successful composed call, not two failures.
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
	if got := cb.Metrics().ConsecutiveFailures; got != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", got)
	}
}

func TestExecutor_WithRetryManager(t *testing.T) {
	m := NewManager(ManagerConfig{
		Retry:  RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond},
		Budget: BudgetConfig{MaxRetryPct: 100},
	})
	e := NewExecutor(WithRetryManager(m))

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if got := m.Metrics().TotalRetries; got != 1 {
		t.Errorf("manager TotalRetries = %d, want 1", got)
	}
}

func TestExecutor_RetryManagerPrecedence(t *testing.T) {
	m := NewManager(ManagerConfig{
		Retry: RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond},
	})
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond})),
		WithRetryManager(m),
	)

	calls := 0
	_ = e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	// The manager's 2 attempts, not the plain retry's 5.
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestExecutor_BulkheadPriority(t *testing.T) {
	bh := NewBulkhead(BulkheadConfig{
		MaxConcurrent: 1,
		MaxQueue:      2,
		MaxWait:       time.Second,
	})

	e := NewExecutor(WithBulkhead(bh), WithPriority(PriorityCritical))

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- e.Execute(context.Background(), func(ctx context.Context) error {
			return nil
		})
	}()

	deadline := time.Now().Add(time.Second)
	for bh.Metrics().Queued == 0 {
		if time.Now().After(deadline) {
			t.Fatal("executor call never queued")
		}
		time.Sleep(time.Millisecond)
	}

	bh.Release()
	if err := <-done; err != nil {
		t.Errorf("Execute() = %v", err)
	}
}

func TestExecutor_TimeoutInnermost(t *testing.T) {
	at := NewAdaptiveTimeout(AdaptiveTimeoutConfig{Ceiling: 20 * time.Millisecond})
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
		WithAdaptiveTimeout(at),
	)

	calls := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	// Each attempt timed out individually and the timeout error was
	// retried.
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (timeout per attempt, then retried)", calls)
	}

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Execute() = %v, want RetriesExhaustedError", err)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("cause = %v, want ErrTimeout", exhausted.Err)
	}
}
