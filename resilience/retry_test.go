package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", r.config.MaxAttempts)
	}
	if r.config.InitialDelay != 100*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 100ms", r.config.InitialDelay)
	}
	if r.config.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", r.config.MaxDelay)
	}
	if r.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", r.config.Multiplier)
	}
	if r.config.Strategy != BackoffExponential {
		t.Errorf("Strategy = %v, want exponential", r.config.Strategy)
	}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3})

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	})

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	})

	cause := errors.New("persistent failure")
	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return cause
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	var exhausted *RetriesExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Execute() error = %v, want RetriesExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Error("exhausted error should wrap the last cause")
	}
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	fatal := errors.New("fatal")

	r := NewRetry(RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		RetryIf: func(err error) bool {
			return err != fatal
		},
	})

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})

	if err != fatal {
		t.Errorf("Execute() error = %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ExponentialBackoffTiming(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
	})

	start := time.Now()
	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})
	elapsed := time.Since(start)

	// 3 attempts with delays of 100ms and 200ms between them.
	if elapsed < 300*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 300ms", elapsed)
	}
	if elapsed > 600*time.Millisecond {
		t.Errorf("elapsed = %v, want < 600ms", elapsed)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := r.Execute(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	if err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int

	r := NewRetry(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		},
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})

	// Called before each retry, not before the first attempt.
	if len(attempts) != 2 {
		t.Fatalf("OnRetry called %d times, want 2", len(attempts))
	}
	if attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("attempts = %v, want [1 2]", attempts)
	}
}

func TestRetry_CalculateDelay(t *testing.T) {
	tests := []struct {
		name     string
		strategy BackoffStrategy
		attempt  int
		want     time.Duration
	}{
		{"constant attempt 1", BackoffConstant, 1, 100 * time.Millisecond},
		{"constant attempt 3", BackoffConstant, 3, 100 * time.Millisecond},
		{"linear attempt 1", BackoffLinear, 1, 100 * time.Millisecond},
		{"linear attempt 3", BackoffLinear, 3, 300 * time.Millisecond},
		{"exponential attempt 1", BackoffExponential, 1, 100 * time.Millisecond},
		{"exponential attempt 2", BackoffExponential, 2, 200 * time.Millisecond},
		{"exponential attempt 4", BackoffExponential, 4, 800 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{
				InitialDelay: 100 * time.Millisecond,
				Multiplier:   2.0,
				Strategy:     tt.strategy,
			})
			if got := r.calculateDelay(tt.attempt); got != tt.want {
				t.Errorf("calculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetry_CalculateDelay_CappedAtMax(t *testing.T) {
	r := NewRetry(RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Multiplier:   2.0,
	})

	if got := r.calculateDelay(10); got != 500*time.Millisecond {
		t.Errorf("calculateDelay(10) = %v, want 500ms", got)
	}
}

func TestRetry_CalculateDelay_Jitter(t *testing.T) {
	r := NewRetry(RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		Strategy:     BackoffConstant,
		JitterPct:    0.5,
	})

	lo := 50 * time.Millisecond
	hi := 150 * time.Millisecond

	for i := 0; i < 100; i++ {
		d := r.calculateDelay(1)
		if d < lo || d > hi {
			t.Fatalf("calculateDelay() = %v, want within [%v, %v]", d, lo, hi)
		}
	}
}

func TestRetryOnStatus(t *testing.T) {
	retryIf := RetryOnStatus(429, 503)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"retryable status", &StatusError{Code: 429, Err: errors.New("throttled")}, true},
		{"non-retryable status", &StatusError{Code: 400, Err: errors.New("bad request")}, false},
		{"no status code", errors.New("plain error"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryIf(tt.err); got != tt.want {
				t.Errorf("retryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoffStrategy_String(t *testing.T) {
	tests := []struct {
		strategy BackoffStrategy
		want     string
	}{
		{BackoffExponential, "exponential"},
		{BackoffLinear, "linear"},
		{BackoffConstant, "constant"},
		{BackoffStrategy(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.strategy.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
