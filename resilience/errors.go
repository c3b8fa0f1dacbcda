package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker short-circuits a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrBulkheadFull is returned when both the bulkhead pool and its queue
	// are at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrBulkheadTimeout is returned when a queued caller's wait expires
	// before a slot becomes available.
	ErrBulkheadTimeout = errors.New("resilience: bulkhead queue wait timed out")

	// ErrRetryBudgetExceeded is returned when the sliding-window retry budget
	// refuses further retries.
	ErrRetryBudgetExceeded = errors.New("resilience: retry budget exceeded")

	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrFallbackExhausted is returned when every fallback level, including
	// the default, failed.
	ErrFallbackExhausted = errors.New("resilience: all fallback levels failed")

	// ErrNoDefaultHandler is returned when a fallback chain is executed
	// without a default level registered.
	ErrNoDefaultHandler = errors.New("resilience: no default fallback handler registered")

	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// RetriesExhaustedError reports that all attempts completed without success.
// Unlike the other error kinds it carries the last underlying error as its
// cause, so callers can diagnose why the final attempt failed.
type RetriesExhaustedError struct {
	// Attempts is the total number of attempts made, including the first.
	Attempts int

	// Err is the error from the final attempt.
	Err error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("resilience: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

// StatusError attaches a transport status code to an error so retry
// classification can match on retryable codes without inspecting the
// underlying error type.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("resilience: status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the status code from an error chain.
// Returns (0, false) if no StatusError is present.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
