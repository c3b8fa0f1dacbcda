package resilience

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelErrors_Distinct(t *testing.T) {
	sentinels := []error{
		ErrCircuitOpen,
		ErrBulkheadFull,
		ErrBulkheadTimeout,
		ErrRetryBudgetExceeded,
		ErrRateLimitExceeded,
		ErrFallbackExhausted,
		ErrNoDefaultHandler,
		ErrTimeout,
	}

	for i, a := range sentinels {
		if !strings.HasPrefix(a.Error(), "resilience: ") {
			t.Errorf("%v missing package prefix", a)
		}
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestRetriesExhaustedError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &RetriesExhaustedError{Attempts: 3, Err: cause}

	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("Error() = %q, want attempt count", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("should unwrap to the cause")
	}

	wrapped := fmt.Errorf("call failed: %w", err)
	var target *RetriesExhaustedError
	if !errors.As(wrapped, &target) {
		t.Error("errors.As should find RetriesExhaustedError through wrapping")
	}
	if target.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", target.Attempts)
	}
}

func TestStatusError(t *testing.T) {
	cause := errors.New("service unavailable")
	err := &StatusError{Code: 503, Err: cause}

	if !strings.Contains(err.Error(), "503") {
		t.Errorf("Error() = %q, want status code", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("should unwrap to the cause")
	}
}

func TestStatusCode(t *testing.T) {
	if code, ok := StatusCode(&StatusError{Code: 429, Err: errors.New("slow down")}); !ok || code != 429 {
		t.Errorf("StatusCode() = %d, %v; want 429, true", code, ok)
	}

	wrapped := fmt.Errorf("outer: %w", &StatusError{Code: 503, Err: errors.New("down")})
	if code, ok := StatusCode(wrapped); !ok || code != 503 {
		t.Errorf("StatusCode(wrapped) = %d, %v; want 503, true", code, ok)
	}

	if _, ok := StatusCode(errors.New("plain")); ok {
		t.Error("StatusCode(plain) = true, want false")
	}
	if _, ok := StatusCode(nil); ok {
		t.Error("StatusCode(nil) = true, want false")
	}
}
