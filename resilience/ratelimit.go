package resilience

import (
	"context"
	"sync"
	"time"
)

// Limiter answers "allow this request now?" without ever blocking.
type Limiter interface {
	// Allow reports whether one request is admitted.
	Allow() bool

	// AllowN reports whether n requests are admitted together.
	AllowN(n int) bool
}

// TokenBucketConfig configures a token bucket limiter.
type TokenBucketConfig struct {
	// Capacity is the bucket size: the maximum burst.
	// Default: 10
	Capacity int

	// RefillRate is the number of tokens added per second.
	// Default: 100
	RefillRate float64

	// MaxWait caps how long Wait blocks for a token.
	// Default: 1 second
	MaxWait time.Duration
}

// TokenBucket admits requests while tokens remain, refilling continuously
// at the configured rate. Short bursts up to Capacity are permitted.
type TokenBucket struct {
	config TokenBucketConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	allowed    int64
	denied     int64
}

// NewTokenBucket creates a full token bucket.
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	// Apply defaults
	if config.Capacity <= 0 {
		config.Capacity = 10
	}
	if config.RefillRate <= 0 {
		config.RefillRate = 100
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	return &TokenBucket{
		config:     config,
		tokens:     float64(config.Capacity),
		lastRefill: time.Now(),
	}
}

// Allow checks if a request is allowed under the rate limit.
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN checks if n requests are allowed.
func (tb *TokenBucket) AllowN(n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()

	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		tb.allowed += int64(n)
		return true
	}

	tb.denied++
	return false
}

// Wait blocks until a token is available, the context is cancelled, or
// MaxWait elapses.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	// Check context first
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	deadline := time.Now().Add(tb.config.MaxWait)

	for {
		if tb.AllowN(1) {
			return nil
		}

		tb.mu.Lock()
		tb.refillLocked()
		needed := 1 - tb.tokens
		tb.mu.Unlock()

		waitTime := time.Duration(needed / tb.config.RefillRate * float64(time.Second))
		if remaining := time.Until(deadline); waitTime > remaining {
			if remaining <= 0 {
				return ErrRateLimitExceeded
			}
			waitTime = remaining
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// Execute runs the operation if a token is available.
func (tb *TokenBucket) Execute(ctx context.Context, op func(context.Context) error) error {
	if !tb.Allow() {
		return ErrRateLimitExceeded
	}
	return op(ctx)
}

func (tb *TokenBucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tb.lastRefill = now

	tb.tokens += elapsed.Seconds() * tb.config.RefillRate
	if tb.tokens > float64(tb.config.Capacity) {
		tb.tokens = float64(tb.config.Capacity)
	}
}

// Tokens returns the current number of available tokens.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refillLocked()
	return tb.tokens
}

// Reset refills the bucket to capacity.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = float64(tb.config.Capacity)
	tb.lastRefill = time.Now()
}

// Metrics returns current token bucket statistics.
func (tb *TokenBucket) Metrics() LimiterMetrics {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refillLocked()

	return LimiterMetrics{
		Algorithm: "token_bucket",
		Allowed:   tb.allowed,
		Denied:    tb.denied,
		Level:     tb.tokens,
		Capacity:  tb.config.Capacity,
	}
}

// SlidingWindowConfig configures a sliding window counter limiter.
type SlidingWindowConfig struct {
	// Limit is the maximum number of requests per window.
	// Default: 100
	Limit int

	// Window is the sliding window length.
	// Default: 1 second
	Window time.Duration
}

// SlidingWindow admits at most Limit requests in any trailing Window. It
// keeps a timestamp log and prunes it on each decision, so there is no
// fixed-window boundary through which a double burst can slip.
type SlidingWindow struct {
	config SlidingWindowConfig

	mu      sync.Mutex
	log     []time.Time
	allowed int64
	denied  int64
}

// NewSlidingWindow creates a new sliding window counter.
func NewSlidingWindow(config SlidingWindowConfig) *SlidingWindow {
	// Apply defaults
	if config.Limit <= 0 {
		config.Limit = 100
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}

	return &SlidingWindow{config: config}
}

// Allow checks if a request is allowed under the rate limit.
func (sw *SlidingWindow) Allow() bool {
	return sw.AllowN(1)
}

// AllowN checks if n requests are allowed together.
func (sw *SlidingWindow) AllowN(n int) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.pruneLocked(now)

	if len(sw.log)+n > sw.config.Limit {
		sw.denied++
		return false
	}

	for i := 0; i < n; i++ {
		sw.log = append(sw.log, now)
	}
	sw.allowed += int64(n)
	return true
}

// pruneLocked drops timestamps older than the window. Amortized O(1).
func (sw *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-sw.config.Window)
	i := 0
	for i < len(sw.log) && !sw.log[i].After(cutoff) {
		i++
	}
	if i > 0 {
		sw.log = append(sw.log[:0], sw.log[i:]...)
	}
}

// InWindow returns the number of requests currently inside the window.
func (sw *SlidingWindow) InWindow() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.pruneLocked(time.Now())
	return len(sw.log)
}

// Reset clears the request log.
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	sw.log = sw.log[:0]
	sw.mu.Unlock()
}

// Metrics returns current sliding window statistics.
func (sw *SlidingWindow) Metrics() LimiterMetrics {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.pruneLocked(time.Now())

	return LimiterMetrics{
		Algorithm: "sliding_window",
		Allowed:   sw.allowed,
		Denied:    sw.denied,
		Level:     float64(len(sw.log)),
		Capacity:  sw.config.Limit,
	}
}

// LeakyBucketConfig configures a leaky bucket limiter.
type LeakyBucketConfig struct {
	// Capacity is the bucket size.
	// Default: 10
	Capacity int

	// LeakRate is the number of requests drained per second.
	// Default: 100
	LeakRate float64
}

// LeakyBucket admits requests while the bucket has room, draining at a
// constant rate. Unlike the token bucket it enforces a strictly bounded,
// steady outflow regardless of burst shape.
type LeakyBucket struct {
	config LeakyBucketConfig

	mu       sync.Mutex
	level    float64
	lastLeak time.Time
	allowed  int64
	denied   int64
}

// NewLeakyBucket creates an empty leaky bucket.
func NewLeakyBucket(config LeakyBucketConfig) *LeakyBucket {
	// Apply defaults
	if config.Capacity <= 0 {
		config.Capacity = 10
	}
	if config.LeakRate <= 0 {
		config.LeakRate = 100
	}

	return &LeakyBucket{
		config:   config,
		lastLeak: time.Now(),
	}
}

// Allow checks if a request is allowed under the rate limit.
func (lb *LeakyBucket) Allow() bool {
	return lb.AllowN(1)
}

// AllowN checks if n requests are allowed together.
func (lb *LeakyBucket) AllowN(n int) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.leakLocked()

	if lb.level+float64(n) > float64(lb.config.Capacity) {
		lb.denied++
		return false
	}

	lb.level += float64(n)
	lb.allowed += int64(n)
	return true
}

func (lb *LeakyBucket) leakLocked() {
	now := time.Now()
	elapsed := now.Sub(lb.lastLeak)
	lb.lastLeak = now

	lb.level -= elapsed.Seconds() * lb.config.LeakRate
	if lb.level < 0 {
		lb.level = 0
	}
}

// Level returns the current bucket level.
func (lb *LeakyBucket) Level() float64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.leakLocked()
	return lb.level
}

// Reset empties the bucket.
func (lb *LeakyBucket) Reset() {
	lb.mu.Lock()
	lb.level = 0
	lb.lastLeak = time.Now()
	lb.mu.Unlock()
}

// Metrics returns current leaky bucket statistics.
func (lb *LeakyBucket) Metrics() LimiterMetrics {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.leakLocked()

	return LimiterMetrics{
		Algorithm: "leaky_bucket",
		Allowed:   lb.allowed,
		Denied:    lb.denied,
		Level:     lb.level,
		Capacity:  lb.config.Capacity,
	}
}

// LimiterMetrics contains rate limiter statistics. Level is the current
// token count, in-window request count, or bucket fill depending on the
// algorithm.
type LimiterMetrics struct {
	Algorithm string
	Allowed   int64
	Denied    int64
	Level     float64
	Capacity  int
}

// Compile-time interface checks.
var (
	_ Limiter = (*TokenBucket)(nil)
	_ Limiter = (*SlidingWindow)(nil)
	_ Limiter = (*LeakyBucket)(nil)
)
