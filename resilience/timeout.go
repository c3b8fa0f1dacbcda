package resilience

import (
	"context"
	"sort"
	"sync"
	"time"
)

// AdaptiveTimeoutConfig configures the adaptive timeout.
type AdaptiveTimeoutConfig struct {
	// Capacity is the size of the latency ring buffer.
	// Default: 1000
	Capacity int

	// MinSamples is the minimum number of samples required before the
	// timeout adapts; below it Ceiling is used.
	// Default: 10
	MinSamples int

	// Multiplier scales the p95 latency into a timeout.
	// Default: 1.5
	Multiplier float64

	// Floor is the minimum timeout ever returned.
	// Default: 100ms
	Floor time.Duration

	// Ceiling is the maximum timeout ever returned, and the static
	// timeout used until enough samples exist.
	// Default: 30 seconds
	Ceiling time.Duration
}

// AdaptiveTimeout derives a dynamic operation timeout from a rolling
// latency distribution: clamp(p95 * multiplier, floor, ceiling). Static
// timeouts either waste time on fast paths or truncate legitimately slow
// ones; p95-based sizing follows live traffic shape instead.
//
// Samples live in a fixed-capacity ring buffer, so memory is bounded
// regardless of traffic volume.
type AdaptiveTimeout struct {
	config AdaptiveTimeoutConfig

	mu      sync.Mutex
	samples []time.Duration
	next    int
	count   int
}

// NewAdaptiveTimeout creates a new adaptive timeout.
func NewAdaptiveTimeout(config AdaptiveTimeoutConfig) *AdaptiveTimeout {
	// Apply defaults
	if config.Capacity <= 0 {
		config.Capacity = 1000
	}
	if config.MinSamples <= 0 {
		config.MinSamples = 10
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 1.5
	}
	if config.Floor <= 0 {
		config.Floor = 100 * time.Millisecond
	}
	if config.Ceiling <= 0 {
		config.Ceiling = 30 * time.Second
	}
	if config.Ceiling < config.Floor {
		config.Ceiling = config.Floor
	}

	return &AdaptiveTimeout{
		config:  config,
		samples: make([]time.Duration, config.Capacity),
	}
}

// Record appends an observed latency, evicting the oldest sample once the
// buffer is full.
func (at *AdaptiveTimeout) Record(d time.Duration) {
	at.mu.Lock()
	at.samples[at.next] = d
	at.next = (at.next + 1) % at.config.Capacity
	if at.count < at.config.Capacity {
		at.count++
	}
	at.mu.Unlock()
}

// Duration returns the current timeout: p95 of the observed latencies
// scaled by the multiplier, clamped to [Floor, Ceiling]. Until MinSamples
// latencies have been recorded the Ceiling is returned.
func (at *AdaptiveTimeout) Duration() time.Duration {
	snap := at.snapshot()
	if len(snap) < at.config.MinSamples {
		return at.config.Ceiling
	}

	sort.Slice(snap, func(i, j int) bool { return snap[i] < snap[j] })

	d := time.Duration(float64(percentileSorted(snap, 95)) * at.config.Multiplier)
	if d < at.config.Floor {
		d = at.config.Floor
	}
	if d > at.config.Ceiling {
		d = at.config.Ceiling
	}
	return d
}

// Percentile returns the given latency percentile (0-100) over the current
// buffer, using linear interpolation between order statistics. Returns 0
// when no samples exist.
func (at *AdaptiveTimeout) Percentile(p float64) time.Duration {
	snap := at.snapshot()
	if len(snap) == 0 {
		return 0
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i] < snap[j] })
	return percentileSorted(snap, p)
}

// Snapshot returns the standard percentiles over the current buffer.
func (at *AdaptiveTimeout) Snapshot() LatencySnapshot {
	snap := at.snapshot()
	if len(snap) == 0 {
		return LatencySnapshot{CurrentTimeout: at.config.Ceiling}
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i] < snap[j] })

	s := LatencySnapshot{
		Samples: len(snap),
		P50:     percentileSorted(snap, 50),
		P95:     percentileSorted(snap, 95),
		P99:     percentileSorted(snap, 99),
		P999:    percentileSorted(snap, 99.9),
	}
	s.CurrentTimeout = at.config.Ceiling
	if len(snap) >= at.config.MinSamples {
		d := time.Duration(float64(s.P95) * at.config.Multiplier)
		if d < at.config.Floor {
			d = at.config.Floor
		}
		if d > at.config.Ceiling {
			d = at.config.Ceiling
		}
		s.CurrentTimeout = d
	}
	return s
}

// Execute runs the operation under the current adaptive deadline and feeds
// the observed latency back into the distribution.
func (at *AdaptiveTimeout) Execute(ctx context.Context, op func(context.Context) error) error {
	timeout := at.Duration()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		at.Record(time.Since(start))
		return err
	case <-ctx.Done():
		at.Record(time.Since(start))
		if ctx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// snapshot copies the valid region of the ring buffer.
func (at *AdaptiveTimeout) snapshot() []time.Duration {
	at.mu.Lock()
	defer at.mu.Unlock()

	snap := make([]time.Duration, at.count)
	if at.count < at.config.Capacity {
		copy(snap, at.samples[:at.count])
	} else {
		// Buffer has wrapped; order does not matter for percentiles.
		copy(snap, at.samples)
	}
	return snap
}

// percentileSorted computes a percentile over sorted samples with linear
// interpolation between adjacent order statistics.
func percentileSorted(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100 * float64(n-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + time.Duration(frac*float64(sorted[lo+1]-sorted[lo]))
}

// LatencySnapshot contains the derived latency distribution values.
type LatencySnapshot struct {
	Samples        int
	P50            time.Duration
	P95            time.Duration
	P99            time.Duration
	P999           time.Duration
	CurrentTimeout time.Duration
}

// Timeout wraps operations with a fixed timeout. For a timeout that follows
// the observed latency distribution, use AdaptiveTimeout.
type Timeout struct {
	timeout time.Duration
}

// NewTimeout creates a fixed timeout wrapper.
// A non-positive timeout defaults to 30 seconds.
func NewTimeout(timeout time.Duration) *Timeout {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Timeout{timeout: timeout}
}

// Execute runs the operation with the fixed timeout.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
