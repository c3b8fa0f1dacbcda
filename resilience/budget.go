package resilience

import (
	"sync"
	"time"
)

// BudgetConfig configures a retry budget.
type BudgetConfig struct {
	// Window is the sliding window over which the retry rate is measured.
	// Default: 60 seconds
	Window time.Duration

	// MaxRetryPct is the maximum percentage of attempts in the window that
	// may be retries. Once exceeded, new retries are refused.
	// Default: 20
	MaxRetryPct float64
}

type budgetEvent struct {
	at    time.Time
	retry bool
}

// Budget tracks the fraction of recent attempts that were retries and
// refuses new retries once that fraction exceeds the configured cap.
//
// The window is wall-clock based: a suspended process or a stepped clock
// can under- or over-admit retries until the window refills. This is a
// known limitation, kept intentionally.
type Budget struct {
	config BudgetConfig

	mu      sync.Mutex
	events  []budgetEvent
	total   int
	retries int
}

// NewBudget creates a new retry budget.
func NewBudget(config BudgetConfig) *Budget {
	// Apply defaults
	if config.Window <= 0 {
		config.Window = 60 * time.Second
	}
	if config.MaxRetryPct <= 0 {
		config.MaxRetryPct = 20
	}

	return &Budget{config: config}
}

// Record registers an attempt. Every attempt is recorded, first tries and
// retries alike, success or failure.
func (b *Budget) Record(isRetry bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked(time.Now())
	b.events = append(b.events, budgetEvent{at: time.Now(), retry: isRetry})
	b.total++
	if isRetry {
		b.retries++
	}
}

// Allow reports whether a new retry fits within the budget.
func (b *Budget) Allow() bool {
	return b.RetryRate() <= b.config.MaxRetryPct
}

// RetryRate returns the percentage of attempts in the current window that
// were retries. Returns 0 when the window is empty.
func (b *Budget) RetryRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked(time.Now())
	if b.total == 0 {
		return 0
	}
	return float64(b.retries) / float64(b.total) * 100
}

// pruneLocked drops events older than the window. Amortized O(1): each
// event is appended once and removed once.
func (b *Budget) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.config.Window)
	i := 0
	for i < len(b.events) && b.events[i].at.Before(cutoff) {
		b.total--
		if b.events[i].retry {
			b.retries--
		}
		i++
	}
	if i > 0 {
		b.events = append(b.events[:0], b.events[i:]...)
	}
}

// Metrics returns the current budget window counters.
func (b *Budget) Metrics() BudgetMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked(time.Now())

	rate := 0.0
	if b.total > 0 {
		rate = float64(b.retries) / float64(b.total) * 100
	}

	return BudgetMetrics{
		Total:        b.total,
		Retries:      b.retries,
		RetryRatePct: rate,
		MaxRetryPct:  b.config.MaxRetryPct,
		WithinBudget: rate <= b.config.MaxRetryPct,
	}
}

// BudgetMetrics contains retry budget statistics.
type BudgetMetrics struct {
	Total        int
	Retries      int
	RetryRatePct float64
	MaxRetryPct  float64
	WithinBudget bool
}
