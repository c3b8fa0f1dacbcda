package resilience

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Priority orders queued bulkhead callers. Higher priorities are admitted
// first; callers at the same priority are admitted in arrival order.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum number of concurrent operations.
	// Default: 10
	MaxConcurrent int

	// MaxQueue is the maximum number of callers that may wait for a slot.
	// Default: 0 (no queueing, reject immediately when full)
	MaxQueue int

	// MaxWait is the maximum time a queued caller waits for a slot.
	// Default: 1 second when MaxQueue > 0.
	MaxWait time.Duration
}

// Bulkhead limits concurrent operations, isolating one resource's overload
// from starving others in the same process. Callers beyond the concurrency
// cap queue (bounded, priority-ordered, FIFO within a priority tier) until
// a slot frees, their wait times out, or their context is cancelled.
type Bulkhead struct {
	config BulkheadConfig

	mu        sync.Mutex
	active    int
	maxActive int
	queue     waiterQueue
	seq       uint64
	rejected  int64
	timedOut  int64
}

type waiter struct {
	priority Priority
	seq      uint64
	ready    chan struct{}
	index    int // heap index; -1 once admitted or removed
}

// waiterQueue is a max-heap on priority with FIFO order inside a tier.
type waiterQueue []*waiter

func (q waiterQueue) Len() int { return len(q) }

func (q waiterQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q waiterQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *waiterQueue) Push(x any) {
	w := x.(*waiter)
	w.index = len(*q)
	*q = append(*q, w)
}

func (q *waiterQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*q = old[:n-1]
	return w
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	// Apply defaults
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if config.MaxQueue < 0 {
		config.MaxQueue = 0
	}
	if config.MaxQueue > 0 && config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	return &Bulkhead{config: config}
}

// Acquire acquires a slot at medium priority.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	return b.AcquirePriority(ctx, PriorityMedium)
}

// AcquirePriority acquires a slot, queueing at the given priority when the
// pool is full. Returns ErrBulkheadFull when the queue is also full, and
// ErrBulkheadTimeout when the queue wait expires.
func (b *Bulkhead) AcquirePriority(ctx context.Context, priority Priority) error {
	b.mu.Lock()

	if b.active < b.config.MaxConcurrent {
		b.active++
		if b.active > b.maxActive {
			b.maxActive = b.active
		}
		b.mu.Unlock()
		return nil
	}

	if b.config.MaxQueue <= 0 || b.queue.Len() >= b.config.MaxQueue {
		b.rejected++
		b.mu.Unlock()
		return ErrBulkheadFull
	}

	w := &waiter{
		priority: priority,
		seq:      b.seq,
		ready:    make(chan struct{}),
	}
	b.seq++
	heap.Push(&b.queue, w)
	b.mu.Unlock()

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case <-w.ready:
		// Slot was handed over by a releasing caller.
		return nil

	case <-timer.C:
		b.mu.Lock()
		if w.index >= 0 {
			heap.Remove(&b.queue, w.index)
			b.timedOut++
			b.mu.Unlock()
			return ErrBulkheadTimeout
		}
		b.mu.Unlock()
		// Admitted concurrently with the timeout; the slot is ours.
		return nil

	case <-ctx.Done():
		b.mu.Lock()
		if w.index >= 0 {
			heap.Remove(&b.queue, w.index)
			b.mu.Unlock()
			return ctx.Err()
		}
		b.mu.Unlock()
		// Admitted concurrently with cancellation: give the slot back
		// before propagating.
		b.Release()
		return ctx.Err()
	}
}

// Release releases a slot, handing it to the highest-priority queued
// caller if one is waiting.
func (b *Bulkhead) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queue.Len() > 0 {
		// Transfer the slot: active count is unchanged.
		w := heap.Pop(&b.queue).(*waiter)
		close(w.ready)
		return
	}

	if b.active > 0 {
		b.active--
	}
}

// Execute runs the operation within the bulkhead at medium priority.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	return b.ExecutePriority(ctx, PriorityMedium, op)
}

// ExecutePriority runs the operation within the bulkhead at the given
// priority.
func (b *Bulkhead) ExecutePriority(ctx context.Context, priority Priority, op func(context.Context) error) error {
	if err := b.AcquirePriority(ctx, priority); err != nil {
		return err
	}
	defer b.Release()

	return op(ctx)
}

// Metrics returns current bulkhead metrics.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	utilization := 0.0
	if b.config.MaxConcurrent > 0 {
		utilization = float64(b.active) / float64(b.config.MaxConcurrent) * 100
	}

	return BulkheadMetrics{
		Active:         b.active,
		MaxActive:      b.maxActive,
		Queued:         b.queue.Len(),
		MaxConcurrent:  b.config.MaxConcurrent,
		MaxQueue:       b.config.MaxQueue,
		Rejected:       b.rejected,
		TimedOut:       b.timedOut,
		UtilizationPct: utilization,
	}
}

// BulkheadMetrics contains bulkhead statistics.
type BulkheadMetrics struct {
	Active         int
	MaxActive      int
	Queued         int
	MaxConcurrent  int
	MaxQueue       int
	Rejected       int64
	TimedOut       int64
	UtilizationPct float64
}
