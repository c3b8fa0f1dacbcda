package resilience

import (
	"context"
	"fmt"
	"sync"
)

// Level identifies a fallback tier. Levels are tried in ascending order,
// from the primary path down to the always-registered default.
type Level int

const (
	LevelPrimary Level = iota
	LevelReplica
	LevelDistributedCache
	LevelLocalCache
	LevelDefault
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelPrimary:
		return "primary"
	case LevelReplica:
		return "replica"
	case LevelDistributedCache:
		return "distributed-cache"
	case LevelLocalCache:
		return "local-cache"
	case LevelDefault:
		return "default"
	default:
		return "unknown"
	}
}

// FallbackChain tries an ordered list of alternative handlers until one
// succeeds. A default handler must be registered before Execute; it is
// expected never to fail (that is a caller bug, and its failure is
// propagated rather than swallowed). Handlers are not retried within the
// chain: retry is a separate, composable primitive.
type FallbackChain struct {
	mu       sync.RWMutex
	handlers map[Level]Operation

	statsMu    sync.Mutex
	executions int64
	degraded   int64
	byLevel    map[Level]int64
}

// NewFallbackChain creates an empty fallback chain.
func NewFallbackChain() *FallbackChain {
	return &FallbackChain{
		handlers: make(map[Level]Operation),
		byLevel:  make(map[Level]int64),
	}
}

// Register installs a handler for the level, replacing any previous one.
func (c *FallbackChain) Register(level Level, handler Operation) {
	c.mu.Lock()
	c.handlers[level] = handler
	c.mu.Unlock()
}

// Execute walks the levels in ascending order and returns the first
// success, reporting which level served it and whether the result is
// degraded (any level past primary). If every level including the default
// fails, the default's error is propagated under ErrFallbackExhausted.
func (c *FallbackChain) Execute(ctx context.Context) (any, Level, bool, error) {
	c.mu.RLock()
	handlers := make(map[Level]Operation, len(c.handlers))
	for level, h := range c.handlers {
		handlers[level] = h
	}
	c.mu.RUnlock()

	if handlers[LevelDefault] == nil {
		return nil, LevelDefault, false, ErrNoDefaultHandler
	}

	var lastErr error
	for level := LevelPrimary; level <= LevelDefault; level++ {
		h := handlers[level]
		if h == nil {
			continue
		}

		v, err := h(ctx)
		if err == nil {
			degraded := level != LevelPrimary
			c.recordResult(level, degraded)
			return v, level, degraded, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, level, false, ctx.Err()
		}
	}

	c.recordResult(LevelDefault, true)
	return nil, LevelDefault, true,
		fmt.Errorf("%w: default handler failed: %w", ErrFallbackExhausted, lastErr)
}

func (c *FallbackChain) recordResult(level Level, degraded bool) {
	c.statsMu.Lock()
	c.executions++
	if degraded {
		c.degraded++
	}
	c.byLevel[level]++
	c.statsMu.Unlock()
}

// Levels returns the levels with a registered handler, in order.
func (c *FallbackChain) Levels() []Level {
	c.mu.RLock()
	defer c.mu.RUnlock()

	levels := make([]Level, 0, len(c.handlers))
	for level := LevelPrimary; level <= LevelDefault; level++ {
		if c.handlers[level] != nil {
			levels = append(levels, level)
		}
	}
	return levels
}

// Metrics returns current fallback chain statistics.
func (c *FallbackChain) Metrics() FallbackMetrics {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	byLevel := make(map[string]int64, len(c.byLevel))
	for level, n := range c.byLevel {
		byLevel[level.String()] = n
	}

	return FallbackMetrics{
		Executions: c.executions,
		Degraded:   c.degraded,
		ByLevel:    byLevel,
	}
}

// FallbackMetrics contains fallback chain statistics.
type FallbackMetrics struct {
	Executions int64
	Degraded   int64
	ByLevel    map[string]int64
}
