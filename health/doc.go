// Package health provides tiered health checking primitives.
//
// A Monitor wraps a probe function with timeout enforcement and
// grace-period smoothing: the status flips to unhealthy only after a
// configurable streak of consecutive failures, so a single transient blip
// never flaps the reported status. Liveness, readiness, deep, and startup
// probes of the same target run as independent Monitors, each with its
// own config and failure streak.
//
// # Basic Usage
//
//	ready := health.NewMonitor("db-ready", health.MonitorConfig{
//	    Kind:                health.KindReadiness,
//	    Timeout:             2 * time.Second,
//	    GracePeriodFailures: 3,
//	}, func(ctx context.Context) error {
//	    return db.PingContext(ctx)
//	})
//
//	result := ready.Check(ctx)
//	if result.Status == health.StatusUnhealthy {
//	    log.Printf("db not ready: %s", result.Message)
//	}
//
// # Aggregating Health Checks
//
// Use Aggregator to combine multiple checkers into a single composite
// check:
//
//	agg := health.NewAggregator()
//	agg.Register("db-ready", readyMonitor)
//	agg.Register("cache-live", liveMonitor)
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
// The package provides HTTP handlers for common probe patterns:
//
//	// Liveness probe (for Kubernetes)
//	http.Handle("/healthz", health.LivenessHandler())
//
//	// Readiness probe with component checks
//	http.Handle("/readyz", health.ReadinessHandler(aggregator))
//
//	// Detailed health status
//	http.Handle("/health", health.DetailedHandler(aggregator))
package health
