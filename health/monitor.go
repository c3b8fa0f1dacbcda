package health

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Probe is the function a Monitor invokes to test a target.
type Probe func(ctx context.Context) error

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Kind identifies what this probe tests.
	// Default: KindLiveness
	Kind Kind

	// Interval is the probe period for the background Run loop.
	// Default: 10 seconds
	Interval time.Duration

	// Timeout bounds each probe invocation.
	// Default: 5 seconds
	Timeout time.Duration

	// GracePeriodFailures is the number of consecutive failed probes
	// required before the status flips to unhealthy. Transient blips below
	// the threshold leave the previous status in place.
	// Default: 3
	GracePeriodFailures int
}

// Monitor wraps a probe with timeout enforcement and grace-period
// smoothing. Liveness, readiness, and deep probes of one target are
// typically three independent Monitors, each with its own config and
// failure streak.
type Monitor struct {
	name   string
	config MonitorConfig
	probe  Probe

	mu          sync.Mutex
	status      Status
	failures    int
	lastChecked time.Time
}

// NewMonitor creates a monitor for the probe. Status starts as unknown
// until the first check completes.
func NewMonitor(name string, config MonitorConfig, probe Probe) *Monitor {
	// Apply defaults
	if config.Interval <= 0 {
		config.Interval = 10 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.GracePeriodFailures <= 0 {
		config.GracePeriodFailures = 3
	}

	return &Monitor{
		name:   name,
		config: config,
		probe:  probe,
		status: StatusUnknown,
	}
}

// Name returns the monitor name.
func (m *Monitor) Name() string {
	return m.name
}

// Kind returns what this monitor probes.
func (m *Monitor) Kind() Kind {
	return m.config.Kind
}

// Status returns the current smoothed status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Check runs the probe once under the configured timeout and updates the
// smoothed status. A success resets the failure streak and the status to
// healthy immediately; failures flip the status to unhealthy only once the
// streak reaches the grace threshold.
func (m *Monitor) Check(ctx context.Context) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.probe(ctx)
	}()

	var probeErr error
	select {
	case err := <-done:
		probeErr = err
	case <-ctx.Done():
		probeErr = ctx.Err()
	}

	// A deadline hit is a probe timeout. Caller cancellation passes
	// through as context.Canceled, not as a timeout.
	if errors.Is(probeErr, context.DeadlineExceeded) {
		probeErr = ErrCheckTimeout
	}

	duration := time.Since(start)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastChecked = start

	if probeErr == nil {
		m.status = StatusHealthy
		m.failures = 0
		return Result{
			Status:    StatusHealthy,
			Message:   m.config.Kind.String() + " probe succeeded",
			Duration:  duration,
			Timestamp: start,
		}
	}

	m.failures++
	if m.failures >= m.config.GracePeriodFailures {
		m.status = StatusUnhealthy
	}

	msg := m.config.Kind.String() + " probe failed"
	if probeErr == ErrCheckTimeout {
		msg = m.config.Kind.String() + " probe timed out"
	}

	return Result{
		Status:              m.status,
		Message:             msg,
		ConsecutiveFailures: m.failures,
		Duration:            duration,
		Timestamp:           start,
		Error:               probeErr,
	}
}

// LastChecked returns when the probe last ran, zero before the first run.
func (m *Monitor) LastChecked() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChecked
}

// ConsecutiveFailures returns the current failed-probe streak.
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// Run probes at the configured interval until the context is cancelled.
// An immediate check runs before the first tick.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Ensure Monitor implements Checker
var _ Checker = (*Monitor)(nil)
