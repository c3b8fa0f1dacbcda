package observe

import (
	"context"
	"errors"
	"testing"
)

func TestConfigValidate_Valid(t *testing.T) {
	cfg := Config{
		ServiceName: "resilio-test",
		Version:     "1.0.0",
		Tracing: TracingConfig{
			Enabled:   true,
			Exporter:  "none",
			SamplePct: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Exporter: "none",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestConfigValidate_MissingServiceName(t *testing.T) {
	cfg := Config{}

	if err := cfg.Validate(); !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("Validate() = %v, want ErrMissingServiceName", err)
	}
}

func TestConfigValidate_UnknownTracingExporter(t *testing.T) {
	cfg := Config{
		ServiceName: "test",
		Tracing: TracingConfig{
			Enabled:  true,
			Exporter: "jaeger",
		},
	}

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidTracingExporter) {
		t.Errorf("Validate() = %v, want ErrInvalidTracingExporter", err)
	}
}

func TestConfigValidate_SamplePctOutOfRange(t *testing.T) {
	for _, pct := range []float64{-0.1, 1.5} {
		cfg := Config{
			ServiceName: "test",
			Tracing: TracingConfig{
				Enabled:   true,
				Exporter:  "none",
				SamplePct: pct,
			},
		}

		if err := cfg.Validate(); !errors.Is(err, ErrInvalidSamplePct) {
			t.Errorf("Validate() with pct %f = %v, want ErrInvalidSamplePct", pct, err)
		}
	}
}

func TestConfigValidate_UnknownMetricsExporter(t *testing.T) {
	cfg := Config{
		ServiceName: "test",
		Metrics: MetricsConfig{
			Enabled:  true,
			Exporter: "statsd",
		},
	}

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidMetricsExporter) {
		t.Errorf("Validate() = %v, want ErrInvalidMetricsExporter", err)
	}
}

func TestConfigValidate_UnknownLogLevel(t *testing.T) {
	cfg := Config{
		ServiceName: "test",
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "verbose",
		},
	}

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("Validate() = %v, want ErrInvalidLogLevel", err)
	}
}

func TestConfigValidate_DisabledSectionsSkipped(t *testing.T) {
	// Invalid values in disabled sections do not fail validation.
	cfg := Config{
		ServiceName: "test",
		Tracing:     TracingConfig{Exporter: "bogus", SamplePct: 5},
		Metrics:     MetricsConfig{Exporter: "bogus"},
		Logging:     LoggingConfig{Level: "bogus"},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("NewObserver() = %v", err)
	}

	if obs.Tracer() == nil {
		t.Error("Tracer() = nil, want noop tracer")
	}
	if obs.Meter() == nil {
		t.Error("Meter() = nil, want noop meter")
	}
	if obs.Logger() == nil {
		t.Error("Logger() = nil, want noop logger")
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("NewObserver() = %v, want ErrMissingServiceName", err)
	}
}

func TestNewObserver_NoneExporters(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "error"},
	})
	if err != nil {
		t.Fatalf("NewObserver() = %v", err)
	}
	defer func() {
		_ = obs.Shutdown(context.Background())
	}()

	// Spans and metrics against the none exporters must not panic.
	_, span := obs.Tracer().Start(context.Background(), "test-span")
	span.End()
}
