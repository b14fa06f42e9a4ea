package observe

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/assetmigrate/observe/exporters"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "valid",
			cfg: Config{
				ServiceName: "assetmigrate",
				Version:     "1.0.0",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
				Logging:     LoggingConfig{Enabled: true, Level: "info"},
			},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "unknown tracing exporter",
			cfg:     Config{ServiceName: "svc", Tracing: TracingConfig{Enabled: true, Exporter: "zipkin"}},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name:    "sample pct above range",
			cfg:     Config{ServiceName: "svc", Tracing: TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "sample pct negative",
			cfg:     Config{ServiceName: "svc", Tracing: TracingConfig{Enabled: true, Exporter: "none", SamplePct: -0.1}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "unknown metrics exporter",
			cfg:     Config{ServiceName: "svc", Metrics: MetricsConfig{Enabled: true, Exporter: "statsd"}},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name:    "unknown log level",
			cfg:     Config{ServiceName: "svc", Logging: LoggingConfig{Enabled: true, Level: "verbose"}},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "disabled sections are not checked",
			cfg:  Config{ServiceName: "svc", Tracing: TracingConfig{Exporter: "zipkin"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_DisabledNoop(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "svc"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("disabled observer should still return usable primitives")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_StdoutExporters(t *testing.T) {
	cfg := Config{
		ServiceName: "svc",
		Version:     "1.0.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "warn"},
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_InvalidConfigReturnsError(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("NewObserver() error = %v, want ErrMissingServiceName", err)
	}
}

func TestNewInstruments(t *testing.T) {
	if _, err := NewInstruments(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("NewInstruments(nil) error = %v, want ErrNilObserver", err)
	}

	in, err := NewInstruments(Nop())
	if err != nil {
		t.Fatalf("NewInstruments() error = %v", err)
	}
	if in.Tracer == nil || in.Metrics == nil || in.Logger == nil {
		t.Fatal("instruments should be fully populated")
	}

	// Nop instruments must accept every call without panicking.
	nop := NopInstruments()
	ctx, span := nop.Tracer.StartSpan(context.Background(), SpanBatchProcess)
	nop.Tracer.EndSpan(span, errors.New("x"))
	nop.Metrics.RecordBatch(ctx, "completed", 1, 0, 0)
	nop.Logger.With(F("k", "v")).Info(ctx, "ignored")
}

func TestNewObserver_PrivatePrometheusRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	cfg := Config{
		ServiceName: "svc",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
	}

	obs, err := NewObserver(context.Background(), cfg, exporters.WithRegisterer(reg))
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })

	in, err := NewInstruments(obs)
	if err != nil {
		t.Fatal(err)
	}
	in.Metrics.RecordBatch(context.Background(), "completed", 3, 0, time.Second)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var found bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "batch_items") {
			found = true
		}
	}
	if !found {
		t.Errorf("batch_items metrics not exported to the private registry")
	}
}
