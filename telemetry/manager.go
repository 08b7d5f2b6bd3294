package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/KOMKZ/go-yogan-articlecache/breaker"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option manager option
type Option func(*Manager)

// WithBreaker guards the span exporter; rejected exports go to FallbackExporter
func WithBreaker(b *breaker.Manager) Option {
	return func(m *Manager) {
		m.breaker = b
	}
}

// WithWriter output of the stdout exporters
func WithWriter(w io.Writer) Option {
	return func(m *Manager) {
		m.writer = w
	}
}

// Manager 管理 TracerProvider 与 MeterProvider
type Manager struct {
	config  Config
	logger  *logger.CtxZapLogger
	breaker *breaker.Manager
	writer  io.Writer

	mu             sync.RWMutex
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewManager creates the manager; providers are built by Start
func NewManager(cfg Config, log *logger.CtxZapLogger, opts ...Option) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	m := &Manager{config: cfg, logger: log, writer: os.Stdout}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start builds the providers and installs them globally.
// The W3C trace-context propagator is installed even when disabled.
func (m *Manager) Start(ctx context.Context) error {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	if !m.config.Enabled {
		m.logger.DebugCtx(ctx, "telemetry disabled, skipping initialization")
		return nil
	}

	res, err := m.createResource(ctx)
	if err != nil {
		return fmt.Errorf("create resource failed: %w", err)
	}

	exporter, err := m.createSpanExporter(ctx)
	if err != nil {
		return err
	}
	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(m.sampler()),
	}
	if m.config.Batch.Enabled {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxQueueSize(m.config.Batch.MaxQueueSize),
			sdktrace.WithMaxExportBatchSize(m.config.Batch.MaxExportBatchSize),
			sdktrace.WithBatchTimeout(m.config.Batch.ScheduleDelay),
			sdktrace.WithExportTimeout(m.config.Batch.ExportTimeout),
		))
	} else {
		traceOpts = append(traceOpts, sdktrace.WithSyncer(exporter))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)

	var mp *sdkmetric.MeterProvider
	if m.config.Metrics.Enabled {
		metricExporter, err := m.createMetricExporter(ctx)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return fmt.Errorf("create metrics exporter failed: %w", err)
		}
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
				sdkmetric.WithInterval(m.config.Metrics.ExportInterval),
				sdkmetric.WithTimeout(m.config.Metrics.ExportTimeout),
			)),
		)
		otel.SetMeterProvider(mp)
	}
	otel.SetTracerProvider(tp)

	m.mu.Lock()
	m.tracerProvider, m.meterProvider = tp, mp
	m.mu.Unlock()

	m.logger.InfoCtx(ctx, "telemetry started",
		zap.String("service_name", m.config.ServiceName),
		zap.String("exporter", m.config.Exporter.Type),
		zap.Bool("metrics", mp != nil))
	return nil
}

// Tracer returns a tracer from the managed provider, or the global one before Start
func (m *Manager) Tracer(name string) trace.Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// TracerProvider managed provider, the global one when disabled
func (m *Manager) TracerProvider() trace.TracerProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tracerProvider == nil {
		return otel.GetTracerProvider()
	}
	return m.tracerProvider
}

// Meter returns a meter; instruments are no-ops when metrics are disabled
func (m *Manager) Meter(name string) metric.Meter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.meterProvider == nil {
		return noop.NewMeterProvider().Meter(name)
	}
	return m.meterProvider.Meter(name)
}

// Enabled tracing is configured on
func (m *Manager) Enabled() bool {
	return m.config.Enabled
}

// ServiceName configured service name
func (m *Manager) ServiceName() string {
	return m.config.ServiceName
}

// Shutdown flushes and stops both providers
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	tp, mp := m.tracerProvider, m.meterProvider
	m.tracerProvider, m.meterProvider = nil, nil
	m.mu.Unlock()

	var errs []error
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider failed: %w", err))
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) sampler() sdktrace.Sampler {
	switch m.config.Sampler.Type {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "trace_id_ratio":
		return sdktrace.TraceIDRatioBased(m.config.Sampler.Ratio)
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

func (m *Manager) createResource(ctx context.Context) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(m.config.ServiceName),
		semconv.ServiceVersion(m.config.ServiceVersion),
	}
	for key, value := range flattenMap(m.config.ResourceAttrs, "") {
		attrs = append(attrs, attribute.String(key, os.ExpandEnv(value)))
	}
	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
}

// flattenMap {"deployment": {"environment": "test"}} => {"deployment.environment": "test"}
func flattenMap(m map[string]any, prefix string) map[string]string {
	result := make(map[string]string)
	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		switch v := value.(type) {
		case string:
			result[fullKey] = v
		case map[string]any:
			for nestedKey, nestedValue := range flattenMap(v, fullKey) {
				result[nestedKey] = nestedValue
			}
		default:
			result[fullKey] = fmt.Sprintf("%v", v)
		}
	}
	return result
}
