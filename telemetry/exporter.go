package telemetry

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-yogan-articlecache/breaker"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials/insecure"
)

// exporterResource breaker resource name of the span exporter
const exporterResource = "telemetry.exporter"

// createSpanExporter creates the configured exporter, guarded by the breaker when one is set
func (m *Manager) createSpanExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	primary, err := m.createRawSpanExporter(ctx, m.config.Exporter.Type)
	if err != nil {
		return nil, fmt.Errorf("create primary exporter failed: %w", err)
	}
	if m.breaker == nil {
		return primary, nil
	}

	fallback, err := m.createRawSpanExporter(ctx, m.config.FallbackExporter)
	if err != nil {
		fallback = noopExporter{}
	}
	return &guardedExporter{primary: primary, fallback: fallback, breaker: m.breaker}, nil
}

func (m *Manager) createRawSpanExporter(ctx context.Context, exporterType string) (sdktrace.SpanExporter, error) {
	switch exporterType {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(m.config.Exporter.Endpoint),
			otlptracegrpc.WithTimeout(m.config.Exporter.Timeout),
		}
		if m.config.Exporter.Insecure {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(m.config.Exporter.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(m.config.Exporter.Headers))
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(m.writer))
	case ExporterNoop:
		return noopExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", exporterType)
	}
}

func (m *Manager) createMetricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	switch m.config.Metrics.Exporter {
	case ExporterOTLP:
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(m.config.Exporter.Endpoint),
			otlpmetricgrpc.WithTimeout(m.config.Exporter.Timeout),
		}
		if m.config.Exporter.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		if len(m.config.Exporter.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(m.config.Exporter.Headers))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case ExporterStdout:
		return stdoutmetric.New(stdoutmetric.WithWriter(m.writer))
	default:
		return nil, fmt.Errorf("unsupported metrics exporter type: %s", m.config.Metrics.Exporter)
	}
}

// guardedExporter 主导出器熔断期间改用 fallback
type guardedExporter struct {
	primary  sdktrace.SpanExporter
	fallback sdktrace.SpanExporter
	breaker  *breaker.Manager
}

func (e *guardedExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	err := e.breaker.Execute(ctx, exporterResource, func(ctx context.Context) error {
		return e.primary.ExportSpans(ctx, spans)
	})
	if breaker.IsRejection(err) {
		return e.fallback.ExportSpans(ctx, spans)
	}
	return err
}

func (e *guardedExporter) Shutdown(ctx context.Context) error {
	err := e.primary.Shutdown(ctx)
	if ferr := e.fallback.Shutdown(ctx); err == nil {
		err = ferr
	}
	return err
}

// noopExporter discards spans
type noopExporter struct{}

func (noopExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (noopExporter) Shutdown(context.Context) error                             { return nil }
