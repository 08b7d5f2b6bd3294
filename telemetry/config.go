// Package telemetry sets up the OpenTelemetry tracer and meter providers
package telemetry

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Exporter types
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNoop   = "noop"
)

// Config OpenTelemetry 配置
type Config struct {
	Enabled        bool           `mapstructure:"enabled"`             // 是否启用
	ServiceName    string         `mapstructure:"service_name"`        // 服务名
	ServiceVersion string         `mapstructure:"service_version"`     // 服务版本
	Exporter       ExporterConfig `mapstructure:"exporter"`            // trace 导出
	Sampler        SamplerConfig  `mapstructure:"sampler"`             // 采样
	Batch          BatchConfig    `mapstructure:"batch"`               // 批处理
	ResourceAttrs  map[string]any `mapstructure:"resource_attributes"` // 资源属性（支持嵌套）
	Metrics        MetricsConfig  `mapstructure:"metrics"`             // 指标导出

	// FallbackExporter 主导出器熔断后使用的导出器
	FallbackExporter string `mapstructure:"fallback_exporter"`
}

// ExporterConfig exporter configuration
type ExporterConfig struct {
	Type     string            `mapstructure:"type"`     // otlp, stdout, noop
	Endpoint string            `mapstructure:"endpoint"` // OTLP gRPC endpoint
	Insecure bool              `mapstructure:"insecure"`
	Timeout  time.Duration     `mapstructure:"timeout"`
	Headers  map[string]string `mapstructure:"headers"` // 认证等自定义 header
}

// SamplerConfig sampling configuration
type SamplerConfig struct {
	Type  string  `mapstructure:"type"`  // always_on, always_off, trace_id_ratio, parent_based_always_on
	Ratio float64 `mapstructure:"ratio"` // 仅 trace_id_ratio 生效
}

// BatchConfig batch span processor configuration
type BatchConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	MaxQueueSize       int           `mapstructure:"max_queue_size"`
	MaxExportBatchSize int           `mapstructure:"max_export_batch_size"`
	ScheduleDelay      time.Duration `mapstructure:"schedule_delay"`
	ExportTimeout      time.Duration `mapstructure:"export_timeout"`
}

// MetricsConfig metric export configuration
type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Exporter       string        `mapstructure:"exporter"` // otlp, stdout
	ExportInterval time.Duration `mapstructure:"export_interval"`
	ExportTimeout  time.Duration `mapstructure:"export_timeout"`
}

// DefaultConfig 默认关闭
func DefaultConfig() Config {
	return Config{
		ServiceName:    "articlecache",
		ServiceVersion: "1.0.0",
		Exporter: ExporterConfig{
			Type:     ExporterOTLP,
			Endpoint: "localhost:4317",
			Insecure: true,
			Timeout:  10 * time.Second,
		},
		Sampler: SamplerConfig{
			Type:  "parent_based_always_on",
			Ratio: 1.0,
		},
		Batch: BatchConfig{
			Enabled:            true,
			MaxQueueSize:       2048,
			MaxExportBatchSize: 512,
			ScheduleDelay:      5 * time.Second,
			ExportTimeout:      30 * time.Second,
		},
		Metrics: MetricsConfig{
			Exporter:       ExporterOTLP,
			ExportInterval: 10 * time.Second,
			ExportTimeout:  5 * time.Second,
		},
		FallbackExporter: ExporterNoop,
	}
}

// ApplyDefaults 填充零值字段
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ServiceName == "" {
		c.ServiceName = d.ServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = d.ServiceVersion
	}
	if c.Exporter.Type == "" {
		c.Exporter.Type = d.Exporter.Type
	}
	if c.Exporter.Endpoint == "" {
		c.Exporter.Endpoint = d.Exporter.Endpoint
	}
	if c.Exporter.Timeout == 0 {
		c.Exporter.Timeout = d.Exporter.Timeout
	}
	if c.Sampler.Type == "" {
		c.Sampler = d.Sampler
	}
	if c.Batch.MaxQueueSize == 0 {
		c.Batch.MaxQueueSize = d.Batch.MaxQueueSize
	}
	if c.Batch.MaxExportBatchSize == 0 {
		c.Batch.MaxExportBatchSize = d.Batch.MaxExportBatchSize
	}
	if c.Batch.ScheduleDelay == 0 {
		c.Batch.ScheduleDelay = d.Batch.ScheduleDelay
	}
	if c.Batch.ExportTimeout == 0 {
		c.Batch.ExportTimeout = d.Batch.ExportTimeout
	}
	if c.Metrics.Exporter == "" {
		c.Metrics.Exporter = d.Metrics.Exporter
	}
	if c.Metrics.ExportInterval == 0 {
		c.Metrics.ExportInterval = d.Metrics.ExportInterval
	}
	if c.Metrics.ExportTimeout == 0 {
		c.Metrics.ExportTimeout = d.Metrics.ExportTimeout
	}
	if c.FallbackExporter == "" {
		c.FallbackExporter = d.FallbackExporter
	}
}

// Validate 未启用时不校验
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	exporters := []any{ExporterOTLP, ExporterStdout, ExporterNoop}
	return validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.Exporter, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Exporter,
				validation.Field(&c.Exporter.Type, validation.In(exporters...)),
				validation.Field(&c.Exporter.Endpoint,
					validation.When(c.Exporter.Type == ExporterOTLP, validation.Required)),
			)
		})),
		validation.Field(&c.Sampler, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Sampler,
				validation.Field(&c.Sampler.Type,
					validation.In("always_on", "always_off", "trace_id_ratio", "parent_based_always_on")),
				validation.Field(&c.Sampler.Ratio, validation.Min(0.0), validation.Max(1.0)),
			)
		})),
		validation.Field(&c.Metrics, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Metrics,
				validation.Field(&c.Metrics.Exporter, validation.In(ExporterOTLP, ExporterStdout)),
			)
		})),
		validation.Field(&c.FallbackExporter, validation.In(exporters...)),
	)
}
