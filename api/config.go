package api

import (
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/httpx"
	"github.com/KOMKZ/go-yogan-articlecache/middleware"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config HTTP 服务配置
type Config struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RecentWindow GET /api/article/:region 列出的创建时间窗口
	RecentWindow time.Duration `mapstructure:"recent_window"`

	TraceID      bool                        `mapstructure:"trace_id"`
	RequestLog   middleware.RequestLogConfig `mapstructure:"request_log"`
	ErrorLogging httpx.ErrorLoggingConfig    `mapstructure:"error_logging"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RecentWindow:    14 * 24 * time.Hour,
		TraceID:         true,
		RequestLog:      middleware.DefaultRequestLogConfig(),
		ErrorLogging:    httpx.DefaultErrorLoggingConfig(),
	}
}

// ApplyDefaults 填充零值字段
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.RecentWindow == 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.RequestLog.SkipPaths == nil {
		c.RequestLog = d.RequestLog
	}
	if c.ErrorLogging.LogLevel == "" {
		c.ErrorLogging.LogLevel = d.ErrorLogging.LogLevel
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Mode, validation.In(gin.DebugMode, gin.ReleaseMode, gin.TestMode)),
		validation.Field(&c.RecentWindow, validation.Min(time.Minute)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.ErrorLogging),
	)
}
