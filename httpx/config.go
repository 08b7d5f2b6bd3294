// Package httpx 统一处理 HTTP 请求解析、校验与响应
package httpx

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrorLoggingConfig HandleError 的日志策略
type ErrorLoggingConfig struct {
	Enable bool `mapstructure:"enable" json:"enable"`

	// IgnoreHTTPStatus 不记录这些状态码，默认忽略 400 与 404（请求错误与文章不存在属于正常流量）
	IgnoreHTTPStatus []int `mapstructure:"ignore_http_status" json:"ignore_http_status"`

	// FullErrorChain 为 false 时只记录 error_code 与 error_msg
	FullErrorChain bool `mapstructure:"full_error_chain" json:"full_error_chain"`

	// LogLevel error, warn, info
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// DefaultErrorLoggingConfig 默认只记录服务端错误（含共享计数器不可用的 503）
func DefaultErrorLoggingConfig() ErrorLoggingConfig {
	return ErrorLoggingConfig{
		Enable:           true,
		IgnoreHTTPStatus: []int{http.StatusBadRequest, http.StatusNotFound},
		FullErrorChain:   true,
		LogLevel:         "error",
	}
}

// Validate 验证配置
func (c ErrorLoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogLevel, validation.In("error", "warn", "info")),
		validation.Field(&c.IgnoreHTTPStatus, validation.Each(validation.Min(100), validation.Max(599))),
	)
}
