package middleware

import (
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceIDKeyDefault key under which the trace ID is stored in gin.Context
	TraceIDKeyDefault = "trace_id"

	// TraceIDHeaderDefault request/response header carrying the trace ID
	TraceIDHeaderDefault = "X-Trace-ID"
)

// TraceConfig Trace middleware configuration
type TraceConfig struct {
	// TraceIDHeader is the key in the HTTP Header (default "X-Trace-ID")
	TraceIDHeader string

	// EnableResponseHeader whether to write TraceID into Response Header
	EnableResponseHeader bool

	// Generator custom TraceID generator (default uses UUID)
	Generator func() string
}

// DefaultTraceConfig default configuration
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		TraceIDHeader:        TraceIDHeaderDefault,
		EnableResponseHeader: true,
		Generator:            func() string { return uuid.New().String() },
	}
}

// TraceID 提取或生成 TraceID，写入请求 context 供日志使用
//
// 优先级：
//  1. W3C traceparent 头（上游服务已建立 trace）
//  2. X-Trace-ID 头
//  3. Generator 生成
func TraceID(cfg TraceConfig) gin.HandlerFunc {
	if cfg.TraceIDHeader == "" {
		cfg.TraceIDHeader = TraceIDHeaderDefault
	}
	if cfg.Generator == nil {
		cfg.Generator = func() string { return uuid.New().String() }
	}
	propagator := propagation.TraceContext{}

	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		var traceID string
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			traceID = sc.TraceID().String()
		} else {
			traceID = c.GetHeader(cfg.TraceIDHeader)
			if traceID == "" {
				traceID = cfg.Generator()
			}
			ctx = logger.WithTraceID(ctx, traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Set(TraceIDKeyDefault, traceID)
		if cfg.EnableResponseHeader {
			c.Writer.Header().Set(cfg.TraceIDHeader, traceID)
		}

		c.Next()
	}
}

// GetTraceID retrieves the TraceID from gin.Context
func GetTraceID(c *gin.Context) string {
	if id, ok := c.Get(TraceIDKeyDefault); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
