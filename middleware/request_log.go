package middleware

import (
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogConfig HTTP request log configuration
type RequestLogConfig struct {
	// SkipPaths list of paths to skip recording
	SkipPaths []string `mapstructure:"skip_paths"`
}

// DefaultRequestLogConfig skips health and scrape endpoints
func DefaultRequestLogConfig() RequestLogConfig {
	return RequestLogConfig{
		SkipPaths: []string{"/metrics", "/health/liveness", "/health/readiness"},
	}
}

// RequestLog structured request log. 500+ logs at error, 400+ at warn, the rest at info.
// The trace ID set by TraceID is attached through the request context.
func RequestLog(cfg RequestLogConfig, log *logger.CtxZapLogger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}

	skipPaths := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("error", errs))
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.ErrorCtx(ctx, "HTTP 请求", fields...)
		case status >= 400:
			log.WarnCtx(ctx, "HTTP 请求", fields...)
		default:
			log.InfoCtx(ctx, "HTTP 请求", fields...)
		}
	}
}
