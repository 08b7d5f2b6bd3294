package httpx

import (
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const errorLoggingConfigKey = "httpx:error_logging_config"

// errorLogging 请求级别的错误日志策略，忽略列表预先转成 map
type errorLogging struct {
	Enable         bool
	FullErrorChain bool
	LogLevel       string
	ignore         map[int]bool
	logger         *logger.CtxZapLogger
}

func (e errorLogging) shouldLog(status int) bool {
	return e.Enable && !e.ignore[status]
}

func (e errorLogging) log(c *gin.Context, msg string, fields ...zap.Field) {
	log := e.logger
	if log == nil {
		log = logger.Nop()
	}
	ctx := c.Request.Context()
	switch e.LogLevel {
	case "warn":
		log.WarnCtx(ctx, msg, fields...)
	case "info":
		log.InfoCtx(ctx, msg, fields...)
	default:
		log.ErrorCtx(ctx, msg, fields...)
	}
}

// ErrorLoggingMiddleware 把错误日志策略注入 Context，供 HandleError 使用；log 为 nil 时不输出
func ErrorLoggingMiddleware(cfg ErrorLoggingConfig, log *logger.CtxZapLogger) gin.HandlerFunc {
	policy := errorLogging{
		Enable:         cfg.Enable,
		FullErrorChain: cfg.FullErrorChain,
		LogLevel:       cfg.LogLevel,
		ignore:         make(map[int]bool, len(cfg.IgnoreHTTPStatus)),
		logger:         log,
	}
	for _, status := range cfg.IgnoreHTTPStatus {
		policy.ignore[status] = true
	}

	return func(c *gin.Context) {
		c.Set(errorLoggingConfigKey, policy)
		c.Next()
	}
}

// getErrorLoggingConfig 未挂载中间件时不记录日志
func getErrorLoggingConfig(c *gin.Context) errorLogging {
	if val, ok := c.Get(errorLoggingConfigKey); ok {
		if policy, ok := val.(errorLogging); ok {
			return policy
		}
	}
	return errorLogging{FullErrorChain: true, LogLevel: "error"}
}
