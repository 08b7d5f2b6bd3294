package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/KOMKZ/go-yogan-articlecache/httpx"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery 捕获 handler 中的 panic，记录堆栈并返回统一的 500 响应（不暴露堆栈）
func Recovery(log *logger.CtxZapLogger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.ErrorCtx(c.Request.Context(), "panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
					zap.String("stack", string(debug.Stack())),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, httpx.Response{
					Code: http.StatusInternalServerError,
					Msg:  "内部服务器错误",
				})
			}
		}()

		c.Next()
	}
}
