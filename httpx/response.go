package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/KOMKZ/go-yogan-articlecache/errcode"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response 统一响应：code 为 0 表示成功，否则为 LayeredError 错误码或 HTTP 状态码
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data any    `json:"data,omitempty"`
}

// OkJson 200 成功响应
func OkJson(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Msg: "success", Data: data})
}

func statusJson(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Code: status, Msg: msg})
}

// NoRouteHandler engine.NoRoute 使用的 404
func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		statusJson(c, http.StatusNotFound, "路由不存在: "+c.Request.Method+" "+c.Request.URL.Path)
	}
}

// NoMethodHandler engine.NoMethod 使用的 405
func NoMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		statusJson(c, http.StatusMethodNotAllowed, "方法不允许: "+c.Request.Method+" "+c.Request.URL.Path)
	}
}

// HandleError 把 err 写成 JSON 响应
//
//   - LayeredError：保留 HTTP 状态、错误码、消息与附加数据
//   - gorm.ErrRecordNotFound：404
//   - context.DeadlineExceeded：504（数据库或缓存调用超出请求期限）
//   - 其他：500，不向调用方暴露错误文本
//
// 是否记录日志由 ErrorLoggingMiddleware 注入的配置决定
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	cfg := getErrorLoggingConfig(c)

	var layeredErr *errcode.LayeredError
	switch {
	case errors.As(err, &layeredErr):
		status := layeredErr.HTTPStatus()
		if cfg.shouldLog(status) {
			fields := []zap.Field{
				zap.Int("error_code", layeredErr.Code()),
				zap.String("error_msg", layeredErr.Message()),
			}
			if cfg.FullErrorChain {
				fields = append(fields, zap.String("error_chain", layeredErr.String()), zap.Error(err))
			}
			cfg.log(c, "业务错误", fields...)
		}
		c.JSON(status, Response{
			Code: layeredErr.Code(),
			Msg:  layeredErr.Message(),
			Data: layeredErr.Data(),
		})

	case errors.Is(err, gorm.ErrRecordNotFound):
		if cfg.shouldLog(http.StatusNotFound) {
			cfg.log(c, "resource does not exist", zap.Error(err))
		}
		statusJson(c, http.StatusNotFound, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		if cfg.shouldLog(http.StatusGatewayTimeout) {
			cfg.log(c, "request deadline exceeded", zap.Error(err))
		}
		statusJson(c, http.StatusGatewayTimeout, "请求超时")

	default:
		if cfg.shouldLog(http.StatusInternalServerError) {
			cfg.log(c, "general error", zap.Error(err))
		}
		statusJson(c, http.StatusInternalServerError, "内部服务器错误")
	}
}
