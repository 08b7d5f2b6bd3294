package middleware

import (
	"net/http"

	"github.com/KOMKZ/go-yogan-articlecache/health"
	"github.com/gin-gonic/gin"
)

// HealthCheckHandler 健康检查 HTTP Handler
type HealthCheckHandler struct {
	aggregator *health.Aggregator
}

// NewHealthCheckHandler 创建健康检查 Handler
func NewHealthCheckHandler(aggregator *health.Aggregator) *HealthCheckHandler {
	return &HealthCheckHandler{aggregator: aggregator}
}

// Handle 完整健康检查；降级仍返回 200，在响应体中标识
func (h *HealthCheckHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.aggregator.Check(c.Request.Context())
		c.JSON(response.Status.HTTPStatus(), response)
	}
}

// HandleLiveness 存活探针，不检查依赖项
func (h *HealthCheckHandler) HandleLiveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "alive",
		})
	}
}

// HandleReadiness 就绪探针
// 共享缓存或消息队列不可用时仍可服务（读写回落到数据库），只有关键项失败才不就绪
func (h *HealthCheckHandler) HandleReadiness() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.aggregator.Check(c.Request.Context())
		c.JSON(response.Status.HTTPStatus(), gin.H{
			"status": response.Status,
		})
	}
}

// RegisterHealthRoutes 注册 /health、/health/liveness、/health/readiness
func RegisterHealthRoutes(router gin.IRouter, aggregator *health.Aggregator) {
	if aggregator == nil {
		return
	}

	handler := NewHealthCheckHandler(aggregator)

	router.GET("/health", handler.Handle())
	router.GET("/health/liveness", handler.HandleLiveness())
	router.GET("/health/readiness", handler.HandleReadiness())
}
