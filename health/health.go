// Package health 汇总数据库、共享缓存与消息队列的健康状态
package health

import (
	"context"
	"net/http"
	"time"
)

// Status 整体或单项状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded" // 非关键项失败，读写仍可回落到数据库
	StatusUnhealthy Status = "unhealthy"
)

// HTTPStatus 只有 unhealthy 返回 503，降级仍然可以接流量
func (s Status) HTTPStatus() int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Checker 单个依赖的探测
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CriticalChecker 由非关键依赖实现并返回 false；未实现视为关键
type CriticalChecker interface {
	Critical() bool
}

func isCritical(c Checker) bool {
	cc, ok := c.(CriticalChecker)
	return !ok || cc.Critical()
}

// CheckResult 单项结果
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Critical  bool          `json:"critical"`
	Message   string        `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Response /health 响应体，Checks 以检查项名称为键
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Checks    map[string]CheckResult `json:"checks"`
	Metadata  map[string]any         `json:"metadata,omitempty"`
}

func (r *Response) IsHealthy() bool  { return r.Status == StatusHealthy }
func (r *Response) IsDegraded() bool { return r.Status == StatusDegraded }
