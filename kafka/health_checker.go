package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const healthCheckTimeout = 3 * time.Second

// HealthChecker 通过刷新集群元数据探测 broker 可达性
//
// 文章接入中断不影响缓存读写，故为非关键项：失败只会让 /health 降级
type HealthChecker struct {
	manager *Manager
	timeout time.Duration
}

// NewHealthChecker manager 为 nil 时 Check 始终失败
func NewHealthChecker(manager *Manager) *HealthChecker {
	return &HealthChecker{manager: manager, timeout: healthCheckTimeout}
}

func (h *HealthChecker) Name() string   { return "kafka" }
func (h *HealthChecker) Critical() bool { return false }

func (h *HealthChecker) Check(ctx context.Context) error {
	if h.manager == nil {
		return errors.New("kafka disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.manager.Ping(ctx); err != nil {
		return fmt.Errorf("brokers %v: %w", h.manager.Config().Brokers, err)
	}
	return nil
}
