package redis

import (
	"context"
	"errors"
)

// HealthChecker 共享缓存层探测；Redis 不可用时读写回落到数据库，故为非关键项
type HealthChecker struct {
	manager *Manager
}

func NewHealthChecker(manager *Manager) *HealthChecker {
	return &HealthChecker{manager: manager}
}

func (h *HealthChecker) Name() string   { return "redis" }
func (h *HealthChecker) Critical() bool { return false }

func (h *HealthChecker) Check(ctx context.Context) error {
	if h.manager == nil {
		return errors.New("redis manager not initialized")
	}
	return h.manager.Ping(ctx)
}
