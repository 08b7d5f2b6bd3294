package database

import (
	"context"
	"errors"
	"fmt"
)

// HealthChecker 逐个分区 ping；数据库是权威数据源，任一分区不可达即不健康
type HealthChecker struct {
	manager *Manager
}

func NewHealthChecker(manager *Manager) *HealthChecker {
	return &HealthChecker{manager: manager}
}

func (h *HealthChecker) Name() string   { return "database" }
func (h *HealthChecker) Critical() bool { return true }

// Check 汇总所有不可达分区，而不是在第一个失败处返回
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.manager == nil {
		return errors.New("database manager not initialized")
	}
	names := h.manager.Names()
	if len(names) == 0 {
		return errors.New("no partitions configured")
	}

	var errs []error
	for _, name := range names {
		sqlDB, err := h.manager.DB(name).DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("partition %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
