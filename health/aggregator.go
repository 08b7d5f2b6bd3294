package health

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Aggregator 并发执行全部检查项并汇总状态
//
// 任一关键项失败为 unhealthy；只有非关键项失败（Redis、Kafka）为 degraded
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
	metadata map[string]any
}

// NewAggregator timeout 为整轮检查的上限，<= 0 时取 5 秒
func NewAggregator(timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Aggregator{
		timeout:  timeout,
		metadata: make(map[string]any),
	}
}

// Register 注册检查项，同名检查项会被替换
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, existing := range a.checkers {
		if existing.Name() == checker.Name() {
			a.checkers[i] = checker
			return
		}
	}
	a.checkers = append(a.checkers, checker)
}

// SetMetadata 附加到每次响应的元数据（服务名、版本）
func (a *Aggregator) SetMetadata(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metadata[key] = value
}

// Check 执行一轮检查
func (a *Aggregator) Check(ctx context.Context) *Response {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	metadata := maps.Clone(a.metadata)
	a.mu.RUnlock()

	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(checkers))
		g      errgroup.Group
	)
	for _, checker := range checkers {
		g.Go(func() error {
			result := checkOne(checkCtx, checker)
			mu.Lock()
			checks[result.Name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return &Response{
		Status:    overallStatus(checks),
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Checks:    checks,
		Metadata:  metadata,
	}
}

func checkOne(ctx context.Context, checker Checker) (result CheckResult) {
	start := time.Now()
	result = CheckResult{
		Name:      checker.Name(),
		Critical:  isCritical(checker),
		Timestamp: start,
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return checker.Check(ctx)
	}()
	result.Duration = time.Since(start)

	switch {
	case err == nil:
		result.Status = StatusHealthy
		result.Message = "OK"
	case result.Critical:
		result.Status = StatusUnhealthy
		result.Message = "Health check failed"
		result.Error = err.Error()
	default:
		result.Status = StatusDegraded
		result.Message = "Health check failed, running degraded"
		result.Error = err.Error()
	}
	return result
}

func overallStatus(checks map[string]CheckResult) Status {
	status := StatusHealthy
	for _, result := range checks {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}
