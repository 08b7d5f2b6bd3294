package retry

import (
	"context"
	"time"
)

// policy 一次 Do 调用的重试策略，由 Option 组装
type policy struct {
	maxAttempts int
	backoff     BackoffStrategy
	condition   RetryCondition
	onRetry     func(attempt int, err error, next time.Duration)
	sleep       func(ctx context.Context, d time.Duration) error
}

// newPolicy 默认 3 次，1s 起指数退避，所有错误都重试
func newPolicy(opts []Option) *policy {
	p := &policy{
		maxAttempts: 3,
		backoff:     ExponentialBackoff(time.Second),
		condition:   AlwaysRetry(),
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type Option func(*policy)

// MaxAttempts n <= 0 时保持默认
func MaxAttempts(n int) Option {
	return func(p *policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func Backoff(b BackoffStrategy) Option {
	return func(p *policy) {
		if b != nil {
			p.backoff = b
		}
	}
}

func Condition(cond RetryCondition) Option {
	return func(p *policy) {
		if cond != nil {
			p.condition = cond
		}
	}
}

// OnRetry 每次失败且即将等待时调用，next 为本次等待时长
func OnRetry(f func(attempt int, err error, next time.Duration)) Option {
	return func(p *policy) { p.onRetry = f }
}

// WithSleep 测试中替换真实等待
func WithSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(p *policy) {
		if f != nil {
			p.sleep = f
		}
	}
}

// ConnectDefaults 启动期连接 broker 使用：10 次，2s 起翻倍，上限 30s，无抖动
func ConnectDefaults() []Option {
	return []Option{
		MaxAttempts(10),
		Backoff(ExponentialBackoff(2*time.Second, WithMaxDelay(30*time.Second), WithJitter(0))),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
