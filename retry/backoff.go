package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy 第 attempt 次失败后（从 1 开始）的等待时间
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// BackoffFunc 函数式退避策略
type BackoffFunc func(attempt int) time.Duration

// Next 实现 BackoffStrategy
func (f BackoffFunc) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f(attempt)
}

// BackoffOption 退避策略选项
type BackoffOption func(*backoffConfig)

type backoffConfig struct {
	maxDelay time.Duration
	jitter   float64
}

// WithMaxDelay 单次等待上限（默认 30s）
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(c *backoffConfig) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithJitter 抖动比例 0~1，等待时间在 [d*(1-r), d*(1+r)] 内随机（默认 0.2）
func WithJitter(ratio float64) BackoffOption {
	return func(c *backoffConfig) {
		if ratio >= 0 && ratio <= 1 {
			c.jitter = ratio
		}
	}
}

func newBackoffConfig(opts []BackoffOption) backoffConfig {
	c := backoffConfig{maxDelay: 30 * time.Second, jitter: 0.2}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ExponentialBackoff base, 2*base, 4*base ... 封顶 maxDelay
func ExponentialBackoff(base time.Duration, opts ...BackoffOption) BackoffStrategy {
	c := newBackoffConfig(opts)
	return BackoffFunc(func(attempt int) time.Duration {
		delay := math.Min(float64(base)*math.Pow(2, float64(attempt-1)), float64(c.maxDelay))
		return jitter(delay, c.jitter)
	})
}

// ConstantBackoff 每次等待 delay
func ConstantBackoff(delay time.Duration, opts ...BackoffOption) BackoffStrategy {
	c := newBackoffConfig(opts)
	return BackoffFunc(func(int) time.Duration {
		return jitter(float64(delay), c.jitter)
	})
}

// NoBackoff 立即重试
func NoBackoff() BackoffStrategy {
	return BackoffFunc(func(int) time.Duration { return 0 })
}

func jitter(delay, ratio float64) time.Duration {
	if ratio > 0 {
		delay += (rand.Float64()*2 - 1) * delay * ratio
	}
	return time.Duration(max(delay, 0))
}
