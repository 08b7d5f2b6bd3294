package retry

import (
	"context"
	"errors"
)

// RetryCondition 重试条件接口
type RetryCondition interface {
	// ShouldRetry 判断是否应该重试
	ShouldRetry(err error, attempt int) bool
}

// RetryConditionFunc 函数式重试条件
type RetryConditionFunc func(err error, attempt int) bool

// ShouldRetry 实现 RetryCondition 接口
func (f RetryConditionFunc) ShouldRetry(err error, attempt int) bool {
	return f(err, attempt)
}

// AlwaysRetry 所有错误都重试（Context 取消除外）
func AlwaysRetry() RetryCondition {
	return RetryConditionFunc(func(err error, _ int) bool {
		return !errors.Is(err, context.Canceled)
	})
}

// NeverRetry 不重试
func NeverRetry() RetryCondition {
	return RetryConditionFunc(func(error, int) bool { return false })
}

// RetryOnCondition 自定义判断函数
func RetryOnCondition(fn func(error) bool) RetryCondition {
	return RetryConditionFunc(func(err error, _ int) bool {
		return fn(err)
	})
}

// Not 条件取反
func Not(cond RetryCondition) RetryCondition {
	return RetryConditionFunc(func(err error, attempt int) bool {
		return !cond.ShouldRetry(err, attempt)
	})
}
