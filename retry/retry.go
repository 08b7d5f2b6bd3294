// Package retry 提供带退避的重试（用于启动阶段连接 Redis / 数据库 / Kafka）
package retry

import (
	"context"
	"time"
)

// Do 执行操作，失败时重试
// 全部失败或条件不允许重试时返回 *ExhaustedError
func Do(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	_, err := DoWithData(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	}, opts...)
	return err
}

// DoWithData 执行操作并返回数据，失败时重试
func DoWithData[T any](ctx context.Context, operation func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	cfg := newPolicy(opts)

	var (
		result T
		errs   []error
	)

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var err error
		result, err = operation(ctx)
		if err == nil {
			return result, nil
		}
		errs = append(errs, err)

		if !cfg.condition.ShouldRetry(err, attempt) || attempt == cfg.maxAttempts {
			return result, &ExhaustedError{Attempts: attempt, Errors: errs}
		}

		backoff := cfg.backoff.Next(attempt)
		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err, backoff)
		}

		// 剩余时间不足以等待下一次
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < backoff {
			return result, &ExhaustedError{
				Attempts: attempt,
				Errors:   append(errs, context.DeadlineExceeded),
			}
		}

		if err := cfg.sleep(ctx, backoff); err != nil {
			return result, err
		}
	}

	return result, &ExhaustedError{Attempts: cfg.maxAttempts, Errors: errs}
}
