package retry

import (
	"errors"
	"fmt"
)

// ExhaustedError 重试耗尽，Errors 按尝试顺序保存每次失败
type ExhaustedError struct {
	Attempts int
	Errors   []error
}

func (e *ExhaustedError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("retry failed after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("retry failed after %d attempts: %v", e.Attempts, e.Last())
}

// Unwrap errors.Is / errors.As 匹配任意一次失败
func (e *ExhaustedError) Unwrap() []error {
	return e.Errors
}

// Last 最后一次失败
func (e *ExhaustedError) Last() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// GetAttempts 从 Do 返回的错误中取尝试次数，非重试错误返回 0
func GetAttempts(err error) int {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Attempts
	}
	return 0
}
