// Package breaker 提供熔断器功能
//
// 连续失败达到阈值后熔断（Open），超时后进入半开（HalfOpen）试探恢复，
// 试探请求全部成功后关闭（Closed）。
package breaker

import (
	"errors"
)

var (
	// ErrCircuitOpen 熔断打开，调用被拒绝
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests 半开状态下试探请求已满
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭（正常）
	StateClosed State = iota

	// StateOpen 打开（熔断）
	StateOpen

	// StateHalfOpen 半开（试探恢复）
	StateHalfOpen
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// IsOpen 是否处于熔断状态
func (s State) IsOpen() bool {
	return s == StateOpen
}

// IsRejection reports whether err is a breaker rejection rather than a call failure
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}
