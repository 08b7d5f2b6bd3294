// Package errcode provides layered error codes shared by the cache, article and warmer modules.
// Error code format: MMBBBB (MM = module code, BBBB = business code)
package errcode

import (
	"fmt"
	"net/http"
)

// LayeredError hierarchical error code
// Supports error chaining, dynamic messages, context data and HTTP status mapping
type LayeredError struct {
	module     string         // Module name (cache, article, warmer)
	code       int            // Complete error code (MMBBBB, e.g. 700001)
	msgKey     string         // Message key, e.g. "error.cache.miss"
	msg        string         // Default message
	httpStatus int            // HTTP status code
	data       map[string]any // context data
	cause      error          // Original error (error chain)
}

// New creates a layered error code
// moduleCode: module code (10-99)
// businessCode: business code (0001-9999)
// httpStatus: optional, defaults to 200
func New(moduleCode, businessCode int, module, msgKey, msg string, httpStatus ...int) *LayeredError {
	status := http.StatusOK
	if len(httpStatus) > 0 {
		status = httpStatus[0]
	}
	return &LayeredError{
		module:     module,
		code:       moduleCode*10000 + businessCode,
		msgKey:     msgKey,
		msg:        msg,
		httpStatus: status,
		data:       make(map[string]any),
	}
}

// Error implements error
func (e *LayeredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Code returns the complete error code
func (e *LayeredError) Code() int {
	return e.code
}

// Module returns the module name
func (e *LayeredError) Module() string {
	return e.module
}

// MsgKey returns the message key
func (e *LayeredError) MsgKey() string {
	return e.msgKey
}

// Message returns the (possibly overridden) message without the cause
func (e *LayeredError) Message() string {
	return e.msg
}

// HTTPStatus returns the mapped HTTP status code
func (e *LayeredError) HTTPStatus() int {
	return e.httpStatus
}

// Data returns the context data
func (e *LayeredError) Data() map[string]any {
	return e.data
}

// Unwrap supports errors.Is / errors.As through the cause chain
func (e *LayeredError) Unwrap() error {
	return e.cause
}

// WithMsg replaces the message (returns a new instance)
func (e *LayeredError) WithMsg(msg string) *LayeredError {
	clone := *e
	clone.msg = msg
	return &clone
}

// WithMsgf formats a replacement message (returns a new instance)
func (e *LayeredError) WithMsgf(format string, args ...any) *LayeredError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// WithData adds a single context value (returns a new instance)
func (e *LayeredError) WithData(key string, value any) *LayeredError {
	clone := *e
	clone.data = make(map[string]any, len(e.data)+1)
	for k, v := range e.data {
		clone.data[k] = v
	}
	clone.data[key] = value
	return &clone
}

// Wrap wraps the original error (returns a new instance)
func (e *LayeredError) Wrap(cause error) *LayeredError {
	if cause == nil {
		return e
	}
	clone := *e
	clone.cause = cause
	return &clone
}

// Is compares by code, so wrapped or re-messaged copies still match their sentinel
func (e *LayeredError) Is(target error) bool {
	t, ok := target.(*LayeredError)
	if !ok {
		return false
	}
	return e.code == t.code
}

// String returns a debug representation
func (e *LayeredError) String() string {
	if e.cause != nil {
		return fmt.Sprintf("LayeredError{code:%d, module:%s, msg:%s, cause:%v}",
			e.code, e.module, e.msg, e.cause)
	}
	return fmt.Sprintf("LayeredError{code:%d, module:%s, msg:%s}",
		e.code, e.module, e.msg)
}
