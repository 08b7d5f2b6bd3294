package metrics

import (
	"net/http"

	"github.com/KOMKZ/go-yogan-articlecache/errcode"
)

// ModuleCode 指标模块码
const ModuleCode = 74

var (
	// ErrCounterUpdate 计数器写入失败
	ErrCounterUpdate = errcode.Register(errcode.New(ModuleCode, 1, "metrics", "error.metrics.counter_update", "计数器更新失败",
		http.StatusInternalServerError))

	// ErrCounterRead 计数器读取失败
	ErrCounterRead = errcode.Register(errcode.New(ModuleCode, 2, "metrics", "error.metrics.counter_read", "计数器读取失败",
		http.StatusServiceUnavailable))
)
