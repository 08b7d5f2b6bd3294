package cache

import (
	"errors"
	"net/http"

	"github.com/KOMKZ/go-yogan-articlecache/breaker"
	"github.com/KOMKZ/go-yogan-articlecache/errcode"
)

// 模块码
const (
	ModuleCode = 70 // 缓存模块码
)

// 错误码定义
const (
	// 缓存层错误码：70xxxx
	ErrCodeCacheMiss     = 1
	ErrCodeSerialize     = 4
	ErrCodeDeserialize   = 5
	ErrCodeStoreGet      = 6
	ErrCodeStoreSet      = 7
	ErrCodeStoreDelete   = 8
	ErrCodeConfigInvalid = 9
	ErrCodeCompress      = 11
	ErrCodeDecompress    = 12
	ErrCodeStoreFailed   = 13
)

var (
	// ErrCacheMiss 缓存未命中
	ErrCacheMiss = errcode.Register(errcode.New(
		ModuleCode, ErrCodeCacheMiss,
		"cache", "error.cache.miss", "缓存未命中",
		http.StatusOK,
	))

	// ErrSerialize 序列化错误
	ErrSerialize = errcode.Register(errcode.New(
		ModuleCode, ErrCodeSerialize,
		"cache", "error.cache.serialize", "序列化失败",
		http.StatusInternalServerError,
	))

	// ErrDeserialize 反序列化错误
	ErrDeserialize = errcode.Register(errcode.New(
		ModuleCode, ErrCodeDeserialize,
		"cache", "error.cache.deserialize", "反序列化失败",
		http.StatusInternalServerError,
	))

	// ErrStoreGet 二级缓存读取错误
	ErrStoreGet = errcode.Register(errcode.New(
		ModuleCode, ErrCodeStoreGet,
		"cache", "error.cache.store_get", "存储获取失败",
		http.StatusInternalServerError,
	))

	// ErrStoreSet 二级缓存写入错误
	ErrStoreSet = errcode.Register(errcode.New(
		ModuleCode, ErrCodeStoreSet,
		"cache", "error.cache.store_set", "存储设置失败",
		http.StatusInternalServerError,
	))

	// ErrStoreDelete 二级缓存删除错误
	ErrStoreDelete = errcode.Register(errcode.New(
		ModuleCode, ErrCodeStoreDelete,
		"cache", "error.cache.store_delete", "存储删除失败",
		http.StatusInternalServerError,
	))

	// ErrConfigInvalid 配置无效
	ErrConfigInvalid = errcode.Register(errcode.New(
		ModuleCode, ErrCodeConfigInvalid,
		"cache", "error.cache.config_invalid", "缓存配置无效",
		http.StatusInternalServerError,
	))

	// ErrCompress 压缩失败
	ErrCompress = errcode.Register(errcode.New(
		ModuleCode, ErrCodeCompress,
		"cache", "error.cache.compress", "压缩失败",
		http.StatusInternalServerError,
	))

	// ErrDecompress 解压失败（数据损坏或格式不兼容）
	ErrDecompress = errcode.Register(errcode.New(
		ModuleCode, ErrCodeDecompress,
		"cache", "error.cache.decompress", "解压失败",
		http.StatusInternalServerError,
	))

	// ErrStoreFailed 权威数据源调用失败（唯一向调用方暴露的错误）
	ErrStoreFailed = errcode.Register(errcode.New(
		ModuleCode, ErrCodeStoreFailed,
		"cache", "error.cache.store_failed", "数据源访问失败",
		http.StatusServiceUnavailable,
	))
)

// IsUnavailable reports whether err means the second tier could not be reached
// (connection failure, timeout, open circuit) as opposed to a plain miss
func IsUnavailable(err error) bool {
	if err == nil || errors.Is(err, ErrCacheMiss) {
		return false
	}
	return errors.Is(err, ErrStoreGet) ||
		errors.Is(err, ErrStoreSet) ||
		errors.Is(err, ErrStoreDelete) ||
		breaker.IsRejection(err)
}
