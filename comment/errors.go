package comment

import (
	"net/http"

	"github.com/KOMKZ/go-yogan-articlecache/errcode"
)

// ModuleCode 评论模块码
const ModuleCode = 75

var (
	// ErrNotFound comment does not exist
	ErrNotFound = errcode.Register(errcode.New(ModuleCode, 1, "comment", "error.comment.not_found",
		"comment not found", http.StatusNotFound))

	// ErrLoadFailed the comment store could not be read or written
	ErrLoadFailed = errcode.Register(errcode.New(ModuleCode, 2, "comment", "error.comment.load_failed",
		"comment store unavailable", http.StatusServiceUnavailable))
)
