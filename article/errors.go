package article

import (
	"net/http"

	"github.com/KOMKZ/go-yogan-articlecache/errcode"
)

// ModuleCode 文章模块码
const ModuleCode = 71

var (
	// ErrUnknownRegion no database is configured for the region
	ErrUnknownRegion = errcode.Register(errcode.New(ModuleCode, 1, "article", "error.article.unknown_region",
		"unknown region", http.StatusNotFound))

	// ErrNotFound article does not exist
	ErrNotFound = errcode.Register(errcode.New(ModuleCode, 2, "article", "error.article.not_found",
		"article not found", http.StatusNotFound))

	// ErrInvalidMessage published-article message could not be decoded
	ErrInvalidMessage = errcode.Register(errcode.New(ModuleCode, 3, "article", "error.article.invalid_message",
		"invalid article message", http.StatusBadRequest))
)
