package warmer

import (
	"net/http"

	"github.com/KOMKZ/go-yogan-articlecache/errcode"
)

// ModuleCode 预热模块码
const ModuleCode = 72

var (
	// ErrPartitionFailed a partition could not be warmed
	ErrPartitionFailed = errcode.Register(errcode.New(ModuleCode, 1, "warmer", "error.warmer.partition_failed",
		"partition warm-up failed", http.StatusInternalServerError))

	// ErrConfigInvalid invalid warmer configuration
	ErrConfigInvalid = errcode.Register(errcode.New(ModuleCode, 2, "warmer", "error.warmer.config_invalid",
		"invalid warmer configuration", http.StatusInternalServerError))

	// ErrAlreadyStarted Start called twice
	ErrAlreadyStarted = errcode.Register(errcode.New(ModuleCode, 3, "warmer", "error.warmer.already_started",
		"warmer already started", http.StatusConflict))
)
