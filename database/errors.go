package database

import (
	"net/http"

	"github.com/KOMKZ/go-yogan-articlecache/errcode"
)

// ModuleCode 数据库模块码
const ModuleCode = 73

var (
	// ErrInvalidConfig Invalid Configuration
	ErrInvalidConfig = errcode.Register(errcode.New(ModuleCode, 1, "database", "error.database.invalid_config",
		"invalid database config", http.StatusInternalServerError))

	// ErrUnsupportedDriver driver is not mysql / postgres / sqlite
	ErrUnsupportedDriver = errcode.Register(errcode.New(ModuleCode, 2, "database", "error.database.unsupported_driver",
		"unsupported database driver", http.StatusInternalServerError))

	// ErrConnectionFailed Connection failed
	ErrConnectionFailed = errcode.Register(errcode.New(ModuleCode, 3, "database", "error.database.connection_failed",
		"database connection failed", http.StatusServiceUnavailable))

	// ErrInstanceNotFound no database configured for the partition
	ErrInstanceNotFound = errcode.Register(errcode.New(ModuleCode, 4, "database", "error.database.instance_not_found",
		"database instance not found", http.StatusNotFound))

	// ErrQuery query failed
	ErrQuery = errcode.Register(errcode.New(ModuleCode, 5, "database", "error.database.query",
		"database query failed", http.StatusInternalServerError))
)
