// Package testutil 测试辅助：内存 SQLite 区域库与 HTTP 请求构建
package testutil

import (
	"context"
	"testing"

	"github.com/KOMKZ/go-yogan-articlecache/database"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/stretchr/testify/require"
)

// SQLiteConfigs 每个区域一个共享内存 SQLite 库
//
// DSN 带上测试名，同一进程内的并行测试互不干扰
func SQLiteConfigs(t testing.TB, autoMigrate bool, regions ...string) map[string]database.Config {
	t.Helper()
	configs := make(map[string]database.Config, len(regions))
	for _, region := range regions {
		configs[region] = database.Config{
			Driver:      "sqlite",
			DSN:         "file:" + t.Name() + region + "?mode=memory&cache=shared",
			AutoMigrate: autoMigrate,
		}
	}
	return configs
}

// NewDatabases 创建区域数据库管理器并迁移 models
//
// 用法：
//
//	dbs := testutil.NewDatabases(t, []any{&article.Article{}}, "Europe", "Asia")
func NewDatabases(t testing.TB, models []any, regions ...string) *database.Manager {
	t.Helper()
	dbs, err := database.NewManager(SQLiteConfigs(t, true, regions...), nil, logger.Nop())
	require.NoError(t, err, "创建数据库失败")
	t.Cleanup(func() { _ = dbs.Close() })

	if len(models) > 0 {
		require.NoError(t, dbs.AutoMigrate(context.Background(), models...), "迁移表结构失败")
	}
	return dbs
}

