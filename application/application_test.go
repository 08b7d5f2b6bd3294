package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/article"
	"github.com/KOMKZ/go-yogan-articlecache/cache"
	"github.com/KOMKZ/go-yogan-articlecache/comment"
	"github.com/KOMKZ/go-yogan-articlecache/config"
	"github.com/KOMKZ/go-yogan-articlecache/database"
	"github.com/KOMKZ/go-yogan-articlecache/kafka"
	"github.com/KOMKZ/go-yogan-articlecache/metrics"
	"github.com/KOMKZ/go-yogan-articlecache/redis"
	"github.com/KOMKZ/go-yogan-articlecache/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, redisAddr string) *AppConfig {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Logger.EnableConsole = false
	cfg.HTTP.Mode = gin.TestMode
	cfg.Warmer.Enabled = false
	cfg.Databases = testutil.SQLiteConfigs(t, true, "Europe", "Asia")
	if redisAddr != "" {
		cfg.Redis = map[string]redis.Config{"main": {Addr: redisAddr}}
	}
	return &cfg
}

func newTestApp(t *testing.T, cfg *AppConfig) *Application {
	t.Helper()
	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown(5 * time.Second) })
	return app
}

func TestNew_RequiresDatabases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logger.EnableConsole = false

	_, err := New(&cfg)
	assert.Error(t, err)
}

func TestNew_InvalidSection(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Cache.Codec = "lzma"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestApplication_TieredFlow(t *testing.T) {
	mr := miniredis.RunT(t)
	app := newTestApp(t, testConfig(t, mr.Addr()))
	ctx := context.Background()

	require.NoError(t, app.Setup())
	coord, err := app.Coordinator()
	require.NoError(t, err)

	created, err := coord.Create(ctx, "Europe", &article.Article{Title: "Tiered", Content: "body", Author: "ann"})
	require.NoError(t, err)
	key := cache.BuildKey(article.Kind, "Europe", created.ID)

	// Create 只写第二级缓存
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 0, coord.Local().Len())

	// 删除数据库行后仍能从第二级缓存读到
	dbs := do.MustInvoke[*database.Manager](app.Injector())
	require.NoError(t, dbs.DB("Europe").Delete(&article.Article{}, created.ID).Error)

	got, ok, err := coord.Get(ctx, "Europe", created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Tiered", got.Title)
	assert.Equal(t, 1, coord.Local().Len())

	snapshots, err := app.Snapshots(ctx, article.Kind)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, int64(1), snapshots[0].Hits)
	assert.Equal(t, int64(0), snapshots[0].Misses)
}

func TestApplication_UpdateReplacesSecondTier(t *testing.T) {
	mr := miniredis.RunT(t)
	app := newTestApp(t, testConfig(t, mr.Addr()))
	ctx := context.Background()

	coord, err := app.Coordinator()
	require.NoError(t, err)

	created, err := coord.Create(ctx, "Asia", &article.Article{Title: "Before"})
	require.NoError(t, err)
	_, _, err = coord.Get(ctx, "Asia", created.ID)
	require.NoError(t, err)

	title := "After"
	updated, ok, err := coord.Update(ctx, "Asia", created.ID, article.Patch{Title: &title})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, 0, coord.Local().Len())
	assert.True(t, mr.Exists(cache.BuildKey(article.Kind, "Asia", created.ID)))

	got, ok, err := coord.Get(ctx, "Asia", created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "After", got.Title)
}

func TestApplication_CommentListsRecordTheirOwnDomain(t *testing.T) {
	mr := miniredis.RunT(t)
	app := newTestApp(t, testConfig(t, mr.Addr()))
	ctx := context.Background()

	comments, err := app.Comments()
	require.NoError(t, err)

	_, err = comments.Post(ctx, "Europe", 3, comment.Draft{Author: "ann", Content: "first"})
	require.NoError(t, err)
	for range 2 {
		list, err := comments.List(ctx, "Europe", 3)
		require.NoError(t, err)
		require.Len(t, list, 1)
	}

	key := comment.Key("Europe", 3)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 12*time.Hour, mr.TTL(key))
	members, err := mr.ZMembers("comments:recent:Europe")
	require.NoError(t, err)
	assert.Len(t, members, 1)

	snapshots, err := app.Snapshots(ctx, article.Kind, comment.Domain)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, comment.Domain, snapshots[1].Domain)
	assert.Equal(t, int64(1), snapshots[1].Hits)
	assert.Equal(t, int64(1), snapshots[1].Misses)
	assert.Zero(t, snapshots[0].Hits+snapshots[0].Misses)
}

func TestApplication_RedisDownAtStartup(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Close()

	cfg := testConfig(t, mr.Addr())
	cfg.Cache.Breaker.Timeout = 50 * time.Millisecond
	app := newTestApp(t, cfg)
	ctx := context.Background()

	coord, err := app.Coordinator()
	require.NoError(t, err)

	created, err := coord.Create(ctx, "Europe", &article.Article{Title: "Store only"})
	require.NoError(t, err)
	got, ok, err := coord.Get(ctx, "Europe", created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Store only", got.Title)

	_, err = app.Snapshots(ctx)
	assert.ErrorIs(t, err, metrics.ErrCounterRead)

	server, err := app.Server()
	require.NoError(t, err)
	resp := testutil.GET("/api/cachemetrics/cache").Do(server.Engine())
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status())

	// redis 是非关键项：降级但仍可接流量
	resp = testutil.GET("/health").Do(server.Engine())
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.Contains(t, resp.Body(), `"redis"`)
	assert.Contains(t, resp.Body(), `"degraded"`)

	// Redis 恢复后无需重启即可回到第二级缓存
	require.NoError(t, mr.Restart())
	require.Eventually(t, func() bool {
		a, err := coord.Create(ctx, "Europe", &article.Article{Title: "Back"})
		return err == nil && mr.Exists(cache.BuildKey(article.Kind, "Europe", a.ID))
	}, 2*time.Second, 20*time.Millisecond)

	snapshots, err := app.Snapshots(ctx, article.Kind)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
}

func TestApplication_Warm(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr.Addr())
	cfg.Warmer.Partitions = []string{"Asia", "Europe"}
	app := newTestApp(t, cfg)
	ctx := context.Background()

	require.NoError(t, app.Setup())
	repo := do.MustInvoke[*article.Repository](app.Injector())
	inserted, err := repo.Insert(ctx, "Europe", &article.Article{Title: "Fresh"})
	require.NoError(t, err)

	report, err := app.Warm(ctx)
	require.NoError(t, err)
	require.Len(t, report.Partitions, 2)
	assert.Equal(t, "Asia", report.Partitions[0].Partition)
	assert.Equal(t, 0, report.Partitions[0].Found)
	assert.Equal(t, 1, report.Partitions[1].Found)
	assert.Equal(t, 1, report.Partitions[1].Warmed)
	assert.Empty(t, report.Failed())

	assert.True(t, mr.Exists(cache.BuildKey(article.Kind, "Europe", inserted.ID)))
}

func TestApplication_PublishDisabled(t *testing.T) {
	app := newTestApp(t, testConfig(t, ""))

	err := app.Publish(context.Background(), article.Draft{Title: "t", Region: "Europe"})
	assert.ErrorIs(t, err, ErrKafkaDisabled)

	err = app.Publish(context.Background(), article.Draft{})
	assert.Error(t, err)
}

func TestApplication_RunAndShutdown(t *testing.T) {
	mr := miniredis.RunT(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := testConfig(t, mr.Addr())
	cfg.HTTP.Port = port
	cfg.Warmer.Enabled = true
	app, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return app.State() == StateRunning }, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health/liveness", port))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/cachemetrics/cache", port))
	require.NoError(t, err)
	var body struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, 0, body.Code)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateStopped, app.State())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
app:
  name: articlecache-test
logger:
  enable_console: false
databases:
  europe:
    driver: sqlite
    dsn: "file::memory:"
cache:
  local_ttl: 2m
  codec: zstd
warmer:
  window: 48h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("APP_ENV", "test")
	t.Setenv("ARTICLECACHE_HTTP__PORT", "9191")

	cfg, err := Load(config.ProvideLoaderOptions{ConfigPath: dir})
	require.NoError(t, err)

	assert.Equal(t, "articlecache-test", cfg.App.Name)
	assert.Equal(t, "articlecache-test", cfg.Telemetry.ServiceName)
	assert.Contains(t, cfg.Databases, "europe")
	assert.Equal(t, 2*time.Minute, cfg.Cache.LocalTTL)
	assert.Equal(t, "zstd", cfg.Cache.Codec)
	assert.Equal(t, 48*time.Hour, cfg.Warmer.Window)
	assert.Equal(t, 9191, cfg.HTTP.Port)
	regions, err := cfg.Regions()
	require.NoError(t, err)
	partitions, err := cfg.Partitions(regions)
	require.NoError(t, err)
	assert.Equal(t, []string{"europe"}, partitions)
	// 未配置的部分保留默认值
	assert.Equal(t, 100, cfg.Cache.LocalMaxEntries)
	assert.Equal(t, []string{"article", "comment"}, cfg.Metrics.Domains)
}

func TestLoad_RegionCasingFollowsDatabases(t *testing.T) {
	dir := t.TempDir()
	yaml := `
logger:
  enable_console: false
databases:
  Europe:
    driver: sqlite
    dsn: "file:casing?mode=memory&cache=shared"
    auto_migrate: true
warmer:
  partitions: [Europe]
kafka:
  enabled: true
  brokers: [127.0.0.1:9092]
  consumer:
    enabled: true
    group_id: articlecache
    topics: [articles.published]
ingest:
  default_region: Europe
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(config.ProvideLoaderOptions{ConfigPath: dir})
	require.NoError(t, err)
	assert.Contains(t, cfg.Databases, "europe")

	cfg.Kafka.Enabled = false
	app := newTestApp(t, cfg)
	report, err := app.Warm(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Failed())
	require.Len(t, report.Partitions, 1)
	assert.Equal(t, "europe", report.Partitions[0].Partition)
}

func TestValidate_RegionReferences(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.ApplyDefaults()
	cfg.Warmer.Partitions = []string{"EUROPE", "asia"}
	require.NoError(t, cfg.Validate())

	cfg.Warmer.Partitions = []string{"Mars"}
	assert.ErrorContains(t, cfg.Validate(), "warmer.partitions")

	cfg = testConfig(t, "")
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"127.0.0.1:9092"}
	cfg.Kafka.Consumer = kafka.ConsumerConfig{Enabled: true, GroupID: "articlecache", Topics: []string{"articles.published"}}
	cfg.ApplyDefaults()
	cfg.Ingest.DefaultRegion = "global"
	assert.ErrorContains(t, cfg.Validate(), "ingest.default_region")

	cfg.Ingest.DefaultRegion = "Asia"
	assert.NoError(t, cfg.Validate())
}

func TestAppState_String(t *testing.T) {
	assert.Equal(t, "Running", StateRunning.String())
	assert.Equal(t, "Unknown", AppState(42).String())
}
