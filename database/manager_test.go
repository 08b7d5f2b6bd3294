package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type testRow struct {
	ID      int64 `gorm:"primaryKey;autoIncrement"`
	Name    string
	Created time.Time
}

func newTestManager(t *testing.T, names ...string) *Manager {
	t.Helper()
	configs := make(map[string]Config)
	for _, name := range names {
		configs[name] = Config{Driver: "sqlite", DSN: "file:" + t.Name() + name + "?mode=memory&cache=shared", AutoMigrate: true}
	}
	m, err := NewManager(configs, nil, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.AutoMigrate(context.Background(), &testRow{}))
	return m
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Driver: "sqlite", DSN: ":memory:"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.MaxOpenConns)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowThreshold)

	missing := Config{Driver: "sqlite"}
	assert.True(t, errors.Is(missing.Validate(), ErrInvalidConfig))

	oracle := Config{Driver: "oracle", DSN: "x"}
	assert.True(t, errors.Is(oracle.Validate(), ErrUnsupportedDriver))
}

func TestNewManager_NilLogger(t *testing.T) {
	_, err := NewManager(map[string]Config{}, nil, nil)
	assert.Error(t, err)
}

func TestManager_NamesAndPing(t *testing.T) {
	m := newTestManager(t, "Europe", "Asia")

	assert.Equal(t, []string{"Asia", "Europe"}, m.Names())
	assert.NotNil(t, m.DB("Europe"))
	assert.Nil(t, m.DB("Mars"))
	assert.NoError(t, m.Ping(context.Background()))

	hc := NewHealthChecker(m)
	assert.Equal(t, "database", hc.Name())
	assert.True(t, hc.Critical())
	assert.NoError(t, hc.Check(context.Background()))

	_, err := m.Stats("Mars")
	assert.True(t, errors.Is(err, ErrInstanceNotFound))
}

func TestHealthChecker_ReportsEveryDownPartition(t *testing.T) {
	m := newTestManager(t, "Europe", "Asia", "Africa")
	for _, name := range []string{"Asia", "Africa"} {
		sqlDB, err := m.DB(name).DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	}

	err := NewHealthChecker(m).Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partition Asia")
	assert.Contains(t, err.Error(), "partition Africa")
	assert.NotContains(t, err.Error(), "partition Europe")

	assert.Error(t, NewHealthChecker(nil).Check(context.Background()))
}

func TestBaseRepository_CRUD(t *testing.T) {
	m := newTestManager(t, "Europe")
	repo := NewBaseRepository[testRow](m.DB("Europe"))
	ctx := context.Background()

	row := &testRow{Name: "first", Created: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, row))
	require.NotZero(t, row.ID)

	got, ok, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", got.Name)

	_, ok, err = repo.FindByID(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)

	got.Name = "renamed"
	require.NoError(t, repo.Save(ctx, got))
	again, _, _ := repo.FindByID(ctx, row.ID)
	assert.Equal(t, "renamed", again.Name)

	removed, err := repo.DeleteByID(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.DeleteByID(ctx, row.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestBaseRepository_FindSince(t *testing.T) {
	m := newTestManager(t, "Asia")
	repo := NewBaseRepository[testRow](m.DB("Asia"))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &testRow{Name: "old", Created: now.Add(-30 * 24 * time.Hour)}))
	require.NoError(t, repo.Create(ctx, &testRow{Name: "recent", Created: now.Add(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, &testRow{Name: "newest", Created: now}))

	rows, err := repo.FindSince(ctx, "created", now.Add(-14*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "newest", rows[0].Name)
}

func TestGormLoggerFactory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	factory := NewGormLoggerFactory(logger.Wrap(zap.New(core)))

	m, err := NewManager(map[string]Config{
		"Europe": {Driver: "sqlite", DSN: "file:factory?mode=memory&cache=shared", EnableLog: true, EnableAudit: true, AutoMigrate: true},
	}, factory, logger.Nop())
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.AutoMigrate(context.Background(), &testRow{}))
	assert.Greater(t, logs.FilterField(zap.String("db", "Europe")).Len(), 0)
}

func TestDBMetrics_Plugin(t *testing.T) {
	m := newTestManager(t, "Europe")

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	dbm, err := NewDBMetrics(provider.Meter("test"), time.Second)
	require.NoError(t, err)
	require.NoError(t, m.Use(func(name string) gorm.Plugin { return dbm.Plugin(name) }))

	repo := NewBaseRepository[testRow](m.DB("Europe"))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &testRow{Name: "x", Created: time.Now()}))
	_, _, err = repo.FindByID(ctx, 1)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "db_queries_total" {
				continue
			}
			for _, dp := range metric.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), total)
}
