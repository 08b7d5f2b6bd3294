package redis

import (
	"context"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Addr: "localhost:6379"}
	cfg.ApplyDefaults()

	assert.Equal(t, "standalone", cfg.Mode)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Addrs)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.ReadTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{"无效的模式", Config{Mode: "sentinel", Addrs: []string{"a:1"}}, "invalid mode"},
		{"空地址列表", Config{Mode: "standalone"}, "addrs cannot be empty"},
		{"DB 越界", Config{Mode: "standalone", Addrs: []string{"a:1"}, DB: 16}, "db must be between"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewManager_NilLogger(t *testing.T) {
	m, err := NewManager(map[string]Config{"main": {Addr: "localhost:6379"}}, nil)
	assert.Error(t, err)
	assert.Nil(t, m)
}

func TestNewManager_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)

	m, err := NewManager(map[string]Config{
		"main": {Addr: mr.Addr()},
	}, logger.Nop())
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, []string{"main"}, m.Names())
	require.NotNil(t, m.Client("main"))
	assert.Nil(t, m.Client("missing"))
	assert.NoError(t, m.Ping(context.Background()))
	assert.NoError(t, NewHealthChecker(m).Check(context.Background()))
}

func TestNewManager_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	m, err := NewManager(map[string]Config{
		"main": {Addr: addr, DialTimeout: 100 * time.Millisecond},
	}, logger.Nop())
	require.NoError(t, err)
	defer m.Close()

	err = m.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping main failed")

	// 服务恢复后同一客户端重新可用
	require.NoError(t, mr.Restart())
	assert.NoError(t, m.Ping(context.Background()))
}

func TestHealthChecker_Down(t *testing.T) {
	mr := miniredis.RunT(t)
	m, err := NewManager(map[string]Config{"main": {Addr: mr.Addr()}}, logger.Nop())
	require.NoError(t, err)
	defer m.Close()

	mr.Close()
	hc := NewHealthChecker(m)
	assert.Error(t, hc.Check(context.Background()))
	assert.False(t, hc.Critical())
}

func TestCommandMetrics_Hook(t *testing.T) {
	mr := miniredis.RunT(t)
	m, err := NewManager(map[string]Config{"main": {Addr: mr.Addr()}}, logger.Nop())
	require.NoError(t, err)
	defer m.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	cm, err := NewCommandMetrics(provider.Meter("test"))
	require.NoError(t, err)
	m.AddHook(cm.Hook)

	ctx := context.Background()
	require.NoError(t, m.Client("main").Set(ctx, "k", "v", 0).Err())
	_ = m.Client("main").Get(ctx, "missing").Err()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var commands, errorsTotal int64
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch metric.Name {
				case "redis_commands_total":
					commands += dp.Value
				case "redis_errors_total":
					errorsTotal += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), commands)
	assert.Equal(t, int64(0), errorsTotal)
}
