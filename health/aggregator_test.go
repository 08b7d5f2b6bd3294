package health

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChecker 模拟健康检查器
type mockChecker struct {
	name string
	err  error
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) error {
	return m.err
}

// optionalChecker 非关键检查项
type optionalChecker struct {
	mockChecker
}

func (o *optionalChecker) Critical() bool {
	return false
}

// slowChecker 等待直到 Context 超时
type slowChecker struct{}

func (slowChecker) Name() string { return "slow" }

func (slowChecker) Check(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestAggregator_Check(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		want     Status
	}{
		{
			name:     "无检查项",
			checkers: []Checker{},
			want:     StatusHealthy,
		},
		{
			name: "所有检查项健康",
			checkers: []Checker{
				&mockChecker{name: "database"},
				&optionalChecker{mockChecker{name: "redis"}},
			},
			want: StatusHealthy,
		},
		{
			name: "关键项不健康",
			checkers: []Checker{
				&mockChecker{name: "database", err: errors.New("db down")},
				&optionalChecker{mockChecker{name: "redis"}},
			},
			want: StatusUnhealthy,
		},
		{
			name: "非关键项不健康只降级",
			checkers: []Checker{
				&mockChecker{name: "database"},
				&optionalChecker{mockChecker{name: "redis", err: errors.New("connection refused")}},
			},
			want: StatusDegraded,
		},
		{
			name: "关键项优先于降级",
			checkers: []Checker{
				&mockChecker{name: "database", err: errors.New("db down")},
				&optionalChecker{mockChecker{name: "redis", err: errors.New("redis down")}},
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(time.Second)
			for _, checker := range tt.checkers {
				agg.Register(checker)
			}

			response := agg.Check(context.Background())

			assert.Equal(t, tt.want, response.Status)
			assert.Len(t, response.Checks, len(tt.checkers))
		})
	}
}

func TestAggregator_CheckResultDetails(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(&mockChecker{name: "database"})
	agg.Register(&optionalChecker{mockChecker{name: "redis", err: errors.New("connection refused")}})

	response := agg.Check(context.Background())

	db := response.Checks["database"]
	assert.True(t, db.Critical)
	assert.Equal(t, StatusHealthy, db.Status)
	assert.Equal(t, "OK", db.Message)

	rd := response.Checks["redis"]
	assert.False(t, rd.Critical)
	assert.Equal(t, StatusDegraded, rd.Status)
	assert.Equal(t, "connection refused", rd.Error)
	assert.True(t, response.IsDegraded())
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(20 * time.Millisecond)
	agg.Register(slowChecker{})

	response := agg.Check(context.Background())

	require.Contains(t, response.Checks, "slow")
	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), response.Checks["slow"].Error)
}

func TestAggregator_SetMetadata(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.SetMetadata("service", "articlecache")
	agg.SetMetadata("version", "1.0.0")

	response := agg.Check(context.Background())

	assert.Equal(t, "articlecache", response.Metadata["service"])
	assert.Equal(t, "1.0.0", response.Metadata["version"])
}

func TestResponse_IsHealthy(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{"healthy", StatusHealthy, true},
		{"degraded", StatusDegraded, false},
		{"unhealthy", StatusUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := &Response{Status: tt.status}
			assert.Equal(t, tt.want, response.IsHealthy())
		})
	}
}

type panicChecker struct{}

func (panicChecker) Name() string { return "kafka" }

func (panicChecker) Check(context.Context) error {
	panic("broker list is nil")
}

func TestAggregator_PanickingCheckerIsUnhealthy(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(panicChecker{})
	agg.Register(&mockChecker{name: "database"})

	response := agg.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Equal(t, "panic: broker list is nil", response.Checks["kafka"].Error)
	assert.Equal(t, StatusHealthy, response.Checks["database"].Status)
}

func TestAggregator_RegisterReplacesSameName(t *testing.T) {
	agg := NewAggregator(time.Second)
	agg.Register(&mockChecker{name: "redis", err: errors.New("stale")})
	agg.Register(&optionalChecker{mockChecker{name: "redis"}})

	response := agg.Check(context.Background())

	require.Len(t, response.Checks, 1)
	assert.Equal(t, StatusHealthy, response.Status)
	assert.False(t, response.Checks["redis"].Critical)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Enabled: true}.Validate())
	assert.NoError(t, Config{Enabled: false}.Validate())
}

func TestStatus_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusHealthy.HTTPStatus())
	assert.Equal(t, http.StatusOK, StatusDegraded.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, StatusUnhealthy.HTTPStatus())
}
