package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KOMKZ/go-yogan-articlecache/errcode"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

var errTest = errcode.New(10, 1, "test", "test.error", "参数错误", http.StatusBadRequest)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// serveError runs HandleError behind the middleware
func serveError(t *testing.T, cfg ErrorLoggingConfig, log *logger.CtxZapLogger, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorLoggingMiddleware(cfg, log))
	engine.GET("/test", func(c *gin.Context) { HandleError(c, err) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestOkJson(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OkJson(c, map[string]int{"id": 7})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Msg)
	assert.Equal(t, map[string]any{"id": float64(7)}, resp.Data)
}

func TestHandleError_NilError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	HandleError(c, nil)

	assert.Empty(t, w.Body.String())
}

func TestHandleError_LayeredError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", errTest.WithData("field", "title"))
	w := serveError(t, DefaultErrorLoggingConfig(), nil, wrapped)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 100001, resp.Code)
	assert.Equal(t, "参数错误", resp.Msg)
	assert.Equal(t, map[string]any{"field": "title"}, resp.Data)
}

func TestHandleError_LogLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"error", zapcore.ErrorLevel},
		{"warn", zapcore.WarnLevel},
		{"info", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			cfg := ErrorLoggingConfig{Enable: true, FullErrorChain: true, LogLevel: tt.level}

			serveError(t, cfg, logger.Wrap(zap.New(core)), errTest)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Level)
			assert.Equal(t, int64(100001), entries[0].ContextMap()["error_code"])
			assert.Contains(t, entries[0].ContextMap(), "error_chain")
		})
	}
}

func TestHandleError_IgnoredStatusIsNotLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := ErrorLoggingConfig{Enable: true, IgnoreHTTPStatus: []int{http.StatusBadRequest}}

	w := serveError(t, cfg, logger.Wrap(zap.New(core)), errTest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, logs.Len())
}

func TestHandleError_RecordNotFound(t *testing.T) {
	w := serveError(t, DefaultErrorLoggingConfig(), nil, gorm.ErrRecordNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 404, decode(t, w).Code)
}

func TestHandleError_UnknownErrorHidesDetails(t *testing.T) {
	w := serveError(t, DefaultErrorLoggingConfig(), nil, errors.New("dial tcp 10.0.0.3:5432: refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 500, resp.Code)
	assert.Equal(t, "内部服务器错误", resp.Msg)
}

func TestHandleError_WithoutMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	c.Set(errorLoggingConfigKey, errorLogging{Enable: true})

	HandleError(c, errTest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleError_DeadlineExceeded(t *testing.T) {
	err := fmt.Errorf("find article: %w", context.DeadlineExceeded)
	w := serveError(t, DefaultErrorLoggingConfig(), nil, err)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	resp := decode(t, w)
	assert.Equal(t, http.StatusGatewayTimeout, resp.Code)
	assert.Equal(t, "请求超时", resp.Msg)
}

func TestHandleError_DefaultConfigLogsServerErrorsOnly(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := logger.Wrap(zap.New(core))

	serveError(t, DefaultErrorLoggingConfig(), log, gorm.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	serveError(t, DefaultErrorLoggingConfig(), log, errors.New("boom"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestNoRouteAndNoMethod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(NoRouteHandler())
	engine.NoMethod(NoMethodHandler())
	engine.GET("/only-get", func(c *gin.Context) { OkJson(c, nil) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w).Msg, "/missing")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/only-get", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
