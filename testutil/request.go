package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequestBuilder HTTP 请求构建器
type RequestBuilder struct {
	method  string
	path    string
	body    string
	headers map[string]string
	query   url.Values
}

// NewRequest 创建请求构建器
func NewRequest(method, path string) *RequestBuilder {
	return &RequestBuilder{
		method:  method,
		path:    path,
		headers: make(map[string]string),
		query:   url.Values{},
	}
}

// WithBody 设置原始 JSON Body
func (rb *RequestBuilder) WithBody(body string) *RequestBuilder {
	rb.body = body
	return rb
}

// WithJSON 序列化 body 作为请求体
func (rb *RequestBuilder) WithJSON(t testing.TB, body any) *RequestBuilder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rb.body = string(raw)
	return rb
}

// WithHeader 设置 Header
func (rb *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	rb.headers[key] = value
	return rb
}

// WithQuery 设置 Query 参数
func (rb *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	rb.query.Set(key, value)
	return rb
}

// Do 执行请求
func (rb *RequestBuilder) Do(handler http.Handler) *ResponseHelper {
	target := rb.path
	if len(rb.query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + rb.query.Encode()
	}

	var body io.Reader
	if rb.body != "" {
		body = strings.NewReader(rb.body)
	}
	req := httptest.NewRequest(rb.method, target, body)
	for k, v := range rb.headers {
		req.Header.Set(k, v)
	}
	if rb.body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return &ResponseHelper{Recorder: w}
}

// ResponseHelper 响应辅助工具
type ResponseHelper struct {
	Recorder *httptest.ResponseRecorder
}

// Status 获取状态码
func (rh *ResponseHelper) Status() int {
	return rh.Recorder.Code
}

// Body 获取响应 Body
func (rh *ResponseHelper) Body() string {
	return rh.Recorder.Body.String()
}

// IsJSON 响应是否为 JSON
func (rh *ResponseHelper) IsJSON() bool {
	return strings.HasPrefix(rh.Recorder.Header().Get("Content-Type"), "application/json")
}

// JSON 解析 JSON 响应
func (rh *ResponseHelper) JSON(v any) error {
	return json.Unmarshal(rh.Recorder.Body.Bytes(), v)
}

// ============================================
// 便捷方法
// ============================================

// GET 创建 GET 请求
func GET(path string) *RequestBuilder {
	return NewRequest(http.MethodGet, path)
}

// POST 创建 POST 请求
func POST(path string) *RequestBuilder {
	return NewRequest(http.MethodPost, path)
}
