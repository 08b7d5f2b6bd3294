package errcode

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayeredError_New(t *testing.T) {
	err := New(70, 1, "cache", "error.cache.miss", "cache miss", http.StatusNotFound)

	assert.Equal(t, 700001, err.Code())
	assert.Equal(t, "cache", err.Module())
	assert.Equal(t, "error.cache.miss", err.MsgKey())
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
	assert.Equal(t, "cache miss", err.Error())
}

func TestLayeredError_DefaultStatus(t *testing.T) {
	err := New(70, 1, "cache", "error.cache.miss", "cache miss")
	assert.Equal(t, http.StatusOK, err.HTTPStatus())
}

func TestLayeredError_WrapKeepsIdentity(t *testing.T) {
	sentinel := New(70, 6, "cache", "error.cache.store_get", "store get failed")
	cause := errors.New("dial tcp: connection refused")

	wrapped := fmt.Errorf("outer: %w", sentinel.Wrap(cause))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Contains(t, wrapped.Error(), "connection refused")

	var layered *LayeredError
	assert.True(t, errors.As(wrapped, &layered))
	assert.Equal(t, 700006, layered.Code())
}

func TestLayeredError_WithMsgDoesNotMutate(t *testing.T) {
	sentinel := New(71, 1, "article", "error.article.not_found", "article not found")
	custom := sentinel.WithMsgf("article %d not found", 7)

	assert.Equal(t, "article not found", sentinel.Message())
	assert.Equal(t, "article 7 not found", custom.Message())
	assert.True(t, errors.Is(custom, sentinel))
}

func TestLayeredError_WithData(t *testing.T) {
	base := New(71, 2, "article", "error.article.invalid", "invalid article")
	withField := base.WithData("field", "title")

	assert.Empty(t, base.Data())
	assert.Equal(t, "title", withField.Data()["field"])
}

func TestLayeredError_WrapNil(t *testing.T) {
	sentinel := New(70, 1, "cache", "error.cache.miss", "cache miss")
	assert.Same(t, sentinel, sentinel.Wrap(nil))
}
