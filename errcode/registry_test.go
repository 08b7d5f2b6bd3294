package errcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	err := New(99, 1, "test", "error.test.one", "one")

	assert.Same(t, err, r.Register(err))
	key, ok := r.Lookup(990001)
	assert.True(t, ok)
	assert.Equal(t, "test:error.test.one", key)
}

func TestRegistry_RegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register(New(99, 1, "test", "error.test.one", "one"))

	assert.NotPanics(t, func() {
		r.Register(New(99, 1, "test", "error.test.one", "one again"))
	})
}

func TestRegistry_RegisterConflict(t *testing.T) {
	r := NewRegistry()
	r.Register(New(99, 1, "test", "error.test.one", "one"))

	assert.Panics(t, func() {
		r.Register(New(99, 1, "other", "error.other.one", "other"))
	})
}
