package errcode

import (
	"fmt"
	"sync"
)

// Registry error code registry (prevents code collisions between modules)
type Registry struct {
	mu    sync.RWMutex
	codes map[int]string // code -> module:msgKey
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{codes: make(map[int]string)}
}

// Register registers err in the global registry and returns it, so sentinels can be
// declared as `var ErrX = errcode.Register(errcode.New(...))`.
func Register(err *LayeredError) *LayeredError {
	return globalRegistry.Register(err)
}

// Register panics when the code is already taken by a different module:msgKey.
// Registering the same code and key twice is a no-op.
func (r *Registry) Register(err *LayeredError) *LayeredError {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s:%s", err.Module(), err.MsgKey())
	if existing, ok := r.codes[err.Code()]; ok {
		if existing != key {
			panic(fmt.Sprintf("error code conflict: code %d is already registered as %s, cannot register as %s",
				err.Code(), existing, key))
		}
		return err
	}
	r.codes[err.Code()] = key
	return err
}

// Lookup returns the module:msgKey registered for code
func (r *Registry) Lookup(code int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.codes[code]
	return key, ok
}

// Lookup looks a code up in the global registry
func Lookup(code int) (string, bool) {
	return globalRegistry.Lookup(code)
}
