package cache

import (
	"context"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/breaker"
)

// GuardedRemote wraps a second tier with a circuit breaker
// A miss counts as success; only transport failures trip the breaker
type GuardedRemote struct {
	inner    RemoteTier
	breaker  *breaker.Manager
	resource string
}

// NewGuardedRemote guards inner under the breaker resource name
func NewGuardedRemote(inner RemoteTier, mgr *breaker.Manager, resource string) *GuardedRemote {
	return &GuardedRemote{inner: inner, breaker: mgr, resource: resource}
}

// Get reads through the breaker
func (g *GuardedRemote) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		data []byte
		miss bool
	)
	err := g.breaker.Execute(ctx, g.resource, func(ctx context.Context) error {
		var err error
		data, err = g.inner.Get(ctx, key)
		if err != nil && !IsUnavailable(err) {
			miss = true
			return nil
		}
		return err
	})
	if miss {
		return nil, ErrCacheMiss
	}
	if breaker.IsRejection(err) {
		return nil, ErrStoreGet.Wrap(err)
	}
	return data, err
}

// Set writes through the breaker
func (g *GuardedRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := g.breaker.Execute(ctx, g.resource, func(ctx context.Context) error {
		return g.inner.Set(ctx, key, value, ttl)
	})
	if breaker.IsRejection(err) {
		return ErrStoreSet.Wrap(err)
	}
	return err
}

// Delete deletes through the breaker
func (g *GuardedRemote) Delete(ctx context.Context, key string) error {
	err := g.breaker.Execute(ctx, g.resource, func(ctx context.Context) error {
		return g.inner.Delete(ctx, key)
	})
	if breaker.IsRejection(err) {
		return ErrStoreDelete.Wrap(err)
	}
	return err
}

// State breaker state of the guarded resource
func (g *GuardedRemote) State() breaker.State {
	return g.breaker.State(g.resource)
}
