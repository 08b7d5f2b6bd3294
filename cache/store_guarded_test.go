package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/go-yogan-articlecache/breaker"
)

func newGuarded(t *testing.T, inner RemoteTier) (*GuardedRemote, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	mgr, err := breaker.NewManager(breaker.DefaultConfig(), nil, breaker.WithClock(clock.Now))
	require.NoError(t, err)
	return NewGuardedRemote(inner, mgr, "redis:main"), clock
}

func TestGuardedRemote_MissDoesNotTrip(t *testing.T) {
	remote := newFakeRemote()
	guarded, _ := newGuarded(t, remote)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := guarded.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrCacheMiss)
	}
	assert.Equal(t, breaker.StateClosed, guarded.State())
}

func TestGuardedRemote_OpensAndFailsFast(t *testing.T) {
	remote := newFakeRemote()
	remote.down = true
	guarded, clock := newGuarded(t, remote)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := guarded.Get(ctx, "k")
		assert.True(t, IsUnavailable(err))
	}
	assert.Equal(t, breaker.StateOpen, guarded.State())

	calls := remote.gets.Load()
	_, err := guarded.Get(ctx, "k")
	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, err, breaker.ErrCircuitOpen)
	assert.Equal(t, calls, remote.gets.Load(), "open circuit must not reach the tier")

	err = guarded.Set(ctx, "k", []byte("v"), time.Minute)
	assert.ErrorIs(t, err, ErrStoreSet)
	err = guarded.Delete(ctx, "k")
	assert.ErrorIs(t, err, ErrStoreDelete)

	// recovers through half-open
	remote.mu.Lock()
	remote.down = false
	remote.mu.Unlock()
	clock.Advance(31 * time.Second)

	require.NoError(t, guarded.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, breaker.StateClosed, guarded.State())

	data, err := guarded.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}
