package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// localEntry first tier entry with absolute expiry
type localEntry[E any] struct {
	value     E
	storedAt  time.Time
	expiresAt time.Time
}

// LocalTier bounded process-local cache of decoded entities
// Eviction when full is least-recently-used; expired entries are dropped on access
type LocalTier[E any] struct {
	entries *lru.Cache[string, localEntry[E]]
	now     func() time.Time

	// mu 串行化 Set 与过期删除，过期删除前重新比对，不会删掉刚写入的新值
	mu sync.Mutex

	// expiredHook 测试用：发现过期与删除之间调用
	expiredHook func(key string)
}

// NewLocalTier creates a first tier holding at most maxEntries
func NewLocalTier[E any](maxEntries int, now func() time.Time) (*LocalTier[E], error) {
	if maxEntries <= 0 {
		return nil, ErrConfigInvalid.WithMsgf("local tier size must be positive: %d", maxEntries)
	}
	entries, err := lru.New[string, localEntry[E]](maxEntries)
	if err != nil {
		return nil, ErrConfigInvalid.Wrap(err)
	}
	if now == nil {
		now = time.Now
	}
	return &LocalTier[E]{entries: entries, now: now}, nil
}

// TryGet returns the entry for key when present and not expired
func (t *LocalTier[E]) TryGet(key string) (E, bool) {
	var zero E
	entry, ok := t.entries.Get(key)
	if !ok {
		return zero, false
	}
	if !t.now().Before(entry.expiresAt) {
		if t.expiredHook != nil {
			t.expiredHook(key)
		}
		t.removeExpired(key, entry.expiresAt)
		return zero, false
	}
	return entry.value, true
}

// removeExpired removes key only if it still holds the entry seen as expired
func (t *LocalTier[E]) removeExpired(key string, expiresAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.entries.Peek(key)
	if ok && current.expiresAt.Equal(expiresAt) {
		t.entries.Remove(key)
	}
}

// Set stores value with an absolute expiry of now+ttl
// A non-positive ttl removes the key instead
func (t *LocalTier[E]) Set(key string, value E, ttl time.Duration) {
	if ttl <= 0 {
		t.entries.Remove(key)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.entries.Add(key, localEntry[E]{value: value, storedAt: now, expiresAt: now.Add(ttl)})
}

// Remove deletes key
func (t *LocalTier[E]) Remove(key string) {
	t.entries.Remove(key)
}

// Len number of entries, expired ones included until they are touched
func (t *LocalTier[E]) Len() int {
	return t.entries.Len()
}

// Purge drops every entry
func (t *LocalTier[E]) Purge() {
	t.entries.Purge()
}
