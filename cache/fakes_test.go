package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type item struct {
	ID     int64  `json:"id"`
	Region string `json:"region"`
	Title  string `json:"title"`
}

func (i *item) EntityID() int64 { return i.ID }

type itemPatch struct {
	Title *string
}

var errStoreDown = errors.New("store down")

// fakeStore in-memory store with call counters
type fakeStore struct {
	mu     sync.Mutex
	rows   map[string]map[int64]item
	nextID int64
	fail   error

	// gate blocks FindByID until closed (stampede tests)
	gate chan struct{}

	finds    atomic.Int32
	inserts  atomic.Int32
	replaces atomic.Int32
	deletes  atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]map[int64]item)}
}

func (s *fakeStore) put(partition string, it item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[partition] == nil {
		s.rows[partition] = make(map[int64]item)
	}
	s.rows[partition][it.ID] = it
	if it.ID > s.nextID {
		s.nextID = it.ID
	}
}

func (s *fakeStore) FindByID(ctx context.Context, partition string, id int64) (*item, bool, error) {
	s.finds.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, false, s.fail
	}
	it, ok := s.rows[partition][id]
	if !ok {
		return nil, false, nil
	}
	return &it, true, nil
}

func (s *fakeStore) Insert(_ context.Context, partition string, e *item) (*item, error) {
	s.inserts.Add(1)
	if s.fail != nil {
		return nil, s.fail
	}
	s.mu.Lock()
	s.nextID++
	created := *e
	created.ID = s.nextID
	created.Region = partition
	s.mu.Unlock()
	s.put(partition, created)
	return &created, nil
}

func (s *fakeStore) ReplaceFields(_ context.Context, partition string, id int64, patch itemPatch) (*item, bool, error) {
	s.replaces.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, false, s.fail
	}
	it, ok := s.rows[partition][id]
	if !ok {
		return nil, false, nil
	}
	if patch.Title != nil {
		it.Title = *patch.Title
	}
	s.rows[partition][id] = it
	return &it, true, nil
}

func (s *fakeStore) Delete(_ context.Context, partition string, id int64) (bool, error) {
	s.deletes.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	if _, ok := s.rows[partition][id]; !ok {
		return false, nil
	}
	delete(s.rows[partition], id)
	return true, nil
}

func (s *fakeStore) FindRecent(_ context.Context, partition string, _ time.Time) ([]*item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*item, 0, len(s.rows[partition]))
	for _, it := range s.rows[partition] {
		it := it
		out = append(out, &it)
	}
	return out, nil
}

// fakeRemote in-memory second tier with call counters and failure switches
type fakeRemote struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration

	down    bool
	failSet bool

	gets    atomic.Int32
	sets    atomic.Int32
	deletes atomic.Int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (r *fakeRemote) Get(_ context.Context, key string) ([]byte, error) {
	r.gets.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, ErrStoreGet.Wrap(errors.New("connection refused"))
	}
	v, ok := r.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (r *fakeRemote) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	r.sets.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down || r.failSet {
		return ErrStoreSet.Wrap(errors.New("connection refused"))
	}
	r.data[key] = value
	r.ttls[key] = ttl
	return nil
}

func (r *fakeRemote) Delete(_ context.Context, key string) error {
	r.deletes.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return ErrStoreDelete.Wrap(errors.New("connection refused"))
	}
	delete(r.data, key)
	return nil
}

func (r *fakeRemote) has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data[key]
	return ok
}

func (r *fakeRemote) raw(key string, value []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
}

// fakeMetrics process-local hit/miss counters
type fakeMetrics struct {
	mu     sync.Mutex
	hits   map[string]int
	misses map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{hits: map[string]int{}, misses: map[string]int{}}
}

func (m *fakeMetrics) RecordHit(_ context.Context, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits[domain]++
	return nil
}

func (m *fakeMetrics) RecordMiss(_ context.Context, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses[domain]++
	return nil
}

func (m *fakeMetrics) counts(domain string) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[domain], m.misses[domain]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func strPtr(s string) *string { return &s }
