// Package cache implements the tiered read-through / write-through cache:
// a process-local first tier, a shared compressed second tier and the
// authoritative store behind them, orchestrated by Coordinator.
package cache

import (
	"context"
	"time"
)

// Entity is a cacheable record that knows its own identifier
type Entity interface {
	EntityID() int64
}

// Store authoritative record store (one logical table per kind, partitioned by region)
// Absence is reported as ok=false, never as an error
type Store[E Entity, P any] interface {
	// FindByID point lookup
	FindByID(ctx context.Context, partition string, id int64) (E, bool, error)

	// Insert persists a new entity and returns it with its identifier assigned
	Insert(ctx context.Context, partition string, entity E) (E, error)

	// ReplaceFields reads the current entity, applies patch and persists it
	ReplaceFields(ctx context.Context, partition string, id int64, patch P) (E, bool, error)

	// Delete reports whether the row existed and was removed
	Delete(ctx context.Context, partition string, id int64) (bool, error)

	// FindRecent returns entities created at or after since
	FindRecent(ctx context.Context, partition string, since time.Time) ([]E, error)
}

// RemoteTier shared byte store with per-key TTL (the second tier)
type RemoteTier interface {
	// Get returns ErrCacheMiss when the key is absent
	// Transport failures wrap ErrStoreGet (see IsUnavailable)
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value atomically with ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error
}

// Metrics shared hit/miss counters per cache domain
type Metrics interface {
	RecordHit(ctx context.Context, domain string) error
	RecordMiss(ctx context.Context, domain string) error
}

// Codec byte-level payload transform for the second tier
type Codec interface {
	// Name codec name (brotli, zstd)
	Name() string

	// Compress empty input returns an empty slice
	Compress(text string) ([]byte, error)

	// Decompress empty input returns ""
	Decompress(data []byte) (string, error)
}

// Serializer serialization interface
type Serializer interface {
	// Serialize object to byte array
	Serialize(v any) ([]byte, error)

	// Deserialize byte array to object
	Deserialize(data []byte, v any) error

	// Name Return serializer name
	Name() string
}
