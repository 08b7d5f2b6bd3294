package cache

import (
	"context"
	"reflect"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Option configures a Coordinator
type Option func(*options)

type options struct {
	config     Config
	remote     RemoteTier
	codec      Codec
	serializer Serializer
	metrics    Metrics
	logger     *logger.CtxZapLogger
	now        func() time.Time
	dedupe     *bool
}

// WithConfig sets tier sizes and TTLs
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithRemote sets the second tier; without it only the first tier and the store are used
func WithRemote(remote RemoteTier) Option {
	return func(o *options) { o.remote = remote }
}

// WithCodec overrides the codec selected by Config.Codec
func WithCodec(codec Codec) Option {
	return func(o *options) { o.codec = codec }
}

// WithSerializer overrides JSON
func WithSerializer(s Serializer) Option {
	return func(o *options) { o.serializer = s }
}

// WithMetrics sets the hit/miss recorder
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(o *options) { o.logger = log }
}

// WithDedupe overrides Config.Dedupe
func WithDedupe(enabled bool) Option {
	return func(o *options) { o.dedupe = &enabled }
}

// WithClock injects the first tier clock (tests)
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Coordinator read-through / write-through cache for one entity kind
//
// Read path: first tier, second tier, store. Writes go to the store first,
// then the tiers are purged or refreshed before the call returns.
type Coordinator[E Entity, P any] struct {
	kind       string
	store      Store[E, P]
	local      *LocalTier[E]
	remote     RemoteTier
	codec      Codec
	serializer Serializer
	metrics    Metrics
	logger     *logger.CtxZapLogger
	config     Config
	dedupe     bool
	sf         singleflight.Group
}

// NewCoordinator creates a coordinator for kind (the key prefix and metrics domain)
func NewCoordinator[E Entity, P any](kind string, store Store[E, P], opts ...Option) (*Coordinator[E, P], error) {
	if kind == "" {
		return nil, ErrConfigInvalid.WithMsg("kind cannot be empty")
	}
	if store == nil {
		return nil, ErrConfigInvalid.WithMsg("store cannot be nil")
	}

	o := &options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}
	o.config.ApplyDefaults()
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	if o.serializer == nil {
		o.serializer = NewJSONSerializer()
	}
	if o.codec == nil {
		codec, err := NewCodec(o.config.Codec, o.logger)
		if err != nil {
			return nil, err
		}
		o.codec = codec
	}

	local, err := NewLocalTier[E](o.config.LocalMaxEntries, o.now)
	if err != nil {
		return nil, err
	}

	dedupe := o.config.Dedupe
	if o.dedupe != nil {
		dedupe = *o.dedupe
	}

	return &Coordinator[E, P]{
		kind:       kind,
		store:      store,
		local:      local,
		remote:     o.remote,
		codec:      o.codec,
		serializer: o.serializer,
		metrics:    o.metrics,
		logger:     o.logger,
		config:     o.config,
		dedupe:     dedupe,
	}, nil
}

// Kind entity kind served by this coordinator
func (c *Coordinator[E, P]) Kind() string {
	return c.kind
}

// Local exposes the first tier
func (c *Coordinator[E, P]) Local() *LocalTier[E] {
	return c.local
}

// Get returns the entity or ok=false when it does not exist
// Only store failures are returned as errors
func (c *Coordinator[E, P]) Get(ctx context.Context, partition string, id int64) (E, bool, error) {
	var zero E
	key := BuildKey(c.kind, partition, id)

	if entity, ok := c.local.TryGet(key); ok {
		c.recordHit(ctx)
		return entity, true, nil
	}

	if entity, ok := c.readRemote(ctx, key, id); ok {
		c.local.Set(key, entity, c.config.LocalTTL)
		c.recordHit(ctx)
		return entity, true, nil
	}

	entity, found, err := c.loadFromStore(ctx, key, partition, id)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}
	c.recordMiss(ctx)
	return entity, true, nil
}

// Create inserts into the store, then writes the second tier only
func (c *Coordinator[E, P]) Create(ctx context.Context, partition string, entity E) (E, error) {
	var zero E
	created, err := c.store.Insert(ctx, partition, entity)
	if err != nil {
		return zero, ErrStoreFailed.WithMsgf("insert %s failed", c.kind).Wrap(err)
	}

	key := BuildKey(c.kind, partition, created.EntityID())
	c.writeRemote(ctx, key, created)
	return created, nil
}

// Update patches the stored entity and refreshes the tiers
// ok=false means the entity does not exist and no tier was touched
func (c *Coordinator[E, P]) Update(ctx context.Context, partition string, id int64, patch P) (E, bool, error) {
	var zero E
	updated, found, err := c.store.ReplaceFields(ctx, partition, id, patch)
	if err != nil {
		return zero, false, ErrStoreFailed.WithMsgf("update %s %d failed", c.kind, id).Wrap(err)
	}
	if !found {
		return zero, false, nil
	}

	key := BuildKey(c.kind, partition, id)
	c.local.Remove(key)
	if !c.writeRemote(ctx, key, updated) {
		c.deleteRemote(ctx, key)
	}
	return updated, true, nil
}

// Delete purges both tiers, then deletes from the store
// The purge happens even when the entity does not exist
func (c *Coordinator[E, P]) Delete(ctx context.Context, partition string, id int64) (bool, error) {
	key := BuildKey(c.kind, partition, id)
	c.local.Remove(key)
	c.deleteRemote(ctx, key)

	deleted, err := c.store.Delete(ctx, partition, id)
	if err != nil {
		return false, ErrStoreFailed.WithMsgf("delete %s %d failed", c.kind, id).Wrap(err)
	}
	return deleted, nil
}

type loadResult[E any] struct {
	entity E
	found  bool
}

// loadFromStore falls back to the store and populates both tiers on a hit
func (c *Coordinator[E, P]) loadFromStore(ctx context.Context, key, partition string, id int64) (E, bool, error) {
	if !c.dedupe {
		return c.fetchAndPopulate(ctx, key, partition, id)
	}

	// 共享回源脱离首个调用方的取消，只受 LoadTimeout 约束；每个等待者仍按自己的 ctx 返回
	ch := c.sf.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.LoadTimeout)
		defer cancel()
		entity, found, err := c.fetchAndPopulate(loadCtx, key, partition, id)
		return loadResult[E]{entity: entity, found: found}, err
	})

	var zero E
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		if res.Shared {
			c.logger.DebugCtx(ctx, "store fallback shared", zap.String("key", key))
		}
		loaded := res.Val.(loadResult[E])
		return loaded.entity, loaded.found, nil
	case <-ctx.Done():
		return zero, false, ErrStoreFailed.WithMsgf("load %s %d cancelled", c.kind, id).Wrap(ctx.Err())
	}
}

func (c *Coordinator[E, P]) fetchAndPopulate(ctx context.Context, key, partition string, id int64) (E, bool, error) {
	var zero E
	entity, found, err := c.store.FindByID(ctx, partition, id)
	if err != nil {
		return zero, false, ErrStoreFailed.WithMsgf("load %s %d failed", c.kind, id).Wrap(err)
	}
	if !found {
		return zero, false, nil
	}
	// Cancelled after the fetch: skip populating, nothing half-written
	if err := ctx.Err(); err != nil {
		return zero, false, ErrStoreFailed.WithMsgf("load %s %d cancelled", c.kind, id).Wrap(err)
	}

	c.writeRemote(ctx, key, entity)
	c.local.Set(key, entity, c.config.LocalTTL)
	return entity, true, nil
}

// readRemote returns ok=false on absence, transport failure or a corrupt payload
func (c *Coordinator[E, P]) readRemote(ctx context.Context, key string, id int64) (E, bool) {
	var zero E
	if c.remote == nil {
		return zero, false
	}

	data, err := c.remote.Get(ctx, key)
	if err != nil {
		if IsUnavailable(err) {
			c.logger.WarnCtx(ctx, "second tier read failed, falling through",
				zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}

	text, err := c.codec.Decompress(data)
	if err != nil {
		c.logger.WarnCtx(ctx, "second tier payload corrupt",
			zap.String("key", key), zap.Error(err))
		return zero, false
	}

	var entity E
	if err := c.serializer.Deserialize([]byte(text), &entity); err != nil {
		c.logger.WarnCtx(ctx, "second tier payload undecodable",
			zap.String("key", key), zap.Error(err))
		return zero, false
	}
	if isNil(entity) || entity.EntityID() != id {
		c.logger.WarnCtx(ctx, "second tier payload does not match key",
			zap.String("key", key))
		return zero, false
	}
	return entity, true
}

// writeRemote is best-effort; it reports whether the payload was stored
func (c *Coordinator[E, P]) writeRemote(ctx context.Context, key string, entity E) bool {
	if c.remote == nil {
		return true
	}

	data, err := c.serializer.Serialize(entity)
	if err != nil {
		c.logger.WarnCtx(ctx, "serialize for second tier failed",
			zap.String("key", key), zap.Error(err))
		return false
	}
	payload, err := c.codec.Compress(string(data))
	if err != nil {
		c.logger.WarnCtx(ctx, "compress for second tier failed",
			zap.String("key", key), zap.Error(err))
		return false
	}
	if err := c.remote.Set(ctx, key, payload, c.config.RemoteTTL); err != nil {
		c.logger.WarnCtx(ctx, "second tier write failed",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Coordinator[E, P]) deleteRemote(ctx context.Context, key string) {
	if c.remote == nil {
		return
	}
	if err := c.remote.Delete(ctx, key); err != nil {
		c.logger.ErrorCtx(ctx, "second tier purge failed, entry may be stale until it expires",
			zap.String("key", key), zap.Error(err))
	}
}

func (c *Coordinator[E, P]) recordHit(ctx context.Context) {
	if c.metrics == nil {
		return
	}
	if err := c.metrics.RecordHit(ctx, c.kind); err != nil {
		c.logger.WarnCtx(ctx, "record hit failed", zap.String("domain", c.kind), zap.Error(err))
	}
}

func (c *Coordinator[E, P]) recordMiss(ctx context.Context) {
	if c.metrics == nil {
		return
	}
	if err := c.metrics.RecordMiss(ctx, c.kind); err != nil {
		c.logger.WarnCtx(ctx, "record miss failed", zap.String("domain", c.kind), zap.Error(err))
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
