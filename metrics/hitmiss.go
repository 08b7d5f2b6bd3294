// Package metrics keeps cache hit/miss counters in Redis so every process
// shares one system-wide view, and exposes them to Prometheus.
package metrics

import (
	"context"
	"errors"
	"strconv"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Option RedisHitMiss option
type Option func(*RedisHitMiss)

// WithMeter additionally records cache_hits_total / cache_misses_total on meter
func WithMeter(meter metric.Meter) Option {
	return func(m *RedisHitMiss) { m.meter = meter }
}

// WithLogger sets the logger
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(m *RedisHitMiss) { m.logger = log }
}

// RedisHitMiss per-domain hit/miss counters stored as Redis integers
type RedisHitMiss struct {
	client redis.UniversalClient
	prefix string
	logger *logger.CtxZapLogger
	meter  metric.Meter

	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// NewRedisHitMiss creates the recorder; keys are {prefix}:{domain}:hits|misses
func NewRedisHitMiss(client redis.UniversalClient, prefix string, opts ...Option) (*RedisHitMiss, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	m := &RedisHitMiss{client: client, prefix: prefix}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Nop()
	}

	if m.meter != nil {
		var err error
		m.hits, err = m.meter.Int64Counter("cache_hits_total",
			metric.WithDescription("Cache reads served by a cache tier"))
		if err != nil {
			return nil, err
		}
		m.misses, err = m.meter.Int64Counter("cache_misses_total",
			metric.WithDescription("Cache reads that fell through to the store"))
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Prefix key namespace
func (m *RedisHitMiss) Prefix() string {
	return m.prefix
}

func (m *RedisHitMiss) key(domain, counter string) string {
	if m.prefix == "" {
		return domain + ":" + counter
	}
	return m.prefix + ":" + domain + ":" + counter
}

// RecordHit increments the hit counter of domain
func (m *RedisHitMiss) RecordHit(ctx context.Context, domain string) error {
	if m.hits != nil {
		m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("domain", domain)))
	}
	return m.incr(ctx, m.key(domain, "hits"))
}

// RecordMiss increments the miss counter of domain
func (m *RedisHitMiss) RecordMiss(ctx context.Context, domain string) error {
	if m.misses != nil {
		m.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("domain", domain)))
	}
	return m.incr(ctx, m.key(domain, "misses"))
}

func (m *RedisHitMiss) incr(ctx context.Context, key string) error {
	if err := m.client.Incr(ctx, key).Err(); err != nil {
		return ErrCounterUpdate.WithMsgf("incr %s failed", key).Wrap(err)
	}
	return nil
}

// Counts current hit and miss values; absent counters read as 0
func (m *RedisHitMiss) Counts(ctx context.Context, domain string) (hits, misses int64, err error) {
	values, err := m.client.MGet(ctx, m.key(domain, "hits"), m.key(domain, "misses")).Result()
	if err != nil {
		return 0, 0, ErrCounterRead.Wrap(err)
	}
	if hits, err = parseCounter(values[0]); err != nil {
		return 0, 0, err
	}
	if misses, err = parseCounter(values[1]); err != nil {
		return 0, 0, err
	}
	return hits, misses, nil
}

// HitRatio hits / (hits + misses), 0 with no observations
func (m *RedisHitMiss) HitRatio(ctx context.Context, domain string) (float64, error) {
	hits, misses, err := m.Counts(ctx, domain)
	if err != nil {
		return 0, err
	}
	return Ratio(hits, misses), nil
}

// Snapshot counters and ratio of one domain
type Snapshot struct {
	Domain   string  `json:"domain"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// Snapshots reads every domain; the first failure aborts
func (m *RedisHitMiss) Snapshots(ctx context.Context, domains ...string) ([]Snapshot, error) {
	out := make([]Snapshot, 0, len(domains))
	for _, d := range domains {
		hits, misses, err := m.Counts(ctx, d)
		if err != nil {
			m.logger.WarnCtx(ctx, "read cache counters failed", zap.String("domain", d), zap.Error(err))
			return nil, err
		}
		out = append(out, Snapshot{Domain: d, Hits: hits, Misses: misses, HitRatio: Ratio(hits, misses)})
	}
	return out, nil
}

// Reset deletes both counters of domain
func (m *RedisHitMiss) Reset(ctx context.Context, domain string) error {
	if err := m.client.Del(ctx, m.key(domain, "hits"), m.key(domain, "misses")).Err(); err != nil {
		return ErrCounterUpdate.WithMsgf("reset %s failed", domain).Wrap(err)
	}
	m.logger.InfoCtx(ctx, "cache counters reset", zap.String("domain", domain))
	return nil
}

// Ratio hits / (hits + misses), 0 when both are 0
func Ratio(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func parseCounter(v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, ErrCounterRead.WithMsgf("counter is not an integer: %q", val).Wrap(err)
		}
		return n, nil
	default:
		return 0, ErrCounterRead.WithMsgf("unexpected counter type %T", v)
	}
}
