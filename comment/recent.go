package comment

import (
	"context"
	"strconv"

	"github.com/KOMKZ/go-yogan-articlecache/breaker"
	"github.com/redis/go-redis/v9"
)

// RedisRecent per-region recent-comments index: a ZSET of comment ids scored by creation time
type RedisRecent struct {
	client   redis.UniversalClient
	prefix   string
	limit    int
	breaker  *breaker.Manager
	resource string
}

// NewRedisRecent keeps the newest limit comments per region
// With a non-nil breaker every command runs under resource
func NewRedisRecent(client redis.UniversalClient, prefix string, limit int, mgr *breaker.Manager, resource string) *RedisRecent {
	return &RedisRecent{client: client, prefix: prefix, limit: limit, breaker: mgr, resource: resource}
}

// Key comments:recent:{region}
func (r *RedisRecent) Key(region string) string {
	return r.prefix + Kind + ":recent:" + region
}

func (r *RedisRecent) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.breaker == nil {
		return fn(ctx)
	}
	return r.breaker.Execute(ctx, r.resource, fn)
}

// Add records c and trims the index to the newest limit entries
func (r *RedisRecent) Add(ctx context.Context, c *Comment) error {
	key := r.Key(c.Region)
	return r.run(ctx, func(ctx context.Context) error {
		_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, key, redis.Z{
				Score:  float64(c.Created.UnixMilli()),
				Member: strconv.FormatInt(c.ID, 10),
			})
			pipe.ZRemRangeByRank(ctx, key, 0, int64(-r.limit-1))
			return nil
		})
		return err
	})
}

// IDs newest first
func (r *RedisRecent) IDs(ctx context.Context, region string) ([]int64, error) {
	var members []string
	err := r.run(ctx, func(ctx context.Context) error {
		var err error
		members, err = r.client.ZRevRange(ctx, r.Key(region), 0, int64(r.limit-1)).Result()
		return err
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
