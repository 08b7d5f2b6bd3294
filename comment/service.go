package comment

import (
	"context"

	"github.com/KOMKZ/go-yogan-articlecache/cache"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store authoritative comment store
type Store interface {
	ListByArticle(ctx context.Context, region string, articleID int64) ([]*Comment, error)
	FindByID(ctx context.Context, region string, id int64) (*Comment, bool, error)
	Insert(ctx context.Context, region string, c *Comment) (*Comment, error)
}

// RecentIndex newest comments per region
type RecentIndex interface {
	Add(ctx context.Context, c *Comment) error
	IDs(ctx context.Context, region string) ([]int64, error)
}

// Option configures a Service
type Option func(*Service)

// WithRemote caches comment lists in the second tier
func WithRemote(remote cache.RemoteTier) Option {
	return func(s *Service) { s.remote = remote }
}

// WithRecent maintains the recent-comments index
func WithRecent(recent RecentIndex) Option {
	return func(s *Service) { s.recent = recent }
}

// WithCodec overrides brotli
func WithCodec(codec cache.Codec) Option {
	return func(s *Service) { s.codec = codec }
}

// WithMetrics records hits and misses under Domain
func WithMetrics(m cache.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(s *Service) { s.logger = log }
}

// Service cached comment lists
//
// An article's list is read through the second tier and written back on a
// store load. Posting a comment purges the list and records it in the
// recent index; second tier failures only cost a store read.
type Service struct {
	store      Store
	remote     cache.RemoteTier
	recent     RecentIndex
	codec      cache.Codec
	serializer cache.Serializer
	metrics    cache.Metrics
	logger     *logger.CtxZapLogger
	config     Config
	sf         singleflight.Group
}

// NewService creates the service
func NewService(store Store, cfg Config, opts ...Option) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, cache.ErrConfigInvalid.Wrap(err)
	}
	s := &Service{store: store, config: cfg, serializer: cache.NewJSONSerializer()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.codec == nil {
		codec, err := cache.NewCodec("brotli", s.logger)
		if err != nil {
			return nil, err
		}
		s.codec = codec
	}
	return s, nil
}

// Key comments:{region}:{articleID}
func Key(region string, articleID int64) string {
	return cache.BuildKey(Kind, region, articleID)
}

// List comments of one article, oldest first
func (s *Service) List(ctx context.Context, region string, articleID int64) ([]*Comment, error) {
	key := Key(region, articleID)
	if list, ok := s.readRemote(ctx, key, articleID); ok {
		s.record(ctx, s.metricsHit)
		return list, nil
	}

	// 合并并发回源；回源脱离首个调用方的取消，只受 LoadTimeout 约束
	ch := s.sf.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.LoadTimeout)
		defer cancel()

		list, err := s.store.ListByArticle(loadCtx, region, articleID)
		if err != nil {
			return nil, ErrLoadFailed.WithMsgf("list comments of %s/%d failed", region, articleID).Wrap(err)
		}
		s.writeRemote(loadCtx, key, list)
		return list, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		s.record(ctx, s.metricsMiss)
		return res.Val.([]*Comment), nil
	case <-ctx.Done():
		return nil, ErrLoadFailed.WithMsgf("list comments of %s/%d cancelled", region, articleID).Wrap(ctx.Err())
	}
}

// Get one comment straight from the store
func (s *Service) Get(ctx context.Context, region string, id int64) (*Comment, bool, error) {
	c, ok, err := s.store.FindByID(ctx, region, id)
	if err != nil {
		return nil, false, ErrLoadFailed.WithMsgf("load comment %d failed", id).Wrap(err)
	}
	return c, ok, nil
}

// Post inserts the comment, purges the article's cached list and records it as recent
func (s *Service) Post(ctx context.Context, region string, articleID int64, d Draft) (*Comment, error) {
	created, err := s.store.Insert(ctx, region, d.ToComment(region, articleID))
	if err != nil {
		return nil, ErrLoadFailed.WithMsgf("insert comment on %s/%d failed", region, articleID).Wrap(err)
	}

	s.Invalidate(ctx, region, articleID)
	if s.recent != nil {
		if err := s.recent.Add(ctx, created); err != nil {
			s.logger.WarnCtx(ctx, "recent comments index update failed",
				zap.String("region", region), zap.Int64("id", created.ID), zap.Error(err))
		}
	}
	return created, nil
}

// Invalidate drops the cached list of one article
func (s *Service) Invalidate(ctx context.Context, region string, articleID int64) {
	if s.remote == nil {
		return
	}
	key := Key(region, articleID)
	if err := s.remote.Delete(ctx, key); err != nil {
		s.logger.ErrorCtx(ctx, "comment list purge failed, list may be stale until it expires",
			zap.String("key", key), zap.Error(err))
	}
}

// Recent newest comments of a region; empty without a recent index
// Ids whose comment no longer exists are skipped
func (s *Service) Recent(ctx context.Context, region string) ([]*Comment, error) {
	if s.recent == nil {
		return []*Comment{}, nil
	}
	ids, err := s.recent.IDs(ctx, region)
	if err != nil {
		s.logger.WarnCtx(ctx, "recent comments index read failed",
			zap.String("region", region), zap.Error(err))
		return []*Comment{}, nil
	}

	out := make([]*Comment, 0, len(ids))
	for _, id := range ids {
		c, ok, err := s.Get(ctx, region, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) readRemote(ctx context.Context, key string, articleID int64) ([]*Comment, bool) {
	if s.remote == nil {
		return nil, false
	}
	data, err := s.remote.Get(ctx, key)
	if err != nil {
		if cache.IsUnavailable(err) {
			s.logger.WarnCtx(ctx, "second tier read failed, falling through",
				zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	text, err := s.codec.Decompress(data)
	if err != nil {
		s.logger.WarnCtx(ctx, "second tier payload corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	var list []*Comment
	if err := s.serializer.Deserialize([]byte(text), &list); err != nil {
		s.logger.WarnCtx(ctx, "second tier payload undecodable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if list == nil {
		list = []*Comment{}
	}
	for _, c := range list {
		if c == nil || c.ArticleID != articleID {
			s.logger.WarnCtx(ctx, "second tier payload does not match key", zap.String("key", key))
			return nil, false
		}
	}
	return list, true
}

func (s *Service) writeRemote(ctx context.Context, key string, list []*Comment) {
	if s.remote == nil {
		return
	}
	data, err := s.serializer.Serialize(list)
	if err != nil {
		s.logger.WarnCtx(ctx, "serialize for second tier failed", zap.String("key", key), zap.Error(err))
		return
	}
	payload, err := s.codec.Compress(string(data))
	if err != nil {
		s.logger.WarnCtx(ctx, "compress for second tier failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.remote.Set(ctx, key, payload, s.config.ListTTL); err != nil {
		s.logger.WarnCtx(ctx, "second tier write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) metricsHit(ctx context.Context) error  { return s.metrics.RecordHit(ctx, Domain) }
func (s *Service) metricsMiss(ctx context.Context) error { return s.metrics.RecordMiss(ctx, Domain) }

func (s *Service) record(ctx context.Context, fn func(context.Context) error) {
	if s.metrics == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.WarnCtx(ctx, "record hit/miss failed", zap.String("domain", Domain), zap.Error(err))
	}
}
