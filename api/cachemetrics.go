package api

import (
	"context"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/httpx"
	"github.com/KOMKZ/go-yogan-articlecache/metrics"
	"github.com/gin-gonic/gin"
)

// Domains reported by GET /api/cachemetrics/cache
const (
	DomainArticle = "article"
	DomainComment = "comment"
)

// SnapshotReader reads the shared hit/miss counters
type SnapshotReader interface {
	Snapshots(ctx context.Context, domains ...string) ([]metrics.Snapshot, error)
}

// CacheMetricsResponse hit ratio and counts per domain
type CacheMetricsResponse struct {
	ArticleCacheHitRatio float64   `json:"article_cache_hit_ratio"`
	CommentCacheHitRatio float64   `json:"comment_cache_hit_ratio"`
	ArticleCacheHits     int64     `json:"article_cache_hits"`
	CommentCacheHits     int64     `json:"comment_cache_hits"`
	ArticleCacheMisses   int64     `json:"article_cache_misses"`
	CommentCacheMisses   int64     `json:"comment_cache_misses"`
	Timestamp            time.Time `json:"timestamp"`
}

// CacheMetricsHandler /api/cachemetrics 路由
type CacheMetricsHandler struct {
	reader SnapshotReader
	now    func() time.Time
}

// NewCacheMetricsHandler creates the handler
func NewCacheMetricsHandler(reader SnapshotReader) *CacheMetricsHandler {
	return &CacheMetricsHandler{reader: reader, now: time.Now}
}

// Register 注册路由
func (h *CacheMetricsHandler) Register(r gin.IRouter) {
	r.GET("/api/cachemetrics/cache", httpx.Wrap(h.Cache))
}

// Cache GET /api/cachemetrics/cache
func (h *CacheMetricsHandler) Cache(c *gin.Context, _ *struct{}) (*CacheMetricsResponse, error) {
	snapshots, err := h.reader.Snapshots(c.Request.Context(), DomainArticle, DomainComment)
	if err != nil {
		return nil, err
	}

	resp := &CacheMetricsResponse{Timestamp: h.now().UTC()}
	for _, s := range snapshots {
		switch s.Domain {
		case DomainArticle:
			resp.ArticleCacheHitRatio, resp.ArticleCacheHits, resp.ArticleCacheMisses = s.HitRatio, s.Hits, s.Misses
		case DomainComment:
			resp.CommentCacheHitRatio, resp.CommentCacheHits, resp.CommentCacheMisses = s.HitRatio, s.Hits, s.Misses
		}
	}
	return resp, nil
}
