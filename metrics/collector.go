package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector exposes the shared Redis counters to Prometheus
// Values are read from Redis on every scrape, so all processes report the same numbers
type Collector struct {
	source  *RedisHitMiss
	domains []string
	timeout time.Duration
	logger  *logger.CtxZapLogger

	hitsDesc   *prometheus.Desc
	missesDesc *prometheus.Desc
	ratioDesc  *prometheus.Desc
	upDesc     *prometheus.Desc
}

// NewCollector creates a collector for domains
func NewCollector(source *RedisHitMiss, domains []string, timeout time.Duration, log *logger.CtxZapLogger) *Collector {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	labels := []string{"domain"}
	return &Collector{
		source:  source,
		domains: domains,
		timeout: timeout,
		logger:  log,
		hitsDesc: prometheus.NewDesc("articlecache_cache_hits",
			"Shared cache hit counter", labels, nil),
		missesDesc: prometheus.NewDesc("articlecache_cache_misses",
			"Shared cache miss counter", labels, nil),
		ratioDesc: prometheus.NewDesc("articlecache_cache_hit_ratio",
			"hits / (hits + misses)", labels, nil),
		upDesc: prometheus.NewDesc("articlecache_cache_counters_up",
			"1 when the shared counters could be read", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hitsDesc
	ch <- c.missesDesc
	ch <- c.ratioDesc
	ch <- c.upDesc
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	up := 1.0
	for _, d := range c.domains {
		hits, misses, err := c.source.Counts(ctx, d)
		if err != nil {
			c.logger.Warn("scrape cache counters failed", zap.String("domain", d), zap.Error(err))
			up = 0
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.hitsDesc, prometheus.CounterValue, float64(hits), d)
		ch <- prometheus.MustNewConstMetric(c.missesDesc, prometheus.CounterValue, float64(misses), d)
		ch <- prometheus.MustNewConstMetric(c.ratioDesc, prometheus.GaugeValue, Ratio(hits, misses), d)
	}
	ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, up)
}

// Handler returns a scrape handler over a dedicated registry holding c
func (c *Collector) Handler() (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(c); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}), nil
}
