package application

import (
	"context"
	"fmt"
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/api"
	"github.com/KOMKZ/go-yogan-articlecache/article"
	"github.com/KOMKZ/go-yogan-articlecache/breaker"
	"github.com/KOMKZ/go-yogan-articlecache/cache"
	"github.com/KOMKZ/go-yogan-articlecache/comment"
	"github.com/KOMKZ/go-yogan-articlecache/database"
	"github.com/KOMKZ/go-yogan-articlecache/health"
	"github.com/KOMKZ/go-yogan-articlecache/kafka"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/KOMKZ/go-yogan-articlecache/metrics"
	"github.com/KOMKZ/go-yogan-articlecache/middleware"
	"github.com/KOMKZ/go-yogan-articlecache/redis"
	"github.com/KOMKZ/go-yogan-articlecache/retry"
	"github.com/KOMKZ/go-yogan-articlecache/telemetry"
	"github.com/KOMKZ/go-yogan-articlecache/warmer"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// ArticleCoordinator 文章缓存协调器
type ArticleCoordinator = cache.Coordinator[*article.Article, article.Patch]

// ArticleWarmer 文章预热任务
type ArticleWarmer = warmer.Warmer[*article.Article]

const (
	meterName       = "github.com/KOMKZ/go-yogan-articlecache"
	remoteResource  = "cache.remote"
	redisDialBudget = 5 * time.Second

	redisDialAttempts = 3
)

// registerProviders 注册全部组件，创建顺序由依赖关系决定
func (a *Application) registerProviders() {
	i := a.injector

	do.ProvideValue(i, a.cfg)
	do.ProvideValue(i, a.logMgr)
	do.Provide(i, a.provideBreaker)
	do.Provide(i, a.provideTelemetry)
	do.Provide(i, a.provideDatabase)
	do.Provide(i, a.provideRedis)
	do.Provide(i, a.provideHitMiss)
	do.Provide(i, a.provideRepository)
	do.Provide(i, a.provideCoordinator)
	do.Provide(i, a.provideComments)
	do.Provide(i, a.provideWarmer)
	do.Provide(i, a.provideKafka)
	do.Provide(i, a.provideHealth)
	do.Provide(i, a.provideServer)
}

// provideBreaker 全局 MeterProvider 在 telemetry 启动后才会替换，此前创建的仪表会自动委托过去
func (a *Application) provideBreaker(i do.Injector) (*breaker.Manager, error) {
	log := a.logMgr.GetLogger("breaker")
	return breaker.NewManager(a.cfg.Cache.Breaker, log,
		breaker.WithMeter(otel.Meter(meterName+"/breaker")),
		breaker.WithStateChange(func(resource string, from, to breaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("resource", resource),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}),
	)
}

func (a *Application) provideTelemetry(i do.Injector) (*telemetry.Manager, error) {
	b := do.MustInvoke[*breaker.Manager](i)

	mgr, err := telemetry.NewManager(a.cfg.Telemetry, a.logMgr.GetLogger("telemetry"), telemetry.WithBreaker(b))
	if err != nil {
		return nil, err
	}
	if err := mgr.Start(a.ctx); err != nil {
		return nil, fmt.Errorf("start telemetry failed: %w", err)
	}
	a.onShutdown("telemetry", mgr.Shutdown)
	return mgr, nil
}

func (a *Application) provideDatabase(i do.Injector) (*database.Manager, error) {
	tm := do.MustInvoke[*telemetry.Manager](i)
	log := a.logMgr.GetLogger("database")

	mgr, err := database.NewManager(a.cfg.Databases, database.NewGormLoggerFactory(log), log)
	if err != nil {
		return nil, err
	}
	a.onShutdown("database", func(context.Context) error { return mgr.Close() })

	dbMetrics, err := database.NewDBMetrics(tm.Meter(meterName+"/database"), database.DefaultConfig().SlowThreshold)
	if err != nil {
		return nil, err
	}
	if err := mgr.Use(dbMetrics.Plugin); err != nil {
		return nil, err
	}

	if err := mgr.AutoMigrate(a.ctx, &article.Article{}, &comment.Comment{}); err != nil {
		return nil, err
	}
	return mgr, nil
}

// provideRedis 启动时连不上 Redis 只记 warn：客户端照常创建，
// 运行期故障由 GuardedRemote 的熔断器处理，Redis 恢复后第二级缓存与共享计数器自动恢复
func (a *Application) provideRedis(i do.Injector) (*redis.Manager, error) {
	tm := do.MustInvoke[*telemetry.Manager](i)
	log := a.logMgr.GetLogger("redis")

	if len(a.cfg.Redis) == 0 {
		log.Warn("no redis instance configured, second tier and shared counters disabled")
		return nil, nil
	}

	mgr, err := redis.NewManager(a.cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	a.onShutdown("redis", func(context.Context) error { return mgr.Close() })

	commands, err := redis.NewCommandMetrics(tm.Meter(meterName + "/redis"))
	if err != nil {
		return nil, err
	}
	mgr.AddHook(commands.Hook)

	ctx, cancel := context.WithTimeout(a.ctx, redisDialBudget)
	defer cancel()
	err = retry.Do(ctx, mgr.Ping,
		retry.MaxAttempts(redisDialAttempts),
		retry.Backoff(retry.ExponentialBackoff(200*time.Millisecond, retry.WithMaxDelay(time.Second))),
		retry.OnRetry(func(attempt int, err error, next time.Duration) {
			log.Debug("redis ping failed, retrying",
				zap.Int("attempt", attempt), zap.Duration("next", next), zap.Error(err))
		}),
	)
	if err != nil {
		log.Warn("redis unreachable at startup, continuing; second tier stays behind the circuit breaker",
			zap.Error(err))
	}
	return mgr, nil
}

func (a *Application) provideHitMiss(i do.Injector) (*metrics.RedisHitMiss, error) {
	rm := do.MustInvoke[*redis.Manager](i)
	if rm == nil {
		return nil, nil
	}
	tm := do.MustInvoke[*telemetry.Manager](i)
	log := a.logMgr.GetLogger("metrics")

	client := rm.Client(a.cfg.Metrics.RedisInstance)
	if client == nil {
		log.Warn("metrics redis instance not configured, shared counters disabled",
			zap.String("instance", a.cfg.Metrics.RedisInstance))
		return nil, nil
	}
	return metrics.NewRedisHitMiss(client, a.cfg.Metrics.KeyPrefix,
		metrics.WithMeter(tm.Meter(meterName+"/cache")),
		metrics.WithLogger(log))
}

func (a *Application) provideRepository(i do.Injector) (*article.Repository, error) {
	dbs := do.MustInvoke[*database.Manager](i)
	return article.NewRepository(dbs, a.logMgr.GetLogger("article"))
}

func (a *Application) provideCoordinator(i do.Injector) (*ArticleCoordinator, error) {
	repo := do.MustInvoke[*article.Repository](i)
	log := a.logMgr.GetLogger("cache")

	opts := []cache.Option{
		cache.WithConfig(a.cfg.Cache),
		cache.WithLogger(log),
	}

	if client := a.remoteClient(i, log); client != nil {
		b := do.MustInvoke[*breaker.Manager](i)
		remote := cache.NewGuardedRemote(cache.NewRedisStore(client, a.cfg.Cache.KeyPrefix), b, remoteResource)
		opts = append(opts, cache.WithRemote(remote))
	}
	if hm := do.MustInvoke[*metrics.RedisHitMiss](i); hm != nil {
		opts = append(opts, cache.WithMetrics(hm))
	}

	return cache.NewCoordinator[*article.Article, article.Patch](article.Kind, repo, opts...)
}

// remoteClient 第二级缓存所在的 Redis 实例，未配置时返回 nil
func (a *Application) remoteClient(i do.Injector, log *logger.CtxZapLogger) goredis.UniversalClient {
	rm := do.MustInvoke[*redis.Manager](i)
	if rm == nil {
		return nil
	}
	client := rm.Client(a.cfg.Cache.RemoteInstance)
	if client == nil {
		log.Warn("cache redis instance not configured, second tier disabled",
			zap.String("instance", a.cfg.Cache.RemoteInstance))
	}
	return client
}

// provideComments 评论列表与文章共用第二级缓存实例、编码与熔断资源
func (a *Application) provideComments(i do.Injector) (*comment.Service, error) {
	repo := do.MustInvoke[*article.Repository](i)
	dbs := do.MustInvoke[*database.Manager](i)
	log := a.logMgr.GetLogger("comment")

	codec, err := cache.NewCodec(a.cfg.Cache.Codec, log)
	if err != nil {
		return nil, err
	}
	opts := []comment.Option{comment.WithLogger(log), comment.WithCodec(codec)}

	if client := a.remoteClient(i, log); client != nil {
		b := do.MustInvoke[*breaker.Manager](i)
		opts = append(opts,
			comment.WithRemote(cache.NewGuardedRemote(cache.NewRedisStore(client, a.cfg.Cache.KeyPrefix), b, remoteResource)),
			comment.WithRecent(comment.NewRedisRecent(client, a.cfg.Cache.KeyPrefix, a.cfg.Comments.RecentLimit, b, remoteResource)),
		)
	}
	if hm := do.MustInvoke[*metrics.RedisHitMiss](i); hm != nil {
		opts = append(opts, comment.WithMetrics(hm))
	}

	store := comment.NewRepository(dbs, repo.Regions(), log)
	return comment.NewService(store, a.cfg.Comments, opts...)
}

func (a *Application) provideWarmer(i do.Injector) (*ArticleWarmer, error) {
	repo := do.MustInvoke[*article.Repository](i)
	coord := do.MustInvoke[*ArticleCoordinator](i)

	partitions, err := a.cfg.Partitions(repo.Regions())
	if err != nil {
		return nil, fmt.Errorf("warmer.partitions: %w", err)
	}
	w, err := warmer.NewWarmer[*article.Article](repo, coord, partitions, a.cfg.Warmer,
		warmer.WithLogger(a.logMgr.GetLogger("warmer")))
	if err != nil {
		return nil, err
	}
	a.onShutdown("warmer", func(context.Context) error { return w.Shutdown() })
	return w, nil
}

// provideKafka 未启用时返回 nil
func (a *Application) provideKafka(i do.Injector) (*kafka.Manager, error) {
	if !a.cfg.Kafka.Enabled {
		return nil, nil
	}
	mgr, err := kafka.NewManager(a.cfg.Kafka, a.logMgr.GetLogger("kafka"), a.kafkaOpts...)
	if err != nil {
		return nil, err
	}
	a.onShutdown("kafka", func(context.Context) error { return mgr.Close() })
	return mgr, nil
}

func (a *Application) provideHealth(i do.Injector) (*health.Aggregator, error) {
	agg := health.NewAggregator(a.cfg.Health.Timeout)
	agg.SetMetadata("service", a.cfg.App.Name)
	agg.SetMetadata("version", a.cfg.App.Version)

	agg.Register(database.NewHealthChecker(do.MustInvoke[*database.Manager](i)))
	if rm := do.MustInvoke[*redis.Manager](i); rm != nil {
		agg.Register(redis.NewHealthChecker(rm))
	}
	if km := do.MustInvoke[*kafka.Manager](i); km != nil {
		agg.Register(kafka.NewHealthChecker(km))
	}
	return agg, nil
}

func (a *Application) provideServer(i do.Injector) (*api.Server, error) {
	tm := do.MustInvoke[*telemetry.Manager](i)
	repo := do.MustInvoke[*article.Repository](i)
	coord := do.MustInvoke[*ArticleCoordinator](i)
	comments := do.MustInvoke[*comment.Service](i)
	log := a.logMgr.GetLogger("http")

	httpMetrics, err := middleware.NewHTTPMetrics(tm.Meter(meterName + "/http"))
	if err != nil {
		return nil, err
	}

	deps := api.Deps{
		Articles:    api.NewArticleHandler(coord, repo, repo.Regions(), a.cfg.HTTP.RecentWindow),
		Comments:    api.NewCommentHandler(comments, repo.Regions()),
		HTTPMetrics: httpMetrics,
		Telemetry:   tm,
		Logger:      log,
	}

	if hm := do.MustInvoke[*metrics.RedisHitMiss](i); hm != nil {
		deps.CacheMetrics = api.NewCacheMetricsHandler(hm)

		scrape, err := metrics.NewCollector(hm, a.cfg.Metrics.Domains, a.cfg.Metrics.ScrapeTimeout,
			a.logMgr.GetLogger("metrics")).Handler()
		if err != nil {
			return nil, err
		}
		deps.Scrape = scrape
	} else {
		deps.CacheMetrics = api.NewCacheMetricsHandler(unavailableCounters{})
	}

	if a.cfg.Health.Enabled {
		deps.Health = do.MustInvoke[*health.Aggregator](i)
	}

	server := api.NewServer(a.cfg.HTTP, api.NewEngine(a.cfg.HTTP, deps), log)
	a.onShutdown("http", server.Shutdown)
	return server, nil
}

// unavailableCounters 共享计数器不可用时的报表来源
type unavailableCounters struct{}

func (unavailableCounters) Snapshots(context.Context, ...string) ([]metrics.Snapshot, error) {
	return nil, metrics.ErrCounterRead.WithMsg("shared counters unavailable: redis not connected")
}

var _ api.SnapshotReader = unavailableCounters{}

