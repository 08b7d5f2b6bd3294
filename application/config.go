package application

import (
	"fmt"
	"maps"
	"slices"

	"github.com/KOMKZ/go-yogan-articlecache/api"
	"github.com/KOMKZ/go-yogan-articlecache/article"
	"github.com/KOMKZ/go-yogan-articlecache/cache"
	"github.com/KOMKZ/go-yogan-articlecache/comment"
	"github.com/KOMKZ/go-yogan-articlecache/config"
	"github.com/KOMKZ/go-yogan-articlecache/database"
	"github.com/KOMKZ/go-yogan-articlecache/health"
	"github.com/KOMKZ/go-yogan-articlecache/kafka"
	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/KOMKZ/go-yogan-articlecache/metrics"
	"github.com/KOMKZ/go-yogan-articlecache/redis"
	"github.com/KOMKZ/go-yogan-articlecache/telemetry"
	"github.com/KOMKZ/go-yogan-articlecache/warmer"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// EnvPrefix 环境变量前缀，ARTICLECACHE_WARMER__WINDOW -> warmer.window
const EnvPrefix = "ARTICLECACHE"

// AppConfig 全部配置
type AppConfig struct {
	App AppInfo `mapstructure:"app"`

	Logger logger.ManagerConfig `mapstructure:"logger"`

	// Redis 命名实例，cache.remote_instance 与 metrics.redis_instance 引用其中之一
	Redis map[string]redis.Config `mapstructure:"redis"`

	// Databases 每个区域一个实例，实例名即分区名
	Databases map[string]database.Config `mapstructure:"databases"`

	Cache     cache.Config     `mapstructure:"cache"`
	Comments  comment.Config   `mapstructure:"comments"`
	Metrics   metrics.Config   `mapstructure:"metrics"`
	Warmer    warmer.Config    `mapstructure:"warmer"`
	HTTP      api.Config       `mapstructure:"http"`
	Kafka     kafka.Config     `mapstructure:"kafka"`
	Ingest    IngestConfig     `mapstructure:"ingest"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
	Health    health.Config    `mapstructure:"health"`
}

// IngestConfig 文章消息接入
type IngestConfig struct {
	// DefaultRegion 消息未带 region 时写入的区域，必须是 databases 中的实例（不区分大小写）
	DefaultRegion string `mapstructure:"default_region"`
}

// AppInfo 应用元信息
type AppInfo struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// DefaultConfig 默认配置（不含数据库与 Redis 实例）
func DefaultConfig() AppConfig {
	return AppConfig{
		App:       AppInfo{Name: "articlecache", Version: "1.0.0"},
		Logger:    logger.DefaultManagerConfig(),
		Cache:     cache.DefaultConfig(),
		Comments:  comment.DefaultConfig(),
		Warmer:    warmer.DefaultConfig(),
		HTTP:      api.DefaultConfig(),
		Ingest:    IngestConfig{DefaultRegion: article.DefaultRegion},
		Telemetry: telemetry.DefaultConfig(),
		Health:    health.DefaultConfig(),
	}
}

// ApplyDefaults 填充零值字段
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "articlecache"
	}
	if c.App.Version == "" {
		c.App.Version = "1.0.0"
	}
	if c.Logger.AppName == "" {
		c.Logger.AppName = c.App.Name
	}
	c.Logger.ApplyDefaults()

	for name, rc := range c.Redis {
		rc.ApplyDefaults()
		c.Redis[name] = rc
	}

	c.Cache.ApplyDefaults()
	c.Comments.ApplyDefaults()
	c.Metrics.ApplyDefaults()
	c.Warmer.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	if c.Ingest.DefaultRegion == "" {
		c.Ingest.DefaultRegion = article.DefaultRegion
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.App.Name
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = c.App.Version
	}
	c.Telemetry.ApplyDefaults()

	if c.Health.Timeout == 0 {
		c.Health.Timeout = health.DefaultConfig().Timeout
	}
}

// Validate 校验各模块配置，返回第一个错误
func (c *AppConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Databases, validation.Required.Error("at least one region database is required")),
	); err != nil {
		return err
	}

	for name, dc := range c.Databases {
		if err := dc.Validate(); err != nil {
			return fmt.Errorf("databases.%s: %w", name, err)
		}
		c.Databases[name] = dc
	}
	for name, rc := range c.Redis {
		if err := rc.Validate(); err != nil {
			return fmt.Errorf("redis.%s: %w", name, err)
		}
	}

	regions, err := c.Regions()
	if err != nil {
		return fmt.Errorf("databases: %w", err)
	}
	if _, err := regions.ResolveAll(c.Warmer.Partitions); err != nil {
		return fmt.Errorf("warmer.partitions: %w", err)
	}
	if c.Kafka.Enabled && c.Kafka.Consumer.Enabled {
		if _, err := regions.Resolve(c.Ingest.DefaultRegion); err != nil {
			return fmt.Errorf("ingest.default_region: %w", err)
		}
	}

	return config.ValidateAll(
		c.Logger,
		c.Cache,
		c.Comments,
		c.Metrics,
		c.Warmer,
		c.HTTP,
		&c.Kafka,
		c.Telemetry,
		c.Health,
	)
}

// Regions databases 的实例名即区域
func (c *AppConfig) Regions() (article.Regions, error) {
	return article.NewRegions(slices.Sorted(maps.Keys(c.Databases)))
}

// Partitions warmer.partitions 解析为配置中的区域名，为空时取全部区域
func (c *AppConfig) Partitions(regions article.Regions) ([]string, error) {
	if len(c.Warmer.Partitions) == 0 {
		return regions.Names(), nil
	}
	return regions.ResolveAll(c.Warmer.Partitions)
}

// Load 读取 <configPath>/config.yaml、<env>.yaml 与 ARTICLECACHE_* 环境变量
func Load(opts config.ProvideLoaderOptions) (*AppConfig, error) {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = EnvPrefix
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "./configs"
	}

	loader, err := config.NewLoaderBuilder().
		WithConfigPath(opts.ConfigPath).
		WithConfigFile(opts.ConfigFile).
		WithEnvPrefix(opts.EnvPrefix).
		Build()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	cfg := DefaultConfig()
	if err := loader.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config failed: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
