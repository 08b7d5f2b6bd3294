package warmer

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config 缓存预热配置
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// Interval 两次预热之间的间隔
	Interval time.Duration `mapstructure:"interval"`

	// Window 只预热该时间窗口内创建的实体
	Window time.Duration `mapstructure:"window"`

	// Workers 单个分区内并发读取的协程数
	Workers int `mapstructure:"workers"`

	// PartitionTimeout 单个分区的预热上限
	PartitionTimeout time.Duration `mapstructure:"partition_timeout"`

	// Partitions 为空时使用数据库实例名
	Partitions []string `mapstructure:"partitions"`
}

// DefaultConfig 默认配置：每小时预热最近 14 天
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		Interval:         time.Hour,
		Window:           14 * 24 * time.Hour,
		Workers:          8,
		PartitionTimeout: 5 * time.Minute,
	}
}

// ApplyDefaults 填充零值
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.Interval == 0 {
		c.Interval = def.Interval
	}
	if c.Window == 0 {
		c.Window = def.Window
	}
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
	if c.PartitionTimeout == 0 {
		c.PartitionTimeout = def.PartitionTimeout
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Interval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Window, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(256)),
		validation.Field(&c.PartitionTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Partitions, validation.Each(validation.Required)),
	)
	if err != nil {
		return ErrConfigInvalid.Wrap(err)
	}
	return nil
}
