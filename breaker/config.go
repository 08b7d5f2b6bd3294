package breaker

import (
	"fmt"
	"time"
)

// Config 熔断器配置
type Config struct {
	// Enabled 是否启用熔断器（false 时直接透传）
	Enabled bool `mapstructure:"enabled"`

	// ConsecutiveFailures 连续失败次数阈值
	ConsecutiveFailures int `mapstructure:"consecutive_failures"`

	// Timeout Open 状态持续时间
	Timeout time.Duration `mapstructure:"timeout"`

	// HalfOpenRequests 半开状态允许的试探请求数
	HalfOpenRequests int `mapstructure:"half_open_requests"`
}

// DefaultConfig 返回默认配置（3 次连续失败，熔断 30 秒）
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		ConsecutiveFailures: 3,
		Timeout:             30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// ApplyDefaults 填充零值字段
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = d.ConsecutiveFailures
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = d.HalfOpenRequests
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ConsecutiveFailures < 1 {
		return fmt.Errorf("consecutive_failures must be >= 1, got: %d", c.ConsecutiveFailures)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got: %s", c.Timeout)
	}
	if c.HalfOpenRequests < 1 {
		return fmt.Errorf("half_open_requests must be >= 1, got: %d", c.HalfOpenRequests)
	}
	return nil
}
