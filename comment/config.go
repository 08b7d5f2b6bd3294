package comment

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config comment list cache settings; the redis instance and codec follow the article cache
type Config struct {
	// ListTTL second tier expiry of one article's comment list (default 12h)
	ListTTL time.Duration `mapstructure:"list_ttl"`

	// RecentLimit entries kept in each region's recent-comments index (default 30)
	RecentLimit int `mapstructure:"recent_limit"`

	// LoadTimeout budget of a store load shared by concurrent readers (default 5s)
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		ListTTL:     12 * time.Hour,
		RecentLimit: 30,
		LoadTimeout: 5 * time.Second,
	}
}

// ApplyDefaults 填充零值字段
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ListTTL == 0 {
		c.ListTTL = d.ListTTL
	}
	if c.RecentLimit == 0 {
		c.RecentLimit = d.RecentLimit
	}
	if c.LoadTimeout == 0 {
		c.LoadTimeout = d.LoadTimeout
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ListTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RecentLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.LoadTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}
