package metrics

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config shared counter settings
type Config struct {
	// RedisInstance redis instance holding the counters (default "main")
	RedisInstance string `mapstructure:"redis_instance"`

	// KeyPrefix counter key namespace (default "cachemetrics")
	KeyPrefix string `mapstructure:"key_prefix"`

	// Domains reported by the metrics endpoint and the scrape collector
	Domains []string `mapstructure:"domains"`

	// ScrapeTimeout Redis read budget per scrape (default 2s)
	ScrapeTimeout time.Duration `mapstructure:"scrape_timeout"`
}

// ApplyDefaults fills zero-valued fields
func (c *Config) ApplyDefaults() {
	if c.RedisInstance == "" {
		c.RedisInstance = "main"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "cachemetrics"
	}
	if len(c.Domains) == 0 {
		c.Domains = []string{"article", "comment"}
	}
	if c.ScrapeTimeout == 0 {
		c.ScrapeTimeout = 2 * time.Second
	}
}

// Validate configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RedisInstance, validation.Required),
		validation.Field(&c.Domains, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.ScrapeTimeout, validation.Min(time.Millisecond)),
	)
}
