package cache

import (
	"time"

	"github.com/KOMKZ/go-yogan-articlecache/breaker"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config cache tier settings
type Config struct {
	// LocalMaxEntries first tier capacity (default 100)
	LocalMaxEntries int `mapstructure:"local_max_entries"`

	// LocalTTL first tier absolute expiry (default 5m)
	LocalTTL time.Duration `mapstructure:"local_ttl"`

	// RemoteTTL second tier absolute expiry (default 14 days)
	RemoteTTL time.Duration `mapstructure:"remote_ttl"`

	// RemoteInstance redis instance name backing the second tier (default "main")
	RemoteInstance string `mapstructure:"remote_instance"`

	// KeyPrefix namespace prepended to every second tier key on the wire
	KeyPrefix string `mapstructure:"key_prefix"`

	// Codec second tier compression: brotli (default) or zstd
	Codec string `mapstructure:"codec"`

	// Dedupe collapse concurrent store fallbacks for the same key
	Dedupe bool `mapstructure:"dedupe"`

	// LoadTimeout budget of a deduplicated store fallback, which does not follow any caller's cancellation (default 5s)
	LoadTimeout time.Duration `mapstructure:"load_timeout"`

	// Breaker circuit breaker around the second tier
	Breaker breaker.Config `mapstructure:"breaker"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		LocalMaxEntries: 100,
		LocalTTL:        5 * time.Minute,
		RemoteTTL:       14 * 24 * time.Hour,
		RemoteInstance:  "main",
		Codec:           "brotli",
		LoadTimeout:     5 * time.Second,
		Breaker:         breaker.DefaultConfig(),
	}
}

// ApplyDefaults fills zero-valued fields
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.LocalMaxEntries == 0 {
		c.LocalMaxEntries = d.LocalMaxEntries
	}
	if c.LocalTTL == 0 {
		c.LocalTTL = d.LocalTTL
	}
	if c.RemoteTTL == 0 {
		c.RemoteTTL = d.RemoteTTL
	}
	if c.RemoteInstance == "" {
		c.RemoteInstance = d.RemoteInstance
	}
	if c.Codec == "" {
		c.Codec = d.Codec
	}
	if c.LoadTimeout == 0 {
		c.LoadTimeout = d.LoadTimeout
	}
	c.Breaker.ApplyDefaults()
}

// Validate configuration
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.LocalMaxEntries, validation.Required, validation.Min(1)),
		validation.Field(&c.LocalTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.RemoteTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RemoteInstance, validation.Required),
		validation.Field(&c.Codec, validation.In("brotli", "zstd")),
		validation.Field(&c.LoadTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
	if err != nil {
		return ErrConfigInvalid.Wrap(err)
	}
	if err := c.Breaker.Validate(); err != nil {
		return ErrConfigInvalid.Wrap(err)
	}
	if c.RemoteTTL < c.LocalTTL {
		return ErrConfigInvalid.WithMsgf("remote_ttl (%s) must not be shorter than local_ttl (%s)", c.RemoteTTL, c.LocalTTL)
	}
	return nil
}
