// Package redis manages named go-redis clients shared by the second cache tier and the hit/miss counters.
package redis

import (
	"fmt"
	"time"
)

// Config Redis instance settings
type Config struct {
	// Mode: "standalone" or "cluster"
	Mode string `mapstructure:"mode"`

	// Address list
	// Standalone: the first address is used
	// Cluster: all addresses are used
	Addrs []string `mapstructure:"addrs"`

	// Addr single address shorthand for Addrs
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`

	// DB number (0-15, standalone only)
	DB int `mapstructure:"db"`

	// PoolSize connection pool size (default 10)
	PoolSize int `mapstructure:"pool_size"`

	// MinIdleConns minimum idle connections (default 2)
	MinIdleConns int `mapstructure:"min_idle_conns"`

	// MaxRetries command retries inside go-redis (default 1)
	// Kept low so an unreachable second tier degrades to a miss quickly
	MaxRetries int `mapstructure:"max_retries"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`  // default 2s
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // default 500ms
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // default 500ms
}

// Validate configuration
func (c *Config) Validate() error {
	if c.Mode != "standalone" && c.Mode != "cluster" {
		return fmt.Errorf("invalid mode: %s (must be standalone or cluster)", c.Mode)
	}
	if len(c.Addrs) == 0 {
		return fmt.Errorf("addrs cannot be empty")
	}
	if c.Mode == "standalone" && (c.DB < 0 || c.DB > 15) {
		return fmt.Errorf("db must be between 0 and 15, got: %d", c.DB)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("pool_size must be >= 0, got: %d", c.PoolSize)
	}
	if c.MinIdleConns < 0 {
		return fmt.Errorf("min_idle_conns must be >= 0, got: %d", c.MinIdleConns)
	}
	return nil
}

// ApplyDefaults fills zero-valued fields
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = "standalone"
	}
	if c.Addr != "" && len(c.Addrs) == 0 {
		c.Addrs = []string{c.Addr}
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 1
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 2 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 500 * time.Millisecond
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 500 * time.Millisecond
	}
}
