// Package database manages one GORM connection per region and the shared repository helpers.
package database

import (
	"time"
)

// Config one database instance (one region)
type Config struct {
	Driver          string        `mapstructure:"driver"`            // mysql, postgres, sqlite
	DSN             string        `mapstructure:"dsn"`               // data source name
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // Maximum number of open connections
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // Maximum number of idle connections
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // Connection maximum lifetime
	EnableLog       bool          `mapstructure:"enable_log"`        // Whether SQL logging is enabled
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`    // slow query threshold
	EnableAudit     bool          `mapstructure:"enable_audit"`      // log every statement at debug
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // create tables on startup
}

// DefaultConfig Return the default configuration
func DefaultConfig() Config {
	return Config{
		Driver:          "mysql",
		MaxOpenConns:    100,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		EnableLog:       true,
		SlowThreshold:   200 * time.Millisecond,
	}
}

// Validate configuration (fills defaults for unset pool values)
func (c *Config) Validate() error {
	if c.Driver == "" {
		c.Driver = "mysql"
	}
	switch c.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return ErrUnsupportedDriver.WithMsgf("unsupported driver: %s", c.Driver)
	}
	if c.DSN == "" {
		return ErrInvalidConfig.WithMsg("dsn cannot be empty")
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 100
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
	return nil
}
