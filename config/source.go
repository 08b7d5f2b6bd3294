// Package config merges layered configuration sources (files, environment) into viper.
package config

// ConfigSource a configuration data source
// Files and environment variables implement this interface
type ConfigSource interface {
	// Name data source name (for logs and debugging)
	Name() string

	// Priority higher value wins on conflicting keys
	// Suggested values:
	// - Configuration file (config.yaml): 10
	// - Environment configuration file (prod.yaml): 20
	// - Environment variable: 50
	Priority() int

	// Load returns keys separated by dots, such as "redis.instances.main.addr"
	Load() (map[string]any, error)
}
