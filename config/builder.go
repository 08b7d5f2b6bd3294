package config

import (
	"os"
	"path/filepath"
)

// LoaderBuilder configuration loader builder
type LoaderBuilder struct {
	configPath string
	configFile string
	envPrefix  string
	env        string
}

// NewLoaderBuilder creates a loader builder
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{
		configFile: "config.yaml",
	}
}

// WithConfigPath set configuration directory
func (b *LoaderBuilder) WithConfigPath(path string) *LoaderBuilder {
	b.configPath = path
	return b
}

// WithConfigFile set an explicit configuration file (overrides <path>/config.yaml)
func (b *LoaderBuilder) WithConfigFile(file string) *LoaderBuilder {
	if file != "" {
		b.configFile = file
		b.configPath = filepath.Dir(file)
	}
	return b
}

// WithEnvPrefix Set environment variable prefix
func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithEnv overrides the environment name used for <env>.yaml
func (b *LoaderBuilder) WithEnv(env string) *LoaderBuilder {
	b.env = env
	return b
}

// Build loader
func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()

	// 1. Basic configuration file (priority 10)
	if b.configPath != "" {
		file := b.configFile
		if !filepath.IsAbs(file) && filepath.Dir(file) == "." {
			file = filepath.Join(b.configPath, file)
		}
		loader.AddSource(NewFileSource(file, 10))

		// 2. Environment configuration file (priority 20)
		env := b.env
		if env == "" {
			env = GetEnv()
		}
		if env != "" {
			loader.AddSource(NewFileSource(filepath.Join(b.configPath, env+".yaml"), 20))
		}
	}

	// 3. Environment variables (priority 50)
	if b.envPrefix != "" {
		loader.AddSource(NewEnvSource(b.envPrefix, 50))
	}

	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// GetEnv retrieves the environment name (priority: APP_ENV > ENV > default dev)
func GetEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}
