package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Loader configuration loader (supporting multiple data sources)
type Loader struct {
	sources      []ConfigSource         // data source list
	mergedConfig map[string]any // merged flat configuration
	v            *viper.Viper
	loadedFiles  []string // files that contributed (for logging)
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{
		sources:      make([]ConfigSource, 0),
		mergedConfig: make(map[string]any),
		v:            viper.New(),
		loadedFiles:  make([]string, 0),
	}
}

// AddSource add configuration data source
func (l *Loader) AddSource(source ConfigSource) {
	l.sources = append(l.sources, source)
}

// Load and merge all data sources
func (l *Loader) Load() error {
	// Sort by priority (low to high) so later sources override
	sort.SliceStable(l.sources, func(i, j int) bool {
		return l.sources[i].Priority() < l.sources[j].Priority()
	})

	l.mergedConfig = make(map[string]any)
	l.loadedFiles = l.loadedFiles[:0]
	for _, source := range l.sources {
		data, err := source.Load()
		if err != nil {
			return fmt.Errorf("加载数据源 %s 失败: %w", source.Name(), err)
		}

		if fileSource, ok := source.(*FileSource); ok && len(data) > 0 {
			l.loadedFiles = append(l.loadedFiles, fileSource.path)
		}

		for key, value := range data {
			l.mergedConfig[strings.ToLower(key)] = value
		}
	}

	l.syncToViper()
	return nil
}

// syncToViper rebuilds viper from the merged flat map
func (l *Loader) syncToViper() {
	nested := make(map[string]any)
	for key, value := range l.mergedConfig {
		setNestedValue(nested, strings.Split(key, "."), value)
	}

	l.v = viper.New()
	for key, value := range nested {
		l.v.Set(key, value)
	}
}

// setNestedValue {"a.b.c": 1} -> {"a": {"b": {"c": 1}}}
func setNestedValue(m map[string]any, keys []string, value interface{}) {
	current := m
	for _, k := range keys[:len(keys)-1] {
		nested, ok := current[k].(map[string]any)
		if !ok {
			nested = make(map[string]any)
			current[k] = nested
		}
		current = nested
	}
	current[keys[len(keys)-1]] = value
}

// Unmarshal parse configuration into struct (mapstructure tags)
// String durations such as "336h" decode into time.Duration fields
func (l *Loader) Unmarshal(v interface{}) error {
	return l.v.Unmarshal(v)
}

// UnmarshalKey parse one section into struct
func (l *Loader) UnmarshalKey(key string, v interface{}) error {
	return l.v.UnmarshalKey(key, v)
}

// Get configuration value
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString Get string configuration
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// GetInt Get integer configuration
func (l *Loader) GetInt(key string) int {
	return l.v.GetInt(key)
}

// GetBool Get boolean configuration
func (l *Loader) GetBool(key string) bool {
	return l.v.GetBool(key)
}

// GetDuration Get duration configuration
func (l *Loader) GetDuration(key string) time.Duration {
	return l.v.GetDuration(key)
}

// IsSet Check if the configuration item exists
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// AllSettings Get all settings
func (l *Loader) AllSettings() map[string]any {
	return l.v.AllSettings()
}

// GetLoadedFiles Retrieve the list of loaded configuration files
func (l *Loader) GetLoadedFiles() []string {
	return l.loadedFiles
}

// GetViper returns the underlying viper instance
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// Reload reload configuration
func (l *Loader) Reload() error {
	return l.Load()
}
