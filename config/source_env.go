package config

import (
	"os"
	"strings"
)

// EnvSource 环境变量数据源
//
// 层级使用双下划线分隔，单下划线保留在 key 中：
//
//	ARTICLECACHE_WARMER__WINDOW=72h            -> warmer.window
//	ARTICLECACHE_CACHE__LOCAL_MAX_ENTRIES=500  -> cache.local_max_entries
type EnvSource struct {
	prefix   string // 环境变量前缀，如 "ARTICLECACHE"
	priority int
	bindings map[string]string // 显式映射，如 "redis.instances.main.addr" -> "REDIS_ADDR"
}

// NewEnvSource 创建环境变量数据源
func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{
		prefix:   prefix,
		priority: priority,
		bindings: make(map[string]string),
	}
}

// AddBinding 添加 key 映射（不带前缀的变量名会自动补全前缀）
func (s *EnvSource) AddBinding(key, envKey string) {
	s.bindings[key] = envKey
}

// Name 数据源名称
func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

// Priority 优先级
func (s *EnvSource) Priority() int {
	return s.priority
}

// Load 加载环境变量配置
func (s *EnvSource) Load() (map[string]any, error) {
	result := make(map[string]any)

	for key, envKey := range s.bindings {
		fullEnvKey := envKey
		if s.prefix != "" && !strings.HasPrefix(envKey, s.prefix+"_") {
			fullEnvKey = s.prefix + "_" + envKey
		}
		if value, ok := os.LookupEnv(fullEnvKey); ok && value != "" {
			result[key] = value
		}
	}

	if s.prefix == "" {
		return result, nil
	}

	prefix := s.prefix + "_"
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		configKey := envToKey(strings.TrimPrefix(name, prefix))
		if _, bound := result[configKey]; bound || configKey == "" {
			continue
		}
		result[configKey] = value
	}

	return result, nil
}

// envToKey WARMER__WINDOW -> warmer.window
func envToKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "__", ".")
}
