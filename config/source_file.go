package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/viper"
)

// FileSource 单个配置文件，格式由扩展名决定；文件缺失视为空配置，
// 这样 <APP_ENV>.yaml 可以按需存在
type FileSource struct {
	path     string
	priority int
}

func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{path: path, priority: priority}
}

func (s *FileSource) Name() string  { return "file:" + s.path }
func (s *FileSource) Priority() int { return s.priority }

// Load 返回点号分隔的扁平键，例如 redis.instances.main.addr
func (s *FileSource) Load() (map[string]any, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat config %s: %w", s.path, err)
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", s.path, err)
	}

	keys := v.AllKeys()
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		out[key] = v.Get(key)
	}
	return out, nil
}
