package article

import (
	"fmt"
	"strings"
)

// Regions 已配置的区域（每个区域一个数据库）
//
// 查找不区分大小写并返回配置中的写法：viper 会把 databases 的键转成小写，
// 而调用方（路径参数、消息体、warmer.partitions）常用 Europe 这样的写法。
// 缓存键、日志与分区报告都使用解析后的名称，同一区域只会有一套键。
type Regions struct {
	names []string
	byKey map[string]string
}

// NewRegions names 中仅大小写不同的两项视为配置错误
func NewRegions(names []string) (Regions, error) {
	r := Regions{names: make([]string, 0, len(names)), byKey: make(map[string]string, len(names))}
	for _, name := range names {
		key := regionKey(name)
		if prev, ok := r.byKey[key]; ok {
			return Regions{}, fmt.Errorf("regions %q and %q differ only in case", prev, name)
		}
		r.byKey[key] = name
		r.names = append(r.names, name)
	}
	return r, nil
}

func regionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names 配置中的写法，顺序与创建时一致
func (r Regions) Names() []string {
	return append([]string(nil), r.names...)
}

// Resolve 返回配置中的写法；未配置时返回 ErrUnknownRegion
func (r Regions) Resolve(name string) (string, error) {
	if canonical, ok := r.byKey[regionKey(name)]; ok {
		return canonical, nil
	}
	return "", ErrUnknownRegion.WithMsgf("unknown region: %s", name)
}

// ResolveAll 逐个 Resolve，遇到第一个未配置的区域即返回
func (r Regions) ResolveAll(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		canonical, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, canonical)
	}
	return out, nil
}
