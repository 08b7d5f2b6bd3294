// Package types HTTP 请求/响应的通用类型
package types

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageQuery 分页参数，current 从 1 开始
type PageQuery struct {
	Current int `form:"current" json:"current"`
	Size    int `form:"size" json:"size"`
}

// ApplyDefaults 非法或缺省值回落到第一页、每页 DefaultPageSize 条，并限制最大页长
func (p *PageQuery) ApplyDefaults() {
	if p.Current <= 0 {
		p.Current = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	p.Size = min(p.Size, MaxPageSize)
}

// PageMeta 分页元数据
type PageMeta struct {
	Total   int64 `json:"total"`
	Size    int   `json:"size"`
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
}

// Paginate 对已按顺序取出的完整结果切页，超出范围的页返回空列表
func Paginate[T any](items []T, q PageQuery) ([]T, PageMeta) {
	q.ApplyDefaults()

	total := len(items)
	start := min((q.Current-1)*q.Size, total)
	end := min(start+q.Size, total)

	return items[start:end], PageMeta{
		Total:   int64(total),
		Size:    q.Size,
		Current: q.Current,
		Pages:   (total + q.Size - 1) / q.Size,
	}
}
