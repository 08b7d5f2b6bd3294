// Package article is the article domain: the GORM model, the per-region
// repository backing the cache coordinator, and the ingest handler for
// published articles.
package article

import (
	"time"
)

// Kind cache key prefix and metrics domain of articles
const Kind = "article"

// Article one published article, stored in the database of its region
type Article struct {
	ID      int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Region  string    `gorm:"size:64;index" json:"region"`
	Title   string    `gorm:"size:255;not null" json:"title"`
	Content string    `gorm:"type:text" json:"content"`
	Author  string    `gorm:"size:128" json:"author"`
	Created time.Time `gorm:"autoCreateTime;index" json:"created"`
	Updated time.Time `gorm:"autoUpdateTime" json:"updated"`
}

// TableName GORM table name
func (Article) TableName() string {
	return "articles"
}

// EntityID cache entity identifier
func (a *Article) EntityID() int64 {
	return a.ID
}
