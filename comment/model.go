// Package comment is the comment domain: per-region comments on articles,
// the cached comment list of each article and the recent-comments index.
package comment

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// Kind cache key prefix of comment lists
	Kind = "comments"

	// Domain hit/miss metrics domain
	Domain = "comment"

	maxAuthorLen  = 128
	maxContentLen = 4096
)

// Comment one comment on an article, stored in the database of its region
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ArticleID int64     `gorm:"index;not null" json:"article_id"`
	Region    string    `gorm:"size:64;index" json:"region"`
	Author    string    `gorm:"size:128" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Created   time.Time `gorm:"autoCreateTime;index" json:"created"`
}

// TableName GORM table name
func (Comment) TableName() string {
	return "comments"
}

// Draft payload of a new comment
type Draft struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Validate implements validation.Validatable
func (d Draft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Content, validation.Required, validation.Length(1, maxContentLen)),
		validation.Field(&d.Author, validation.Length(0, maxAuthorLen)),
	)
}

// ToComment builds the entity to insert under article articleID
func (d Draft) ToComment(region string, articleID int64) *Comment {
	return &Comment{
		ArticleID: articleID,
		Region:    region,
		Author:    d.Author,
		Content:   d.Content,
	}
}
