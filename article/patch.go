package article

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	maxTitleLen  = 255
	maxAuthorLen = 128
)

var errEmptyPatch = errors.New("at least one of title, content, author is required")

// Patch partial update; nil fields are left unchanged
type Patch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Author  *string `json:"author"`
}

// IsEmpty reports whether no field is set
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Author == nil
}

// Validate implements validation.Validatable
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return errEmptyPatch
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.NilOrNotEmpty, validation.Length(1, maxTitleLen)),
		validation.Field(&p.Author, validation.Length(0, maxAuthorLen)),
	)
}

// Apply copies the set fields onto a
func (p Patch) Apply(a *Article) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.Author != nil {
		a.Author = *p.Author
	}
}

// Draft payload of a new article (HTTP body and published-article message)
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Region  string `json:"region,omitempty"`
}

// Validate implements validation.Validatable
func (d Draft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required, validation.Length(1, maxTitleLen)),
		validation.Field(&d.Author, validation.Length(0, maxAuthorLen)),
	)
}

// ToArticle builds the entity to insert into region
func (d Draft) ToArticle(region string) *Article {
	return &Article{
		Region:  region,
		Title:   d.Title,
		Content: d.Content,
		Author:  d.Author,
	}
}
