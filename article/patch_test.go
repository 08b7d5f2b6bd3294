package article

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestPatch_Validate(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"empty", Patch{}, true},
		{"title only", Patch{Title: strPtr("T")}, false},
		{"blank title", Patch{Title: strPtr("")}, true},
		{"content may be cleared", Patch{Content: strPtr("")}, false},
		{"author too long", Patch{Author: strPtr(strings.Repeat("a", maxAuthorLen+1))}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPatch_ApplyLeavesUnsetFields(t *testing.T) {
	a := &Article{ID: 1, Title: "Old", Content: "body", Author: "ann"}
	Patch{Content: strPtr("new body")}.Apply(a)

	assert.Equal(t, "Old", a.Title)
	assert.Equal(t, "new body", a.Content)
	assert.Equal(t, "ann", a.Author)
	assert.True(t, Patch{}.IsEmpty())
}

func TestDraft(t *testing.T) {
	assert.Error(t, Draft{Content: "no title"}.Validate())
	assert.NoError(t, Draft{Title: "T"}.Validate())

	a := Draft{Title: "T", Content: "C", Author: "A", Region: "Asia"}.ToArticle("Europe")
	assert.Equal(t, "Europe", a.Region)
	assert.Equal(t, "T", a.Title)
	assert.Zero(t, a.ID)
}
