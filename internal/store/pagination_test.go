package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		input Page
		want  Page
	}{
		{"valid", Page{Offset: 10, Limit: 20}, Page{Offset: 10, Limit: 20}},
		{"zero limit", Page{}, Page{Limit: 50}},
		{"negative offset", Page{Offset: -5, Limit: 10}, Page{Limit: 10}},
		{"limit too large", Page{Limit: 5000}, Page{Limit: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.input
			p.Normalize()
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestPageFromNumber(t *testing.T) {
	assert.Equal(t, Page{Offset: 0, Limit: 25}, PageFromNumber(1, 25))
	assert.Equal(t, Page{Offset: 50, Limit: 25}, PageFromNumber(3, 25))
	assert.Equal(t, Page{Offset: 0, Limit: 50}, PageFromNumber(0, 0))
}

func TestNewPageResult(t *testing.T) {
	r := NewPageResult([]string{"a", "b"}, 5, Page{Offset: 0, Limit: 2})
	assert.True(t, r.HasMore)
	assert.Equal(t, 5, r.Total)

	last := NewPageResult([]string{"e"}, 5, Page{Offset: 4, Limit: 2})
	assert.False(t, last.HasMore)

	empty := NewPageResult[string](nil, 0, Page{Limit: 2})
	assert.NotNil(t, empty.Items)
}
