package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate(PrefixCategory)
		require.NoError(t, err)
		assert.False(t, seen[id], "ID should be unique: %s", id)
		seen[id] = true
	}

	assert.Len(t, seen, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixCategory, PrefixCategoryRequest, PrefixMessage} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			assert.Len(t, id, len(prefix)+1+21)
			assert.True(t, HasPrefix(id, prefix))
		})
	}
}

func TestHasPrefix(t *testing.T) {
	assert.False(t, HasPrefix("cat-", PrefixCategory))
	assert.False(t, HasPrefix("msg-abc", PrefixCategory))
	assert.True(t, HasPrefix("cat-abc", PrefixCategory))
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, HasPrefix(MustGenerate(PrefixMessage), PrefixMessage))
	})
}
