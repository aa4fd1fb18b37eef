package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradepost/catalog-server/internal/store"
	"github.com/tradepost/catalog-server/internal/store/storetest"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "catalog.db"), nil)
		require.NoError(t, err)
		return s
	})
}

func TestOpen_SchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateCategory(context.Background(), storetest.NewCategory("cat-1", "Tools", nil)))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDSN(t *testing.T) {
	got := dsn("/tmp/catalog.db")
	assert.Contains(t, got, "file:/tmp/catalog.db?")
	assert.Contains(t, got, "_pragma=foreign_keys%281%29")
}
