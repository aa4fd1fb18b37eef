package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_DetectsViolationsFromBothDrivers(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		unique bool
		fk     bool
	}{
		{"pgx unique", &pgconn.PgError{Code: "23505"}, true, false},
		{"pgx fk", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), false, true},
		{"pq unique", &pq.Error{Code: "23505"}, true, false},
		{"pq fk", &pq.Error{Code: "23503"}, false, true},
		{"other sqlstate", &pq.Error{Code: "40001"}, false, false},
		{"plain error", errors.New("boom"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, Dialect.IsUniqueViolation(tt.err))
			assert.Equal(t, tt.fk, Dialect.IsForeignKeyViolation(tt.err))
		})
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(embedMigrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(t.Context(), "postgres://localhost/db", "mysql", nil)
	assert.ErrorContains(t, err, "unsupported postgres driver")
}
