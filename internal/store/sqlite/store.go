// Package sqlite opens the SQL store on an embedded SQLite database.
package sqlite

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/tradepost/catalog-server/internal/store/sqlstore"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Dialect is the SQLite flavour of the SQL store.
var Dialect = sqlstore.Dialect{
	Name:        "sqlite",
	Placeholder: sq.Question,
	IsUniqueViolation: func(err error) bool {
		return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "PRIMARY KEY constraint failed"))
	},
	IsForeignKeyViolation: func(err error) bool {
		return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
	},
}

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Open creates or opens the SQLite database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*sqlstore.Store, error) {
	db, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("sqlite database opened", "path", path)
	}
	return sqlstore.New(db, Dialect, logger), nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}
