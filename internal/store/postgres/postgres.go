// Package postgres opens the SQL store on PostgreSQL and applies the
// embedded goose migrations.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/tradepost/catalog-server/internal/store/sqlstore"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Supported database/sql driver names.
const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

// SQLSTATE codes for integrity violations.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Dialect is the PostgreSQL flavour of the SQL store.
var Dialect = sqlstore.Dialect{
	Name:                  "postgres",
	Placeholder:           sq.Dollar,
	IsUniqueViolation:     func(err error) bool { return sqlState(err) == codeUniqueViolation },
	IsForeignKeyViolation: func(err error) bool { return sqlState(err) == codeForeignKeyViolation },
}

// sqlState extracts the SQLSTATE from either driver's error type.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// Open connects with driver (DriverPgx when empty), verifies the connection
// and migrates the schema.
func Open(ctx context.Context, dsn, driver string, logger *slog.Logger) (*sqlstore.Store, error) {
	if driver == "" {
		driver = DriverPgx
	}
	if driver != DriverPgx && driver != DriverPq {
		return nil, fmt.Errorf("unsupported postgres driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("postgres database connected", "driver", driver)
	}
	return sqlstore.New(db, Dialect, logger), nil
}

// Migrate runs all pending goose migrations from the embedded SQL files.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
