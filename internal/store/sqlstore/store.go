// Package sqlstore implements store.Store on top of database/sql.
//
// Queries are built with squirrel and scanned with sqlx. The SQL is kept to
// the subset shared by SQLite and PostgreSQL; the differences (placeholder
// style and constraint error detection) live in a Dialect supplied by the
// sqlite and postgres packages, which also own schema creation.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/tradepost/catalog-server/internal/store"
)

// Dialect describes what differs between SQL backends.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat

	// IsUniqueViolation reports a UNIQUE or PRIMARY KEY constraint failure.
	IsUniqueViolation func(error) bool
	// IsForeignKeyViolation reports a FOREIGN KEY constraint failure.
	IsForeignKeyViolation func(error) bool
}

// Store is a SQL-backed store.Store.
type Store struct {
	db      *sqlx.DB
	sb      sq.StatementBuilderType
	dialect Dialect
	logger  *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New wraps an open database. The schema must already exist.
func New(db *sqlx.DB, dialect Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		dialect: dialect,
		logger:  logger,
	}
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Info("closing sql database", "dialect", s.dialect.Name)
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func get(ctx context.Context, q sqlx.QueryerContext, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	err = sqlx.GetContext(ctx, q, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func selectAll(ctx context.Context, q sqlx.QueryerContext, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func exec(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// translate maps constraint failures onto store sentinels.
func (s *Store) translate(err error, conflictMsg, missingMsg string) error {
	switch {
	case err == nil:
		return nil
	case s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err):
		return store.ErrAlreadyExists.WithMessage(conflictMsg).WithCause(err)
	case s.dialect.IsForeignKeyViolation != nil && s.dialect.IsForeignKeyViolation(err):
		return store.ErrNotFound.WithMessage(missingMsg).WithCause(err)
	}
	return err
}
