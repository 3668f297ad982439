package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/quantdash/pkg/config"
)

// DB is a transactional store. Postgres and SQLite both implement it
// ⭐ SSOT: 저장소 접근은 이 인터페이스를 통해서만
type DB interface {
	Dialect() Dialect
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Querier runs statements written with '?' placeholders; backends rebind as needed
type Querier interface {
	Dialect() Dialect
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Tx is one unit of work. Nothing is visible to other connections until Commit
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Rows is the subset of result-set behavior shared by pgx and database/sql
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Open connects to the backend named by the URL scheme and applies the schema
// sqlite://path, sqlite://:memory: and postgres://... are accepted
func Open(ctx context.Context, cfg *config.Config) (DB, error) {
	url := cfg.Database.URL

	var (
		db  DB
		err error
	)
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		db, err = NewSQLite(SQLitePath(url))
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err = NewPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", url)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// WithTx runs fn in a transaction, committing on nil and rolling back otherwise
func WithTx(ctx context.Context, db DB, fn func(tx Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Placeholders returns "?, ?, ..." with n markers
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
