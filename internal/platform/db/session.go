// Package db opens the relational store used by the sync jobs and exposes a
// dialect-neutral session that repositories build statements against.
package db

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // registers the mysql dialect
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	// DriverPostgres selects the pgx backed store.
	DriverPostgres = "postgres"
	// DriverMySQL selects the database/sql MySQL backed store.
	DriverMySQL = "mysql"
)

const (
	// TableBooks holds catalog records and their last sampled inventory.
	TableBooks = "books"
	// TableCheckouts is the append-only log of inferred checkouts.
	TableCheckouts = "checkouts"
)

// Executor runs statements either on a session connection or inside a transaction.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Rows is the subset of a result cursor the repositories need.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Session is a single acquired connection. Callers must Release it on every
// exit path.
type Session interface {
	Executor
	Dialect() string
	WithTx(ctx context.Context, fn func(Executor) error) error
	Release()
}

// Pool hands out sessions for one driver.
type Pool interface {
	Acquire(ctx context.Context) (Session, error)
	Dialect() string
	Close()
}

// Options selects and configures the backing store.
type Options struct {
	Driver   string
	DSN      string
	MaxConns int
}

// Open connects to the configured driver and verifies connectivity.
func Open(ctx context.Context, opts Options) (Pool, error) {
	switch opts.Driver {
	case DriverPostgres, "":
		pool, err := New(ctx, opts.DSN, opts.MaxConns)
		if err != nil {
			return nil, err
		}
		return NewPostgresPool(pool), nil
	case DriverMySQL:
		sqlDB, err := NewMySQL(ctx, opts.DSN, opts.MaxConns)
		if err != nil {
			return nil, err
		}
		return NewMySQLPool(sqlDB), nil
	default:
		return nil, fmt.Errorf("platform/db: unsupported driver %q", opts.Driver)
	}
}

// Builder returns a goqu statement builder for the dialect.
func Builder(dialect string) goqu.DialectWrapper {
	return goqu.Dialect(dialect)
}

// Excluded references the value proposed for col inside an upsert's update clause.
func Excluded(dialect, col string) exp.LiteralExpression {
	if dialect == DriverMySQL {
		return goqu.L(fmt.Sprintf("VALUES(%s)", col))
	}
	return goqu.L(fmt.Sprintf("EXCLUDED.%s", col))
}
