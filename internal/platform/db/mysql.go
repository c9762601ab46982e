package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // registers the mysql driver
)

// NewMySQL opens a MySQL handle and verifies connectivity.
func NewMySQL(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: open mysql: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(maxConns)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}
	return sqlDB, nil
}

type sqlPool struct {
	db *sql.DB
}

// NewMySQLPool adapts a database/sql MySQL handle to Pool.
func NewMySQLPool(sqlDB *sql.DB) Pool {
	return &sqlPool{db: sqlDB}
}

func (p *sqlPool) Acquire(ctx context.Context) (Session, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("platform/db: acquire: %w", err)
	}
	return &sqlSession{conn: conn}, nil
}

func (p *sqlPool) Dialect() string { return DriverMySQL }

func (p *sqlPool) Close() { _ = p.db.Close() }

type sqlSession struct {
	conn *sql.Conn
}

func (s *sqlSession) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqlSession) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

func (s *sqlSession) Dialect() string { return DriverMySQL }

func (s *sqlSession) Release() { _ = s.conn.Close() }

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t sqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool { return r.rows.Next() }

func (r *sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }

func (r *sqlRows) Err() error { return r.rows.Err() }

func (r *sqlRows) Close() error { return r.rows.Close() }
