package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "sqlite", DSN: "file::memory:"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported driver")
}

func TestExcludedPerDialect(t *testing.T) {
	sql, _, err := Builder(DriverPostgres).From("t").Select(Excluded(DriverPostgres, "inventory")).ToSQL()
	require.NoError(t, err)
	require.Contains(t, sql, "EXCLUDED.inventory")

	sql, _, err = Builder(DriverMySQL).From("t").Select(Excluded(DriverMySQL, "inventory")).ToSQL()
	require.NoError(t, err)
	require.Contains(t, sql, "VALUES(inventory)")
}

func TestPostgresSessionRoundTrip(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, Options{Driver: DriverPostgres, DSN: dsn, MaxConns: 1})
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer pool.Close()

	session, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer session.Release()

	err = session.WithTx(ctx, func(exec Executor) error {
		rows, err := exec.Query(ctx, "SELECT 1")
		if err != nil {
			return err
		}
		defer rows.Close()
		require.True(t, rows.Next())
		var one int
		require.NoError(t, rows.Scan(&one))
		require.Equal(t, 1, one)
		return rows.Err()
	})
	require.NoError(t, err)
}
