package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "app.db")

	s, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.DB().QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name='sessions'`).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "sessions", name)
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "app.db")

	s1, err := Open(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer s2.Close()

	var version string
	err = s2.DB().QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, schemaVersionKey).Scan(&version)
	require.NoError(t, err)
	require.Equal(t, "1", version)
}

func TestWithBusyRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := WithBusyRetry(ctx, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
