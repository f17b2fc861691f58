package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	require.NoError(t, r.Set(ctx, KeyProvider, ProviderClaude))
	value, err := r.Get(ctx, KeyProvider)
	require.NoError(t, err)
	require.Equal(t, ProviderClaude, value)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Get(ctx, KeyProvider)
	require.True(t, coreerr.Of(err, coreerr.KindNotFound))
}

func TestFetchWithEnvFallback(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	t.Setenv("TERMAI_PROVIDER", ProviderOpenAI)
	value, err := r.FetchWithEnvFallback(ctx, KeyProvider)
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, value)

	// E1: env fallback never writes back to the store.
	_, err = r.Get(ctx, KeyProvider)
	require.True(t, coreerr.Of(err, coreerr.KindNotFound))
}

func TestRedactionListAddRemove(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	require.NoError(t, r.AddRedaction(ctx, "SECRET42"))
	require.NoError(t, r.AddRedaction(ctx, "SECRET43"))

	list, err := r.RedactionList(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"SECRET42", "SECRET43"}, list)

	require.NoError(t, r.RemoveRedaction(ctx, "SECRET42"))
	list, err = r.RedactionList(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"SECRET43"}, list)
}

func TestAddRedactionRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	err := r.AddRedaction(ctx, "   ")
	require.True(t, coreerr.Of(err, coreerr.KindValidation))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	require.NoError(t, r.Set(ctx, KeyProvider, ProviderClaude))
	require.NoError(t, r.Set(ctx, KeyDefaultModelClaude, "claude-opus"))

	data, err := r.Export(ctx)
	require.NoError(t, err)

	r2 := newTestRegistry(t)
	require.NoError(t, r2.Import(ctx, data))

	value, err := r2.Get(ctx, KeyProvider)
	require.NoError(t, err)
	require.Equal(t, ProviderClaude, value)
}

func TestValidateCatchesBadProvider(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	require.NoError(t, r.Set(ctx, KeyProvider, "not-a-provider"))
	err := r.Validate(ctx)
	require.True(t, coreerr.Of(err, coreerr.KindValidation))
}

func TestResetClearsEntries(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	require.NoError(t, r.Set(ctx, KeyProvider, ProviderClaude))
	require.NoError(t, r.Reset(ctx))

	_, err := r.Get(ctx, KeyProvider)
	require.True(t, coreerr.Of(err, coreerr.KindNotFound))
}
