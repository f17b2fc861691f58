package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestOpenOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	a, err := m.OpenOrCreate(ctx, "work")
	require.NoError(t, err)

	b, err := m.OpenOrCreate(ctx, "work")
	require.NoError(t, err)

	require.Equal(t, a.ID, b.ID)
}

func TestAppendPreservesOrderAcrossReload(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	sess, err := m.OpenOrCreate(ctx, "work")
	require.NoError(t, err)

	_, err = m.Append(ctx, sess, RoleUser, "first")
	require.NoError(t, err)
	_, err = m.Append(ctx, sess, RoleAssistant, "second")
	require.NoError(t, err)
	_, err = m.Append(ctx, sess, RoleUser, "third")
	require.NoError(t, err)

	reloaded, err := m.FetchByName(ctx, "work")
	require.NoError(t, err)

	msgs, err := m.LoadMessages(ctx, reloaded)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "first", msgs[0].Content)
	require.Equal(t, "second", msgs[1].Content)
	require.Equal(t, "third", msgs[2].Content)
}

func TestRetryLastRemovesTrailingAssistantMessage(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	sess, err := m.OpenOrCreate(ctx, "work")
	require.NoError(t, err)
	_, err = m.Append(ctx, sess, RoleUser, "question")
	require.NoError(t, err)
	_, err = m.Append(ctx, sess, RoleAssistant, "answer")
	require.NoError(t, err)

	require.NoError(t, m.RetryLast(ctx, sess))

	msgs, err := m.LoadMessages(ctx, sess)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "question", msgs[0].Content)
}

func TestRetryLastErrorsWhenTrailingIsUser(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	sess, err := m.OpenOrCreate(ctx, "work")
	require.NoError(t, err)
	_, err = m.Append(ctx, sess, RoleUser, "question")
	require.NoError(t, err)

	err = m.RetryLast(ctx, sess)
	require.True(t, coreerr.Of(err, coreerr.KindNothingToRetry))
}

func TestMostRecentReturnsNotFoundWhenEmpty(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.MostRecent(ctx)
	require.True(t, coreerr.Of(err, coreerr.KindNotFound))
}

func TestMostRecentPrefersLatestActivity(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	a, err := m.OpenOrCreate(ctx, "older")
	require.NoError(t, err)
	b, err := m.OpenOrCreate(ctx, "newer")
	require.NoError(t, err)

	_, err = m.Append(ctx, a, RoleUser, "hi")
	require.NoError(t, err)
	_, err = m.Append(ctx, b, RoleUser, "hi")
	require.NoError(t, err)

	recent, err := m.MostRecent(ctx)
	require.NoError(t, err)
	require.Equal(t, "newer", recent.Name)
}

func TestRenameConflictsOnExistingName(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.OpenOrCreate(ctx, "taken")
	require.NoError(t, err)
	movable, err := m.OpenOrCreate(ctx, "movable")
	require.NoError(t, err)

	err = m.Rename(ctx, movable, "taken")
	require.True(t, coreerr.Of(err, coreerr.KindConflict))
}

func TestDeleteCascadesMessages(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	sess, err := m.OpenOrCreate(ctx, "work")
	require.NoError(t, err)
	_, err = m.Append(ctx, sess, RoleUser, "hi")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "work"))

	_, err = m.FetchByName(ctx, "work")
	require.True(t, coreerr.Of(err, coreerr.KindNotFound))
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	err := m.Delete(ctx, "ghost")
	require.True(t, coreerr.Of(err, coreerr.KindNotFound))
}

func TestTemporarySessionIsNotPersistedUntilRenamed(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	temp, err := m.OpenTemporary(ctx)
	require.NoError(t, err)
	require.True(t, temp.Temporary)

	_, err = m.Append(ctx, temp, RoleUser, "scratch thought")
	require.NoError(t, err)

	_, err = m.MostRecent(ctx)
	require.True(t, coreerr.Of(err, coreerr.KindNotFound), "buffered temp session must not appear in the store")

	require.NoError(t, m.Rename(ctx, temp, "kept"))
	require.False(t, temp.Temporary)

	reloaded, err := m.FetchByName(ctx, "kept")
	require.NoError(t, err)
	msgs, err := m.LoadMessages(ctx, reloaded)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "scratch thought", msgs[0].Content)
}

func TestListSortOrders(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.OpenOrCreate(ctx, "zeta")
	require.NoError(t, err)
	_, err = m.OpenOrCreate(ctx, "alpha")
	require.NoError(t, err)

	byName, err := m.List(ctx, SortLexical)
	require.NoError(t, err)
	require.Len(t, byName, 2)
	require.Equal(t, "alpha", byName[0].Name)
	require.Equal(t, "zeta", byName[1].Name)
}
