package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigRoot(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	root, err := ConfigRoot()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, AppDirName), root)

	info, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestDatabasePath(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	dbPath, err := DatabasePath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, AppDirName, DatabaseFileName), dbPath)
}

func TestContextCacheDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	dir, err := ContextCacheDir()
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestPresetsDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	dir, err := PresetsDir()
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestSnapshotFileName(t *testing.T) {
	require.Equal(t, "context_snapshot_abc123.json", SnapshotFileName("abc123"))
}

func TestRepoRootOr(t *testing.T) {
	ClearRepoRootCache()
	tmp := t.TempDir()
	t.Chdir(tmp)

	got := RepoRootOr("fallback")
	require.Equal(t, "fallback", got)
}
