// Package paths resolves the on-disk locations the core reads and writes:
// the user-config-scoped database, the context-discovery snapshot cache,
// the user preset directory, and the git repository root.
package paths

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// AppDirName is the directory name used under the OS user-config location.
const AppDirName = "termai"

// DatabaseFileName is the single embedded-store file, per spec §6.
const DatabaseFileName = "app.db"

// ContextCacheDirName holds context-discovery snapshot files.
const ContextCacheDirName = "context_cache"

// PresetsDirName holds user-editable preset files.
const PresetsDirName = "presets"

// ConfigRoot returns $XDG_CONFIG_HOME/termai (or the OS-equivalent
// user-config directory), creating it if necessary.
func ConfigRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config directory: %w", err)
	}
	dir := filepath.Join(base, AppDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

// DatabasePath returns the path to the single embedded-store file.
func DatabasePath() (string, error) {
	root, err := ConfigRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, DatabaseFileName), nil
}

// ContextCacheDir returns the directory holding context snapshot files,
// creating it if necessary.
func ContextCacheDir() (string, error) {
	root, err := ConfigRoot()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, ContextCacheDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create context cache directory: %w", err)
	}
	return dir, nil
}

// PresetsDir returns the directory holding user preset files, creating it
// if necessary.
func PresetsDir() (string, error) {
	root, err := ConfigRoot()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, PresetsDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create presets directory: %w", err)
	}
	return dir, nil
}

// repoRootCache caches the repository root to avoid repeated git commands.
// The cache is keyed by the current working directory to handle directory changes.
var (
	repoRootMu       sync.RWMutex
	repoRootCache    string
	repoRootCacheDir string
)

// RepoRoot returns the git repository root directory.
// Uses 'git rev-parse --show-toplevel' which works from any subdirectory.
// The result is cached per working directory.
// Returns an error if not inside a git repository.
func RepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	repoRootMu.RLock()
	if repoRootCache != "" && repoRootCacheDir == cwd {
		cached := repoRootCache
		repoRootMu.RUnlock()
		return cached, nil
	}
	repoRootMu.RUnlock()

	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git repository root: %w", err)
	}

	root := strings.TrimSpace(string(output))

	repoRootMu.Lock()
	repoRootCache = root
	repoRootCacheDir = cwd
	repoRootMu.Unlock()

	return root, nil
}

// ClearRepoRootCache clears the cached repository root.
// This is primarily useful for testing when changing directories.
func ClearRepoRootCache() {
	repoRootMu.Lock()
	repoRootCache = ""
	repoRootCacheDir = ""
	repoRootMu.Unlock()
}

// RepoRootOr returns the git repository root directory, or the given
// fallback if not inside a git repository.
func RepoRootOr(fallback string) string {
	root, err := RepoRoot()
	if err != nil {
		return fallback
	}
	return root
}

// AbsPath returns the absolute path for a relative path within the
// repository. If the path is already absolute, it is returned as-is.
func AbsPath(relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return relPath, nil
	}
	root, err := RepoRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, relPath), nil
}

// SnapshotFileName returns the context-cache file name for a project path
// hash, per spec §6: context_snapshot_<project-hash>.json.
func SnapshotFileName(projectHash string) string {
	return "context_snapshot_" + projectHash + ".json"
}
