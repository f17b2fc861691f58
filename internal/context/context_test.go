package context

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kyco/termai/internal/contextdiff"
	"github.com/stretchr/testify/require"
)

func withTempConfigRoot(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestDiscoverSelectsFilesWithinBudget(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module x\n")
	writeFile(t, dir, "main.go", "package main\nfunc main() {}\n")
	writeFile(t, dir, "README.md", "docs\n")

	result, err := Discover(context.Background(), Options{ProjectPath: dir, MaxTokens: 1000, ConfigHash: "c1"})
	require.NoError(t, err)
	require.NotEmpty(t, result.SelectedFiles)

	var paths []string
	for _, f := range result.SelectedFiles {
		paths = append(paths, f.Path)
	}
	require.Contains(t, paths, "main.go")
}

func TestDiscoverExcludesDefaultIgnoredDirs(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "node_modules/pkg/index.js", "module.exports = {}\n")

	result, err := Discover(context.Background(), Options{ProjectPath: dir, MaxTokens: 10000, ConfigHash: "c1"})
	require.NoError(t, err)

	for _, f := range result.SelectedFiles {
		require.NotContains(t, f.Path, "node_modules")
	}
}

func TestDiscoverHonorsExcludeGlobs(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "generated/thing.go", "package generated\n")

	result, err := Discover(context.Background(), Options{
		ProjectPath:  dir,
		MaxTokens:    10000,
		ExcludeGlobs: []string{"**/generated/**"},
		ConfigHash:   "c1",
	})
	require.NoError(t, err)
	for _, f := range result.SelectedFiles {
		require.NotContains(t, f.Path, "generated")
	}
}

func TestDiscoverIncludeGlobsRestrictSet(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "README.md", "docs\n")

	result, err := Discover(context.Background(), Options{
		ProjectPath:  dir,
		MaxTokens:    10000,
		IncludeGlobs: []string{"**/*.go"},
		ConfigHash:   "c1",
	})
	require.NoError(t, err)
	for _, f := range result.SelectedFiles {
		require.Equal(t, ".go", filepath.Ext(f.Path))
	}
}

func TestDiscoverSkipsOversizedFilesButReportsThem(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	big := make([]byte, 2000)
	for i := range big {
		big[i] = 'x'
	}
	writeFile(t, dir, "huge.go", string(big))

	result, err := Discover(context.Background(), Options{ProjectPath: dir, MaxTokens: 10, ConfigHash: "c1"})
	require.NoError(t, err)
	require.Empty(t, result.SelectedFiles)
	require.Contains(t, result.Skipped, "huge.go")
}

func TestDiscoverIsDeterministicAcrossRepeatedRuns(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "b.go", "package b\n")

	first, err := Discover(context.Background(), Options{ProjectPath: dir, MaxTokens: 10000, ConfigHash: "c1"})
	require.NoError(t, err)
	second, err := Discover(context.Background(), Options{ProjectPath: dir, MaxTokens: 10000, ConfigHash: "c1"})
	require.NoError(t, err)

	require.Equal(t, len(first.SelectedFiles), len(second.SelectedFiles))
	for i := range first.SelectedFiles {
		require.Equal(t, first.SelectedFiles[i].Path, second.SelectedFiles[i].Path)
	}
}

func TestDiscoverQueryFilterRestrictsResults(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	writeFile(t, dir, "billing/invoice.go", "package billing\n")
	writeFile(t, dir, "auth/login.go", "package auth\n")

	result, err := Discover(context.Background(), Options{ProjectPath: dir, MaxTokens: 10000, Query: "billing", ConfigHash: "c1"})
	require.NoError(t, err)
	for _, f := range result.SelectedFiles {
		require.Contains(t, f.Path, "billing")
	}
}

func TestDiscoverSavesSnapshotForNextRun(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")

	_, err := Discover(context.Background(), Options{ProjectPath: dir, MaxTokens: 10000, ConfigHash: "c1"})
	require.NoError(t, err)

	snap, ok, err := contextdiff.Load(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, dir, snap.ProjectPath)
}

func TestApplyTemplatePrependsAndDedupsGlobs(t *testing.T) {
	opts := Options{IncludeGlobs: []string{"**/*.go"}}
	merged := ApplyTemplate(opts, []string{"**/*.ts", "**/*.go"}, nil, nil, 8000)
	require.Equal(t, []string{"**/*.ts", "**/*.go"}, merged.IncludeGlobs)
	require.Equal(t, 8000, merged.MaxTokens)
}

func TestApplyTemplateLeavesConfigMaxTokensWhenTemplateOmitsIt(t *testing.T) {
	opts := Options{MaxTokens: 3000}
	merged := ApplyTemplate(opts, nil, nil, nil, 0)
	require.Equal(t, 3000, merged.MaxTokens)
}

func TestTokenEstimateRoundsUpForNonZeroSmallFiles(t *testing.T) {
	require.Equal(t, 1, tokenEstimate(1))
	require.Equal(t, 0, tokenEstimate(0))
	require.Equal(t, 250, tokenEstimate(1000))
}
