package context

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverChunkedGroupsByModule(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module x\n")
	writeFile(t, dir, "cmd/app/main.go", "package main\nfunc main() {}\n")
	writeFile(t, dir, "internal/widget/widget.go", "package widget\n")

	result, err := DiscoverChunked(context.Background(), Options{ProjectPath: dir, MaxTokens: 10000}, ChunkStrategyModule)
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)

	labels := map[string]bool{}
	for _, c := range result.Chunks {
		labels[c.Label] = true
	}
	require.True(t, labels["cmd"])
	require.True(t, labels["internal"])
}

func TestDiscoverChunkedFunctionalOrdersSourceBeforeDocs(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\nfunc main() {}\n")
	writeFile(t, dir, "README.md", "docs\n")

	result, err := DiscoverChunked(context.Background(), Options{ProjectPath: dir, MaxTokens: 10000}, ChunkStrategyFunctional)
	require.NoError(t, err)
	require.True(t, len(result.Chunks) >= 2)
	require.Equal(t, "source", result.Chunks[0].Label)
}

func TestDiscoverChunkedTokenBudgetBinPacks(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, dir, "file"+string(rune('a'+i))+".go", "package main\n")
	}

	result, err := DiscoverChunked(context.Background(), Options{ProjectPath: dir, MaxTokens: 10000}, ChunkStrategyToken)
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)
	for _, c := range result.Chunks {
		require.Contains(t, c.Label, "chunk-")
	}
}

func TestDiscoverChunkedRebatchesLargeDirectories(t *testing.T) {
	withTempConfigRoot(t)
	dir := t.TempDir()
	for i := 0; i < chunkBatchSize+5; i++ {
		writeFile(t, dir, "pkg/file"+strconv.Itoa(i)+".go", "package pkg\n")
	}

	result, err := DiscoverChunked(context.Background(), Options{ProjectPath: dir, MaxTokens: 1000000}, ChunkStrategyModule)
	require.NoError(t, err)
	require.True(t, len(result.Chunks) >= 2, "expected the oversized pkg directory to split into more than one chunk")
}
