package contextdiff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kyco/termai/internal/paths"
	"github.com/stretchr/testify/require"
)

func withTempConfigRoot(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	withTempConfigRoot(t)

	snap := BuildSnapshot("/proj", "q1", "cfg1", []SourceFile{
		{Path: "a.go", Size: 10, Relevance: 0.7, Content: []byte("package a")},
	}, []string{"a.go"}, 100)

	require.NoError(t, Save(snap))

	loaded, ok, err := Load("/proj")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap.ProjectPath, loaded.ProjectPath)
	require.Equal(t, snap.FileEntries["a.go"].ContentHash, loaded.FileEntries["a.go"].ContentHash)
}

func TestLoadMissingReturnsNotOK(t *testing.T) {
	withTempConfigRoot(t)

	_, ok, err := Load("/nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadCorruptSnapshotIsDeletedAndReportedAbsent(t *testing.T) {
	withTempConfigRoot(t)

	dir, err := paths.ContextCacheDir()
	require.NoError(t, err)
	target := filepath.Join(dir, paths.SnapshotFileName(ProjectHash("/broken")))
	require.NoError(t, os.WriteFile(target, []byte("{not json"), 0o644))

	_, ok, err := Load("/broken")
	require.Error(t, err)
	require.False(t, ok)

	_, statErr := os.Stat(target)
	require.True(t, os.IsNotExist(statErr), "corrupt snapshot file should have been deleted")
}

func TestDiffClassifiesAddedModifiedDeleted(t *testing.T) {
	prior := Snapshot{
		ConfigFingerprint: "cfg1",
		FileEntries: map[string]FileEntry{
			"keep.go":   {Path: "keep.go", ContentHash: "h1", Relevance: 0.5},
			"gone.go":   {Path: "gone.go", ContentHash: "h2", Relevance: 0.4},
			"change.go": {Path: "change.go", ContentHash: "h3", Relevance: 0.3},
		},
	}
	current := map[string]FileEntry{
		"keep.go":   {Path: "keep.go", ContentHash: "h1", Relevance: 0.5},
		"change.go": {Path: "change.go", ContentHash: "h3-new", Relevance: 0.3},
		"new.go":    {Path: "new.go", ContentHash: "h4", Relevance: 0.6},
	}

	result := Diff(prior, current, "", "cfg1")
	require.False(t, result.NeedsFullReanalysis)

	kinds := map[string]ChangeKind{}
	for _, c := range result.Changes {
		kinds[c.Path] = c.Kind
	}
	require.Equal(t, ChangeAdded, kinds["new.go"])
	require.Equal(t, ChangeModified, kinds["change.go"])
	require.Equal(t, ChangeDeleted, kinds["gone.go"])
	_, keptUnchanged := kinds["keep.go"]
	require.False(t, keptUnchanged)
}

func TestDiffFlagsRelevanceChangedAboveThreshold(t *testing.T) {
	prior := Snapshot{
		ConfigFingerprint: "cfg1",
		FileEntries: map[string]FileEntry{
			"a.go": {Path: "a.go", ContentHash: "h1", Relevance: 0.2},
		},
	}
	current := map[string]FileEntry{
		"a.go": {Path: "a.go", ContentHash: "h1", Relevance: 0.4},
	}

	result := Diff(prior, current, "", "cfg1")
	require.Len(t, result.Changes, 1)
	require.Equal(t, ChangeRelevanceChanged, result.Changes[0].Kind)
}

func TestDiffBelowRelevanceThresholdIsNotReported(t *testing.T) {
	prior := Snapshot{
		ConfigFingerprint: "cfg1",
		FileEntries: map[string]FileEntry{
			"a.go": {Path: "a.go", ContentHash: "h1", Relevance: 0.2},
		},
	}
	current := map[string]FileEntry{
		"a.go": {Path: "a.go", ContentHash: "h1", Relevance: 0.25},
	}

	result := Diff(prior, current, "", "cfg1")
	require.Empty(t, result.Changes)
}

func TestDiffForcesFullReanalysisOnConfigFingerprintChange(t *testing.T) {
	prior := Snapshot{ConfigFingerprint: "cfg1", FileEntries: map[string]FileEntry{}}
	result := Diff(prior, map[string]FileEntry{}, "", "cfg2")
	require.True(t, result.NeedsFullReanalysis)
}

func TestIsSmallFalseWhenFullReanalysisNeeded(t *testing.T) {
	result := DiffResult{NeedsFullReanalysis: true}
	require.False(t, result.IsSmall())
}

func TestIsSmallFalseAtTwentyChangedFiles(t *testing.T) {
	var changes []Change
	for i := 0; i < 20; i++ {
		changes = append(changes, Change{Path: string(rune('a' + i)), Kind: ChangeAdded, Impact: 0.1})
	}
	result := DiffResult{Changes: changes}
	require.False(t, result.IsSmall())
}

func TestIsSmallFalseAtFiveHighImpactChanges(t *testing.T) {
	var changes []Change
	for i := 0; i < 5; i++ {
		changes = append(changes, Change{Path: string(rune('a' + i)), Kind: ChangeModified, Impact: 0.9})
	}
	result := DiffResult{Changes: changes}
	require.False(t, result.IsSmall())
}

func TestIsSmallTrueForFewLowImpactChanges(t *testing.T) {
	result := DiffResult{Changes: []Change{
		{Path: "a.go", Kind: ChangeModified, Impact: 0.3},
	}}
	require.True(t, result.IsSmall())
}

func TestCheapFingerprintStableAcrossIdenticalContent(t *testing.T) {
	a := cheapFingerprint([]byte("hello world"))
	b := cheapFingerprint([]byte("hello world"))
	require.Equal(t, a, b)
}

func TestCheapFingerprintDiffersOnLargeContentTailChange(t *testing.T) {
	big := make([]byte, 5000)
	for i := range big {
		big[i] = 'x'
	}
	bigTailChanged := append([]byte(nil), big...)
	bigTailChanged[len(bigTailChanged)-1] = 'y'

	require.NotEqual(t, cheapFingerprint(big), cheapFingerprint(bigTailChanged))
}

func TestProjectHashIsStablePerPath(t *testing.T) {
	require.Equal(t, ProjectHash("/a/b"), ProjectHash("/a/b"))
	require.NotEqual(t, ProjectHash("/a/b"), ProjectHash("/a/c"))
}
