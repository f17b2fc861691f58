// Package contextdiff snapshots a prior context-discovery run and
// classifies changes against current state for incremental re-selection
// (spec §4.7, component C9).
package contextdiff

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/jsonutil"
	"github.com/kyco/termai/internal/paths"
)

// ChangeKind is the closed taxonomy of per-file changes between snapshots.
type ChangeKind string

const (
	ChangeAdded            ChangeKind = "added"
	ChangeModified         ChangeKind = "modified"
	ChangeDeleted          ChangeKind = "deleted"
	ChangeRelevanceChanged ChangeKind = "relevance_changed"
)

// relevanceChangeThreshold is the |Δrelevance| above which an otherwise
// unchanged file is classified RelevanceChanged (spec §4.7).
const relevanceChangeThreshold = 0.10

// FileEntry is one file's recorded state within a Snapshot.
type FileEntry struct {
	Path        string    `json:"path"`
	ModTime     time.Time `json:"mod_time"`
	Size        int64     `json:"size"`
	ContentHash string    `json:"content_hash"`
	Relevance   float64   `json:"relevance"`
}

// Snapshot captures a prior discover() run for incremental comparison.
type Snapshot struct {
	Timestamp         time.Time            `json:"timestamp"`
	ProjectPath       string               `json:"project_path"`
	QueryFingerprint  string               `json:"query_fingerprint,omitempty"`
	ConfigFingerprint string               `json:"config_fingerprint"`
	FileEntries       map[string]FileEntry `json:"file_entries"`
	SelectedPaths     []string             `json:"selected_paths"`
	TotalTokens       int                  `json:"total_tokens"`
}

// Change is one file's classified difference between two snapshots.
type Change struct {
	Path   string
	Kind   ChangeKind
	Impact float64 // current relevance for add/modify, old relevance for delete, |Δ| for relevance-changed
}

// DiffResult is the output of comparing a Snapshot against current state.
type DiffResult struct {
	Changes             []Change
	NeedsFullReanalysis bool
}

// ProjectHash derives the stable filename fragment a Snapshot for
// projectPath is stored under.
func ProjectHash(projectPath string) string {
	sum := sha256.Sum256([]byte(projectPath))
	return hex.EncodeToString(sum[:])[:16]
}

// SourceFile is the minimal input BuildSnapshot needs per selected or
// scored file, independent of fileanalyzer's own Score shape so this
// package has no import-cycle dependency on it.
type SourceFile struct {
	Path      string
	ModTime   time.Time
	Size      int64
	Relevance float64
	Content   []byte // used only to compute the cheap fingerprint
}

// BuildSnapshot captures the current state of files as an in-memory
// Snapshot. The content fingerprint is metadata plus a hash of the first
// and last 1KB, per spec §4.7.
func BuildSnapshot(projectPath, queryFingerprint, configFingerprint string, files []SourceFile, selected []string, totalTokens int) Snapshot {
	entries := make(map[string]FileEntry, len(files))
	for _, f := range files {
		entries[f.Path] = FileEntry{
			Path:        f.Path,
			ModTime:     f.ModTime,
			Size:        f.Size,
			ContentHash: cheapFingerprint(f.Content),
			Relevance:   f.Relevance,
		}
	}
	return Snapshot{
		Timestamp:         time.Now().UTC(),
		ProjectPath:       projectPath,
		QueryFingerprint:  queryFingerprint,
		ConfigFingerprint: configFingerprint,
		FileEntries:       entries,
		SelectedPaths:     selected,
		TotalTokens:       totalTokens,
	}
}

// ContentFingerprint hashes metadata plus the first and last 1KB of
// content, stable under identical bytes without reading the whole file.
func ContentFingerprint(content []byte) string {
	return cheapFingerprint(content)
}

func cheapFingerprint(content []byte) string {
	const window = 1024
	h := sha256.New()
	fmt.Fprintf(h, "%d:", len(content))
	if len(content) <= 2*window {
		h.Write(content)
	} else {
		h.Write(content[:window])
		h.Write(content[len(content)-window:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Save persists snap under the project's snapshot file, write-to-temp-
// then-rename so readers never observe a partial write (spec §5).
func Save(snap Snapshot) error {
	dir, err := paths.ContextCacheDir()
	if err != nil {
		return coreerr.Wrap(coreerr.KindIntegrityError, "resolve context cache dir", err)
	}
	data, err := jsonutil.MarshalIndentWithNewline(snap, "", "  ")
	if err != nil {
		return coreerr.Wrap(coreerr.KindIntegrityError, "marshal snapshot", err)
	}

	target := filepath.Join(dir, paths.SnapshotFileName(ProjectHash(snap.ProjectPath)))
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return coreerr.Wrap(coreerr.KindIntegrityError, "write snapshot temp file", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return coreerr.Wrap(coreerr.KindIntegrityError, "rename snapshot into place", err)
	}
	return nil
}

// Load reads the most recent snapshot for projectPath, or returns
// (Snapshot{}, false, nil) if none exists. A snapshot that fails to parse
// is treated as "no snapshot available": it is deleted and (Snapshot{},
// false, nil) is returned, per spec §7's SnapshotCorrupt handling.
func Load(projectPath string) (Snapshot, bool, error) {
	dir, err := paths.ContextCacheDir()
	if err != nil {
		return Snapshot{}, false, coreerr.Wrap(coreerr.KindIntegrityError, "resolve context cache dir", err)
	}
	target := filepath.Join(dir, paths.SnapshotFileName(ProjectHash(projectPath)))

	data, err := os.ReadFile(target)
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, coreerr.Wrap(coreerr.KindIntegrityError, "read snapshot file", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		_ = os.Remove(target)
		return Snapshot{}, false, coreerr.New(coreerr.KindSnapshotCorrupt, "snapshot for "+projectPath+" failed to parse and was deleted")
	}
	return snap, true, nil
}

// Diff classifies current against prior, a prior snapshot. A change in
// either fingerprint forces NeedsFullReanalysis and disables the
// incremental path (spec §4.7).
func Diff(prior Snapshot, current map[string]FileEntry, queryFingerprint, configFingerprint string) DiffResult {
	result := DiffResult{
		NeedsFullReanalysis: prior.QueryFingerprint != queryFingerprint || prior.ConfigFingerprint != configFingerprint,
	}

	seen := map[string]bool{}
	for path, cur := range current {
		seen[path] = true
		old, existed := prior.FileEntries[path]
		switch {
		case !existed:
			result.Changes = append(result.Changes, Change{Path: path, Kind: ChangeAdded, Impact: cur.Relevance})
		case old.ContentHash != cur.ContentHash || old.ModTime != cur.ModTime || old.Size != cur.Size:
			result.Changes = append(result.Changes, Change{Path: path, Kind: ChangeModified, Impact: cur.Relevance})
		default:
			if delta := cur.Relevance - old.Relevance; abs(delta) > relevanceChangeThreshold {
				result.Changes = append(result.Changes, Change{Path: path, Kind: ChangeRelevanceChanged, Impact: abs(delta)})
			}
		}
	}
	for path, old := range prior.FileEntries {
		if !seen[path] {
			result.Changes = append(result.Changes, Change{Path: path, Kind: ChangeDeleted, Impact: old.Relevance})
		}
	}

	sort.Slice(result.Changes, func(i, j int) bool { return result.Changes[i].Path < result.Changes[j].Path })
	return result
}

// IsSmall reports whether a diff qualifies for incremental selection
// update rather than a full re-run (spec §4.6): fewer than 20 total
// changed files and fewer than 5 high-impact (>0.5) changes.
func (d DiffResult) IsSmall() bool {
	if d.NeedsFullReanalysis {
		return false
	}
	if len(d.Changes) >= 20 {
		return false
	}
	highImpact := 0
	for _, c := range d.Changes {
		if c.Impact > 0.5 {
			highImpact++
		}
	}
	return highImpact < 5
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
