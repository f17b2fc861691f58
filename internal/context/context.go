// Package context runs project-aware file discovery, scoring, and
// budget-bound selection for a single prompt turn (spec §4.6, component
// C8). It orchestrates C6 (project type), C7 (file scoring), and C9
// (snapshot/diff) into one discover() contract.
package context

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/kyco/termai/internal/contextdiff"
	"github.com/kyco/termai/internal/fileanalyzer"
	"github.com/kyco/termai/internal/logging"
	"github.com/kyco/termai/internal/project"
)

// defaultExcludes are always-ignored directory/file globs, independent of
// any project-specific .gitignore, mirroring common ignore-file defaults.
var defaultExcludes = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/.venv/**",
	"**/venv/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/*.min.js",
	"**/*.min.css",
}

// defaultMaxTokens is used when Options.MaxTokens is zero.
const defaultMaxTokens = 4000

// bytesPerToken is the token-size heuristic from spec §4.6.
const bytesPerToken = 4

// relevanceAdmitThreshold is the score a file must reach to be (re-)admitted
// into an incremental selection update.
const relevanceAdmitThreshold = 0.5

// Options configures one discover() call. ExcludeGlobs/IncludeGlobs/
// PriorityGlobs are glob patterns rooted at ProjectPath, matched with '/'
// as the path separator. MaxTokens of zero uses defaultMaxTokens.
type Options struct {
	ProjectPath   string
	Query         string
	ExcludeGlobs  []string
	IncludeGlobs  []string
	PriorityGlobs []string
	MaxTokens     int
	ConfigHash    string
}

// SelectedFile is one file admitted into the budget-bound selection.
type SelectedFile struct {
	Path       string
	Relevance  float64
	TokenCount int
}

// Result is the return shape of Discover.
type Result struct {
	SelectedFiles []SelectedFile
	TotalTokens   int
	Snapshot      contextdiff.Snapshot
	Skipped       []string // files that individually exceeded the budget
}

// Discover runs the full discovery algorithm described in spec §4.6,
// taking the incremental path when a matching prior snapshot exists and
// the resulting diff is small.
func Discover(ctx context.Context, opts Options) (Result, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	det, err := project.Detect(opts.ProjectPath)
	if err != nil {
		logging.Warn(ctx, "discover: project detection failed", slog.String("err", err.Error()))
		return Result{}, err
	}
	priority := project.PriorityPatterns(det.ProjectType)

	files, err := enumerate(opts.ProjectPath, opts.ExcludeGlobs, opts.IncludeGlobs)
	if err != nil {
		logging.Warn(ctx, "discover: file enumeration failed", slog.String("err", err.Error()))
		return Result{}, err
	}

	scores := scoreAll(files, priority, det.ProjectType, det.ModulePath)
	applyPriorityGlobBoost(scores, opts.PriorityGlobs)
	scores = fileanalyzer.FilterByQuery(scores, opts.Query)

	queryFingerprint := fingerprint(opts.Query)
	prior, hasPrior, loadErr := contextdiff.Load(opts.ProjectPath)
	if loadErr != nil {
		logging.Warn(ctx, "discover: snapshot load failed", slog.String("err", loadErr.Error()))
		return Result{}, loadErr
	}

	var selected []SelectedFile
	var skipped []string

	if hasPrior && prior.QueryFingerprint == queryFingerprint && prior.ConfigFingerprint == opts.ConfigHash {
		current := entriesFromScores(files, scores)
		diff := contextdiff.Diff(prior, current, queryFingerprint, opts.ConfigHash)
		if diff.IsSmall() {
			selected, skipped = incrementalSelect(prior, diff, scores, opts.MaxTokens)
		} else {
			selected, skipped = budgetSelect(scores, filesByPath(files), opts.MaxTokens)
		}
	} else {
		selected, skipped = budgetSelect(scores, filesByPath(files), opts.MaxTokens)
	}

	total := 0
	for _, f := range selected {
		total += f.TokenCount
	}

	selectedPaths := make([]string, len(selected))
	for i, f := range selected {
		selectedPaths[i] = f.Path
	}

	snap := contextdiff.BuildSnapshot(opts.ProjectPath, queryFingerprint, opts.ConfigHash,
		toSourceFiles(files, scores), selectedPaths, total)
	if err := contextdiff.Save(snap); err != nil {
		logging.Warn(ctx, "discover: snapshot save failed", slog.String("err", err.Error()))
		return Result{}, err
	}

	return Result{SelectedFiles: selected, TotalTokens: total, Snapshot: snap, Skipped: skipped}, nil
}

// candidateFile pairs a discovered path with its filesystem metadata and,
// once read, its content.
type candidateFile struct {
	Path    string
	AbsPath string
	Size    int64
	ModTime time.Time
	Content string
}

// enumerate walks projectPath honoring the always-ignored defaultExcludes
// (matched with the gobwas/glob fast path), plus opts' user-configured
// exclude/include globs (matched with doublestar, whose "**" matches zero
// or more directories so user patterns behave like a shell/.gitignore
// author expects). Include globs, if present, restrict the set rather
// than filter it.
func enumerate(projectPath string, excludeGlobs, includeGlobs []string) ([]candidateFile, error) {
	builtinExcludes := compileGlobs(defaultExcludes)

	var out []candidateFile
	err := filepath.Walk(projectPath, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(projectPath, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if matchesAny(builtinExcludes, rel) || matchesAny(builtinExcludes, rel+"/") || matchesAnyDoublestar(excludeGlobs, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAny(builtinExcludes, rel) || matchesAnyDoublestar(excludeGlobs, rel) {
			return nil
		}
		if len(includeGlobs) > 0 && !matchesAnyDoublestar(includeGlobs, rel) {
			return nil
		}

		out = append(out, candidateFile{Path: rel, AbsPath: path, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func compileGlobs(patterns []string) []glob.Glob {
	var out []glob.Glob
	for _, p := range patterns {
		if g, err := glob.Compile(p, '/'); err == nil {
			out = append(out, g)
		}
	}
	return out
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func matchesAnyDoublestar(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.PathMatch(p, path); err == nil && ok {
			return true
		}
	}
	return false
}

// readableSizeLimit bounds how much of a file is read into memory for
// scoring's dependency pass; larger files are scored by metadata alone.
const readableSizeLimit = 256 * 1024

func scoreAll(files []candidateFile, priority []string, projectType project.Type, modulePath string) []fileanalyzer.Score {
	infos := make([]fileanalyzer.FileInfo, len(files))
	for i, f := range files {
		content := ""
		if f.Size > 0 && f.Size <= readableSizeLimit {
			if b, err := os.ReadFile(f.AbsPath); err == nil {
				content = string(b)
				files[i].Content = content
			}
		}
		infos[i] = fileanalyzer.FileInfo{Path: f.Path, Size: f.Size, ModifiedTime: f.ModTime, Content: content}
	}

	scores := make([]fileanalyzer.Score, len(infos))
	for i, info := range infos {
		scores[i] = fileanalyzer.Analyze(info, priority)
	}
	fileanalyzer.DependencyPass(infos, scores, projectType, modulePath)
	return scores
}

// priorityGlobBoost mirrors fileanalyzer's entry-point bonus; applied
// separately here because priority globs use doublestar's "** matches
// zero or more directories" semantics, not fileanalyzer's plain suffix
// matching.
const priorityGlobBoost = 0.25

// applyPriorityGlobBoost mutates scores in place, boosting any file whose
// path matches a user- or template-configured priority glob. Priority
// globs never filter the candidate set, only boost relevance.
func applyPriorityGlobBoost(scores []fileanalyzer.Score, priorityGlobs []string) {
	if len(priorityGlobs) == 0 {
		return
	}
	for i := range scores {
		if matchesAnyDoublestar(priorityGlobs, scores[i].Path) {
			scores[i].Relevance = clamp01(scores[i].Relevance + priorityGlobBoost)
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// budgetSelect implements spec §4.6 step 5: descending-score order,
// accumulating an approximate token count, skipping (and reporting)
// individually oversized files.
func budgetSelect(scores []fileanalyzer.Score, byPath map[string]candidateFile, maxTokens int) ([]SelectedFile, []string) {
	ordered := fileanalyzer.SortByRelevanceDesc(scores)

	var selected []SelectedFile
	var skipped []string
	used := 0
	for _, s := range ordered {
		f, ok := byPath[s.Path]
		if !ok {
			continue
		}
		tokens := tokenEstimate(f.Size)
		if tokens > maxTokens {
			skipped = append(skipped, s.Path)
			continue
		}
		if used+tokens > maxTokens {
			break
		}
		selected = append(selected, SelectedFile{Path: s.Path, Relevance: s.Relevance, TokenCount: tokens})
		used += tokens
	}
	return selected, skipped
}

// incrementalSelect starts from the prior selection and applies the diff:
// drop deleted, add newly-high-relevance, re-admit/evict on relevance
// change, per spec §4.6's incremental path.
func incrementalSelect(prior contextdiff.Snapshot, diff contextdiff.DiffResult, scores []fileanalyzer.Score, maxTokens int) ([]SelectedFile, []string) {
	byPath := map[string]fileanalyzer.Score{}
	for _, s := range scores {
		byPath[s.Path] = s
	}

	prevSelected := map[string]bool{}
	for _, p := range prior.SelectedPaths {
		prevSelected[p] = true
	}

	for _, c := range diff.Changes {
		switch c.Kind {
		case contextdiff.ChangeDeleted:
			delete(prevSelected, c.Path)
		case contextdiff.ChangeAdded:
			if s, ok := byPath[c.Path]; ok && s.Relevance >= relevanceAdmitThreshold {
				prevSelected[c.Path] = true
			}
		case contextdiff.ChangeRelevanceChanged, contextdiff.ChangeModified:
			if s, ok := byPath[c.Path]; ok {
				if s.Relevance >= relevanceAdmitThreshold {
					prevSelected[c.Path] = true
				} else {
					delete(prevSelected, c.Path)
				}
			}
		}
	}

	var candidates []fileanalyzer.Score
	for path := range prevSelected {
		if s, ok := byPath[path]; ok {
			candidates = append(candidates, s)
		}
	}
	ordered := fileanalyzer.SortByRelevanceDesc(candidates)

	entryByPath := map[string]contextdiff.FileEntry{}
	for path, e := range prior.FileEntries {
		entryByPath[path] = e
	}

	var selected []SelectedFile
	var skipped []string
	used := 0
	for _, s := range ordered {
		size := entryByPath[s.Path].Size
		tokens := tokenEstimate(size)
		if tokens > maxTokens {
			skipped = append(skipped, s.Path)
			continue
		}
		if used+tokens > maxTokens {
			break
		}
		selected = append(selected, SelectedFile{Path: s.Path, Relevance: s.Relevance, TokenCount: tokens})
		used += tokens
	}
	return selected, skipped
}

func tokenEstimate(size int64) int {
	n := int(size) / bytesPerToken
	if n == 0 && size > 0 {
		n = 1
	}
	return n
}

func filesByPath(files []candidateFile) map[string]candidateFile {
	out := make(map[string]candidateFile, len(files))
	for _, f := range files {
		out[f.Path] = f
	}
	return out
}

func entriesFromScores(files []candidateFile, scores []fileanalyzer.Score) map[string]contextdiff.FileEntry {
	byPath := filesByPath(files)
	relByPath := map[string]float64{}
	for _, s := range scores {
		relByPath[s.Path] = s.Relevance
	}

	out := make(map[string]contextdiff.FileEntry, len(files))
	for path, f := range byPath {
		out[path] = contextdiff.FileEntry{
			Path:        path,
			ModTime:     f.ModTime,
			Size:        f.Size,
			ContentHash: contextdiff.ContentFingerprint([]byte(f.Content)),
			Relevance:   relByPath[path],
		}
	}
	return out
}

func toSourceFiles(files []candidateFile, scores []fileanalyzer.Score) []contextdiff.SourceFile {
	relByPath := map[string]float64{}
	for _, s := range scores {
		relByPath[s.Path] = s.Relevance
	}
	out := make([]contextdiff.SourceFile, len(files))
	for i, f := range files {
		out[i] = contextdiff.SourceFile{
			Path:      f.Path,
			ModTime:   f.ModTime,
			Size:      f.Size,
			Relevance: relByPath[f.Path],
			Content:   []byte(f.Content),
		}
	}
	return out
}

// fingerprint produces a stable fingerprint string for a query, used to
// decide whether a prior snapshot's query fingerprint still matches.
func fingerprint(query string) string {
	return strings.TrimSpace(strings.ToLower(query))
}

// ApplyTemplate overlays a template's globs and token budget onto opts
// per spec §4.6's merge-with-template-priority rule: template globs are
// prepended and deduplicated, template MaxTokens overrides when nonzero.
func ApplyTemplate(opts Options, templateInclude, templateExclude, templatePriority []string, templateMaxTokens int) Options {
	opts.IncludeGlobs = prependDedup(templateInclude, opts.IncludeGlobs)
	opts.ExcludeGlobs = prependDedup(templateExclude, opts.ExcludeGlobs)
	opts.PriorityGlobs = prependDedup(templatePriority, opts.PriorityGlobs)
	if templateMaxTokens > 0 {
		opts.MaxTokens = templateMaxTokens
	}
	return opts
}

func prependDedup(prefix, rest []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range prefix {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range rest {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// SortSkipped is a convenience for deterministic display of skipped paths.
func SortSkipped(skipped []string) []string {
	out := append([]string(nil), skipped...)
	sort.Strings(out)
	return out
}
