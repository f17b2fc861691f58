package context

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kyco/termai/internal/fileanalyzer"
	"github.com/kyco/termai/internal/logging"
	"github.com/kyco/termai/internal/project"
)

// ChunkStrategy names one of the supported ways to split a large project's
// candidate files into bounded-size groups before scoring, so that a
// project too big to score in one pass still produces ranked, budget-bound
// context a group at a time instead of holding every file's content in
// memory at once.
type ChunkStrategy string

const (
	ChunkStrategyModule       ChunkStrategy = "module"
	ChunkStrategyFunctional   ChunkStrategy = "functional"
	ChunkStrategyToken        ChunkStrategy = "token"
	ChunkStrategyHierarchical ChunkStrategy = "hierarchical"
)

// chunkBatchSize bounds how many files are read and scored together within
// one group, regardless of strategy, so a single oversized directory or
// file-type bucket still gets split further.
const chunkBatchSize = 50

// Chunk is one bounded-size group's independent budget-select result.
type Chunk struct {
	Label         string
	SelectedFiles []SelectedFile
	Skipped       []string
}

// ChunkedResult is the return shape of DiscoverChunked.
type ChunkedResult struct {
	Chunks      []Chunk
	TotalTokens int
}

// DiscoverChunked runs discovery the way Discover does, except candidate
// files are first split into bounded-size groups (per strategy) and each
// group is scored and budget-selected independently, with opts.MaxTokens
// applied as a per-group budget. Unlike Discover, it never consults or
// writes an incremental snapshot: chunked runs are for one-off large-project
// sweeps, not the steady-state single-turn path C9 optimizes for.
func DiscoverChunked(ctx context.Context, opts Options, strategy ChunkStrategy) (ChunkedResult, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	det, err := project.Detect(opts.ProjectPath)
	if err != nil {
		logging.Warn(ctx, "discover chunked: project detection failed", slog.String("err", err.Error()))
		return ChunkedResult{}, err
	}
	priority := project.PriorityPatterns(det.ProjectType)

	files, err := enumerate(opts.ProjectPath, opts.ExcludeGlobs, opts.IncludeGlobs)
	if err != nil {
		logging.Warn(ctx, "discover chunked: file enumeration failed", slog.String("err", err.Error()))
		return ChunkedResult{}, err
	}

	groups := groupForChunking(files, priority, strategy)

	var result ChunkedResult
	for _, g := range groups {
		scores := scoreAll(g.files, priority, det.ProjectType, det.ModulePath)
		applyPriorityGlobBoost(scores, opts.PriorityGlobs)
		scores = fileanalyzer.FilterByQuery(scores, opts.Query)

		selected, skipped := budgetSelect(scores, filesByPath(g.files), opts.MaxTokens)
		chunkTokens := 0
		for _, s := range selected {
			chunkTokens += s.TokenCount
		}
		result.Chunks = append(result.Chunks, Chunk{Label: g.label, SelectedFiles: selected, Skipped: skipped})
		result.TotalTokens += chunkTokens
	}
	return result, nil
}

type fileGroup struct {
	label string
	files []candidateFile
}

// groupForChunking splits files into ordered, bounded-size groups per
// strategy. Every strategy ultimately passes its buckets through
// rebatch, so no single group ever exceeds chunkBatchSize files even if
// a directory or file-type bucket is large.
func groupForChunking(files []candidateFile, priority []string, strategy ChunkStrategy) []fileGroup {
	switch strategy {
	case ChunkStrategyFunctional:
		return groupByFunctionalType(files, priority)
	case ChunkStrategyToken:
		return groupByTokenBudget(files)
	case ChunkStrategyHierarchical:
		return groupByDirectory(files, true)
	default: // ChunkStrategyModule and unset fall back to top-level module grouping
		return groupByDirectory(files, false)
	}
}

// groupByDirectory keys files by their top-level directory (module) or
// full parent directory (hierarchical), processing shallower directories
// first in the hierarchical case so a project's top-level modules are
// analyzed before their nested packages.
func groupByDirectory(files []candidateFile, hierarchical bool) []fileGroup {
	buckets := map[string][]candidateFile{}
	for _, f := range files {
		key := topLevelDir(f.Path)
		if hierarchical {
			key = filepath.ToSlash(filepath.Dir(f.Path))
			if key == "." {
				key = ""
			}
		}
		buckets[key] = append(buckets[key], f)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	if hierarchical {
		sort.Slice(keys, func(i, j int) bool {
			di, dj := strings.Count(keys[i], "/"), strings.Count(keys[j], "/")
			if di != dj {
				return di < dj
			}
			return keys[i] < keys[j]
		})
	} else {
		sort.Strings(keys)
	}

	var groups []fileGroup
	for _, k := range keys {
		label := k
		if label == "" {
			label = "."
		}
		groups = append(groups, rebatch(label, buckets[k])...)
	}
	return groups
}

func topLevelDir(path string) string {
	path = filepath.ToSlash(path)
	if i := strings.Index(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// groupByFunctionalType keys files by the same FileType classification
// fileanalyzer.Analyze assigns, processing source files before
// configuration, tests, docs, and data so the most relevant category is
// analyzed first regardless of project layout.
func groupByFunctionalType(files []candidateFile, priority []string) []fileGroup {
	order := []fileanalyzer.FileType{
		fileanalyzer.FileTypeSource, fileanalyzer.FileTypeConfiguration,
		fileanalyzer.FileTypeTest, fileanalyzer.FileTypeDocumentation,
		fileanalyzer.FileTypeData, fileanalyzer.FileTypeUnknown,
	}

	buckets := map[fileanalyzer.FileType][]candidateFile{}
	for _, f := range files {
		score := fileanalyzer.Analyze(fileanalyzer.FileInfo{Path: f.Path, Size: f.Size, ModifiedTime: f.ModTime}, priority)
		buckets[score.FileType] = append(buckets[score.FileType], f)
	}

	var groups []fileGroup
	for _, t := range order {
		groups = append(groups, rebatch(string(t), buckets[t])...)
	}
	return groups
}

// groupByTokenBudget bin-packs files, in deterministic path order, into
// groups whose estimated token size stays near one chunk budget, rather
// than grouping by directory or type.
func groupByTokenBudget(files []candidateFile) []fileGroup {
	ordered := append([]candidateFile(nil), files...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Path < ordered[j].Path })

	var groups []fileGroup
	var current []candidateFile
	used := 0
	flush := func() {
		if len(current) > 0 {
			groups = append(groups, fileGroup{label: "chunk-" + strconv.Itoa(len(groups)+1), files: current})
			current = nil
			used = 0
		}
	}
	for _, f := range ordered {
		tokens := tokenEstimate(f.Size)
		if used > 0 && used+tokens > defaultMaxTokens {
			flush()
		}
		current = append(current, f)
		used += tokens
		if len(current) >= chunkBatchSize {
			flush()
		}
	}
	flush()
	return groups
}

// rebatch splits one labeled bucket into chunkBatchSize-sized groups,
// numbering groups beyond the first so the label stays traceable.
func rebatch(label string, files []candidateFile) []fileGroup {
	if len(files) <= chunkBatchSize {
		return []fileGroup{{label: label, files: files}}
	}
	var out []fileGroup
	for i := 0; i < len(files); i += chunkBatchSize {
		end := i + chunkBatchSize
		if end > len(files) {
			end = len(files)
		}
		out = append(out, fileGroup{label: label + "#" + strconv.Itoa(i/chunkBatchSize+1), files: files[i:end]})
	}
	return out
}
