// Package fileanalyzer scores candidate files by type, recency, size,
// naming, and lightweight cross-file references (spec §4.5, component C7).
package fileanalyzer

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kyco/termai/internal/project"
)

// FileType is the closed classification a file falls into for base scoring.
type FileType string

const (
	FileTypeSource        FileType = "source"
	FileTypeConfiguration FileType = "configuration"
	FileTypeDocumentation FileType = "documentation"
	FileTypeTest          FileType = "test"
	FileTypeData          FileType = "data"
	FileTypeUnknown       FileType = "unknown"
)

// ImportanceFactor is drawn from the closed vocabulary spec §3 names.
type ImportanceFactor string

const (
	FactorEntryPoint       ImportanceFactor = "entry_point"
	FactorRecentlyModified ImportanceFactor = "recently_modified"
	FactorMainModule       ImportanceFactor = "main_module"
	FactorTest             ImportanceFactor = "test"
	FactorSmall            ImportanceFactor = "small"
	FactorHighlyReferenced ImportanceFactor = "highly_referenced"
	FactorDependencyRoot   ImportanceFactor = "dependency_root"
)

// FileInfo is the minimal per-file input the analyzer needs; Content is
// optional and only used by the dependency pass.
type FileInfo struct {
	Path         string
	Size         int64
	ModifiedTime time.Time
	Content      string // empty if not read; dependency pass skips such files
}

// Score is the transient, per-file result (spec §3's "File score").
type Score struct {
	Path              string
	FileType          FileType
	Relevance         float64
	Size              int64
	ModifiedTime      time.Time
	ImportanceFactors []ImportanceFactor
}

const (
	bonusEntryPoint  = 0.25
	bonusMainModule  = 0.15
	bonusRecency     = 0.10
	bonusSmall       = 0.05
	penaltyLarge     = -0.15
	bonusTest        = 0.02
	bonusHighlyRef   = 0.10
	bonusDependency  = 0.08
	recencyWindow    = 30 * 24 * time.Hour
	smallFileBytes   = 10 * 1024
	largeFileBytes   = 100 * 1024
)

var mainModuleNames = map[string]bool{
	"main.go": true, "main.rs": true, "main.py": true, "__main__.py": true,
	"index.js": true, "index.ts": true, "Main.java": true, "Main.kt": true,
}

var testPathPattern = regexp.MustCompile(`(?i)(^|/)(test|tests|spec|specs|__tests__)(/|$)|_test\.|\.test\.|_spec\.|\.spec\.`)

var docExt = map[string]bool{".md": true, ".mdx": true, ".rst": true, ".txt": true, ".adoc": true}
var configExt = map[string]bool{".toml": true, ".yaml": true, ".yml": true, ".json": true, ".ini": true, ".cfg": true, ".conf": true}
var dataExt = map[string]bool{".csv": true, ".parquet": true, ".db": true, ".sqlite": true}
var sourceExt = map[string]bool{
	".go": true, ".rs": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".kt": true, ".c": true, ".cc": true, ".cpp": true, ".h": true, ".hpp": true,
	".rb": true, ".php": true, ".swift": true, ".cs": true,
}

// classify assigns the base FileType by extension and path shape.
func classify(path string) FileType {
	if testPathPattern.MatchString(path) {
		return FileTypeTest
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case sourceExt[ext]:
		return FileTypeSource
	case configExt[ext]:
		return FileTypeConfiguration
	case docExt[ext]:
		return FileTypeDocumentation
	case dataExt[ext]:
		return FileTypeData
	default:
		return FileTypeUnknown
	}
}

// baseScore orders file types source > configuration > documentation > test > data > unknown.
func baseScore(t FileType) float64 {
	switch t {
	case FileTypeSource:
		return 0.6
	case FileTypeConfiguration:
		return 0.5
	case FileTypeDocumentation:
		return 0.4
	case FileTypeTest:
		return 0.3
	case FileTypeData:
		return 0.2
	default:
		return 0.1
	}
}

// Analyze scores one file given the project's detected entry-point
// patterns. It does not run the cross-file dependency pass; call
// DependencyPass afterward over the full set for HighlyReferenced/
// DependencyRoot bonuses.
func Analyze(f FileInfo, priorityPatterns []string) Score {
	fileType := classify(f.Path)
	score := baseScore(fileType)
	var factors []ImportanceFactor

	base := filepath.Base(f.Path)

	if matchesAny(f.Path, priorityPatterns) {
		score += bonusEntryPoint
		factors = append(factors, FactorEntryPoint)
	}
	if mainModuleNames[base] {
		score += bonusMainModule
		factors = append(factors, FactorMainModule)
	}
	if !f.ModifiedTime.IsZero() && time.Since(f.ModifiedTime) <= recencyWindow {
		score += bonusRecency
		factors = append(factors, FactorRecentlyModified)
	}
	switch {
	case f.Size > 0 && f.Size < smallFileBytes:
		score += bonusSmall
		factors = append(factors, FactorSmall)
	case f.Size > largeFileBytes:
		score += penaltyLarge
	}
	if fileType == FileTypeTest {
		score += bonusTest
		factors = append(factors, FactorTest)
	}

	return Score{
		Path:              f.Path,
		FileType:          fileType,
		Relevance:         clamp01(score),
		Size:              f.Size,
		ModifiedTime:      f.ModifiedTime,
		ImportanceFactors: factors,
	}
}

func matchesAny(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, p := range patterns {
		if p == path || p == base || strings.HasSuffix(path, "/"+p) {
			return true
		}
	}
	return false
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

// DependencyPass mutates scores in place, adding HighlyReferenced (>=3
// inbound references) and DependencyRoot (>=2 inbound, <=1 outbound)
// bonuses based on lightweight static import extraction over files whose
// Content was supplied.
func DependencyPass(files []FileInfo, scores []Score, projectType project.Type, modulePath string) {
	byPath := map[string]*Score{}
	for i := range scores {
		byPath[scores[i].Path] = &scores[i]
	}

	inbound := map[string]int{}
	outbound := map[string]int{}
	for _, f := range files {
		if f.Content == "" {
			continue
		}
		refs := extractImports(f.Content, projectType)
		outbound[f.Path] = len(refs)
		for _, ref := range refs {
			target := resolveImport(f.Path, ref, files, projectType, modulePath)
			if target != "" {
				inbound[target]++
			}
		}
	}

	for path, score := range byPath {
		if inbound[path] >= 3 {
			score.Relevance = clamp01(score.Relevance + bonusHighlyRef)
			score.ImportanceFactors = append(score.ImportanceFactors, FactorHighlyReferenced)
		} else if inbound[path] >= 2 && outbound[path] <= 1 {
			score.Relevance = clamp01(score.Relevance + bonusDependency)
			score.ImportanceFactors = append(score.ImportanceFactors, FactorDependencyRoot)
		}
	}
}

var (
	rustImport   = regexp.MustCompile(`(?m)^\s*(?:use|mod)\s+([\w:]+)`)
	jsImport     = regexp.MustCompile(`(?m)(?:import\s+.*?from\s+|require\()\s*['"]([^'"]+)['"]`)
	pyImport     = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([\w.]+)`)
	goImportStmt = regexp.MustCompile(`(?s)import\s*\((.*?)\)|import\s+(?:\w+\s+)?"([^"]+)"`)
	goQuotedPath = regexp.MustCompile(`"([^"]+)"`)
)

// extractImports returns raw per-language import references. JVM has no
// cheap local-file import pattern and is skipped, per spec §4.5.
func extractImports(content string, projectType project.Type) []string {
	if projectType == project.TypeGo {
		return extractGoImports(content)
	}

	var pattern *regexp.Regexp
	switch projectType {
	case project.TypeRust:
		pattern = rustImport
	case project.TypeJavaScript:
		pattern = jsImport
	case project.TypePython:
		pattern = pyImport
	default:
		return nil
	}
	matches := pattern.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// extractGoImports pulls quoted import paths out of both grouped
// "import (...)" blocks and single "import "..."" statements.
func extractGoImports(content string) []string {
	var out []string
	for _, m := range goImportStmt.FindAllStringSubmatch(content, -1) {
		switch {
		case m[1] != "":
			for _, q := range goQuotedPath.FindAllStringSubmatch(m[1], -1) {
				out = append(out, q[1])
			}
		case m[2] != "":
			out = append(out, m[2])
		}
	}
	return out
}

// resolveImport maps a raw import reference to a path in files, matching
// by basename or module-to-path translation, best-effort. For Go, a
// reference under the project's own module path is translated into a
// repo-relative directory before matching, since Go imports name packages
// by directory rather than by file.
func resolveImport(fromPath, ref string, files []FileInfo, projectType project.Type, modulePath string) string {
	if projectType == project.TypeGo {
		return resolveGoImport(fromPath, ref, files, modulePath)
	}

	candidate := strings.ReplaceAll(ref, "::", "/")
	candidate = strings.ReplaceAll(candidate, ".", "/")
	candidate = strings.TrimPrefix(candidate, "/")

	for _, f := range files {
		if f.Path == fromPath {
			continue
		}
		noExt := strings.TrimSuffix(f.Path, filepath.Ext(f.Path))
		if strings.HasSuffix(noExt, candidate) || strings.HasSuffix(f.Path, candidate) {
			return f.Path
		}
	}
	return ""
}

func resolveGoImport(fromPath, ref string, files []FileInfo, modulePath string) string {
	if modulePath == "" || !strings.HasPrefix(ref, modulePath) {
		return ""
	}
	dir := strings.TrimPrefix(ref, modulePath)
	dir = strings.TrimPrefix(dir, "/")
	if dir == "" {
		dir = "."
	}

	for _, f := range files {
		if f.Path == fromPath || filepath.Ext(f.Path) != ".go" {
			continue
		}
		if filepath.ToSlash(filepath.Dir(f.Path)) == dir {
			return f.Path
		}
	}
	return ""
}

// FilterByQuery restricts scores to files whose path (case-insensitive)
// contains any whitespace-separated keyword in query.
func FilterByQuery(scores []Score, query string) []Score {
	query = strings.TrimSpace(query)
	if query == "" {
		return scores
	}
	keywords := strings.Fields(strings.ToLower(query))
	var out []Score
	for _, s := range scores {
		lower := strings.ToLower(s.Path)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// SortByRelevanceDesc returns scores ordered highest-relevance first,
// ties broken by path for determinism.
func SortByRelevanceDesc(scores []Score) []Score {
	out := append([]Score(nil), scores...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Path < out[j].Path
	})
	return out
}
