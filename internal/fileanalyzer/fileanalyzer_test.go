package fileanalyzer

import (
	"testing"
	"time"

	"github.com/kyco/termai/internal/project"
	"github.com/stretchr/testify/require"
)

func TestClassifyOrdersSourceAboveDocs(t *testing.T) {
	src := Analyze(FileInfo{Path: "main.go", Size: 500}, nil)
	doc := Analyze(FileInfo{Path: "README.md", Size: 500}, nil)
	require.Greater(t, src.Relevance, doc.Relevance)
}

func TestEntryPointBonusApplied(t *testing.T) {
	plain := Analyze(FileInfo{Path: "src/util.go", Size: 500}, []string{"main.go"})
	entry := Analyze(FileInfo{Path: "main.go", Size: 500}, []string{"main.go"})
	require.Greater(t, entry.Relevance, plain.Relevance)
	require.Contains(t, entry.ImportanceFactors, FactorEntryPoint)
}

func TestRecencyBonus(t *testing.T) {
	recent := Analyze(FileInfo{Path: "a.go", Size: 500, ModifiedTime: time.Now()}, nil)
	old := Analyze(FileInfo{Path: "a.go", Size: 500, ModifiedTime: time.Now().Add(-60 * 24 * time.Hour)}, nil)
	require.Greater(t, recent.Relevance, old.Relevance)
}

func TestLargeFilePenalty(t *testing.T) {
	small := Analyze(FileInfo{Path: "a.go", Size: 1000}, nil)
	large := Analyze(FileInfo{Path: "a.go", Size: 200 * 1024}, nil)
	require.Greater(t, small.Relevance, large.Relevance)
}

func TestDependencyPassFlagsHighlyReferenced(t *testing.T) {
	files := []FileInfo{
		{Path: "lib.py", Content: "def f(): pass"},
		{Path: "a.py", Content: "import lib"},
		{Path: "b.py", Content: "import lib"},
		{Path: "c.py", Content: "import lib"},
	}
	var scores []Score
	for _, f := range files {
		scores = append(scores, Analyze(f, nil))
	}
	DependencyPass(files, scores, project.TypePython, "")

	var libScore *Score
	for i := range scores {
		if scores[i].Path == "lib.py" {
			libScore = &scores[i]
		}
	}
	require.NotNil(t, libScore)
	require.Contains(t, libScore.ImportanceFactors, FactorHighlyReferenced)
}

func TestDependencyPassResolvesGoImportsWithinModule(t *testing.T) {
	files := []FileInfo{
		{Path: "internal/widget/widget.go", Content: "package widget\nfunc F() {}\n"},
		{Path: "cmd/a/main.go", Content: "package main\n\nimport (\n\t\"fmt\"\n\t\"example.com/app/internal/widget\"\n)\n\nfunc main() { fmt.Println(widget.F) }\n"},
		{Path: "cmd/b/main.go", Content: "package main\n\nimport \"example.com/app/internal/widget\"\n\nfunc main() { widget.F() }\n"},
	}
	var scores []Score
	for _, f := range files {
		scores = append(scores, Analyze(f, nil))
	}
	DependencyPass(files, scores, project.TypeGo, "example.com/app")

	var widgetScore *Score
	for i := range scores {
		if scores[i].Path == "internal/widget/widget.go" {
			widgetScore = &scores[i]
		}
	}
	require.NotNil(t, widgetScore)
	require.Contains(t, widgetScore.ImportanceFactors, FactorDependencyRoot)
}

func TestFilterByQueryMatchesAnyKeyword(t *testing.T) {
	scores := []Score{{Path: "src/auth/login.go"}, {Path: "src/billing/invoice.go"}}
	filtered := FilterByQuery(scores, "billing refund")
	require.Len(t, filtered, 1)
	require.Equal(t, "src/billing/invoice.go", filtered[0].Path)
}

func TestFilterByQueryEmptyReturnsAll(t *testing.T) {
	scores := []Score{{Path: "a.go"}, {Path: "b.go"}}
	require.Equal(t, scores, FilterByQuery(scores, ""))
}

func TestSortByRelevanceDescBreaksTiesByPath(t *testing.T) {
	scores := []Score{{Path: "z.go", Relevance: 0.5}, {Path: "a.go", Relevance: 0.5}}
	sorted := SortByRelevanceDesc(scores)
	require.Equal(t, "a.go", sorted[0].Path)
}
