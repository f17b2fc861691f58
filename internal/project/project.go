// Package project identifies a project's language/ecosystem at a path
// from marker files (spec §4.5, component C6).
package project

import (
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/mod/modfile"
)

// Type is a closed set of project ecosystems the detector recognizes.
type Type string

const (
	TypeRust       Type = "rust"
	TypeJavaScript Type = "javascript"
	TypePython     Type = "python"
	TypeGo         Type = "go"
	TypeJVM        Type = "jvm"
	TypeGit        Type = "git" // informational overlay, never exclusive
	TypeUnknown    Type = "unknown"
)

// Detection is the result of detecting a project at a path.
type Detection struct {
	ProjectType    Type
	EntryPoints    []string
	ImportantFiles []string
	Confidence     float64
	ModulePath     string // the module declaration from go.mod, TypeGo only
}

// rule is one marker-file detector. Confidence is fixed per rule; the
// caller breaks ties between equally-confident rules lexically by Type.
type rule struct {
	projectType    Type
	markers        []string
	entryPoints    []string
	importantFiles []string
	confidence     float64
}

var rules = []rule{
	{
		projectType:    TypeRust,
		markers:        []string{"Cargo.toml"},
		entryPoints:    []string{"src/main.rs", "src/lib.rs"},
		importantFiles: []string{"Cargo.toml", "Cargo.lock"},
		confidence:     0.95,
	},
	{
		projectType:    TypeGo,
		markers:        []string{"go.mod"},
		entryPoints:    []string{"main.go"},
		importantFiles: []string{"go.mod", "go.sum"},
		confidence:     0.95,
	},
	{
		projectType:    TypePython,
		markers:        []string{"pyproject.toml", "setup.py", "requirements.txt"},
		entryPoints:    []string{"main.py", "__main__.py", "app.py"},
		importantFiles: []string{"pyproject.toml", "requirements.txt", "setup.py"},
		confidence:     0.85,
	},
	{
		projectType:    TypeJavaScript,
		markers:        []string{"package.json"},
		entryPoints:    []string{"index.js", "index.ts", "src/index.js", "src/index.ts", "src/main.ts"},
		importantFiles: []string{"package.json", "tsconfig.json"},
		confidence:     0.9,
	},
	{
		projectType:    TypeJVM,
		markers:        []string{"pom.xml", "build.gradle", "build.gradle.kts"},
		entryPoints:    []string{"Main.java", "Main.kt"},
		importantFiles: []string{"pom.xml", "build.gradle", "build.gradle.kts"},
		confidence:     0.85,
	},
	{
		projectType:    TypeGit,
		markers:        []string{".git"},
		confidence:     0.1,
	},
}

// Detect inspects path for marker files and returns the highest-confidence
// match. Ties are broken by lexical ordering of project type names. Git is
// informational and never wins over a language detector at equal or lower
// confidence (its confidence is deliberately low).
func Detect(path string) (Detection, error) {
	var matched []rule
	for _, r := range rules {
		if anyMarkerExists(path, r.markers) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return Detection{ProjectType: TypeUnknown, Confidence: 0}, nil
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].confidence != matched[j].confidence {
			return matched[i].confidence > matched[j].confidence
		}
		return matched[i].projectType < matched[j].projectType
	})
	best := matched[0]

	modulePath := ""
	if best.projectType == TypeGo {
		modulePath = goModulePath(path)
	}

	return Detection{
		ProjectType:    best.projectType,
		EntryPoints:    filterExisting(path, best.entryPoints),
		ImportantFiles: filterExisting(path, best.importantFiles),
		Confidence:     best.confidence,
		ModulePath:     modulePath,
	}, nil
}

// goModulePath reads the module declaration out of root/go.mod, returning
// "" if the file is missing or fails to parse rather than erroring the
// whole detection.
func goModulePath(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	f, err := modfile.Parse("go.mod", data, nil)
	if err != nil || f.Module == nil {
		return ""
	}
	return f.Module.Mod.Path
}

func anyMarkerExists(root string, markers []string) bool {
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
			return true
		}
	}
	return false
}

func filterExisting(root string, candidates []string) []string {
	var out []string
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(root, c)); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// PriorityPatterns returns the glob-style entry-point patterns C8 seeds
// its priority globs with for the detected project type.
func PriorityPatterns(t Type) []string {
	for _, r := range rules {
		if r.projectType == t {
			return r.entryPoints
		}
	}
	return nil
}
