package preset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gocontext "github.com/kyco/termai/internal/context"
	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/gitfacade"
	"github.com/kyco/termai/internal/logging"
)

// languageHints maps a file extension to the fenced-code-block language tag
// used when assembling file_content, mirroring the original preset engine's
// extension table.
var languageHints = map[string]string{
	".rs": "rust", ".js": "javascript", ".jsx": "javascript",
	".ts": "typescript", ".tsx": "typescript", ".py": "python",
	".go": "go", ".java": "java", ".kt": "kotlin",
	".cpp": "cpp", ".cc": "cpp", ".cxx": "cpp", ".c": "c",
	".cs": "csharp", ".php": "php", ".rb": "ruby", ".swift": "swift",
	".yaml": "yaml", ".yml": "yaml", ".json": "json",
	".html": "html", ".css": "css", ".sh": "bash",
}

func languageHint(path string) string {
	if lang, ok := languageHints[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "text"
}

func formatFileBlock(path, content string) string {
	var b strings.Builder
	b.WriteString("## File: ")
	b.WriteString(path)
	b.WriteString("\n```")
	b.WriteString(languageHint(path))
	b.WriteString("\n")
	b.WriteString(content)
	b.WriteString("\n```\n")
	return b.String()
}

// GitStagedContext builds file_content from a repository's staged files,
// skipping binaries, and returns the Git-mode auto-populated variables
// (spec §4.8).
func GitStagedContext(ctx context.Context, projectPath string) (fileContent string, extra map[string]string, err error) {
	facade, err := gitfacade.Discover(projectPath)
	if err != nil {
		logging.Warn(ctx, "git staged context: repo discovery failed", slog.String("err", err.Error()))
		return "", nil, err
	}
	diffs, _, err := facade.StagedDiff()
	if err != nil {
		logging.Warn(ctx, "git staged context: staged diff failed", slog.String("err", err.Error()))
		return "", nil, err
	}

	var b strings.Builder
	for _, d := range diffs {
		b.WriteString(formatFileBlock(d.Path, d.Content))
	}

	info, err := facade.Snapshot()
	if err != nil {
		logging.Warn(ctx, "git staged context: repo snapshot failed", slog.String("err", err.Error()))
		return "", nil, err
	}
	extra = map[string]string{
		"git_branch":              info.Branch,
		"git_commit":              info.CommitShort,
		"git_commit_full":         info.CommitFull,
		"git_last_commit_message": info.LastCommitMessage,
		"git_status":              string(info.Status),
		"git_unstaged_files":      strings.Join(info.UnstagedFiles, ", "),
	}
	return b.String(), extra, nil
}

// SmartContext builds file_content by delegating to context discovery (C8).
func SmartContext(ctx context.Context, projectPath, query string, maxTokens int) (string, error) {
	result, err := gocontext.Discover(ctx, gocontext.Options{
		ProjectPath: projectPath,
		Query:       query,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		logging.Warn(ctx, "smart context: discover failed", slog.String("err", err.Error()))
		return "", err
	}

	var b strings.Builder
	for _, f := range result.SelectedFiles {
		data, readErr := os.ReadFile(filepath.Join(projectPath, f.Path))
		if readErr != nil {
			continue
		}
		b.WriteString(formatFileBlock(f.Path, string(data)))
	}
	return b.String(), nil
}

// ChunkedSmartContext builds file_content the way SmartContext does, except
// candidate files are split into bounded-size groups first (per strategy)
// and each group is scored and budget-selected independently, so a project
// too large to score in one pass still produces ranked context a group at a
// time instead of holding every file in memory at once.
func ChunkedSmartContext(ctx context.Context, projectPath, query string, maxTokens int, strategy gocontext.ChunkStrategy) (string, []string, error) {
	result, err := gocontext.DiscoverChunked(ctx, gocontext.Options{
		ProjectPath: projectPath,
		Query:       query,
		MaxTokens:   maxTokens,
	}, strategy)
	if err != nil {
		logging.Warn(ctx, "chunked smart context: discover failed", slog.String("err", err.Error()))
		return "", nil, err
	}

	var b strings.Builder
	var paths []string
	for _, chunk := range result.Chunks {
		if len(chunk.SelectedFiles) == 0 {
			continue
		}
		b.WriteString("## Chunk: ")
		b.WriteString(chunk.Label)
		b.WriteString("\n")
		for _, f := range chunk.SelectedFiles {
			data, readErr := os.ReadFile(filepath.Join(projectPath, f.Path))
			if readErr != nil {
				continue
			}
			b.WriteString(formatFileBlock(f.Path, string(data)))
			paths = append(paths, f.Path)
		}
	}
	return b.String(), paths, nil
}

// DirectoryContext builds file_content from an explicit list of
// directories, recursively, honoring the same default ignore rules as C8.
func DirectoryContext(ctx context.Context, directories []string) (string, error) {
	var paths []string
	for _, dir := range directories {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if isIgnoredDir(info.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			wrapped := coreerr.Wrap(coreerr.KindIntegrityError, "walk directory "+dir, err)
			logging.Warn(ctx, "directory context: walk failed", slog.String("err", wrapped.Error()))
			return "", wrapped
		}
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		b.WriteString(formatFileBlock(p, string(data)))
	}
	return b.String(), nil
}

var ignoredDirNames = map[string]bool{
	"node_modules": true, ".git": true, "vendor": true, "__pycache__": true,
	".venv": true, "dist": true, "build": true, "target": true,
}

func isIgnoredDir(name string) bool {
	return ignoredDirNames[name]
}
