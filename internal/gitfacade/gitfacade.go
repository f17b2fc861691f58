// Package gitfacade is the read-only external Git collaborator (spec §6):
// repository discovery, status, staged/unstaged diffs, current branch, and
// user config, backing the preset engine's Git context-collection mode.
package gitfacade

import (
	"io"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/kyco/termai/internal/coreerr"
)

// Status is the closed clean/dirty classification spec §4.8 requires for
// the git_status template variable.
type Status string

const (
	StatusClean Status = "clean"
	StatusDirty Status = "dirty"
)

// Info bundles the Git facts a preset's Git context-collection mode
// exposes as template variables.
type Info struct {
	Branch            string
	CommitFull        string
	CommitShort       string
	LastCommitMessage string
	Status            Status
	StagedFiles       []string
	UnstagedFiles     []string
}

// Facade wraps a single opened repository.
type Facade struct {
	repo *git.Repository
}

// Discover opens the repository containing path (or its parents), per
// go-git's PlainOpen-with-detection.
func Discover(path string) (*Facade, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNotFound, "open git repository at "+path, err)
	}
	return &Facade{repo: repo}, nil
}

// CurrentBranch returns the short name of the checked-out branch, or
// KindValidation if HEAD is detached.
func (f *Facade) CurrentBranch() (string, error) {
	head, err := f.repo.Head()
	if err != nil {
		return "", coreerr.Wrap(coreerr.KindNotFound, "resolve HEAD", err)
	}
	if !head.Name().IsBranch() {
		return "", coreerr.New(coreerr.KindValidation, "repository is in detached HEAD state")
	}
	return head.Name().Short(), nil
}

// HeadCommit returns the full and abbreviated (7-char) HEAD commit hash
// plus its subject line.
func (f *Facade) HeadCommit() (full, short, message string, err error) {
	head, headErr := f.repo.Head()
	if headErr != nil {
		return "", "", "", coreerr.Wrap(coreerr.KindNotFound, "resolve HEAD", headErr)
	}
	commit, commitErr := f.repo.CommitObject(head.Hash())
	if commitErr != nil {
		return "", "", "", coreerr.Wrap(coreerr.KindNotFound, "load HEAD commit", commitErr)
	}
	full = commit.Hash.String()
	short = full
	if len(short) > 7 {
		short = short[:7]
	}
	return full, short, firstLine(commit.Message), nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// UserConfig returns the repository's configured user.name/user.email,
// falling back to the global config when the repository has none set.
func (f *Facade) UserConfig() (name, email string, err error) {
	cfg, cfgErr := f.repo.ConfigScoped(config.GlobalScope)
	if cfgErr != nil {
		return "", "", coreerr.Wrap(coreerr.KindIntegrityError, "read git config", cfgErr)
	}
	return cfg.User.Name, cfg.User.Email, nil
}

// StagedFiles lists paths with pending staged changes (added, modified,
// or deleted in the index relative to HEAD).
func (f *Facade) StagedFiles() ([]string, error) {
	status, err := f.worktreeStatus()
	if err != nil {
		return nil, err
	}
	var out []string
	for path, st := range status {
		if st.Staging != git.Unmodified {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// UnstagedFiles lists paths with working-tree changes not yet staged.
func (f *Facade) UnstagedFiles() ([]string, error) {
	status, err := f.worktreeStatus()
	if err != nil {
		return nil, err
	}
	var out []string
	for path, st := range status {
		if st.Worktree != git.Unmodified {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *Facade) worktreeStatus() (git.Status, error) {
	wt, err := f.repo.Worktree()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindIntegrityError, "resolve worktree", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindIntegrityError, "read worktree status", err)
	}
	return status, nil
}

// StagedDiff returns unified-diff-like hunks for every staged file, by
// diffing the HEAD tree against the index-resolved tree. Binary files are
// skipped (spec §4.8); their path is reported in the returned skipped list.
func (f *Facade) StagedDiff() (diffs []FileDiff, skipped []string, err error) {
	return f.treeDiff(true)
}

// UnstagedDiff returns hunks for working-tree changes not yet staged.
func (f *Facade) UnstagedDiff() (diffs []FileDiff, skipped []string, err error) {
	return f.treeDiff(false)
}

// FileDiff is one file's content as exposed to the template engine for
// Git-staged context collection: path, language hint, and raw content.
type FileDiff struct {
	Path    string
	Content string
}

// treeDiff reads the post-change blob content for every changed file
// (staged=true reads the index blob, staged=false reads the working-tree
// file), skipping binary content.
func (f *Facade) treeDiff(staged bool) ([]FileDiff, []string, error) {
	status, err := f.worktreeStatus()
	if err != nil {
		return nil, nil, err
	}

	var paths []string
	for path, st := range status {
		changed := st.Staging
		if !staged {
			changed = st.Worktree
		}
		if changed != git.Unmodified {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	wt, err := f.repo.Worktree()
	if err != nil {
		return nil, nil, coreerr.Wrap(coreerr.KindIntegrityError, "resolve worktree", err)
	}

	var diffs []FileDiff
	var skipped []string
	for _, p := range paths {
		data, readErr := readWorktreeFile(wt, p)
		if readErr != nil {
			continue // deleted files have nothing to read; skip silently
		}
		if isBinary(data) {
			skipped = append(skipped, p)
			continue
		}
		diffs = append(diffs, FileDiff{Path: p, Content: string(data)})
	}
	return diffs, skipped, nil
}

func readWorktreeFile(wt *git.Worktree, path string) ([]byte, error) {
	f, err := wt.Filesystem.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// isBinary uses the conventional NUL-byte heuristic over the first 8000
// bytes, matching Git's own binary detection.
func isBinary(data []byte) bool {
	const sniffLen = 8000
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return false
}

// RecentFiles lists paths touched by commits within the given window,
// most-recently-touched first, deduplicated.
func (f *Facade) RecentFiles(window time.Duration) ([]string, error) {
	head, err := f.repo.Head()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNotFound, "resolve HEAD", err)
	}
	commitIter, err := f.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindIntegrityError, "read commit log", err)
	}

	cutoff := time.Now().Add(-window)
	seen := map[string]bool{}
	var out []string
	walkErr := commitIter.ForEach(func(c *object.Commit) error {
		if c.Author.When.Before(cutoff) {
			return errStopIteration
		}
		stats, statErr := c.Stats()
		if statErr != nil {
			return nil
		}
		for _, s := range stats {
			if !seen[s.Name] {
				seen[s.Name] = true
				out = append(out, s.Name)
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != errStopIteration {
		return nil, coreerr.Wrap(coreerr.KindIntegrityError, "walk commit log", walkErr)
	}
	return out, nil
}

// errStopIteration is a sentinel used to end a ForEach walk early; it is
// never surfaced to callers.
var errStopIteration = &stopIterationError{}

type stopIterationError struct{}

func (*stopIterationError) Error() string { return "stop iteration" }

// Snapshot gathers the full Info bundle in one call for convenience.
func (f *Facade) Snapshot() (Info, error) {
	branch, err := f.CurrentBranch()
	if err != nil {
		branch = ""
	}
	full, short, message, err := f.HeadCommit()
	if err != nil {
		full, short, message = "", "", ""
	}
	staged, err := f.StagedFiles()
	if err != nil {
		return Info{}, err
	}
	unstaged, err := f.UnstagedFiles()
	if err != nil {
		return Info{}, err
	}

	status := StatusClean
	if len(staged) > 0 || len(unstaged) > 0 {
		status = StatusDirty
	}

	return Info{
		Branch:            branch,
		CommitFull:        full,
		CommitShort:       short,
		LastCommitMessage: message,
		Status:            status,
		StagedFiles:       staged,
		UnstagedFiles:     unstaged,
	}, nil
}
