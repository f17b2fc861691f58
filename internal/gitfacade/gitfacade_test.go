package gitfacade

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (dir string, repo *git.Repository) {
	t.Helper()
	dir = t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commitFile(t *testing.T, repo *git.Repository, dir, rel, content, message string, when time.Time) plumbing.Hash {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(rel)
	require.NoError(t, err)

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: when},
	})
	require.NoError(t, err)
	return hash
}

func TestDiscoverOpensRepository(t *testing.T) {
	dir, _ := initRepo(t)
	f, err := Discover(dir)
	require.NoError(t, err)
	require.NotNil(t, f)
}

func TestDiscoverFailsOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(dir)
	require.Error(t, err)
}

func TestCurrentBranchReturnsCheckedOutBranch(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.txt", "a", "first", time.Now())

	f, err := Discover(dir)
	require.NoError(t, err)
	branch, err := f.CurrentBranch()
	require.NoError(t, err)
	require.NotEmpty(t, branch)
}

func TestCurrentBranchErrorsOnDetachedHead(t *testing.T) {
	dir, repo := initRepo(t)
	hash := commitFile(t, repo, dir, "a.txt", "a", "first", time.Now())
	commitFile(t, repo, dir, "b.txt", "b", "second", time.Now())

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: hash}))

	f, err := Discover(dir)
	require.NoError(t, err)
	_, err = f.CurrentBranch()
	require.Error(t, err)
}

func TestHeadCommitReturnsHashAndSubject(t *testing.T) {
	dir, repo := initRepo(t)
	hash := commitFile(t, repo, dir, "a.txt", "a", "add a file\n\nlonger body", time.Now())

	f, err := Discover(dir)
	require.NoError(t, err)
	full, short, message, err := f.HeadCommit()
	require.NoError(t, err)
	require.Equal(t, hash.String(), full)
	require.Len(t, short, 7)
	require.Equal(t, "add a file", message)
}

func TestUserConfigReadsGlobalFallback(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.txt", "a", "first", time.Now())

	f, err := Discover(dir)
	require.NoError(t, err)
	_, _, err = f.UserConfig()
	require.NoError(t, err)
}

func TestStagedAndUnstagedFiles(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.txt", "a", "first", time.Now())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("new"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("b.txt")
	require.NoError(t, err)

	f, err := Discover(dir)
	require.NoError(t, err)

	staged, err := f.StagedFiles()
	require.NoError(t, err)
	require.Contains(t, staged, "b.txt")

	unstaged, err := f.UnstagedFiles()
	require.NoError(t, err)
	require.Contains(t, unstaged, "a.txt")
}

func TestStagedDiffSkipsBinaryFiles(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.txt", "a", "first", time.Now())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin.dat"), []byte{0x00, 0x01, 0x02, 0xff}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "text.txt"), []byte("hello"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("bin.dat")
	require.NoError(t, err)
	_, err = wt.Add("text.txt")
	require.NoError(t, err)

	f, err := Discover(dir)
	require.NoError(t, err)

	diffs, skipped, err := f.StagedDiff()
	require.NoError(t, err)
	require.Contains(t, skipped, "bin.dat")

	var paths []string
	for _, d := range diffs {
		paths = append(paths, d.Path)
	}
	require.Contains(t, paths, "text.txt")
	require.NotContains(t, paths, "bin.dat")
}

func TestUnstagedDiffReadsWorkingTreeContent(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.txt", "original", "first", time.Now())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("edited"), 0o644))

	f, err := Discover(dir)
	require.NoError(t, err)
	diffs, _, err := f.UnstagedDiff()
	require.NoError(t, err)

	require.Len(t, diffs, 1)
	require.Equal(t, "a.txt", diffs[0].Path)
	require.Equal(t, "edited", diffs[0].Content)
}

func TestRecentFilesRespectsWindow(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "old.txt", "old", "old commit", time.Now().Add(-48*time.Hour))
	commitFile(t, repo, dir, "new.txt", "new", "new commit", time.Now())

	f, err := Discover(dir)
	require.NoError(t, err)
	recent, err := f.RecentFiles(time.Hour)
	require.NoError(t, err)

	require.Contains(t, recent, "new.txt")
	require.NotContains(t, recent, "old.txt")
}

func TestSnapshotReportsCleanWhenNoChanges(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.txt", "a", "first", time.Now())

	f, err := Discover(dir)
	require.NoError(t, err)
	info, err := f.Snapshot()
	require.NoError(t, err)
	require.Equal(t, StatusClean, info.Status)
	require.Empty(t, info.StagedFiles)
	require.Empty(t, info.UnstagedFiles)
}

func TestSnapshotReportsDirtyWithPendingChanges(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.txt", "a", "first", time.Now())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("modified"), 0o644))

	f, err := Discover(dir)
	require.NoError(t, err)
	info, err := f.Snapshot()
	require.NoError(t, err)
	require.Equal(t, StatusDirty, info.Status)
	require.Contains(t, info.UnstagedFiles, "a.txt")
}
