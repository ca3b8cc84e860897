package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendrilhq/tendril-core/gitexec"
)

func TestParsePorcelainStatus(t *testing.T) {
	t.Run("branch header", func(t *testing.T) {
		snap := &StatusSnapshot{}
		parsePorcelainStatus("# branch.head feature/x\n", snap)
		assert.Equal(t, "feature/x", snap.Branch)
	})

	t.Run("detached head leaves branch empty", func(t *testing.T) {
		snap := &StatusSnapshot{}
		parsePorcelainStatus("# branch.head (detached)\n", snap)
		assert.Equal(t, "", snap.Branch)
	})

	t.Run("file entries", func(t *testing.T) {
		output := strings.Join([]string{
			"# branch.head main",
			"1 M. N... 100644 100644 100644 abc def staged.go",
			"1 .M N... 100644 100644 100644 abc def unstaged.go",
			"1 MM N... 100644 100644 100644 abc def both.go",
			"1 A. N... 000000 100644 100644 000 def new.go",
			"1 .D N... 100644 100644 000000 abc 000 gone.go",
			"? untracked.go",
			"",
		}, "\n")

		snap := &StatusSnapshot{}
		parsePorcelainStatus(output, snap)

		stagedPaths := paths(snap.Staged)
		assert.ElementsMatch(t, []string{"staged.go", "both.go", "new.go"}, stagedPaths)
		unstagedPaths := paths(snap.Unstaged)
		assert.ElementsMatch(t, []string{"unstaged.go", "both.go", "gone.go"}, unstagedPaths)
		require.Len(t, snap.Untracked, 1)
		assert.Equal(t, "untracked.go", snap.Untracked[0].Path)

		assert.Equal(t, ChangeAdded, kindOf(snap.Staged, "new.go"))
		assert.Equal(t, ChangeDeleted, kindOf(snap.Unstaged, "gone.go"))
		assert.Equal(t, ChangeModified, kindOf(snap.Staged, "staged.go"))
	})

	t.Run("rename entry", func(t *testing.T) {
		snap := &StatusSnapshot{}
		parsePorcelainStatus("2 R. N... 100644 100644 100644 abc def R100 new.go\told.go\n", snap)
		require.Len(t, snap.Staged, 1)
		assert.Equal(t, "new.go", snap.Staged[0].Path)
		assert.Equal(t, ChangeRenamed, snap.Staged[0].Kind)
	})
}

func paths(files []ChangedFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func kindOf(files []ChangedFile, path string) ChangeKind {
	for _, f := range files {
		if f.Path == path {
			return f.Kind
		}
	}
	return ""
}

func TestParseNumstat(t *testing.T) {
	output := "3\t1\tmain.go\n-\t-\tlogo.png\n10\t0\tnew/file.go\n"
	counts := parseNumstat(output)
	assert.Equal(t, [2]int{3, 1}, counts["main.go"])
	assert.Equal(t, [2]int{0, 0}, counts["logo.png"])
	assert.Equal(t, [2]int{10, 0}, counts["new/file.go"])
}

func TestRenameDestination(t *testing.T) {
	assert.Equal(t, "new.go", renameDestination("old.go => new.go"))
	assert.Equal(t, "pkg/b/util.go", renameDestination("pkg/{a => b}/util.go"))
	assert.Equal(t, "plain.go", renameDestination("plain.go"))
}

func TestCountFileLines(t *testing.T) {
	dir := t.TempDir()

	small := filepath.Join(dir, "small.txt")
	require.NoError(t, os.WriteFile(small, []byte("a\nb\nc\n"), 0o644))
	assert.Equal(t, 3, countFileLines(small))

	big := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(big, make([]byte, untrackedSizeCeiling+1), 0o644))
	assert.Equal(t, 0, countFileLines(big), "files above the ceiling keep zero counts")

	assert.Equal(t, 0, countFileLines(filepath.Join(dir, "missing.txt")))
}

func TestStatusIntegration(t *testing.T) {
	t.Run("no upstream is not an error", func(t *testing.T) {
		dir := t.TempDir()
		setupGitRepo(t, dir)
		commitFile(t, dir, "a.txt", "one\n", "initial")

		e := newTestEngine(t)
		snap, err := e.Status(context.Background(), dir)
		require.NoError(t, err)
		assert.False(t, snap.HasUpstream)
		assert.Equal(t, 0, snap.PushCount)
		assert.Equal(t, 0, snap.PullCount)
		assert.Equal(t, "main", snap.Branch)
	})

	t.Run("staged, unstaged, and untracked files", func(t *testing.T) {
		dir := t.TempDir()
		setupGitRepo(t, dir)
		commitFile(t, dir, "tracked.txt", "one\ntwo\n", "initial")

		// Unstaged modification: one line added
		require.NoError(t, os.WriteFile(filepath.Join(dir, "tracked.txt"), []byte("one\ntwo\nthree\n"), 0o644))
		// Staged addition
		require.NoError(t, os.WriteFile(filepath.Join(dir, "staged.txt"), []byte("x\n"), 0o644))
		runGitCommand(t, dir, "add", "staged.txt")
		// Untracked with three lines
		require.NoError(t, os.WriteFile(filepath.Join(dir, "loose.txt"), []byte("1\n2\n3\n"), 0o644))

		e := newTestEngine(t)
		snap, err := e.Status(context.Background(), dir)
		require.NoError(t, err)

		require.Len(t, snap.Unstaged, 1)
		assert.Equal(t, "tracked.txt", snap.Unstaged[0].Path)
		assert.Equal(t, 1, snap.Unstaged[0].Additions)
		assert.Equal(t, 0, snap.Unstaged[0].Deletions)

		require.Len(t, snap.Staged, 1)
		assert.Equal(t, "staged.txt", snap.Staged[0].Path)
		assert.Equal(t, ChangeAdded, snap.Staged[0].Kind)
		assert.Equal(t, 1, snap.Staged[0].Additions)

		require.Len(t, snap.Untracked, 1)
		assert.Equal(t, "loose.txt", snap.Untracked[0].Path)
		assert.Equal(t, 3, snap.Untracked[0].Additions)
	})

	t.Run("branch comparison against default branch", func(t *testing.T) {
		dir := t.TempDir()
		setupGitRepo(t, dir)
		commitFile(t, dir, "base.txt", "base\n", "base commit")

		runGitCommand(t, dir, "checkout", "-b", "feature")
		commitFile(t, dir, "feature.txt", "f1\nf2\n", "feature commit")

		e := newTestEngine(t)
		snap, err := e.Status(context.Background(), dir)
		require.NoError(t, err)

		assert.Equal(t, "feature", snap.Branch)
		assert.Equal(t, "main", snap.DefaultBranch)
		assert.Equal(t, 1, snap.Ahead)
		assert.Equal(t, 0, snap.Behind)
		require.Len(t, snap.Commits, 1)
		assert.Equal(t, "feature commit", snap.Commits[0].Subject)
		require.Len(t, snap.AgainstBase, 1)
		assert.Equal(t, "feature.txt", snap.AgainstBase[0].Path)
		assert.Equal(t, ChangeAdded, snap.AgainstBase[0].Kind)
		assert.Equal(t, 2, snap.AgainstBase[0].Additions)
	})

	t.Run("not a repository", func(t *testing.T) {
		e := newTestEngine(t)
		_, err := e.Status(context.Background(), t.TempDir())
		assert.Error(t, err)
	})

	t.Run("snapshots are cached briefly", func(t *testing.T) {
		dir := t.TempDir()
		setupGitRepo(t, dir)
		commitFile(t, dir, "a.txt", "one\n", "initial")

		e := NewEngine(gitexec.NewRunner(), gitexec.NewQueue(), Options{StatusTTL: time.Minute})
		first, err := e.Status(context.Background(), dir)
		require.NoError(t, err)

		// A change inside the TTL window is not observed...
		require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x\n"), 0o644))
		second, err := e.Status(context.Background(), dir)
		require.NoError(t, err)
		assert.Same(t, first, second)

		// ...until the cache is invalidated.
		e.Invalidate(dir)
		third, err := e.Status(context.Background(), dir)
		require.NoError(t, err)
		assert.Len(t, third.Untracked, 1)
	})
}

func TestStatusWithUpstream(t *testing.T) {
	origin := t.TempDir()
	runGitCommand(t, origin, "init", "--bare")

	dir := t.TempDir()
	setupGitRepo(t, dir)
	commitFile(t, dir, "a.txt", "one\n", "initial")
	runGitCommand(t, dir, "remote", "add", "origin", origin)
	runGitCommand(t, dir, "push", "--set-upstream", "origin", "main")

	commitFile(t, dir, "b.txt", "two\n", "local only")

	e := newTestEngine(t)
	snap, err := e.Status(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, snap.HasUpstream)
	assert.Equal(t, 1, snap.PushCount)
	assert.Equal(t, 0, snap.PullCount)
}
