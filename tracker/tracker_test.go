package tracker

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendrilhq/tendril-core/config"
	"github.com/tendrilhq/tendril-core/store"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func setupRepo(t *testing.T, dir string) {
	t.Helper()
	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")
	runGit(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial")
}

func TestTrackerStatus(t *testing.T) {
	dir := t.TempDir()
	setupRepo(t, dir)

	tr := New(Options{})
	defer tr.Close()

	snap, err := tr.Status(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "main", snap.Branch)
}

func TestTrackerLifecycle(t *testing.T) {
	dir := t.TempDir()
	setupRepo(t, dir)

	recordPath := filepath.Join(t.TempDir(), "records.yml")
	recordStore := store.NewRecordStore(recordPath)

	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Watcher.DebounceMs = 10

	tr := New(Options{Config: cfg, Store: recordStore})
	defer tr.Close()

	events, cancel := tr.Events("chat-1")
	defer cancel()

	require.NoError(t, tr.Track("chat-1", dir, "panel"))

	// Tracking records the branch immediately.
	rec, ok, err := recordStore.GetBranchRecord("chat-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "main", rec.Branch)

	branch := tr.Branch("chat-1")
	require.NotNil(t, branch)
	assert.Equal(t, "main", *branch)

	runGit(t, dir, "checkout", "-b", "feature")

	select {
	case ev := <-events:
		assert.Equal(t, "main", ev.OldBranch)
		assert.Equal(t, "feature", ev.NewBranch)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for branch change event")
	}

	assert.Eventually(t, func() bool {
		rec, ok, err := recordStore.GetBranchRecord("chat-1")
		return err == nil && ok && rec.Branch == "feature"
	}, 5*time.Second, 10*time.Millisecond)

	tr.Untrack("chat-1", "panel")
	assert.Nil(t, tr.Branch("chat-1"))
}

func TestTrackerCheckoutSafety(t *testing.T) {
	dir := t.TempDir()
	setupRepo(t, dir)

	tr := New(Options{})
	defer tr.Close()

	report, err := tr.CheckoutSafety(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, report.Safe())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("dirty\n"), 0o644))

	report, err = tr.CheckoutSafety(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, report.UncommittedChanges)
	assert.False(t, report.Safe())
}

func TestTrackerWithoutStore(t *testing.T) {
	dir := t.TempDir()
	setupRepo(t, dir)

	tr := New(Options{})
	defer tr.Close()

	require.NoError(t, tr.Track("chat-1", dir, "panel"))
	branch := tr.Branch("chat-1")
	require.NotNil(t, branch)
	assert.Equal(t, "main", *branch)
}

func TestTrackerDetectRepos(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "svc")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	setupRepo(t, sub)

	tr := New(Options{})
	defer tr.Close()

	layout, err := tr.DetectRepos(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, layout.RootIsRepo)
	assert.Equal(t, []string{"svc"}, layout.SubRepos)
}
