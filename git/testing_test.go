package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tendrilhq/tendril-core/gitexec"
)

// runnerFunc adapts a closure to the Runner interface for unit tests.
type runnerFunc func(ctx context.Context, dir string, args ...string) (string, error)

func (f runnerFunc) Git(ctx context.Context, dir string, args ...string) (string, error) {
	return f(ctx, dir, args...)
}

// runGitCommand is a test helper to execute git commands.
func runGitCommand(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s failed with output: %s", strings.Join(args, " "), string(output))
}

// setupGitRepo creates a test git repository on a "main" branch.
func setupGitRepo(t *testing.T, dir string) {
	t.Helper()
	runGitCommand(t, dir, "init")
	runGitCommand(t, dir, "config", "user.email", "test@example.com")
	runGitCommand(t, dir, "config", "user.name", "Test User")
	// Pin the initial branch name regardless of git's init.defaultBranch
	runGitCommand(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
}

// commitFile writes a file and commits it.
func commitFile(t *testing.T, dir, name, content, message string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	runGitCommand(t, dir, "add", name)
	runGitCommand(t, dir, "commit", "-m", message)
}

// newTestEngine creates an Engine backed by the real git binary.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(gitexec.NewRunner(), gitexec.NewQueue(), Options{})
}
