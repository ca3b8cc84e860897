package git

import (
	"context"
	"strings"
)

// detectBaseBranch returns the configured base branch, or detects the
// repository's default branch. Detection is deliberately independent of
// upstream-presence detection: a missing upstream says nothing about which
// branch comparisons should run against.
func (e *Engine) detectBaseBranch(ctx context.Context, repoPath string) string {
	if e.baseBranch != "" {
		return e.baseBranch
	}
	return e.DefaultBranch(ctx, repoPath)
}

// DefaultBranch detects the repository's default branch: the branch
// origin/HEAD points at when a remote is configured, otherwise whichever
// of main/master exists locally, defaulting to main.
func (e *Engine) DefaultBranch(ctx context.Context, repoPath string) string {
	out, err := e.runner.Git(ctx, repoPath, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err == nil {
		ref := strings.TrimSpace(out)
		if name, ok := strings.CutPrefix(ref, "origin/"); ok && name != "" {
			return name
		}
	}

	for _, candidate := range []string{"main", "master"} {
		if _, err := e.runner.Git(ctx, repoPath, "rev-parse", "--verify", "--quiet", "refs/heads/"+candidate); err == nil {
			return candidate
		}
	}

	return "main"
}

// CurrentBranch returns the checked-out branch name, empty in detached
// HEAD state.
func (e *Engine) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	out, err := e.runner.Git(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(out)
	if branch == "HEAD" {
		return "", nil
	}
	return branch, nil
}

// CreateBranch creates a branch at the given start point (HEAD when empty).
// Routed through the operation queue.
func (e *Engine) CreateBranch(ctx context.Context, repoPath, name, startPoint string) error {
	return e.queue.Enqueue(ctx, repoPath, "create-branch", func(ctx context.Context) error {
		defer e.Invalidate(repoPath)
		args := []string{"branch", name}
		if startPoint != "" {
			args = append(args, startPoint)
		}
		_, err := e.runner.Git(ctx, repoPath, args...)
		return err
	})
}

// Checkout switches the checkout to a branch. The caller is expected to
// have consulted CheckoutSafety first; the engine never silently discards
// work, but it also does not refuse — policy belongs to the caller.
func (e *Engine) Checkout(ctx context.Context, repoPath, branch string) error {
	return e.queue.Enqueue(ctx, repoPath, "checkout", func(ctx context.Context) error {
		defer e.Invalidate(repoPath)
		_, err := e.runner.Git(ctx, repoPath, "checkout", branch)
		return err
	})
}

// Merge merges a branch into the current branch of repoPath.
func (e *Engine) Merge(ctx context.Context, repoPath, branch string) error {
	return e.queue.Enqueue(ctx, repoPath, "merge", func(ctx context.Context) error {
		defer e.Invalidate(repoPath)
		_, err := e.runner.Git(ctx, repoPath, "merge", "--no-ff", branch)
		return err
	})
}

// Push pushes the current branch, setting upstream on first push.
func (e *Engine) Push(ctx context.Context, repoPath string) error {
	return e.queue.Enqueue(ctx, repoPath, "push", func(ctx context.Context) error {
		defer e.Invalidate(repoPath)
		branch, err := e.CurrentBranch(ctx, repoPath)
		if err != nil {
			return err
		}
		if branch == "" {
			_, err = e.runner.Git(ctx, repoPath, "push")
			return err
		}
		_, err = e.runner.Git(ctx, repoPath, "push", "--set-upstream", "origin", branch)
		return err
	})
}

// CheckoutSafety evaluates what a destructive transition would put at
// risk: uncommitted changes in the working tree, commits not pushed to the
// upstream, or a rebase needed because the upstream has moved. Read-only.
func (e *Engine) CheckoutSafety(ctx context.Context, repoPath string) (SafetyReport, error) {
	var report SafetyReport

	out, err := e.runner.Git(ctx, repoPath, "status", "--porcelain")
	if err != nil {
		return report, err
	}
	report.UncommittedChanges = strings.TrimSpace(out) != ""

	// Upstream counts only apply when an upstream exists; without one
	// there is nothing to be ahead of or behind.
	if _, err := e.runner.Git(ctx, repoPath, "rev-parse", "--abbrev-ref", "@{u}"); err == nil {
		if push, pull, err := e.revListCounts(ctx, repoPath, "@{u}...HEAD"); err == nil {
			report.UnpushedCommits = push > 0
			report.NeedsRebase = pull > 0
		}
	}

	return report, nil
}
