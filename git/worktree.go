package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/tendrilhq/tendril-core/errors"
)

// RequestWorktree builds the descriptor for an isolated checkout before
// anything touches disk.
func RequestWorktree(path, branch, baseBranch string) *Worktree {
	return &Worktree{
		Path:       path,
		Branch:     branch,
		BaseBranch: baseBranch,
		State:      WorktreeRequested,
	}
}

// CreateWorktree materializes a requested worktree: a new branch off the
// base branch, checked out at wt.Path. The mutation runs through the
// operation queue keyed by the primary repository path. On success the
// descriptor transitions Requested -> Created.
func (e *Engine) CreateWorktree(ctx context.Context, repoPath string, wt *Worktree) error {
	if wt.State != WorktreeRequested {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("cannot create worktree in state %q", wt.State))
	}

	return e.queue.Enqueue(ctx, repoPath, "worktree-add", func(ctx context.Context) error {
		defer e.Invalidate(repoPath)

		base := wt.BaseBranch
		if base == "" {
			base = e.detectBaseBranch(ctx, repoPath)
			wt.BaseBranch = base
		}

		_, err := e.runner.Git(ctx, repoPath, "worktree", "add", "-b", wt.Branch, wt.Path, base)
		if err != nil {
			return err
		}

		wt.State = WorktreeCreated
		e.logger.WithField("path", wt.Path).WithField("branch", wt.Branch).
			Info("Created worktree")
		return nil
	})
}

// Activate marks a created worktree as in use by an agent session.
func (e *Engine) Activate(wt *Worktree) error {
	if wt.State != WorktreeCreated {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("cannot activate worktree in state %q", wt.State))
	}
	wt.State = WorktreeActive
	return nil
}

// MergeWorktree merges the worktree's branch back into its base branch in
// the primary repository. The descriptor transitions Active -> Merging for
// the duration; it returns to Active on failure so the caller can resolve
// and retry.
func (e *Engine) MergeWorktree(ctx context.Context, repoPath string, wt *Worktree) error {
	if wt.State != WorktreeActive {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("cannot merge worktree in state %q", wt.State))
	}

	wt.State = WorktreeMerging
	err := e.queue.Enqueue(ctx, repoPath, "worktree-merge", func(ctx context.Context) error {
		defer e.Invalidate(repoPath)
		if _, err := e.runner.Git(ctx, repoPath, "checkout", wt.BaseBranch); err != nil {
			return err
		}
		_, err := e.runner.Git(ctx, repoPath, "merge", "--no-ff", wt.Branch)
		return err
	})
	if err != nil {
		wt.State = WorktreeActive
		return err
	}

	wt.State = WorktreeActive
	return nil
}

// RemoveWorktree removes a worktree from disk. Unless force is set, a
// safety check runs first and removal is refused while it reports work at
// risk. A worktree that fails to remove cleanly is reported, not retried.
// On success the descriptor transitions to Gone.
func (e *Engine) RemoveWorktree(ctx context.Context, repoPath string, wt *Worktree, force bool) error {
	switch wt.State {
	case WorktreeCreated, WorktreeActive:
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("cannot remove worktree in state %q", wt.State))
	}

	if !force {
		report, err := e.CheckoutSafety(ctx, wt.Path)
		if err != nil && !errors.IsBenignAbsence(err) {
			return err
		}
		if err == nil && !report.Safe() {
			return errors.New(errors.ErrCodeInvalidInput, "worktree has unsaved work").
				WithDetail("path", wt.Path).
				WithDetail("uncommittedChanges", report.UncommittedChanges).
				WithDetail("unpushedCommits", report.UnpushedCommits).
				WithDetail("needsRebase", report.NeedsRebase)
		}
	}

	prev := wt.State
	wt.State = WorktreeRemoving
	err := e.queue.Enqueue(ctx, repoPath, "worktree-remove", func(ctx context.Context) error {
		defer e.Invalidate(repoPath)
		args := []string{"worktree", "remove"}
		if force {
			args = append(args, "--force")
		}
		args = append(args, wt.Path)
		_, err := e.runner.Git(ctx, repoPath, args...)
		return err
	})
	if err != nil {
		wt.State = prev
		e.logger.WithError(err).WithField("path", wt.Path).Warn("Failed to remove worktree")
		return err
	}

	wt.State = WorktreeGone
	return nil
}

// ListWorktrees returns all worktrees of the repository. Read-only, so it
// bypasses the queue.
func (e *Engine) ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeInfo, error) {
	out, err := e.runner.Git(ctx, repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(out), nil
}

// parseWorktreeList parses `git worktree list --porcelain` output.
func parseWorktreeList(output string) []WorktreeInfo {
	var worktrees []WorktreeInfo

	var current WorktreeInfo
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			if current.Path != "" {
				worktrees = append(worktrees, current)
				current = WorktreeInfo{}
			}
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		switch parts[0] {
		case "worktree":
			if len(parts) == 2 {
				current.Path = parts[1]
			}
		case "HEAD":
			if len(parts) == 2 {
				current.Commit = parts[1]
			}
		case "branch":
			if len(parts) == 2 {
				current.Branch = strings.TrimPrefix(parts[1], "refs/heads/")
			}
		case "bare":
			current.Bare = true
		}
	}

	if current.Path != "" {
		worktrees = append(worktrees, current)
	}

	return worktrees
}
