package git

import (
	"context"
	"strings"

	"github.com/tendrilhq/tendril-core/errors"
)

// emptyTreeSHA is git's well-known empty tree object. Diffing against it
// is the only correct way to diff a commit that has no parent.
const emptyTreeSHA = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// CommitDiff generates the diff introduced by a single commit: the commit
// against its first parent, or against the empty tree for a parentless
// (initial) commit. Lock files are excluded from the patch and the stats.
func (e *Engine) CommitDiff(ctx context.Context, repoPath, sha string) (*Diff, error) {
	base := sha + "^"
	if _, err := e.runner.Git(ctx, repoPath, "rev-parse", "--verify", "--quiet", base); err != nil {
		if !errors.Is(err, errors.ErrCodeGitRefNotFound) && !errors.Is(err, errors.ErrCodeGitUnknown) {
			return nil, err
		}
		base = emptyTreeSHA
	}

	return e.diffRange(ctx, repoPath, base, sha)
}

// FullDiff generates the complete diff of a checkout against a base
// branch: committed changes since the merge base plus staged and working
// tree changes. Lock files are excluded.
func (e *Engine) FullDiff(ctx context.Context, repoPath, baseBranch string) (*Diff, error) {
	if baseBranch == "" {
		baseBranch = e.detectBaseBranch(ctx, repoPath)
	}

	mergeBase := baseBranch
	if out, err := e.runner.Git(ctx, repoPath, "merge-base", baseBranch, "HEAD"); err == nil {
		mergeBase = strings.TrimSpace(out)
	}

	// A single end point (no right-hand rev) diffs against the working
	// tree, which folds in committed, staged, and unstaged changes.
	return e.diffRange(ctx, repoPath, mergeBase, "")
}

func (e *Engine) diffRange(ctx context.Context, repoPath, base, head string) (*Diff, error) {
	revs := []string{base}
	if head != "" {
		revs = append(revs, head)
	}

	patchArgs := append([]string{"diff"}, revs...)
	patchArgs = append(patchArgs, e.lockFiles.pathspecs()...)
	patch, err := e.runner.Git(ctx, repoPath, patchArgs...)
	if err != nil {
		return nil, err
	}

	statArgs := append([]string{"diff", "--numstat"}, revs...)
	statOut, err := e.runner.Git(ctx, repoPath, statArgs...)
	if err != nil {
		return nil, err
	}

	kindArgs := append([]string{"diff", "--name-status"}, revs...)
	kindOut, err := e.runner.Git(ctx, repoPath, kindArgs...)
	if err != nil {
		return nil, err
	}

	return &Diff{
		Patch: patch,
		Files: e.joinDiffStats(kindOut, parseNumstat(statOut)),
	}, nil
}

// joinDiffStats merges name-status kinds with numstat counts, dropping
// lock-file entries.
func (e *Engine) joinDiffStats(nameStatus string, counts map[string][2]int) []ChangedFile {
	files := []ChangedFile{}
	for _, line := range strings.Split(strings.TrimSpace(nameStatus), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		path := fields[len(fields)-1]
		if e.lockFiles.Excluded(path) {
			continue
		}

		cf := ChangedFile{Path: path, Kind: kindFromCode(fields[0][0])}
		if c, ok := counts[path]; ok {
			cf.Additions = c[0]
			cf.Deletions = c[1]
		}
		files = append(files, cf)
	}
	return files
}
