package git

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tendrilhq/tendril-core/errors"
	"github.com/tendrilhq/tendril-core/util/pathutil"
)

func statusKey(repoPath string) (string, error) {
	key, err := pathutil.NormalizeForLookup(repoPath)
	if err != nil {
		return "", err
	}
	return "status:" + key + ":", nil
}

// Status returns a consistent snapshot of the checkout at repoPath. Results
// are cached briefly per repository path; a cached snapshot may be up to
// one TTL window stale relative to an external change.
func (e *Engine) Status(ctx context.Context, repoPath string) (*StatusSnapshot, error) {
	key, err := statusKey(repoPath)
	if err != nil {
		return nil, err
	}

	if snap, ok := e.statusCache.Get(key); ok {
		return snap, nil
	}

	snap, err := e.computeStatus(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	e.statusCache.Set(key, snap)
	return snap, nil
}

func (e *Engine) computeStatus(ctx context.Context, repoPath string) (*StatusSnapshot, error) {
	snap := &StatusSnapshot{
		Staged:      []ChangedFile{},
		Unstaged:    []ChangedFile{},
		Untracked:   []ChangedFile{},
		Commits:     []Commit{},
		AgainstBase: []ChangedFile{},
	}

	out, err := e.runner.Git(ctx, repoPath, "status", "--porcelain=v2", "--branch")
	if err != nil {
		return nil, err
	}
	parsePorcelainStatus(out, snap)

	// Augment tracked files with numstat line counts
	unstagedCounts, err := e.numstat(ctx, repoPath, "diff", "--numstat")
	if err == nil {
		applyCounts(snap.Unstaged, unstagedCounts)
	}
	stagedCounts, err := e.numstat(ctx, repoPath, "diff", "--cached", "--numstat")
	if err == nil {
		applyCounts(snap.Staged, stagedCounts)
	}

	// Untracked files have no diff; count their lines directly, skipping
	// anything above the size ceiling.
	for i := range snap.Untracked {
		snap.Untracked[i].Additions = countFileLines(filepath.Join(repoPath, snap.Untracked[i].Path))
	}

	snap.DefaultBranch = e.detectBaseBranch(ctx, repoPath)

	// Branch comparison against the default branch
	if snap.Branch != "" && snap.Branch != snap.DefaultBranch {
		if ahead, behind, err := e.revListCounts(ctx, repoPath, snap.DefaultBranch+"...HEAD"); err == nil {
			snap.Ahead, snap.Behind = ahead, behind
		}
		if commits, err := e.commitsSince(ctx, repoPath, snap.DefaultBranch); err == nil {
			snap.Commits = commits
		}
		if files, err := e.filesAgainstBase(ctx, repoPath, snap.DefaultBranch); err == nil {
			snap.AgainstBase = files
		}
	}

	// Upstream tracking counts only exist when an upstream is configured.
	// Absence is reported, never raised.
	if _, err := e.runner.Git(ctx, repoPath, "rev-parse", "--abbrev-ref", "@{u}"); err != nil {
		if !errors.Is(err, errors.ErrCodeGitNoUpstream) && !errors.Is(err, errors.ErrCodeGitRefNotFound) && !errors.Is(err, errors.ErrCodeGitDetachedHead) {
			e.logger.WithError(err).WithField("path", repoPath).Debug("upstream probe failed")
		}
	} else {
		snap.HasUpstream = true
		if push, pull, err := e.revListCounts(ctx, repoPath, "@{u}...HEAD"); err == nil {
			snap.PushCount, snap.PullCount = push, pull
		}
	}

	return snap, nil
}

// parsePorcelainStatus fills branch and file lists from
// `git status --porcelain=v2 --branch` output.
func parsePorcelainStatus(output string, snap *StatusSnapshot) {
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "# ") {
			fields := strings.Fields(line)
			if len(fields) >= 3 && fields[1] == "branch.head" {
				// "(detached)" means detached HEAD; Branch stays empty.
				if fields[2] != "(detached)" {
					snap.Branch = fields[2]
				}
			}
			continue
		}

		switch line[0] {
		case '?':
			if len(line) > 2 {
				snap.Untracked = append(snap.Untracked, ChangedFile{
					Path: line[2:],
					Kind: ChangeAdded,
				})
			}
		case '1':
			fields := strings.SplitN(line, " ", 9)
			if len(fields) < 9 {
				continue
			}
			xy := fields[1]
			path := fields[8]
			appendTracked(snap, xy, path, path)
		case '2':
			// Rename entries carry "<path>\t<origPath>" in the final field
			fields := strings.SplitN(line, " ", 10)
			if len(fields) < 10 {
				continue
			}
			xy := fields[1]
			paths := strings.SplitN(fields[9], "\t", 2)
			appendTracked(snap, xy, paths[0], paths[0])
		case 'u':
			// Unmerged entries show up as modified on both sides
			fields := strings.SplitN(line, " ", 11)
			if len(fields) < 11 {
				continue
			}
			path := fields[10]
			snap.Staged = append(snap.Staged, ChangedFile{Path: path, Kind: ChangeModified})
			snap.Unstaged = append(snap.Unstaged, ChangedFile{Path: path, Kind: ChangeModified})
		}
	}
}

func appendTracked(snap *StatusSnapshot, xy, stagedPath, unstagedPath string) {
	if len(xy) < 2 {
		return
	}
	if xy[0] != '.' {
		snap.Staged = append(snap.Staged, ChangedFile{
			Path: stagedPath,
			Kind: kindFromCode(xy[0]),
		})
	}
	if xy[1] != '.' {
		snap.Unstaged = append(snap.Unstaged, ChangedFile{
			Path: unstagedPath,
			Kind: kindFromCode(xy[1]),
		})
	}
}

func kindFromCode(code byte) ChangeKind {
	switch code {
	case 'A':
		return ChangeAdded
	case 'D':
		return ChangeDeleted
	case 'R', 'C':
		return ChangeRenamed
	default:
		return ChangeModified
	}
}

// numstat runs a numstat diff variant and returns path -> (added, deleted).
func (e *Engine) numstat(ctx context.Context, repoPath string, args ...string) (map[string][2]int, error) {
	out, err := e.runner.Git(ctx, repoPath, args...)
	if err != nil {
		return nil, err
	}
	return parseNumstat(out), nil
}

// parseNumstat parses `git diff --numstat` output. Binary files report "-"
// and keep zero counts. Renames report "old => new" or "{a => b}/c" forms;
// the destination path is used.
func parseNumstat(output string) map[string][2]int {
	counts := make(map[string][2]int)
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 3 {
			continue
		}

		var added, deleted int
		if fields[0] != "-" {
			added, _ = strconv.Atoi(fields[0])
		}
		if fields[1] != "-" {
			deleted, _ = strconv.Atoi(fields[1])
		}
		counts[renameDestination(fields[2])] = [2]int{added, deleted}
	}
	return counts
}

// renameDestination resolves numstat rename notation to the new path.
func renameDestination(path string) string {
	if strings.Contains(path, " => ") {
		if open := strings.Index(path, "{"); open >= 0 {
			closing := strings.Index(path, "}")
			if closing > open {
				inner := path[open+1 : closing]
				parts := strings.SplitN(inner, " => ", 2)
				newInner := parts[len(parts)-1]
				resolved := path[:open] + newInner + path[closing+1:]
				return strings.ReplaceAll(resolved, "//", "/")
			}
		}
		parts := strings.SplitN(path, " => ", 2)
		return parts[1]
	}
	return path
}

func applyCounts(files []ChangedFile, counts map[string][2]int) {
	for i := range files {
		if c, ok := counts[files[i].Path]; ok {
			files[i].Additions = c[0]
			files[i].Deletions = c[1]
		}
	}
}

// countFileLines counts newline-terminated lines of an untracked file.
// Files above the size ceiling are skipped to bound memory use.
func countFileLines(path string) int {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() > untrackedSizeCeiling {
		return 0
	}

	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), untrackedSizeCeiling)
	for scanner.Scan() {
		count++
	}
	if scanner.Err() != nil {
		return 0
	}
	return count
}

// revListCounts runs a symmetric-difference revision count for a range
// like "base...HEAD". Git prints "<left>\t<right>" where left counts
// commits unique to the first ref; the return values are normalized to
// (ahead, behind) from HEAD's point of view.
func (e *Engine) revListCounts(ctx context.Context, repoPath, rangeSpec string) (ahead, behind int, err error) {
	out, err := e.runner.Git(ctx, repoPath, "rev-list", "--left-right", "--count", rangeSpec)
	if err != nil {
		return 0, 0, err
	}

	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 {
		return 0, 0, nil
	}

	left, _ := strconv.Atoi(fields[0])
	right, _ := strconv.Atoi(fields[1])
	// left = commits only on the base side (behind), right = only on HEAD (ahead)
	return right, left, nil
}

// commitsSince lists the commits unique to HEAD relative to base.
func (e *Engine) commitsSince(ctx context.Context, repoPath, base string) ([]Commit, error) {
	out, err := e.runner.Git(ctx, repoPath, "log", base+"..HEAD",
		"--pretty=format:%H%x09%s%x09%an%x09%aI")
	if err != nil {
		return nil, err
	}

	commits := []Commit{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 4)
		if len(fields) < 4 {
			continue
		}
		commits = append(commits, Commit{
			Hash:    fields[0],
			Subject: fields[1],
			Author:  fields[2],
			Date:    fields[3],
		})
	}
	return commits, nil
}

// filesAgainstBase lists files changed relative to the merge base with the
// default branch, with kinds from name-status and counts from numstat.
func (e *Engine) filesAgainstBase(ctx context.Context, repoPath, base string) ([]ChangedFile, error) {
	statusOut, err := e.runner.Git(ctx, repoPath, "diff", "--name-status", base+"...HEAD")
	if err != nil {
		return nil, err
	}

	counts, err := e.numstat(ctx, repoPath, "diff", "--numstat", base+"...HEAD")
	if err != nil {
		counts = map[string][2]int{}
	}

	files := []ChangedFile{}
	for _, line := range strings.Split(strings.TrimSpace(statusOut), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		status := fields[0]
		path := fields[len(fields)-1] // renames list old then new

		var kind ChangeKind
		switch status[0] {
		case 'A':
			kind = ChangeAdded
		case 'D':
			kind = ChangeDeleted
		case 'R', 'C':
			kind = ChangeRenamed
		default:
			kind = ChangeModified
		}

		cf := ChangedFile{Path: path, Kind: kind}
		if c, ok := counts[path]; ok {
			cf.Additions = c[0]
			cf.Deletions = c[1]
		}
		files = append(files, cf)
	}
	return files, nil
}
