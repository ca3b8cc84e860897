package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tendrilhq/tendril-core/errors"
)

var headRefPattern = regexp.MustCompile(`^ref: refs/heads/(.+)$`)

// ResolveHeadPath locates the HEAD file for a checkout. Linked worktrees
// and submodules have a .git file containing a "gitdir:" pointer instead
// of a .git directory; the pointer may be relative to the checkout root.
// A missing .git entry resolves to the conventional <root>/.git/HEAD so
// a watch can be set up before the repository is initialized.
func ResolveHeadPath(checkoutRoot string) (string, error) {
	gitPath := filepath.Join(checkoutRoot, ".git")

	info, err := os.Stat(gitPath)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Join(gitPath, "HEAD"), nil
		}
		return "", errors.Wrap(err, errors.ErrCodeWatchSetupFailed,
			fmt.Sprintf("cannot stat %s", gitPath)).
			WithDetail("path", checkoutRoot)
	}

	if info.IsDir() {
		return filepath.Join(gitPath, "HEAD"), nil
	}

	data, err := os.ReadFile(gitPath)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeWatchSetupFailed,
			fmt.Sprintf("cannot read %s", gitPath)).
			WithDetail("path", checkoutRoot)
	}

	firstLine := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0])
	gitdir, ok := strings.CutPrefix(firstLine, "gitdir:")
	if !ok {
		return "", errors.New(errors.ErrCodeGitNotARepository,
			fmt.Sprintf("%s is not a gitdir pointer", gitPath)).
			WithDetail("path", checkoutRoot)
	}

	gitdir = strings.TrimSpace(gitdir)
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(checkoutRoot, gitdir)
	}
	return filepath.Join(filepath.Clean(gitdir), "HEAD"), nil
}

// ParseBranchFromHead extracts the branch name from HEAD file content.
// Returns nil for a detached HEAD (raw commit SHA) or anything else that
// isn't a local branch ref.
func ParseBranchFromHead(content string) *string {
	trimmed := strings.TrimSpace(content)
	if m := headRefPattern.FindStringSubmatch(trimmed); m != nil {
		return &m[1]
	}
	return nil
}

// readBranch reads and parses the branch from a HEAD file. Any read
// failure is treated like a detached HEAD: the branch is simply unknown.
func readBranch(headPath string) *string {
	data, err := os.ReadFile(headPath)
	if err != nil {
		return nil
	}
	return ParseBranchFromHead(string(data))
}
