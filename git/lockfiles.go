package git

import (
	"github.com/moby/patternmatcher"
)

// lockFileNames are package-manager lock files excluded from generated
// diffs so the agent-facing diff view is not dominated by generated-file
// noise.
var lockFileNames = []string{
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"bun.lockb",
	"Cargo.lock",
	"go.sum",
	"composer.lock",
	"Gemfile.lock",
	"poetry.lock",
	"uv.lock",
}

// lockFileMatcher matches repository-relative paths against the lock-file
// exclusion list at any directory depth.
type lockFileMatcher struct {
	names   []string
	matcher *patternmatcher.PatternMatcher
}

func newLockFileMatcher(extra []string) *lockFileMatcher {
	names := append(append([]string{}, lockFileNames...), extra...)

	patterns := make([]string, 0, len(names)*2)
	for _, name := range names {
		patterns = append(patterns, name, "**/"+name)
	}

	m, err := patternmatcher.New(patterns)
	if err != nil {
		// Built-in patterns are static; only ExtraLockPatterns can fail.
		// Fall back to the built-ins alone rather than refusing to diff.
		m, _ = patternmatcher.New(builtinPatterns())
	}

	return &lockFileMatcher{names: names, matcher: m}
}

func builtinPatterns() []string {
	patterns := make([]string, 0, len(lockFileNames)*2)
	for _, name := range lockFileNames {
		patterns = append(patterns, name, "**/"+name)
	}
	return patterns
}

// Excluded reports whether a repository-relative path is lock-file noise.
func (m *lockFileMatcher) Excluded(relPath string) bool {
	matched, err := m.matcher.MatchesOrParentMatches(relPath)
	if err != nil {
		return false
	}
	return matched
}

// pathspecs returns `:(exclude)` pathspecs for the diff command line, so
// the generated patch itself omits lock files.
func (m *lockFileMatcher) pathspecs() []string {
	specs := make([]string, 0, len(m.names)+2)
	specs = append(specs, "--", ".")
	for _, name := range m.names {
		specs = append(specs, ":(exclude,glob)**/"+name)
	}
	return specs
}
