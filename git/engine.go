// Package git computes repository state (status, branch comparison, diffs)
// and performs worktree lifecycle transitions. Git plumbing is delegated to
// the git binary through a Runner; mutating commands are serialized per
// repository through a gitexec.Queue, read-only queries are throttled
// through short-TTL caches instead.
package git

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tendrilhq/tendril-core/cache"
	"github.com/tendrilhq/tendril-core/gitexec"
	"github.com/tendrilhq/tendril-core/logging"
)

const (
	// DefaultStatusTTL bounds how stale a status read may be. One second
	// absorbs bursts of near-simultaneous UI-triggered requests without
	// letting the sidebar lag noticeably.
	DefaultStatusTTL = time.Second

	// DefaultRepoScanTTL caches multi-repo directory scans. Scans are
	// invalidated explicitly on filesystem events, so the TTL is only a
	// backstop.
	DefaultRepoScanTTL = 5 * time.Minute

	// untrackedSizeCeiling bounds the memory used counting lines of
	// untracked files. Larger files keep zero counts.
	untrackedSizeCeiling = 1 << 20 // 1 MiB
)

// Options configures an Engine. Zero values select the defaults above.
type Options struct {
	StatusTTL   time.Duration
	RepoScanTTL time.Duration

	// BaseBranch overrides default-branch detection when set.
	BaseBranch string

	// ExtraLockPatterns adds project-specific lock-file patterns to the
	// built-in exclusion list.
	ExtraLockPatterns []string
}

// Engine computes checkout state and performs lifecycle transitions.
type Engine struct {
	runner Runner
	queue  *gitexec.Queue
	logger *logrus.Entry

	baseBranch string
	lockFiles  *lockFileMatcher

	statusCache *cache.Cache[*StatusSnapshot]
	scanCache   *cache.Cache[*RepoLayout]
}

// NewEngine creates an Engine backed by the given runner and queue.
func NewEngine(runner Runner, queue *gitexec.Queue, opts Options) *Engine {
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = DefaultStatusTTL
	}
	if opts.RepoScanTTL <= 0 {
		opts.RepoScanTTL = DefaultRepoScanTTL
	}

	return &Engine{
		runner:      runner,
		queue:       queue,
		logger:      logging.NewLogger("git-engine"),
		baseBranch:  opts.BaseBranch,
		lockFiles:   newLockFileMatcher(opts.ExtraLockPatterns),
		statusCache: cache.New[*StatusSnapshot](opts.StatusTTL),
		scanCache:   cache.New[*RepoLayout](opts.RepoScanTTL),
	}
}

// Invalidate drops all cached reads for a repository path. Called after
// mutations and on external change events.
func (e *Engine) Invalidate(repoPath string) {
	key, err := statusKey(repoPath)
	if err != nil {
		return
	}
	e.statusCache.DeleteByPrefix(key)
}
