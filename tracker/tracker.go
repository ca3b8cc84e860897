// Package tracker assembles the git tracking core into one object a host
// application holds: the operation queue, the worktree/status engine, the
// branch watcher, and the record store, wired from a single configuration.
package tracker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tendrilhq/tendril-core/command"
	"github.com/tendrilhq/tendril-core/config"
	"github.com/tendrilhq/tendril-core/git"
	"github.com/tendrilhq/tendril-core/gitexec"
	"github.com/tendrilhq/tendril-core/logging"
	"github.com/tendrilhq/tendril-core/store"
	"github.com/tendrilhq/tendril-core/watcher"
)

// Options configures a Tracker. All fields are optional.
type Options struct {
	// Config supplies tuning values. Nil selects the defaults.
	Config *config.Config

	// Store persists branch records. Nil disables persistence.
	Store *store.RecordStore

	// Runner overrides git execution. Nil builds a real runner from the
	// configured git binary.
	Runner git.Runner
}

// Tracker is the coordinating object for tracked checkouts. One instance
// serves all repositories; no package-level state.
type Tracker struct {
	cfg     *config.Config
	queue   *gitexec.Queue
	engine  *git.Engine
	watcher *watcher.BranchWatcher
	store   *store.RecordStore
	logger  *logrus.Entry
}

// New builds a Tracker from options.
func New(opts Options) *Tracker {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
		cfg.SetDefaults()
	}

	runner := opts.Runner
	if runner == nil {
		runner = gitexec.NewRunnerWith(cfg.Git.Binary, command.NewSafeBuilder())
	}

	queue := gitexec.NewQueue()
	engine := git.NewEngine(runner, queue, git.Options{
		StatusTTL:         time.Duration(cfg.Git.StatusTTLMs) * time.Millisecond,
		RepoScanTTL:       time.Duration(cfg.Git.RepoScanTTLMs) * time.Millisecond,
		BaseBranch:        cfg.Git.BaseBranch,
		ExtraLockPatterns: cfg.Git.ExcludeLockFiles,
	})

	var recordStore watcher.RecordStore
	if opts.Store != nil {
		recordStore = opts.Store
	}
	bw := watcher.NewBranchWatcher(recordStore,
		time.Duration(cfg.Watcher.DebounceMs)*time.Millisecond)

	return &Tracker{
		cfg:     cfg,
		queue:   queue,
		engine:  engine,
		watcher: bw,
		store:   opts.Store,
		logger:  logging.NewLogger("tracker"),
	}
}

// Engine exposes the underlying worktree/status engine for callers that
// need operations not mirrored here.
func (t *Tracker) Engine() *git.Engine { return t.engine }

// Queue exposes the operation queue, mainly for diagnostics.
func (t *Tracker) Queue() *gitexec.Queue { return t.queue }

// Status returns the (briefly cached) status snapshot for a repository.
func (t *Tracker) Status(ctx context.Context, repoPath string) (*git.StatusSnapshot, error) {
	return t.engine.Status(ctx, repoPath)
}

// CommitDiff returns the diff a commit introduced over its first parent.
func (t *Tracker) CommitDiff(ctx context.Context, repoPath, sha string) (*git.Diff, error) {
	return t.engine.CommitDiff(ctx, repoPath, sha)
}

// FullDiff returns committed plus working tree changes against a base.
func (t *Tracker) FullDiff(ctx context.Context, repoPath, baseBranch string) (*git.Diff, error) {
	return t.engine.FullDiff(ctx, repoPath, baseBranch)
}

// CheckoutSafety reports whether a checkout can be discarded without
// losing work.
func (t *Tracker) CheckoutSafety(ctx context.Context, repoPath string) (git.SafetyReport, error) {
	return t.engine.CheckoutSafety(ctx, repoPath)
}

// DetectRepos scans a project root for git repositories.
func (t *Tracker) DetectRepos(ctx context.Context, projectRoot string) (*git.RepoLayout, error) {
	return t.engine.DetectRepos(ctx, projectRoot)
}

// ListWorktrees lists the worktrees attached to a repository.
func (t *Tracker) ListWorktrees(ctx context.Context, repoPath string) ([]git.WorktreeInfo, error) {
	return t.engine.ListWorktrees(ctx, repoPath)
}

// Track starts watching the branch of a chat's checkout and records the
// branch currently checked out.
func (t *Tracker) Track(chatID, checkoutPath, subscriberID string) error {
	if err := t.watcher.Watch(chatID, checkoutPath, subscriberID); err != nil {
		return err
	}

	if t.store != nil {
		branch := ""
		if b := t.watcher.CurrentBranch(chatID); b != nil {
			branch = *b
		}
		if err := t.store.UpdateBranchRecord(chatID, checkoutPath, branch); err != nil {
			t.logger.WithError(err).WithField("chatId", chatID).
				Warn("Failed to record initial branch")
		}
	}
	return nil
}

// Untrack removes one subscriber from a chat's watch. The watch itself
// stops when the last subscriber leaves.
func (t *Tracker) Untrack(chatID, subscriberID string) {
	t.watcher.Unwatch(chatID, subscriberID)
}

// Events subscribes to branch change events for a chat. The cancel
// function releases the subscription.
func (t *Tracker) Events(chatID string) (<-chan watcher.BranchChangeEvent, func()) {
	return t.watcher.Subscribe(chatID)
}

// Branch returns the last branch observed for a tracked chat, or nil
// when the chat is untracked or detached.
func (t *Tracker) Branch(chatID string) *string {
	return t.watcher.CurrentBranch(chatID)
}

// Close stops all watches and releases resources. Queued git operations
// that already started are allowed to finish.
func (t *Tracker) Close() error {
	return t.watcher.Close()
}
