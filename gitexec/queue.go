// Package gitexec runs git subprocesses and serializes the mutating ones.
//
// Git guards its on-disk index and refs with lock files, so two mutating
// commands running concurrently against the same checkout routinely fail
// or corrupt state. The Queue guarantees that mutating operations for the
// same repository path execute in strict submission order, never
// overlapping, while operations against different paths stay fully
// parallel. Read-only operations deliberately bypass the queue; callers
// throttle those with the cache package instead, because serializing reads
// would block the UI for no safety benefit.
package gitexec

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tendrilhq/tendril-core/logging"
	"github.com/tendrilhq/tendril-core/util/pathutil"
)

// Queue serializes mutating git operations per repository path.
type Queue struct {
	mu      sync.Mutex
	entries map[string]*queueEntry
	logger  *logrus.Entry
}

// queueEntry tracks the chain for one repository path. tail is the done
// channel of the most recently enqueued operation; pending counts
// operations that have not yet settled. The entry is removed once pending
// drops to zero; a removed entry is equivalent to an empty queue.
type queueEntry struct {
	tail    chan struct{}
	pending int
	label   string
}

// NewQueue creates an empty operation queue.
func NewQueue() *Queue {
	return &Queue{
		entries: make(map[string]*queueEntry),
		logger:  logging.NewLogger("git-queue"),
	}
}

// Enqueue runs op after every previously enqueued operation for the same
// repository path has settled. The label is kept for diagnostics only.
//
// The result of op is returned to this caller unchanged. A failure of an
// earlier operation never prevents op from running: the chain waits for
// the predecessor to settle and ignores its outcome.
//
// Operations are not cancellable once started. If ctx is cancelled before
// op's turn arrives, op is skipped and ctx.Err() returned, but the slot
// still settles in order so later operations keep their FIFO position.
func (q *Queue) Enqueue(ctx context.Context, repoPath, label string, op func(context.Context) error) error {
	key, err := pathutil.NormalizeForLookup(repoPath)
	if err != nil {
		return err
	}

	q.mu.Lock()
	entry, ok := q.entries[key]
	if !ok {
		entry = &queueEntry{}
		q.entries[key] = entry
	}
	prev := entry.tail
	mine := make(chan struct{})
	entry.tail = mine
	entry.pending++
	entry.label = label
	position := entry.pending
	q.mu.Unlock()

	q.logger.WithFields(logrus.Fields{
		"path":     key,
		"label":    label,
		"position": position,
	}).Debug("Enqueued git operation")

	// Wait for the predecessor even if our context is already cancelled:
	// settling out of order would let the successor overlap with a still
	// running predecessor.
	if prev != nil {
		<-prev
	}

	var opErr error
	if ctxErr := ctx.Err(); ctxErr != nil {
		opErr = ctxErr
		q.logger.WithFields(logrus.Fields{"path": key, "label": label}).
			Debug("Skipping cancelled git operation")
	} else {
		opErr = op(ctx)
	}

	close(mine)

	q.mu.Lock()
	entry.pending--
	if entry.pending == 0 && entry.tail == mine {
		delete(q.entries, key)
	}
	q.mu.Unlock()

	return opErr
}

// Enqueue runs an operation returning a value through the queue. It exists
// because methods cannot introduce type parameters.
func Enqueue[T any](q *Queue, ctx context.Context, repoPath, label string, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := q.Enqueue(ctx, repoPath, label, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

// Pending returns the number of unsettled operations for a path. Zero for
// unknown paths.
func (q *Queue) Pending(repoPath string) int {
	key, err := pathutil.NormalizeForLookup(repoPath)
	if err != nil {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if entry, ok := q.entries[key]; ok {
		return entry.pending
	}
	return 0
}
