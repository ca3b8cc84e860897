// Package watcher observes branch changes in git checkouts via fsnotify.
//
// Git updates HEAD by writing HEAD.lock and renaming it into place, so
// watching the HEAD file itself misses updates on some platforms. The
// watcher instead watches the directory containing HEAD and filters
// events down to the HEAD path, with a trailing-edge debounce to collapse
// the write/rename bursts a single checkout produces.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/tendrilhq/tendril-core/errors"
	"github.com/tendrilhq/tendril-core/logging"
)

// DefaultDebounce is the quiet period required after the last HEAD event
// before the change is processed.
const DefaultDebounce = 100 * time.Millisecond

// eventBuffer is the capacity of subscriber channels. A subscriber that
// falls this far behind starts losing events rather than blocking the
// watcher.
const eventBuffer = 8

// RecordStore persists the observed branch for a chat. Implemented by
// store.RecordStore.
type RecordStore interface {
	UpdateBranchRecord(chatID, checkoutPath, branch string) error
}

// BranchChangeEvent describes one observed branch switch.
type BranchChangeEvent struct {
	ChatID       string
	CheckoutPath string
	OldBranch    string // empty when the previous state was detached or unknown
	NewBranch    string // empty when HEAD became detached
}

// watchEntry is the per-chat watch state. One fsnotify watcher per entry;
// multiple subscribers share it through refcounting on subscriberIDs.
type watchEntry struct {
	chatID       string
	checkoutPath string
	headPath     string
	branch       *string
	subscribers  map[string]struct{}
	fw           *fsnotify.Watcher
	timer        *time.Timer
}

type subscription struct {
	id int
	ch chan BranchChangeEvent
}

// BranchWatcher tracks the checked-out branch of git checkouts and fans
// out change events to subscribers. Entries are keyed by chat ID: two
// chats pointed at the same checkout watch independently.
type BranchWatcher struct {
	store    RecordStore
	debounce time.Duration
	logger   *logrus.Entry

	mu      sync.Mutex
	entries map[string]*watchEntry
	subs    map[string][]*subscription
	nextSub int
	closed  bool
}

// NewBranchWatcher creates a watcher. The store may be nil when no
// persistence is wanted; debounce <= 0 selects DefaultDebounce.
func NewBranchWatcher(store RecordStore, debounce time.Duration) *BranchWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &BranchWatcher{
		store:    store,
		debounce: debounce,
		logger:   logging.NewLogger("branch-watcher"),
		entries:  make(map[string]*watchEntry),
		subs:     make(map[string][]*subscription),
	}
}

// Watch starts (or joins) the branch watch for a chat's checkout. Adding
// the same subscriber twice is a no-op; the underlying fsnotify watcher
// is created only for the first subscriber.
func (w *BranchWatcher) Watch(chatID, checkoutPath, subscriberID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New(errors.ErrCodeWatchSetupFailed, "watcher is closed")
	}

	if entry, ok := w.entries[chatID]; ok {
		entry.subscribers[subscriberID] = struct{}{}
		return nil
	}

	headPath, err := ResolveHeadPath(checkoutPath)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WatchSetupFailed(chatID, checkoutPath, err)
	}
	if err := fw.Add(filepath.Dir(headPath)); err != nil {
		fw.Close()
		return errors.WatchSetupFailed(chatID, checkoutPath, err)
	}

	entry := &watchEntry{
		chatID:       chatID,
		checkoutPath: checkoutPath,
		headPath:     headPath,
		branch:       readBranch(headPath),
		subscribers:  map[string]struct{}{subscriberID: {}},
		fw:           fw,
	}
	w.entries[chatID] = entry

	w.logger.WithFields(logrus.Fields{
		"chatId": chatID,
		"head":   headPath,
		"branch": branchLabel(entry.branch),
	}).Debug("Watching checkout")

	go w.run(entry)
	return nil
}

// run consumes fsnotify events for one entry until its watcher is closed.
func (w *BranchWatcher) run(entry *watchEntry) {
	for {
		select {
		case event, ok := <-entry.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != entry.headPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.bumpDebounce(entry)
		case err, ok := <-entry.fw.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).WithField("chatId", entry.chatID).
				Warn("Watcher error")
		}
	}
}

// bumpDebounce restarts the entry's quiet-period timer. Only the trailing
// edge of an event burst triggers a re-read.
func (w *BranchWatcher) bumpDebounce(entry *watchEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.timer = time.AfterFunc(w.debounce, func() {
		w.handleHeadChange(entry)
	})
}

// handleHeadChange re-reads HEAD and, if the branch actually changed,
// persists the new branch and fans the event out. A burst of events that
// leaves HEAD on the same branch produces nothing.
func (w *BranchWatcher) handleHeadChange(entry *watchEntry) {
	newBranch := readBranch(entry.headPath)

	w.mu.Lock()
	if cur := w.entries[entry.chatID]; cur != entry || branchesEqual(entry.branch, newBranch) {
		w.mu.Unlock()
		return
	}

	oldBranch := entry.branch
	entry.branch = newBranch

	event := BranchChangeEvent{
		ChatID:       entry.chatID,
		CheckoutPath: entry.checkoutPath,
		OldBranch:    branchLabel(oldBranch),
		NewBranch:    branchLabel(newBranch),
	}
	w.mu.Unlock()

	w.logger.WithFields(logrus.Fields{
		"chatId": event.ChatID,
		"from":   event.OldBranch,
		"to":     event.NewBranch,
	}).Info("Branch changed")

	if w.store != nil {
		if err := w.store.UpdateBranchRecord(event.ChatID, event.CheckoutPath, event.NewBranch); err != nil {
			w.logger.WithError(err).WithField("chatId", event.ChatID).
				Warn("Failed to persist branch record")
		}
	}

	// Send while holding the mutex: a subscription can only be closed
	// under the same mutex, so a concurrent cancel cannot close a channel
	// between the registry read and the send. The sends are non-blocking,
	// so holding the lock across them is safe.
	w.mu.Lock()
	for _, sub := range w.subs[event.ChatID] {
		select {
		case sub.ch <- event:
		default:
			w.logger.WithField("chatId", event.ChatID).
				Warn("Dropping branch event for slow subscriber")
		}
	}
	w.mu.Unlock()
}

// Unwatch removes one subscriber from a chat's watch. The fsnotify
// watcher is closed exactly once, when the last subscriber leaves.
// Unknown chats and subscribers are ignored.
func (w *BranchWatcher) Unwatch(chatID, subscriberID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.entries[chatID]
	if !ok {
		return
	}
	delete(entry.subscribers, subscriberID)
	if len(entry.subscribers) > 0 {
		return
	}
	w.teardown(entry)
	delete(w.entries, chatID)
}

// teardown releases an entry's resources. Caller holds w.mu.
func (w *BranchWatcher) teardown(entry *watchEntry) {
	if entry.timer != nil {
		entry.timer.Stop()
	}
	if err := entry.fw.Close(); err != nil {
		w.logger.WithError(err).WithField("chatId", entry.chatID).
			Warn("Failed to close fsnotify watcher")
	}
	w.logger.WithField("chatId", entry.chatID).Debug("Stopped watching checkout")
}

// Subscribers returns how many subscribers hold the watch for a chat.
// Zero means no watch is active.
func (w *BranchWatcher) Subscribers(chatID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry, ok := w.entries[chatID]; ok {
		return len(entry.subscribers)
	}
	return 0
}

// CurrentBranch returns the last branch observed for a chat, or nil when
// the chat is unwatched or its HEAD is detached.
func (w *BranchWatcher) CurrentBranch(chatID string) *string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry, ok := w.entries[chatID]; ok && entry.branch != nil {
		b := *entry.branch
		return &b
	}
	return nil
}

// Subscribe registers an event channel for a chat. The returned cancel
// function unregisters and closes the channel; calling it more than once
// is safe. Subscribing does not by itself start a watch.
func (w *BranchWatcher) Subscribe(chatID string) (<-chan BranchChangeEvent, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sub := &subscription{
		id: w.nextSub,
		ch: make(chan BranchChangeEvent, eventBuffer),
	}
	w.nextSub++
	w.subs[chatID] = append(w.subs[chatID], sub)

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.removeSubscription(chatID, sub.id)
	}
	return sub.ch, cancel
}

// removeSubscription unregisters and closes one subscription.
// Caller holds w.mu.
func (w *BranchWatcher) removeSubscription(chatID string, id int) {
	subs := w.subs[chatID]
	for i, sub := range subs {
		if sub.id != id {
			continue
		}
		w.subs[chatID] = append(subs[:i], subs[i+1:]...)
		if len(w.subs[chatID]) == 0 {
			delete(w.subs, chatID)
		}
		close(sub.ch)
		return
	}
}

// Close tears down all watches and closes all subscriber channels.
func (w *BranchWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	for chatID, entry := range w.entries {
		w.teardown(entry)
		delete(w.entries, chatID)
	}
	for chatID, subs := range w.subs {
		for _, sub := range subs {
			close(sub.ch)
		}
		delete(w.subs, chatID)
	}
	return nil
}

func branchesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func branchLabel(b *string) string {
	if b == nil {
		return ""
	}
	return *b
}
