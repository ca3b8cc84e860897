package gitexec

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	dir := t.TempDir()

	var mu sync.Mutex
	var order []int
	var running int
	var maxRunning int

	const n = 20
	var wg sync.WaitGroup
	release := make(chan struct{})

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Enqueue(context.Background(), dir, fmt.Sprintf("op-%d", i), func(ctx context.Context) error {
				if i == 0 {
					// Hold the head of the queue until every operation has
					// taken its slot, so later submissions pile up behind it.
					<-release
				}
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				order = append(order, i)
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
		// The slot is taken synchronously inside Enqueue before any waiting,
		// so submission order is fixed once Pending reflects this operation.
		require.Eventually(t, func() bool { return q.Pending(dir) == i+1 }, time.Second, 100*time.Microsecond)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, 1, maxRunning, "operations on one path must never overlap")
	require.Len(t, order, n)
	for i, got := range order {
		assert.Equal(t, i, got, "operations must run in submission order")
	}
}

func TestEnqueueDistinctPathsRunConcurrently(t *testing.T) {
	q := NewQueue()
	dirA := t.TempDir()
	dirB := t.TempDir()

	aStarted := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = q.Enqueue(context.Background(), dirA, "block-a", func(ctx context.Context) error {
			close(aStarted)
			<-release
			return nil
		})
	}()

	<-aStarted

	// An operation on a different path must not be serialized behind A.
	done := make(chan error, 1)
	go func() {
		done <- q.Enqueue(context.Background(), dirB, "b", func(ctx context.Context) error {
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("operation on a distinct path was falsely serialized")
	}

	close(release)
}

func TestEnqueueFailureIsolation(t *testing.T) {
	q := NewQueue()
	dir := t.TempDir()

	boom := fmt.Errorf("boom")

	err := q.Enqueue(context.Background(), dir, "fails", func(ctx context.Context) error {
		return boom
	})
	assert.Equal(t, boom, err, "caller observes its own rejection")

	ran := false
	err = q.Enqueue(context.Background(), dir, "succeeds", func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, ran, "a failure must not wedge the queue")
}

func TestEnqueueFailureDoesNotBlockChainedSuccessor(t *testing.T) {
	q := NewQueue()
	dir := t.TempDir()

	first := make(chan struct{})
	var secondRan bool

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = q.Enqueue(context.Background(), dir, "fails", func(ctx context.Context) error {
			close(first)
			return fmt.Errorf("boom")
		})
	}()
	<-first

	go func() {
		defer wg.Done()
		err := q.Enqueue(context.Background(), dir, "after-failure", func(ctx context.Context) error {
			secondRan = true
			return nil
		})
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.True(t, secondRan)
}

func TestEnqueueResultPropagation(t *testing.T) {
	q := NewQueue()
	dir := t.TempDir()

	got, err := Enqueue(q, context.Background(), dir, "value", func(ctx context.Context) (string, error) {
		return "abc123", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)

	_, err = Enqueue(q, context.Background(), dir, "error", func(ctx context.Context) (string, error) {
		return "", fmt.Errorf("nope")
	})
	assert.EqualError(t, err, "nope")
}

func TestEnqueueCancelledContextSkipsOp(t *testing.T) {
	q := NewQueue()
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := q.Enqueue(ctx, dir, "cancelled", func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)

	// The slot settled, so the queue is still usable.
	err = q.Enqueue(context.Background(), dir, "next", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestQueueEntryCleanup(t *testing.T) {
	q := NewQueue()
	dir := t.TempDir()

	err := q.Enqueue(context.Background(), dir, "only", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	q.mu.Lock()
	remaining := len(q.entries)
	q.mu.Unlock()
	assert.Equal(t, 0, remaining, "settled tail should remove its entry")
	assert.Equal(t, 0, q.Pending(dir))
}

func TestEnqueuePathNormalization(t *testing.T) {
	q := NewQueue()
	dir := t.TempDir()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = q.Enqueue(context.Background(), dir, "hold", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// A differently spelled path for the same directory must share the key.
	assert.Equal(t, 1, q.Pending(dir+"/"))
	close(release)
}
