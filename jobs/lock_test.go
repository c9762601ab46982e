package jobs

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfwatch/shelfwatch/internal/inventory"
	"github.com/shelfwatch/shelfwatch/internal/platform/db"
	"github.com/shelfwatch/shelfwatch/internal/shared"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// blockingFetcher parks the first fetch until release is closed.
type blockingFetcher struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	first string
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
}

func (f *blockingFetcher) Fetch(ctx context.Context, id string) (int, error) {
	first := false
	f.once.Do(func() {
		f.mu.Lock()
		f.first = id
		f.mu.Unlock()
		first = true
		close(f.started)
	})
	if first {
		<-f.release
	}
	return 1, nil
}

func (f *blockingFetcher) firstID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.first
}

func waitStarted(t *testing.T, f *blockingFetcher) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not start")
	}
}

func TestInventorySyncJobKeepsLockPastTTL(t *testing.T) {
	locker, mr := newLocker(t)
	key := shared.JobLockKey(JobInventory)
	store := &memoryInventory{counts: map[string]inventory.Count{"A": inventory.KnownCount(2)}}
	fetcher := newBlockingFetcher()

	job := NewInventorySyncJob(Runtime{
		Pool:        &stubPool{},
		Locker:      locker,
		Logger:      testLogger(),
		LockRefresh: 5 * time.Millisecond,
	}, fetcher, inventory.RunnerConfig{})
	job.newStore = func(db.Session) inventory.Store { return store }

	done := make(chan error, 1)
	go func() {
		_, err := job.Run(context.Background())
		done <- err
	}()
	waitStarted(t, fetcher)

	// Three steps of 40s add up to twice the one minute TTL.
	for range 3 {
		mr.FastForward(40 * time.Second)
		require.Eventually(t, func() bool {
			return mr.TTL(key) > 30*time.Second
		}, time.Second, time.Millisecond)
	}
	_, err := locker.Acquire(context.Background(), JobInventory)
	require.ErrorIs(t, err, shared.ErrJobLocked)

	close(fetcher.release)
	require.NoError(t, <-done)
	require.Len(t, store.checkouts, 1)
	require.False(t, mr.Exists(key))
}

func TestInventorySyncJobStopsWhenLockLost(t *testing.T) {
	locker, mr := newLocker(t)
	key := shared.JobLockKey(JobInventory)
	store := &memoryInventory{counts: map[string]inventory.Count{
		"A": inventory.KnownCount(2),
		"B": inventory.KnownCount(2),
	}}
	fetcher := newBlockingFetcher()
	logs := &syncBuffer{}

	job := NewInventorySyncJob(Runtime{
		Pool:        &stubPool{},
		Locker:      locker,
		Logger:      slog.New(slog.NewTextHandler(logs, nil)),
		LockRefresh: time.Millisecond,
	}, fetcher, inventory.RunnerConfig{BatchSize: 1})
	job.newStore = func(db.Session) inventory.Store { return store }

	done := make(chan error, 1)
	go func() {
		_, err := job.Run(context.Background())
		done <- err
	}()
	waitStarted(t, fetcher)

	require.NoError(t, mr.Set(key, "other-run"))
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "run lock lost")
	}, time.Second, time.Millisecond)
	close(fetcher.release)

	err := <-done
	require.ErrorIs(t, err, shared.ErrLockLost)
	require.ErrorIs(t, err, context.Canceled)

	// The started batch commits; the next one never runs.
	first := fetcher.firstID()
	other := "A"
	if first == "A" {
		other = "B"
	}
	require.Equal(t, inventory.KnownCount(1), store.counts[first])
	require.Equal(t, inventory.KnownCount(2), store.counts[other])

	got, err := mr.Get(key)
	require.NoError(t, err)
	require.Equal(t, "other-run", got)
}
