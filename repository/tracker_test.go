package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/siri-hub/storage"
)

func newTestTracker(trackingPeriod time.Duration) (*Tracker, storage.Map[string, []storage.Key], storage.Map[string, time.Time]) {
	changes := storage.NewMemoryMap[string, []storage.Key]()
	lastPoll := storage.NewMemoryMap[string, time.Time]()
	return NewTracker(changes, lastPoll, trackingPeriod, 50*time.Millisecond, nil), changes, lastPoll
}

func TestTrackerCommitAppendsToActiveConsumers(t *testing.T) {
	tracker, changes, _ := newTestTracker(time.Hour)
	require.NoError(t, tracker.SetChanges("consumer-1", nil, time.Now()))

	k1 := storage.NewKey("TST", "a")
	k2 := storage.NewKey("TST", "b")
	tracker.RecordChanges([]storage.Key{k1, k2})
	assert.Equal(t, 2, tracker.PendingBuffered())

	require.NoError(t, tracker.Commit())
	assert.Zero(t, tracker.PendingBuffered())

	pending, _, err := changes.Get("consumer-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []storage.Key{k1, k2}, pending)
}

func TestTrackerCommitDeduplicates(t *testing.T) {
	tracker, changes, _ := newTestTracker(time.Hour)
	require.NoError(t, tracker.SetChanges("consumer-1", nil, time.Now()))

	k := storage.NewKey("TST", "a")
	tracker.RecordChanges([]storage.Key{k})
	require.NoError(t, tracker.Commit())
	tracker.RecordChanges([]storage.Key{k})
	require.NoError(t, tracker.Commit())

	pending, _, err := changes.Get("consumer-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestTrackerPrunesStaleConsumers(t *testing.T) {
	tracker, changes, lastPoll := newTestTracker(time.Hour)
	require.NoError(t, tracker.SetChanges("stale", nil, time.Now()))
	_, err := lastPoll.Delete("stale")
	require.NoError(t, err)

	tracker.RecordChanges([]storage.Key{storage.NewKey("TST", "a")})
	require.NoError(t, tracker.Commit())

	tracked, err := changes.Has("stale")
	require.NoError(t, err)
	assert.False(t, tracked, "change set of a stale consumer is deleted, not grown")
}

func TestTrackerEmptyCommitIsNoop(t *testing.T) {
	tracker, _, _ := newTestTracker(time.Hour)
	require.NoError(t, tracker.Commit())
}

func TestTrackerRunFlushesOnShutdown(t *testing.T) {
	tracker, changes, _ := newTestTracker(time.Hour)
	require.NoError(t, tracker.SetChanges("consumer-1", nil, time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	// Buffer a key and cancel before the first tick can fire.
	tracker.RecordChanges([]storage.Key{storage.NewKey("TST", "a")})
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}

	pending, _, err := changes.Get("consumer-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1, "shutdown flush must drain the buffer")
}
