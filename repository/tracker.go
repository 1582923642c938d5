package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theoremus-urban-solutions/siri-hub/storage"
)

// Tracker maintains the per-consumer pending-change sets of one
// repository. Ingestion appends changed keys to an in-memory buffer;
// a scheduled Commit drains the buffer into every active consumer's
// change set in the backing store. The buffer is double-buffered:
// ingestion keeps writing into a fresh buffer while Commit flushes the
// swapped-out one, so ingestion never blocks on a flush.
type Tracker struct {
	changes  storage.Map[string, []storage.Key]
	lastPoll storage.Map[string, time.Time]

	trackingPeriod time.Duration
	commitInterval time.Duration
	log            *logrus.Logger

	mu     sync.Mutex
	buffer map[storage.Key]struct{}
}

// NewTracker builds a tracker over the given bookkeeping maps.
func NewTracker(changes storage.Map[string, []storage.Key], lastPoll storage.Map[string, time.Time], trackingPeriod, commitInterval time.Duration, log *logrus.Logger) *Tracker {
	if log == nil {
		log = logrus.New()
	}
	return &Tracker{
		changes:        changes,
		lastPoll:       lastPoll,
		trackingPeriod: trackingPeriod,
		commitInterval: commitInterval,
		log:            log,
		buffer:         make(map[storage.Key]struct{}),
	}
}

// RecordChanges buffers keys changed by an ingestion batch. The keys
// reach consumers on the next Commit.
func (t *Tracker) RecordChanges(keys []storage.Key) {
	if len(keys) == 0 {
		return
	}
	t.mu.Lock()
	for _, k := range keys {
		t.buffer[k] = struct{}{}
	}
	t.mu.Unlock()
}

// PendingBuffered returns the number of keys awaiting the next commit.
func (t *Tracker) PendingBuffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buffer)
}

// Commit swaps the buffer out and appends its keys to the change set of
// every consumer with a live last-poll timestamp. Change sets whose
// consumer has gone stale are deleted instead of grown.
func (t *Tracker) Commit() error {
	t.mu.Lock()
	drained := t.buffer
	t.buffer = make(map[storage.Key]struct{})
	t.mu.Unlock()

	if len(drained) == 0 {
		return nil
	}

	fresh := make([]storage.Key, 0, len(drained))
	for k := range drained {
		fresh = append(fresh, k)
	}

	consumers, err := t.changes.Keys()
	if err != nil {
		t.restore(drained)
		return fmt.Errorf("listing tracked consumers: %w", err)
	}
	for _, consumerID := range consumers {
		alive, err := t.lastPoll.Has(consumerID)
		if err != nil {
			t.restore(drained)
			return fmt.Errorf("checking consumer liveness: %w", err)
		}
		if !alive {
			if _, err := t.changes.Delete(consumerID); err != nil {
				return fmt.Errorf("pruning stale consumer %s: %w", consumerID, err)
			}
			continue
		}
		existing, _, err := t.changes.Get(consumerID)
		if err != nil {
			t.restore(drained)
			return fmt.Errorf("reading change set for %s: %w", consumerID, err)
		}
		if err := t.changes.Set(consumerID, appendUnique(existing, fresh), t.trackingPeriod); err != nil {
			t.restore(drained)
			return fmt.Errorf("writing change set for %s: %w", consumerID, err)
		}
	}
	return nil
}

// restore puts drained keys back so a failed commit is retried on the
// next tick.
func (t *Tracker) restore(drained map[storage.Key]struct{}) {
	t.mu.Lock()
	for k := range drained {
		t.buffer[k] = struct{}{}
	}
	t.mu.Unlock()
}

// Run flushes the buffer on the commit interval until ctx is done, then
// performs a final flush so shutdown loses nothing.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.commitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := t.Commit(); err != nil {
				t.log.WithError(err).Warn("change-set commit failed, retrying next tick")
			}
		case <-ctx.Done():
			if err := t.Commit(); err != nil {
				t.log.WithError(err).Warn("final change-set commit failed")
			}
			return ctx.Err()
		}
	}
}

// IsTracked reports whether the consumer has change-tracking state.
func (t *Tracker) IsTracked(consumerID string) (bool, error) {
	return t.changes.Has(consumerID)
}

// Changes returns the consumer's pending change set.
func (t *Tracker) Changes(consumerID string) ([]storage.Key, error) {
	keys, _, err := t.changes.Get(consumerID)
	return keys, err
}

// SetChanges replaces the consumer's change set and refreshes both its
// TTL and the last-poll timestamp.
func (t *Tracker) SetChanges(consumerID string, keys []storage.Key, now time.Time) error {
	if err := t.changes.Set(consumerID, keys, t.trackingPeriod); err != nil {
		return fmt.Errorf("writing change set for %s: %w", consumerID, err)
	}
	return t.MarkPolled(consumerID, now)
}

// MarkPolled refreshes the consumer's last-poll timestamp.
func (t *Tracker) MarkPolled(consumerID string, now time.Time) error {
	if err := t.lastPoll.Set(consumerID, now, t.trackingPeriod); err != nil {
		return fmt.Errorf("writing last-poll timestamp for %s: %w", consumerID, err)
	}
	return nil
}

func appendUnique(existing, fresh []storage.Key) []storage.Key {
	seen := make(map[storage.Key]struct{}, len(existing))
	for _, k := range existing {
		seen[k] = struct{}{}
	}
	for _, k := range fresh {
		if _, dup := seen[k]; !dup {
			existing = append(existing, k)
			seen[k] = struct{}{}
		}
	}
	return existing
}
