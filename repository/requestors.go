package repository

import (
	"fmt"
	"time"

	"github.com/theoremus-urban-solutions/siri-hub/storage"
)

// pollHistorySize caps the per-requestor poll-time ring buffer.
const pollHistorySize = 5

// RequestorStats is the observational record kept per polling consumer.
type RequestorStats struct {
	DatasetID  string      `json:"datasetId,omitempty"`
	ClientName string      `json:"clientName,omitempty"`
	PollTimes  []time.Time `json:"pollTimes"`
}

// RequestorRegistry tracks which consumers poll a repository and when.
// Entries expire with the caller-supplied tracking period, so a consumer
// that stops polling disappears on its own.
type RequestorRegistry struct {
	stats storage.Map[string, RequestorStats]
}

// NewRequestorRegistry builds a registry over the given map.
func NewRequestorRegistry(stats storage.Map[string, RequestorStats]) *RequestorRegistry {
	return &RequestorRegistry{stats: stats}
}

// Record notes a poll by consumerID at time now, keeping only the most
// recent poll times. The entry expires after ttl.
func (r *RequestorRegistry) Record(consumerID, datasetID, clientName string, now time.Time, ttl time.Duration) error {
	s, _, err := r.stats.Get(consumerID)
	if err != nil {
		return fmt.Errorf("reading requestor stats: %w", err)
	}
	s.DatasetID = datasetID
	if clientName != "" {
		s.ClientName = clientName
	}
	s.PollTimes = append(s.PollTimes, now)
	if len(s.PollTimes) > pollHistorySize {
		s.PollTimes = s.PollTimes[len(s.PollTimes)-pollHistorySize:]
	}
	if err := r.stats.Set(consumerID, s, ttl); err != nil {
		return fmt.Errorf("storing requestor stats: %w", err)
	}
	return nil
}

// Snapshot returns the stats of every tracked consumer.
func (r *RequestorRegistry) Snapshot() (map[string]RequestorStats, error) {
	keys, err := r.stats.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing requestors: %w", err)
	}
	return r.stats.GetAll(keys)
}
