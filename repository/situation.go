package repository

import (
	"errors"
	"time"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/storage"
)

// SituationRepository stores situation messages keyed by participant
// and situation number, ordered by their explicit integer version.
type SituationRepository struct {
	*Repository[siri.PtSituationElement]
}

// NewSituationRepository builds the SX repository.
func NewSituationRepository(maps Maps[siri.PtSituationElement], opts Options) *SituationRepository {
	grace := opts.GracePeriod
	strategy := Strategy[siri.PtSituationElement]{
		Prefilter:   situationPrefilter,
		DeriveKey:   situationKey,
		Normalize:   normalizeSituation,
		AcceptOrder: situationOrder,
		Expiry: func(s siri.PtSituationElement, now time.Time) time.Duration {
			return situationExpiry(s, now, grace)
		},
		Less: func(a, b siri.PtSituationElement) bool {
			return timeBefore(a.CreationTime, b.CreationTime)
		},
	}
	return &SituationRepository{New("SX", strategy, maps, opts)}
}

func situationPrefilter(s siri.PtSituationElement) error {
	if s.SituationNumber == "" {
		return errors.New("situation without situation number")
	}
	if s.IsDraft() {
		return errors.New("draft situation")
	}
	return nil
}

func situationKey(datasetID string, s siri.PtSituationElement) (storage.Key, error) {
	if s.SituationNumber == "" {
		return storage.Key{}, errors.New("missing situation number")
	}
	return storage.NewKey(datasetID, s.ParticipantRef+":"+s.SituationNumber), nil
}

func normalizeSituation(s siri.PtSituationElement) siri.PtSituationElement {
	s.CreationTime = nil
	s.VersionedAtTime = nil
	return s
}

// situationOrder implements version-based last-write-wins: a higher
// version always wins, an equal version replaces so corrected content
// can be resubmitted, a lower version is discarded even when its
// content differs.
func situationOrder(existing, candidate siri.PtSituationElement) bool {
	return candidate.VersionNumber() >= existing.VersionNumber()
}

// situationExpiry keeps the situation until the end of its latest
// validity period plus grace. Without a bounded validity the situation
// is rejected.
func situationExpiry(s siri.PtSituationElement, now time.Time, grace time.Duration) time.Duration {
	latest := s.LatestValidity()
	if latest == nil {
		return -1
	}
	return latest.Sub(now) + grace
}
