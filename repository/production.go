package repository

import (
	"errors"
	"time"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/storage"
)

// ProductionRepository stores production timetable deliveries keyed by
// their timetable version, ordered by response timestamp.
type ProductionRepository struct {
	*Repository[siri.ProductionTimetableDelivery]
}

// NewProductionRepository builds the PT repository.
func NewProductionRepository(maps Maps[siri.ProductionTimetableDelivery], opts Options) *ProductionRepository {
	grace := opts.GracePeriod
	strategy := Strategy[siri.ProductionTimetableDelivery]{
		DeriveKey:   productionKey,
		Normalize:   normalizeProduction,
		AcceptOrder: productionOrder,
		Expiry: func(t siri.ProductionTimetableDelivery, now time.Time) time.Duration {
			return productionExpiry(t, now, grace)
		},
		Less: func(a, b siri.ProductionTimetableDelivery) bool {
			return timeBefore(a.ResponseTimestamp, b.ResponseTimestamp)
		},
	}
	return &ProductionRepository{New("PT", strategy, maps, opts)}
}

func productionKey(datasetID string, t siri.ProductionTimetableDelivery) (storage.Key, error) {
	if t.Version == "" {
		return storage.Key{}, errors.New("production timetable without version")
	}
	return storage.NewKey(datasetID, t.Version), nil
}

func normalizeProduction(t siri.ProductionTimetableDelivery) siri.ProductionTimetableDelivery {
	t.ResponseTimestamp = nil
	return t
}

func productionOrder(existing, candidate siri.ProductionTimetableDelivery) bool {
	return timestampAccepts(existing.ResponseTimestamp, candidate.ResponseTimestamp)
}

// productionExpiry keeps the timetable until ValidUntil plus grace;
// without a ValidUntil it is rejected.
func productionExpiry(t siri.ProductionTimetableDelivery, now time.Time, grace time.Duration) time.Duration {
	if t.ValidUntil == nil {
		return -1
	}
	return t.ValidUntil.Sub(now) + grace
}
