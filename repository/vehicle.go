package repository

import (
	"errors"
	"time"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/storage"
)

// maxVehicleValidity caps how far into the future a producer-supplied
// ValidUntilTime is honoured; anything beyond is a clock or format
// error on the producer side.
const maxVehicleValidity = 365 * 24 * time.Hour

// VehicleRepository stores vehicle monitoring activities keyed by
// dataset and vehicle reference.
type VehicleRepository struct {
	*Repository[siri.VehicleActivity]
}

// NewVehicleRepository builds the VM repository.
func NewVehicleRepository(maps Maps[siri.VehicleActivity], opts Options) *VehicleRepository {
	grace := opts.GracePeriod
	strategy := Strategy[siri.VehicleActivity]{
		Prefilter:   vehiclePrefilter,
		DeriveKey:   vehicleKey,
		Normalize:   normalizeVehicle,
		AcceptOrder: vehicleOrder,
		Expiry: func(a siri.VehicleActivity, now time.Time) time.Duration {
			return vehicleExpiry(a, now, grace)
		},
		Less: func(a, b siri.VehicleActivity) bool {
			return timeBefore(a.RecordedAtTime, b.RecordedAtTime)
		},
	}
	return &VehicleRepository{New("VM", strategy, maps, opts)}
}

func vehiclePrefilter(a siri.VehicleActivity) error {
	if a.MonitoredVehicleJourney.VehicleRef == "" {
		return errors.New("vehicle activity without vehicle reference")
	}
	if !a.HasValidLocation() {
		return errors.New("vehicle activity without valid location")
	}
	if !a.IsMeaningful() {
		return errors.New("vehicle activity without line, direction or journey reference")
	}
	return nil
}

func vehicleKey(datasetID string, a siri.VehicleActivity) (storage.Key, error) {
	mvj := a.MonitoredVehicleJourney
	if mvj.VehicleRef == "" {
		return storage.Key{}, errors.New("missing vehicle reference")
	}
	return storage.NewLineKey(datasetID, mvj.LineRef, mvj.VehicleRef), nil
}

// normalizeVehicle clears the timestamps that change on every update
// cycle so the digest only reflects real state change.
func normalizeVehicle(a siri.VehicleActivity) siri.VehicleActivity {
	a.RecordedAtTime = nil
	a.ValidUntilTime = nil
	return a
}

func vehicleOrder(existing, candidate siri.VehicleActivity) bool {
	return timestampAccepts(existing.RecordedAtTime, candidate.RecordedAtTime)
}

// vehicleExpiry keeps the activity until ValidUntilTime plus grace,
// clamped to one year. Without a ValidUntilTime the grace period alone
// applies.
func vehicleExpiry(a siri.VehicleActivity, now time.Time, grace time.Duration) time.Duration {
	if a.ValidUntilTime == nil {
		return grace
	}
	validUntil := *a.ValidUntilTime
	if validUntil.After(now.Add(maxVehicleValidity)) {
		validUntil = now.Add(maxVehicleValidity)
	}
	return validUntil.Sub(now) + grace
}

// timestampAccepts implements the last-write-wins rule: a candidate is
// accepted when no existing ordering timestamp exists, or when its own
// timestamp is at or after the existing one.
func timestampAccepts(existing, candidate *time.Time) bool {
	if existing == nil {
		return true
	}
	if candidate == nil {
		return false
	}
	return !candidate.Before(*existing)
}

func timeBefore(a, b *time.Time) bool {
	if a == nil || b == nil {
		return b != nil
	}
	return a.Before(*b)
}
