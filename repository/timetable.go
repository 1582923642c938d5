package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/storage"
)

// TimetableRepository stores estimated timetables. Beyond the generic
// behaviour it merges partial call-sequence updates and keeps two side
// maps for the preview-interval filter: the first aimed time per journey
// and the set of journeys with pattern changes, which are delivered
// regardless of the preview horizon.
type TimetableRepository struct {
	*Repository[siri.EstimatedVehicleJourney]

	startTimes     storage.Map[storage.Key, time.Time]
	patternChanges storage.Map[storage.Key, bool]
}

// NewTimetableRepository builds the ET repository. The side maps share
// the backing store of the entity map so clustered deployments see a
// consistent filter.
func NewTimetableRepository(maps Maps[siri.EstimatedVehicleJourney], startTimes storage.Map[storage.Key, time.Time], patternChanges storage.Map[storage.Key, bool], opts Options) *TimetableRepository {
	r := &TimetableRepository{startTimes: startTimes, patternChanges: patternChanges}
	grace := opts.GracePeriod
	strategy := Strategy[siri.EstimatedVehicleJourney]{
		Prefilter: timetablePrefilter,
		DeriveKey: timetableKey,
		Normalize: normalizeTimetable,
		AcceptOrder: func(existing, candidate siri.EstimatedVehicleJourney) bool {
			return timestampAccepts(existing.RecordedAtTime, candidate.RecordedAtTime)
		},
		Prepare: remapFutureRecordedCalls,
		Merge:   mergeJourney,
		Expiry: func(j siri.EstimatedVehicleJourney, now time.Time) time.Duration {
			return timetableExpiry(j, now, grace)
		},
		Admit: r.admit,
		Less: func(a, b siri.EstimatedVehicleJourney) bool {
			return timeBefore(a.FirstAimedTime(), b.FirstAimedTime())
		},
		OnStored:  r.onStored,
		OnDeleted: r.onDeleted,
	}
	r.Repository = New("ET", strategy, maps, opts)
	return r
}

func timetablePrefilter(j siri.EstimatedVehicleJourney) error {
	if len(j.RecordedCalls) == 0 && len(j.EstimatedCalls) == 0 && !j.IsCancelled() {
		return errors.New("journey without calls")
	}
	return nil
}

// timetableKey derives the journey identity, preferring the most stable
// reference available: the framed journey ref, then the extra-journey
// code, then a composite of operator, line, vehicle and direction.
func timetableKey(datasetID string, j siri.EstimatedVehicleJourney) (storage.Key, error) {
	line := j.LineRef
	if ref := j.FramedVehicleJourneyRef; ref != nil && ref.DatedVehicleJourneyRef != "" {
		return storage.NewLineKey(datasetID, line, ref.DataFrameRef+":"+ref.DatedVehicleJourneyRef), nil
	}
	if j.IsExtraJourney() && j.EstimatedVehicleJourneyCode != "" {
		return storage.NewLineKey(datasetID, line, "ExtraJourney:"+j.EstimatedVehicleJourneyCode), nil
	}
	if j.DatedVehicleJourneyRef != "" {
		return storage.NewLineKey(datasetID, line, j.DatedVehicleJourneyRef), nil
	}
	if j.OperatorRef == "" && line == "" && j.VehicleRef == "" {
		return storage.Key{}, errors.New("journey without usable identity")
	}
	id := fmt.Sprintf("%s:%s:%s:%s", j.OperatorRef, line, j.VehicleRef, j.DirectionRef)
	return storage.NewLineKey(datasetID, line, id), nil
}

func normalizeTimetable(j siri.EstimatedVehicleJourney) siri.EstimatedVehicleJourney {
	j.RecordedAtTime = nil
	return j
}

// timetableExpiry keeps the journey until its last call time plus grace.
// A journey with no call times cannot be routed to an expiry and is
// rejected.
func timetableExpiry(j siri.EstimatedVehicleJourney, now time.Time, grace time.Duration) time.Duration {
	latest := j.LatestCallTime()
	if latest == nil {
		return -1
	}
	return latest.Sub(now) + grace
}

func (r *TimetableRepository) onStored(key storage.Key, j siri.EstimatedVehicleJourney, ttl time.Duration) {
	if start := j.FirstAimedTime(); start != nil {
		if err := r.startTimes.Set(key, *start, ttl); err != nil {
			r.log.WithError(err).Warn("storing journey start time")
		}
	}
	if j.HasPatternChanges() {
		if err := r.patternChanges.Set(key, true, ttl); err != nil {
			r.log.WithError(err).Warn("storing pattern-change marker")
		}
	}
}

func (r *TimetableRepository) onDeleted(key storage.Key) {
	if _, err := r.startTimes.Delete(key); err != nil {
		r.log.WithError(err).Warn("deleting journey start time")
	}
	if _, err := r.patternChanges.Delete(key); err != nil {
		r.log.WithError(err).Warn("deleting pattern-change marker")
	}
}

// admit implements the preview-interval rule: a journey is delivered
// when it starts within the horizon, or unconditionally when it carries
// pattern changes.
func (r *TimetableRepository) admit(key storage.Key, previewInterval time.Duration, now time.Time) bool {
	if changed, ok, err := r.patternChanges.Get(key); err == nil && ok && changed {
		return true
	}
	start, ok, err := r.startTimes.Get(key)
	if err != nil || !ok {
		// No recorded start time, deliver rather than hide.
		return true
	}
	return !start.After(now.Add(previewInterval))
}

// remapFutureRecordedCalls re-partitions a journey submitted with only
// recorded calls but future call times: producers that never flag
// estimated calls would otherwise mark the whole journey as already
// driven. Cancelled journeys are left alone.
func remapFutureRecordedCalls(j siri.EstimatedVehicleJourney, now time.Time) siri.EstimatedVehicleJourney {
	if j.IsCancelled() || len(j.EstimatedCalls) > 0 || len(j.RecordedCalls) == 0 {
		return j
	}
	latest := j.LatestCallTime()
	if latest == nil || !latest.After(now) {
		return j
	}
	var recorded []siri.RecordedCall
	var estimated []siri.EstimatedCall
	for _, c := range j.RecordedCalls {
		t := lastCallTime(c)
		if t != nil && t.After(now) {
			estimated = append(estimated, recordedToEstimated(c))
			continue
		}
		recorded = append(recorded, c)
	}
	j.RecordedCalls = recorded
	j.EstimatedCalls = estimated
	return j
}

func lastCallTime(c siri.RecordedCall) *time.Time {
	var latest *time.Time
	for _, t := range []*time.Time{c.AimedArrivalTime, c.ActualArrivalTime, c.AimedDepartureTime, c.ActualDepartureTime} {
		if t != nil {
			latest = t
		}
	}
	return latest
}

// recordedToEstimated undoes a premature recorded classification,
// demoting actual times back to expected ones.
func recordedToEstimated(c siri.RecordedCall) siri.EstimatedCall {
	ec := siri.EstimatedCall{
		StopPointRef:          c.StopPointRef,
		Order:                 c.Order,
		StopPointName:         c.StopPointName,
		Cancellation:          c.Cancellation,
		ExtraCall:             c.ExtraCall,
		AimedArrivalTime:      c.AimedArrivalTime,
		ArrivalPlatformName:   c.ArrivalPlatformName,
		AimedDepartureTime:    c.AimedDepartureTime,
		DeparturePlatformName: c.DeparturePlatformName,
	}
	if c.ActualArrivalTime != nil {
		ec.ExpectedArrivalTime = c.ActualArrivalTime
	} else {
		ec.ExpectedArrivalTime = c.ExpectedArrivalTime
	}
	if c.ActualDepartureTime != nil {
		ec.ExpectedDepartureTime = c.ActualDepartureTime
	} else {
		ec.ExpectedDepartureTime = c.ExpectedDepartureTime
	}
	return ec
}
