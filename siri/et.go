package siri

import (
	"time"

	transitTypes "github.com/theoremus-urban-solutions/transit-types/siri"
)

// FramedVehicleJourneyRef uniquely identifies a vehicle journey within an
// operating day.
type FramedVehicleJourneyRef = transitTypes.FramedVehicleJourneyRef

// EstimatedVehicleJourney is a single ET element: the live call sequence
// of one dated vehicle journey.
type EstimatedVehicleJourney struct {
	RecordedAtTime              *time.Time               `json:"RecordedAtTime,omitempty" xml:"RecordedAtTime,omitempty"`
	LineRef                     string                   `json:"LineRef,omitempty" xml:"LineRef,omitempty"`
	DirectionRef                string                   `json:"DirectionRef,omitempty" xml:"DirectionRef,omitempty"`
	FramedVehicleJourneyRef     *FramedVehicleJourneyRef `json:"FramedVehicleJourneyRef,omitempty" xml:"FramedVehicleJourneyRef,omitempty"`
	DatedVehicleJourneyRef      string                   `json:"DatedVehicleJourneyRef,omitempty" xml:"DatedVehicleJourneyRef,omitempty"`
	EstimatedVehicleJourneyCode string                   `json:"EstimatedVehicleJourneyCode,omitempty" xml:"EstimatedVehicleJourneyCode,omitempty"`
	ExtraJourney                *bool                    `json:"ExtraJourney,omitempty" xml:"ExtraJourney,omitempty"`
	Cancellation                *bool                    `json:"Cancellation,omitempty" xml:"Cancellation,omitempty"`
	OperatorRef                 string                   `json:"OperatorRef,omitempty" xml:"OperatorRef,omitempty"`
	VehicleRef                  string                   `json:"VehicleRef,omitempty" xml:"VehicleRef,omitempty"`
	DataSource                  string                   `json:"DataSource,omitempty" xml:"DataSource,omitempty"`
	Monitored                   bool                     `json:"Monitored" xml:"Monitored"`
	IsCompleteStopSequence      bool                     `json:"IsCompleteStopSequence" xml:"IsCompleteStopSequence"`
	RecordedCalls               []RecordedCall           `json:"RecordedCalls,omitempty" xml:"RecordedCalls>RecordedCall,omitempty"`
	EstimatedCalls              []EstimatedCall          `json:"EstimatedCalls,omitempty" xml:"EstimatedCalls>EstimatedCall,omitempty"`
}

// RecordedCall is a stop visit the vehicle has already made.
type RecordedCall struct {
	StopPointRef        string     `json:"StopPointRef,omitempty" xml:"StopPointRef,omitempty"`
	Order               int        `json:"Order" xml:"Order"`
	StopPointName       string     `json:"StopPointName,omitempty" xml:"StopPointName,omitempty"`
	Cancellation        *bool      `json:"Cancellation,omitempty" xml:"Cancellation,omitempty"`
	ExtraCall           *bool      `json:"ExtraCall,omitempty" xml:"ExtraCall,omitempty"`
	AimedArrivalTime    *time.Time `json:"AimedArrivalTime,omitempty" xml:"AimedArrivalTime,omitempty"`
	ExpectedArrivalTime *time.Time `json:"ExpectedArrivalTime,omitempty" xml:"ExpectedArrivalTime,omitempty"`
	ActualArrivalTime   *time.Time `json:"ActualArrivalTime,omitempty" xml:"ActualArrivalTime,omitempty"`
	ArrivalPlatformName string     `json:"ArrivalPlatformName,omitempty" xml:"ArrivalPlatformName,omitempty"`

	AimedDepartureTime    *time.Time `json:"AimedDepartureTime,omitempty" xml:"AimedDepartureTime,omitempty"`
	ExpectedDepartureTime *time.Time `json:"ExpectedDepartureTime,omitempty" xml:"ExpectedDepartureTime,omitempty"`
	ActualDepartureTime   *time.Time `json:"ActualDepartureTime,omitempty" xml:"ActualDepartureTime,omitempty"`
	DeparturePlatformName string     `json:"DeparturePlatformName,omitempty" xml:"DeparturePlatformName,omitempty"`
}

// EstimatedCall is a stop visit the vehicle has not yet completed.
type EstimatedCall struct {
	StopPointRef        string     `json:"StopPointRef,omitempty" xml:"StopPointRef,omitempty"`
	Order               int        `json:"Order" xml:"Order"`
	StopPointName       string     `json:"StopPointName,omitempty" xml:"StopPointName,omitempty"`
	Cancellation        *bool      `json:"Cancellation,omitempty" xml:"Cancellation,omitempty"`
	ExtraCall           *bool      `json:"ExtraCall,omitempty" xml:"ExtraCall,omitempty"`
	AimedArrivalTime    *time.Time `json:"AimedArrivalTime,omitempty" xml:"AimedArrivalTime,omitempty"`
	ExpectedArrivalTime *time.Time `json:"ExpectedArrivalTime,omitempty" xml:"ExpectedArrivalTime,omitempty"`
	ArrivalStatus       string     `json:"ArrivalStatus,omitempty" xml:"ArrivalStatus,omitempty"`
	ArrivalPlatformName string     `json:"ArrivalPlatformName,omitempty" xml:"ArrivalPlatformName,omitempty"`

	AimedDepartureTime    *time.Time `json:"AimedDepartureTime,omitempty" xml:"AimedDepartureTime,omitempty"`
	ExpectedDepartureTime *time.Time `json:"ExpectedDepartureTime,omitempty" xml:"ExpectedDepartureTime,omitempty"`
	DepartureStatus       string     `json:"DepartureStatus,omitempty" xml:"DepartureStatus,omitempty"`
	DeparturePlatformName string     `json:"DeparturePlatformName,omitempty" xml:"DeparturePlatformName,omitempty"`
}

// IsExtraJourney reports whether the journey is flagged as an extra
// (unplanned) journey.
func (j EstimatedVehicleJourney) IsExtraJourney() bool {
	return j.ExtraJourney != nil && *j.ExtraJourney
}

// IsCancelled reports whether the whole journey is cancelled.
func (j EstimatedVehicleJourney) IsCancelled() bool {
	return j.Cancellation != nil && *j.Cancellation
}

// HasPatternChanges reports whether the journey deviates from its planned
// pattern: cancelled outright, running as an extra journey, or with at
// least one cancelled call. Such journeys are served regardless of any
// preview-interval filter so consumers always learn about disruptions.
func (j EstimatedVehicleJourney) HasPatternChanges() bool {
	if j.IsCancelled() || j.IsExtraJourney() {
		return true
	}
	for _, c := range j.EstimatedCalls {
		if c.Cancellation != nil && *c.Cancellation {
			return true
		}
	}
	for _, c := range j.RecordedCalls {
		if c.Cancellation != nil && *c.Cancellation {
			return true
		}
	}
	return false
}

// FirstAimedTime returns the aimed departure of the first call of the
// journey, falling back through aimed arrival and the expected times.
// Returns nil when the journey has no calls.
func (j EstimatedVehicleJourney) FirstAimedTime() *time.Time {
	if len(j.RecordedCalls) > 0 {
		c := j.RecordedCalls[0]
		return firstNonNil(c.AimedDepartureTime, c.AimedArrivalTime, c.ActualDepartureTime, c.ActualArrivalTime)
	}
	if len(j.EstimatedCalls) > 0 {
		c := j.EstimatedCalls[0]
		return firstNonNil(c.AimedDepartureTime, c.AimedArrivalTime, c.ExpectedDepartureTime, c.ExpectedArrivalTime)
	}
	return nil
}

// LatestCallTime returns the latest known time of the last call of the
// journey. Expected times override aimed ones, and departure overrides
// arrival, so the result is the moment the journey is truly over.
func (j EstimatedVehicleJourney) LatestCallTime() *time.Time {
	var latest *time.Time
	for _, c := range j.RecordedCalls {
		latest = lastNonNil(latest, c.AimedArrivalTime, c.ActualArrivalTime, c.AimedDepartureTime, c.ActualDepartureTime)
	}
	for _, c := range j.EstimatedCalls {
		latest = lastNonNil(latest, c.AimedArrivalTime, c.ExpectedArrivalTime, c.AimedDepartureTime, c.ExpectedDepartureTime)
	}
	return latest
}

// ToRecordedCall converts an estimated call into its recorded form,
// promoting expected times to actual times.
func (c EstimatedCall) ToRecordedCall() RecordedCall {
	rc := RecordedCall{
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
	if c.ExpectedArrivalTime != nil {
		rc.ActualArrivalTime = c.ExpectedArrivalTime
	}
	if c.ExpectedDepartureTime != nil {
		rc.ActualDepartureTime = c.ExpectedDepartureTime
	}
	return rc
}

func firstNonNil(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil {
			return t
		}
	}
	return nil
}

// lastNonNil returns the last non-nil time in override order: each later
// argument replaces the earlier ones when present.
func lastNonNil(ts ...*time.Time) *time.Time {
	var out *time.Time
	for _, t := range ts {
		if t != nil {
			out = t
		}
	}
	return out
}
