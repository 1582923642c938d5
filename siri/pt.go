package siri

import "time"

// ProductionTimetableDelivery is a single PT element: a planned timetable
// frame published ahead of the operating day.
type ProductionTimetableDelivery struct {
	ResponseTimestamp          *time.Time                   `json:"ResponseTimestamp,omitempty" xml:"ResponseTimestamp,omitempty"`
	ProducerRef                string                       `json:"ProducerRef,omitempty" xml:"ProducerRef,omitempty"`
	Version                    string                       `json:"version,omitempty" xml:"version,attr,omitempty"`
	ValidUntil                 *time.Time                   `json:"ValidUntil,omitempty" xml:"ValidUntil,omitempty"`
	DatedTimetableVersionFrame []DatedTimetableVersionFrame `json:"DatedTimetableVersionFrame,omitempty" xml:"DatedTimetableVersionFrame,omitempty"`
}

// DatedTimetableVersionFrame groups the dated journeys of one line for
// one operating day.
type DatedTimetableVersionFrame struct {
	RecordedAtTime       *time.Time            `json:"RecordedAtTime,omitempty" xml:"RecordedAtTime,omitempty"`
	LineRef              string                `json:"LineRef,omitempty" xml:"LineRef,omitempty"`
	DirectionRef         string                `json:"DirectionRef,omitempty" xml:"DirectionRef,omitempty"`
	DatedVehicleJourneys []DatedVehicleJourney `json:"DatedVehicleJourney,omitempty" xml:"DatedVehicleJourney,omitempty"`
}

// DatedVehicleJourney is one planned journey in a PT frame.
type DatedVehicleJourney struct {
	DatedVehicleJourneyCode string      `json:"DatedVehicleJourneyCode,omitempty" xml:"DatedVehicleJourneyCode,omitempty"`
	DatedCalls              []DatedCall `json:"DatedCalls,omitempty" xml:"DatedCalls>DatedCall,omitempty"`
}

// DatedCall is one planned stop visit in a PT journey.
type DatedCall struct {
	StopPointRef       string     `json:"StopPointRef,omitempty" xml:"StopPointRef,omitempty"`
	Order              int        `json:"Order" xml:"Order"`
	AimedArrivalTime   *time.Time `json:"AimedArrivalTime,omitempty" xml:"AimedArrivalTime,omitempty"`
	AimedDepartureTime *time.Time `json:"AimedDepartureTime,omitempty" xml:"AimedDepartureTime,omitempty"`
}
