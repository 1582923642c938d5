package siri

import "time"

// VehicleActivity is a single VM element: the position and progress of one
// monitored vehicle as reported by a producer.
type VehicleActivity struct {
	RecordedAtTime          *time.Time              `json:"RecordedAtTime,omitempty" xml:"RecordedAtTime,omitempty"`
	ValidUntilTime          *time.Time              `json:"ValidUntilTime,omitempty" xml:"ValidUntilTime,omitempty"`
	ProgressBetweenStops    *ProgressBetweenStops   `json:"ProgressBetweenStops,omitempty" xml:"ProgressBetweenStops,omitempty"`
	MonitoredVehicleJourney MonitoredVehicleJourney `json:"MonitoredVehicleJourney" xml:"MonitoredVehicleJourney"`
}

// MonitoredVehicleJourney identifies the journey a vehicle is serving and
// carries its live location.
type MonitoredVehicleJourney struct {
	LineRef                 string                   `json:"LineRef,omitempty" xml:"LineRef,omitempty"`
	DirectionRef            string                   `json:"DirectionRef,omitempty" xml:"DirectionRef,omitempty"`
	FramedVehicleJourneyRef *FramedVehicleJourneyRef `json:"FramedVehicleJourneyRef,omitempty" xml:"FramedVehicleJourneyRef,omitempty"`
	OperatorRef             string                   `json:"OperatorRef,omitempty" xml:"OperatorRef,omitempty"`
	OriginRef               string                   `json:"OriginRef,omitempty" xml:"OriginRef,omitempty"`
	DestinationRef          string                   `json:"DestinationRef,omitempty" xml:"DestinationRef,omitempty"`
	Monitored               bool                     `json:"Monitored" xml:"Monitored"`
	DataSource              string                   `json:"DataSource,omitempty" xml:"DataSource,omitempty"`
	VehicleLocation         *VehicleLocation         `json:"VehicleLocation,omitempty" xml:"VehicleLocation,omitempty"`
	Bearing                 *float64                 `json:"Bearing,omitempty" xml:"Bearing,omitempty"`
	Delay                   string                   `json:"Delay,omitempty" xml:"Delay,omitempty"`
	VehicleRef              string                   `json:"VehicleRef,omitempty" xml:"VehicleRef,omitempty"`
}

// VehicleLocation is a WGS84 position.
type VehicleLocation struct {
	Longitude float64 `json:"Longitude" xml:"Longitude"`
	Latitude  float64 `json:"Latitude" xml:"Latitude"`
}

// ProgressBetweenStops describes how far along the current link the
// vehicle has travelled.
type ProgressBetweenStops struct {
	LinkDistance float64 `json:"LinkDistance,omitempty" xml:"LinkDistance,omitempty"`
	Percentage   float64 `json:"Percentage,omitempty" xml:"Percentage,omitempty"`
}

// HasValidLocation reports whether the activity carries a usable position.
// A missing location or one pinned to (0, 0) is producer noise, not data.
func (a VehicleActivity) HasValidLocation() bool {
	loc := a.MonitoredVehicleJourney.VehicleLocation
	if loc == nil {
		return false
	}
	return loc.Longitude != 0 && loc.Latitude != 0
}

// IsMeaningful reports whether the activity identifies a journey well
// enough to be worth serving. Activities with neither line, direction nor
// journey reference cannot be matched to anything.
func (a VehicleActivity) IsMeaningful() bool {
	mvj := a.MonitoredVehicleJourney
	return mvj.LineRef != "" || mvj.DirectionRef != "" || mvj.FramedVehicleJourneyRef != nil
}
