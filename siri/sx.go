package siri

import "time"

// Situation progress states. Draft situations are never stored.
const (
	ProgressDraft     = "draft"
	ProgressOpen      = "open"
	ProgressPublished = "published"
	ProgressClosing   = "closing"
	ProgressClosed    = "closed"
)

// PtSituationElement is a single SX element: one versioned situation
// message published by a participant.
type PtSituationElement struct {
	CreationTime    *time.Time              `json:"CreationTime,omitempty" xml:"CreationTime,omitempty"`
	ParticipantRef  string                  `json:"ParticipantRef,omitempty" xml:"ParticipantRef,omitempty"`
	SituationNumber string                  `json:"SituationNumber,omitempty" xml:"SituationNumber,omitempty"`
	Version         *int                    `json:"Version,omitempty" xml:"Version,omitempty"`
	Source          *SituationSource        `json:"Source,omitempty" xml:"Source,omitempty"`
	VersionedAtTime *time.Time              `json:"VersionedAtTime,omitempty" xml:"VersionedAtTime,omitempty"`
	Progress        string                  `json:"Progress,omitempty" xml:"Progress,omitempty"`
	ValidityPeriods []ValidityPeriod        `json:"ValidityPeriod,omitempty" xml:"ValidityPeriod,omitempty"`
	Severity        string                  `json:"Severity,omitempty" xml:"Severity,omitempty"`
	ReportType      string                  `json:"ReportType,omitempty" xml:"ReportType,omitempty"`
	Summary         []NaturalLanguageString `json:"Summary,omitempty" xml:"Summary,omitempty"`
	Description     []NaturalLanguageString `json:"Description,omitempty" xml:"Description,omitempty"`
	Affects         *Affects                `json:"Affects,omitempty" xml:"Affects,omitempty"`
}

// SituationSource names the system the situation originated from.
type SituationSource struct {
	SourceType string `json:"SourceType,omitempty" xml:"SourceType,omitempty"`
}

// ValidityPeriod is a half-open time window the situation applies to.
// An absent EndTime means the window is open-ended.
type ValidityPeriod struct {
	StartTime *time.Time `json:"StartTime,omitempty" xml:"StartTime,omitempty"`
	EndTime   *time.Time `json:"EndTime,omitempty" xml:"EndTime,omitempty"`
}

// NaturalLanguageString is localized text.
type NaturalLanguageString struct {
	Lang string `json:"Lang,omitempty" xml:"lang,attr,omitempty"`
	Text string `json:"Text,omitempty" xml:",chardata"`
}

// Affects lists the network objects a situation applies to.
type Affects struct {
	Networks        []AffectedNetwork        `json:"Networks,omitempty" xml:"Networks>AffectedNetwork,omitempty"`
	StopPoints      []AffectedStop           `json:"StopPoints,omitempty" xml:"StopPoints>AffectedStopPoint,omitempty"`
	VehicleJourneys []AffectedVehicleJourney `json:"VehicleJourneys,omitempty" xml:"VehicleJourneys>AffectedVehicleJourney,omitempty"`
}

// AffectedNetwork scopes a situation to lines of a network.
type AffectedNetwork struct {
	NetworkRef string   `json:"NetworkRef,omitempty" xml:"NetworkRef,omitempty"`
	LineRefs   []string `json:"LineRefs,omitempty" xml:"AffectedLine>LineRef,omitempty"`
}

// AffectedStop scopes a situation to a stop point.
type AffectedStop struct {
	StopPointRef string `json:"StopPointRef,omitempty" xml:"StopPointRef,omitempty"`
}

// AffectedVehicleJourney scopes a situation to a vehicle journey.
type AffectedVehicleJourney struct {
	VehicleJourneyRef       string                   `json:"VehicleJourneyRef,omitempty" xml:"VehicleJourneyRef,omitempty"`
	FramedVehicleJourneyRef *FramedVehicleJourneyRef `json:"FramedVehicleJourneyRef,omitempty" xml:"FramedVehicleJourneyRef,omitempty"`
	LineRef                 string                   `json:"LineRef,omitempty" xml:"LineRef,omitempty"`
}

// VersionNumber returns the situation's version, or 0 when unset.
func (s PtSituationElement) VersionNumber() int {
	if s.Version == nil {
		return 0
	}
	return *s.Version
}

// IsDraft reports whether the situation is still a draft and should be
// ignored by the store.
func (s PtSituationElement) IsDraft() bool {
	return s.Progress == ProgressDraft
}

// LatestValidity returns the latest EndTime over all validity periods.
// Returns nil when no period carries an end time, which the situation
// store treats as unbounded and rejects.
func (s PtSituationElement) LatestValidity() *time.Time {
	var latest *time.Time
	for _, p := range s.ValidityPeriods {
		if p.EndTime == nil {
			continue
		}
		if latest == nil || p.EndTime.After(*latest) {
			latest = p.EndTime
		}
	}
	return latest
}
