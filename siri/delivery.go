package siri

import "encoding/xml"

// SiriResponse is the top-level SIRI response structure
type SiriResponse struct {
	Siri SiriServiceDelivery `json:"Siri" xml:"Siri"`
}

// SiriServiceDelivery wraps the ServiceDelivery element. The XMLName
// makes the inner struct marshal as the <Siri> document root.
type SiriServiceDelivery struct {
	XMLName         xml.Name        `json:"-" xml:"Siri"`
	ServiceDelivery ServiceDelivery `json:"ServiceDelivery" xml:"ServiceDelivery"`
}

// ServiceDelivery contains all SIRI delivery types. At most one of the
// per-kind delivery slices is populated per response.
type ServiceDelivery struct {
	ResponseTimestamp           string                        `json:"ResponseTimestamp" xml:"ResponseTimestamp"`
	ProducerRef                 string                        `json:"ProducerRef,omitempty" xml:"ProducerRef,omitempty"`
	RequestorRef                string                        `json:"RequestorRef,omitempty" xml:"RequestorRef,omitempty"`
	MoreData                    bool                          `json:"MoreData" xml:"MoreData"`
	VehicleMonitoringDelivery   []VehicleMonitoringDelivery   `json:"VehicleMonitoringDelivery,omitempty" xml:"VehicleMonitoringDelivery,omitempty"`
	EstimatedTimetableDelivery  []EstimatedTimetableDelivery  `json:"EstimatedTimetableDelivery,omitempty" xml:"EstimatedTimetableDelivery,omitempty"`
	SituationExchangeDelivery   []SituationExchangeDelivery   `json:"SituationExchangeDelivery,omitempty" xml:"SituationExchangeDelivery,omitempty"`
	ProductionTimetableDelivery []ProductionTimetableDelivery `json:"ProductionTimetableDelivery,omitempty" xml:"ProductionTimetableDelivery,omitempty"`
}

// VehicleMonitoringDelivery carries VM elements.
type VehicleMonitoringDelivery struct {
	ResponseTimestamp string            `json:"ResponseTimestamp" xml:"ResponseTimestamp"`
	VehicleActivity   []VehicleActivity `json:"VehicleActivity,omitempty" xml:"VehicleActivity,omitempty"`
}

// EstimatedTimetableDelivery carries ET elements grouped in a single
// version frame.
type EstimatedTimetableDelivery struct {
	ResponseTimestamp             string                         `json:"ResponseTimestamp" xml:"ResponseTimestamp"`
	EstimatedJourneyVersionFrames []EstimatedJourneyVersionFrame `json:"EstimatedJourneyVersionFrame,omitempty" xml:"EstimatedJourneyVersionFrame,omitempty"`
}

// EstimatedJourneyVersionFrame groups estimated journeys recorded at the
// same time.
type EstimatedJourneyVersionFrame struct {
	RecordedAtTime          string                    `json:"RecordedAtTime" xml:"RecordedAtTime"`
	EstimatedVehicleJourney []EstimatedVehicleJourney `json:"EstimatedVehicleJourney,omitempty" xml:"EstimatedVehicleJourney,omitempty"`
}

// SituationExchangeDelivery carries SX elements.
type SituationExchangeDelivery struct {
	ResponseTimestamp string     `json:"ResponseTimestamp" xml:"ResponseTimestamp"`
	Situations        Situations `json:"Situations" xml:"Situations"`
}

// Situations wraps the PtSituationElement list.
type Situations struct {
	PtSituationElement []PtSituationElement `json:"PtSituationElement,omitempty" xml:"PtSituationElement,omitempty"`
}

// NewVMResponse wraps vehicle activities in a full SIRI response.
func NewVMResponse(producerRef string, moreData bool, activities []VehicleActivity) SiriResponse {
	now := Iso8601Now()
	return newResponse(ServiceDelivery{
		ResponseTimestamp: now,
		ProducerRef:       producerRef,
		MoreData:          moreData,
		VehicleMonitoringDelivery: []VehicleMonitoringDelivery{
			{ResponseTimestamp: now, VehicleActivity: activities},
		},
	})
}

// NewETResponse wraps estimated journeys in a full SIRI response.
func NewETResponse(producerRef string, moreData bool, journeys []EstimatedVehicleJourney) SiriResponse {
	now := Iso8601Now()
	return newResponse(ServiceDelivery{
		ResponseTimestamp: now,
		ProducerRef:       producerRef,
		MoreData:          moreData,
		EstimatedTimetableDelivery: []EstimatedTimetableDelivery{
			{
				ResponseTimestamp: now,
				EstimatedJourneyVersionFrames: []EstimatedJourneyVersionFrame{
					{RecordedAtTime: now, EstimatedVehicleJourney: journeys},
				},
			},
		},
	})
}

// NewSXResponse wraps situations in a full SIRI response.
func NewSXResponse(producerRef string, moreData bool, situations []PtSituationElement) SiriResponse {
	now := Iso8601Now()
	return newResponse(ServiceDelivery{
		ResponseTimestamp: now,
		ProducerRef:       producerRef,
		MoreData:          moreData,
		SituationExchangeDelivery: []SituationExchangeDelivery{
			{ResponseTimestamp: now, Situations: Situations{PtSituationElement: situations}},
		},
	})
}

// NewPTResponse wraps production timetables in a full SIRI response.
func NewPTResponse(producerRef string, moreData bool, timetables []ProductionTimetableDelivery) SiriResponse {
	now := Iso8601Now()
	return newResponse(ServiceDelivery{
		ResponseTimestamp:           now,
		ProducerRef:                 producerRef,
		MoreData:                    moreData,
		ProductionTimetableDelivery: timetables,
	})
}

func newResponse(sd ServiceDelivery) SiriResponse {
	return SiriResponse{Siri: SiriServiceDelivery{ServiceDelivery: sd}}
}
