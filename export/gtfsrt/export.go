package gtfsrt

import (
	"fmt"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/siri-hub/repository"
	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

// Exporter builds GTFS-RT feed messages from the stored SIRI data.
type Exporter struct {
	vehicles   *repository.VehicleRepository
	timetables *repository.TimetableRepository
	situations *repository.SituationRepository
}

// NewExporter wires the exporter to the repositories it reads from.
func NewExporter(vehicles *repository.VehicleRepository, timetables *repository.TimetableRepository, situations *repository.SituationRepository) *Exporter {
	return &Exporter{vehicles: vehicles, timetables: timetables, situations: situations}
}

func feedHeader() *gtfsrtpb.FeedHeader {
	return &gtfsrtpb.FeedHeader{
		GtfsRealtimeVersion: proto.String("2.0"),
		Incrementality:      gtfsrtpb.FeedHeader_FULL_DATASET.Enum(),
		Timestamp:           proto.Uint64(uint64(time.Now().Unix())),
	}
}

// VehiclePositions renders every stored vehicle activity, optionally
// narrowed to one dataset.
func (e *Exporter) VehiclePositions(datasetID string) ([]byte, error) {
	activities, err := e.vehicles.GetAllByDataset(datasetID)
	if err != nil {
		return nil, fmt.Errorf("loading vehicle activities: %w", err)
	}

	fm := &gtfsrtpb.FeedMessage{Header: feedHeader()}
	for i, a := range activities {
		mvj := a.MonitoredVehicleJourney
		vp := &gtfsrtpb.VehiclePosition{
			Vehicle: &gtfsrtpb.VehicleDescriptor{Id: proto.String(mvj.VehicleRef)},
		}
		if loc := mvj.VehicleLocation; loc != nil {
			vp.Position = &gtfsrtpb.Position{
				Latitude:  proto.Float32(float32(loc.Latitude)),
				Longitude: proto.Float32(float32(loc.Longitude)),
			}
			if mvj.Bearing != nil {
				vp.Position.Bearing = proto.Float32(float32(*mvj.Bearing))
			}
		}
		if a.RecordedAtTime != nil {
			vp.Timestamp = proto.Uint64(uint64(a.RecordedAtTime.Unix()))
		}
		vp.Trip = &gtfsrtpb.TripDescriptor{RouteId: proto.String(mvj.LineRef)}
		if ref := mvj.FramedVehicleJourneyRef; ref != nil {
			vp.Trip.TripId = proto.String(ref.DatedVehicleJourneyRef)
		}
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{
			Id:      proto.String(fmt.Sprintf("vp-%d", i+1)),
			Vehicle: vp,
		})
	}
	return proto.Marshal(fm)
}

// TripUpdates renders every stored estimated journey.
func (e *Exporter) TripUpdates(datasetID string) ([]byte, error) {
	journeys, err := e.timetables.GetAllByDataset(datasetID)
	if err != nil {
		return nil, fmt.Errorf("loading estimated journeys: %w", err)
	}

	fm := &gtfsrtpb.FeedMessage{Header: feedHeader()}
	for i, j := range journeys {
		tu := &gtfsrtpb.TripUpdate{
			Trip: &gtfsrtpb.TripDescriptor{RouteId: proto.String(j.LineRef)},
		}
		if ref := j.FramedVehicleJourneyRef; ref != nil {
			tu.Trip.TripId = proto.String(ref.DatedVehicleJourneyRef)
		} else if j.DatedVehicleJourneyRef != "" {
			tu.Trip.TripId = proto.String(j.DatedVehicleJourneyRef)
		}
		if j.IsCancelled() {
			tu.Trip.ScheduleRelationship = gtfsrtpb.TripDescriptor_CANCELED.Enum()
		}
		if j.VehicleRef != "" {
			tu.Vehicle = &gtfsrtpb.VehicleDescriptor{Id: proto.String(j.VehicleRef)}
		}
		if j.RecordedAtTime != nil {
			tu.Timestamp = proto.Uint64(uint64(j.RecordedAtTime.Unix()))
		}
		for _, c := range j.RecordedCalls {
			tu.StopTimeUpdate = append(tu.StopTimeUpdate, stopTimeUpdate(
				c.StopPointRef, c.Order, pickTime(c.ActualArrivalTime, c.AimedArrivalTime), pickTime(c.ActualDepartureTime, c.AimedDepartureTime)))
		}
		for _, c := range j.EstimatedCalls {
			tu.StopTimeUpdate = append(tu.StopTimeUpdate, stopTimeUpdate(
				c.StopPointRef, c.Order, pickTime(c.ExpectedArrivalTime, c.AimedArrivalTime), pickTime(c.ExpectedDepartureTime, c.AimedDepartureTime)))
		}
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{
			Id:         proto.String(fmt.Sprintf("tu-%d", i+1)),
			TripUpdate: tu,
		})
	}
	return proto.Marshal(fm)
}

// Alerts renders every stored situation.
func (e *Exporter) Alerts(datasetID string) ([]byte, error) {
	situations, err := e.situations.GetAllByDataset(datasetID)
	if err != nil {
		return nil, fmt.Errorf("loading situations: %w", err)
	}

	fm := &gtfsrtpb.FeedMessage{Header: feedHeader()}
	for i, s := range situations {
		alert := &gtfsrtpb.Alert{
			HeaderText:      translated(s.Summary),
			DescriptionText: translated(s.Description),
		}
		for _, p := range s.ValidityPeriods {
			tr := &gtfsrtpb.TimeRange{}
			if p.StartTime != nil {
				tr.Start = proto.Uint64(uint64(p.StartTime.Unix()))
			}
			if p.EndTime != nil {
				tr.End = proto.Uint64(uint64(p.EndTime.Unix()))
			}
			alert.ActivePeriod = append(alert.ActivePeriod, tr)
		}
		if s.Affects != nil {
			for _, n := range s.Affects.Networks {
				for _, line := range n.LineRefs {
					alert.InformedEntity = append(alert.InformedEntity, &gtfsrtpb.EntitySelector{RouteId: proto.String(line)})
				}
			}
			for _, sp := range s.Affects.StopPoints {
				alert.InformedEntity = append(alert.InformedEntity, &gtfsrtpb.EntitySelector{StopId: proto.String(sp.StopPointRef)})
			}
			for _, vj := range s.Affects.VehicleJourneys {
				sel := &gtfsrtpb.EntitySelector{}
				if vj.FramedVehicleJourneyRef != nil {
					sel.Trip = &gtfsrtpb.TripDescriptor{TripId: proto.String(vj.FramedVehicleJourneyRef.DatedVehicleJourneyRef)}
				} else if vj.VehicleJourneyRef != "" {
					sel.Trip = &gtfsrtpb.TripDescriptor{TripId: proto.String(vj.VehicleJourneyRef)}
				}
				if vj.LineRef != "" {
					sel.RouteId = proto.String(vj.LineRef)
				}
				alert.InformedEntity = append(alert.InformedEntity, sel)
			}
		}
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{
			Id:    proto.String(fmt.Sprintf("alert-%d", i+1)),
			Alert: alert,
		})
	}
	return proto.Marshal(fm)
}

func stopTimeUpdate(stopID string, order int, arrival, departure *time.Time) *gtfsrtpb.TripUpdate_StopTimeUpdate {
	stu := &gtfsrtpb.TripUpdate_StopTimeUpdate{
		StopId:       proto.String(stopID),
		StopSequence: proto.Uint32(uint32(order)),
	}
	if arrival != nil {
		stu.Arrival = &gtfsrtpb.TripUpdate_StopTimeEvent{Time: proto.Int64(arrival.Unix())}
	}
	if departure != nil {
		stu.Departure = &gtfsrtpb.TripUpdate_StopTimeEvent{Time: proto.Int64(departure.Unix())}
	}
	return stu
}

func pickTime(preferred, fallback *time.Time) *time.Time {
	if preferred != nil {
		return preferred
	}
	return fallback
}

func translated(texts []siri.NaturalLanguageString) *gtfsrtpb.TranslatedString {
	if len(texts) == 0 {
		return nil
	}
	ts := &gtfsrtpb.TranslatedString{}
	for _, t := range texts {
		tr := &gtfsrtpb.TranslatedString_Translation{Text: proto.String(t.Text)}
		if t.Lang != "" {
			tr.Language = proto.String(t.Lang)
		}
		ts.Translation = append(ts.Translation, tr)
	}
	return ts
}
