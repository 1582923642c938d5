package sirihub

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theoremus-urban-solutions/siri-hub/config"
	"github.com/theoremus-urban-solutions/siri-hub/export/gtfsrt"
	"github.com/theoremus-urban-solutions/siri-hub/repository"
	"github.com/theoremus-urban-solutions/siri-hub/siri"
	"github.com/theoremus-urban-solutions/siri-hub/storage"
)

// Hub wires the four kind repositories to the HTTP surface.
type Hub struct {
	cfg config.AppConfig
	log *logrus.Logger

	Vehicles   *repository.VehicleRepository
	Timetables *repository.TimetableRepository
	Situations *repository.SituationRepository
	Production *repository.ProductionRepository

	exporter *gtfsrt.Exporter
	db       *storage.DB
	server   *http.Server
}

// NewHub builds the repositories on the configured storage backend.
func NewHub(cfg config.AppConfig, log *logrus.Logger) (*Hub, error) {
	if log == nil {
		log = InitLogging()
	}
	h := &Hub{cfg: cfg, log: log}

	var db *storage.DB
	if cfg.Storage.Backend == "badger" {
		var err error
		db, err = storage.OpenDB(cfg.Storage.Path, log)
		if err != nil {
			return nil, fmt.Errorf("opening storage backend: %w", err)
		}
		h.db = db
	}

	r := cfg.Repository
	opts := func(grace time.Duration) repository.Options {
		return repository.Options{
			GracePeriod:         grace,
			TrackingPeriod:      r.TrackingPeriod(),
			AdHocTrackingPeriod: r.AdHocTrackingPeriod(),
			CommitInterval:      r.CommitFrequency(),
			Logger:              log,
		}
	}

	h.Vehicles = repository.NewVehicleRepository(
		buildMaps[siri.VehicleActivity](db, "vm"), opts(r.VM.Grace()))
	h.Timetables = repository.NewTimetableRepository(
		buildMaps[siri.EstimatedVehicleJourney](db, "et"),
		buildKeyMap[time.Time](db, "et-start-times"),
		buildKeyMap[bool](db, "et-pattern-changes"),
		opts(r.ET.Grace()))
	h.Situations = repository.NewSituationRepository(
		buildMaps[siri.PtSituationElement](db, "sx"), opts(r.SX.Grace()))
	h.Production = repository.NewProductionRepository(
		buildMaps[siri.ProductionTimetableDelivery](db, "pt"), opts(r.PT.Grace()))
	h.exporter = gtfsrt.NewExporter(h.Vehicles, h.Timetables, h.Situations)
	return h, nil
}

// buildMaps assembles one repository's map set on the chosen backend.
// A nil db selects the in-process backend.
func buildMaps[T any](db *storage.DB, kind string) repository.Maps[T] {
	if db == nil {
		return repository.NewMemoryMaps[T]()
	}
	return repository.Maps[T]{
		Entities:   storage.NewBadgerMap[storage.Key, T](db, kind+"-entities", storage.KeyCodec{}),
		Checksums:  storage.NewBadgerMap[storage.Key, string](db, kind+"-checksums", storage.KeyCodec{}),
		Changes:    storage.NewBadgerMap[string, []storage.Key](db, kind+"-changes", storage.StringCodec{}),
		LastPoll:   storage.NewBadgerMap[string, time.Time](db, kind+"-last-poll", storage.StringCodec{}),
		Requestors: storage.NewBadgerMap[string, repository.RequestorStats](db, kind+"-requestors", storage.StringCodec{}),
	}
}

func buildKeyMap[V any](db *storage.DB, name string) storage.Map[storage.Key, V] {
	if db == nil {
		return storage.NewMemoryMap[storage.Key, V]()
	}
	return storage.NewBadgerMap[storage.Key, V](db, name, storage.KeyCodec{})
}

// Close releases the storage backend.
func (h *Hub) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// RemoveExpired sweeps every repository for entities whose recomputed
// expiry has turned negative.
func (h *Hub) RemoveExpired() {
	if _, err := h.Vehicles.RemoveExpired(); err != nil {
		h.log.WithError(err).Warn("vm expiry sweep failed")
	}
	if _, err := h.Timetables.RemoveExpired(); err != nil {
		h.log.WithError(err).Warn("et expiry sweep failed")
	}
	if _, err := h.Situations.RemoveExpired(); err != nil {
		h.log.WithError(err).Warn("sx expiry sweep failed")
	}
	if _, err := h.Production.RemoveExpired(); err != nil {
		h.log.WithError(err).Warn("pt expiry sweep failed")
	}
}
