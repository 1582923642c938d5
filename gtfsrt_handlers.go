package sirihub

import "net/http"

func (h *Hub) writeFeed(w http.ResponseWriter, call string, build func(datasetID string) ([]byte, error), datasetID string) {
	buf, err := build(datasetID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "json", call, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	if _, err := w.Write(buf); err != nil {
		h.log.WithError(err).Warn("writing gtfs-rt feed")
	}
}

func (h *Hub) handleGTFSRTVehiclePositions(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w, "vehiclePositions", h.exporter.VehiclePositions, queryParams(r)["datasetid"])
}

func (h *Hub) handleGTFSRTTripUpdates(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w, "tripUpdates", h.exporter.TripUpdates, queryParams(r)["datasetid"])
}

func (h *Hub) handleGTFSRTAlerts(w http.ResponseWriter, r *http.Request) {
	h.writeFeed(w, "alerts", h.exporter.Alerts, queryParams(r)["datasetid"])
}
