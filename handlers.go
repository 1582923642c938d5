package sirihub

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/siri-hub/repository"
	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

// clientNameHeader carries the consumer's self-reported name, kept for
// the requestor statistics.
const clientNameHeader = "ET-Client-Name"

func queryParams(r *http.Request) map[string]string {
	params := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[strings.ToLower(k)] = v[0]
		}
	}
	return params
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *Hub) deliveryRequest(r *http.Request) repository.DeliveryRequest {
	params := queryParams(r)
	pageSize := h.cfg.Repository.DefaultPageSize
	if v, err := strconv.Atoi(params["maxsize"]); err == nil && v > 0 {
		pageSize = v
	}
	var preview time.Duration
	if v, err := strconv.Atoi(params["previewintervalminutes"]); err == nil && v > 0 {
		preview = time.Duration(v) * time.Minute
	}
	return repository.DeliveryRequest{
		ConsumerID:         params["requestorid"],
		DatasetID:          params["datasetid"],
		ClientTrackingName: r.Header.Get(clientNameHeader),
		ExcludedDatasetIDs: splitCSV(params["excludeddatasetids"]),
		PageSize:           pageSize,
		PreviewInterval:    preview,
	}
}

// ingest runs one POST ingestion: the datasetId parameter names the
// producing codespace, the body is a JSON array of entities. The
// response is the batch's aggregate counts, never per-item errors.
func (h *Hub) ingest(w http.ResponseWriter, r *http.Request, format, call string, add func(datasetID string, body []byte) (repository.Stats, error)) {
	datasetID := queryParams(r)["datasetid"]
	if datasetID == "" {
		h.writeError(w, http.StatusBadRequest, format, call, "datasetId parameter is required")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, format, call, "reading request body: "+err.Error())
		return
	}
	stats, err := add(datasetID, body)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, format, call, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Hub) handleVM(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			d, err := h.Vehicles.CreateServiceDelivery(h.deliveryRequest(r))
			if err != nil {
				h.writeError(w, http.StatusInternalServerError, format, "vehicleMonitoring", err.Error())
				return
			}
			resp := siri.NewVMResponse(h.cfg.Server.ProducerRef, d.MoreData, d.Items)
			resp.Siri.ServiceDelivery.RequestorRef = d.ConsumerID
			h.writeSiri(w, format, resp)
		case http.MethodPost:
			h.ingest(w, r, format, "vehicleMonitoring", func(datasetID string, body []byte) (repository.Stats, error) {
				var items []siri.VehicleActivity
				if err := json.Unmarshal(body, &items); err != nil {
					return repository.Stats{}, err
				}
				_, stats, err := h.Vehicles.AddAll(datasetID, items)
				return stats, err
			})
		default:
			h.writeError(w, http.StatusMethodNotAllowed, format, "vehicleMonitoring", "method not allowed")
		}
	}
}

func (h *Hub) handleET(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			d, err := h.Timetables.CreateServiceDelivery(h.deliveryRequest(r))
			if err != nil {
				h.writeError(w, http.StatusInternalServerError, format, "estimatedTimetable", err.Error())
				return
			}
			resp := siri.NewETResponse(h.cfg.Server.ProducerRef, d.MoreData, d.Items)
			resp.Siri.ServiceDelivery.RequestorRef = d.ConsumerID
			h.writeSiri(w, format, resp)
		case http.MethodPost:
			h.ingest(w, r, format, "estimatedTimetable", func(datasetID string, body []byte) (repository.Stats, error) {
				var items []siri.EstimatedVehicleJourney
				if err := json.Unmarshal(body, &items); err != nil {
					return repository.Stats{}, err
				}
				_, stats, err := h.Timetables.AddAll(datasetID, items)
				return stats, err
			})
		default:
			h.writeError(w, http.StatusMethodNotAllowed, format, "estimatedTimetable", "method not allowed")
		}
	}
}

func (h *Hub) handleSX(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			d, err := h.Situations.CreateServiceDelivery(h.deliveryRequest(r))
			if err != nil {
				h.writeError(w, http.StatusInternalServerError, format, "situationExchange", err.Error())
				return
			}
			resp := siri.NewSXResponse(h.cfg.Server.ProducerRef, d.MoreData, d.Items)
			resp.Siri.ServiceDelivery.RequestorRef = d.ConsumerID
			h.writeSiri(w, format, resp)
		case http.MethodPost:
			h.ingest(w, r, format, "situationExchange", func(datasetID string, body []byte) (repository.Stats, error) {
				var items []siri.PtSituationElement
				if err := json.Unmarshal(body, &items); err != nil {
					return repository.Stats{}, err
				}
				_, stats, err := h.Situations.AddAll(datasetID, items)
				return stats, err
			})
		default:
			h.writeError(w, http.StatusMethodNotAllowed, format, "situationExchange", "method not allowed")
		}
	}
}

func (h *Hub) handlePT(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			d, err := h.Production.CreateServiceDelivery(h.deliveryRequest(r))
			if err != nil {
				h.writeError(w, http.StatusInternalServerError, format, "productionTimetable", err.Error())
				return
			}
			resp := siri.NewPTResponse(h.cfg.Server.ProducerRef, d.MoreData, d.Items)
			resp.Siri.ServiceDelivery.RequestorRef = d.ConsumerID
			h.writeSiri(w, format, resp)
		case http.MethodPost:
			h.ingest(w, r, format, "productionTimetable", func(datasetID string, body []byte) (repository.Stats, error) {
				var items []siri.ProductionTimetableDelivery
				if err := json.Unmarshal(body, &items); err != nil {
					return repository.Stats{}, err
				}
				_, stats, err := h.Production.AddAll(datasetID, items)
				return stats, err
			})
		default:
			h.writeError(w, http.StatusMethodNotAllowed, format, "productionTimetable", "method not allowed")
		}
	}
}
