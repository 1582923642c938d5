package sirihub

import (
	"net/http"

	"github.com/theoremus-urban-solutions/siri-hub/repository"
)

type kindStats struct {
	Size     int            `json:"size"`
	Datasets map[string]int `json:"datasets"`
	Local    map[string]int `json:"localDatasets"`
	Pending  int            `json:"pendingChanges"`
}

type statsResponse struct {
	VM kindStats `json:"vm"`
	ET kindStats `json:"et"`
	SX kindStats `json:"sx"`
	PT kindStats `json:"pt"`
}

func statsFor[T any](repo *repository.Repository[T]) (kindStats, error) {
	size, err := repo.Size()
	if err != nil {
		return kindStats{}, err
	}
	datasets, err := repo.DatasetSizes()
	if err != nil {
		return kindStats{}, err
	}
	local, err := repo.LocalDatasetSizes()
	if err != nil {
		return kindStats{}, err
	}
	return kindStats{
		Size:     size,
		Datasets: datasets,
		Local:    local,
		Pending:  repo.Tracker().PendingBuffered(),
	}, nil
}

func (h *Hub) handleStats(w http.ResponseWriter, r *http.Request) {
	var resp statsResponse
	var err error
	if resp.VM, err = statsFor(h.Vehicles.Repository); err == nil {
		if resp.ET, err = statsFor(h.Timetables.Repository); err == nil {
			if resp.SX, err = statsFor(h.Situations.Repository); err == nil {
				resp.PT, err = statsFor(h.Production.Repository)
			}
		}
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "json", "stats", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Hub) handleRequestors(w http.ResponseWriter, r *http.Request) {
	out := map[string]map[string]repository.RequestorStats{}
	for kind, reg := range map[string]*repository.RequestorRegistry{
		"vm": h.Vehicles.Requestors(),
		"et": h.Timetables.Requestors(),
		"sx": h.Situations.Requestors(),
		"pt": h.Production.Requestors(),
	} {
		stats, err := reg.Snapshot()
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "json", "requestors", err.Error())
			return
		}
		out[kind] = stats
	}
	h.writeJSON(w, http.StatusOK, out)
}

// handleClear removes all data of one dataset across every kind, or
// everything when datasetId=all is passed explicitly.
func (h *Hub) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		h.writeError(w, http.StatusMethodNotAllowed, "json", "clear", "method not allowed")
		return
	}
	datasetID := queryParams(r)["datasetid"]
	if datasetID == "" {
		h.writeError(w, http.StatusBadRequest, "json", "clear", "datasetId parameter is required")
		return
	}

	if datasetID == "all" {
		for _, clear := range []func() error{
			h.Vehicles.ClearAll, h.Timetables.ClearAll, h.Situations.ClearAll, h.Production.ClearAll,
		} {
			if err := clear(); err != nil {
				h.writeError(w, http.StatusInternalServerError, "json", "clear", err.Error())
				return
			}
		}
		h.writeJSON(w, http.StatusOK, map[string]string{"cleared": "all"})
		return
	}

	removed := map[string]int{}
	var err error
	if removed["vm"], err = h.Vehicles.ClearAllByDatasetID(datasetID); err == nil {
		if removed["et"], err = h.Timetables.ClearAllByDatasetID(datasetID); err == nil {
			if removed["sx"], err = h.Situations.ClearAllByDatasetID(datasetID); err == nil {
				removed["pt"], err = h.Production.ClearAllByDatasetID(datasetID)
			}
		}
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "json", "clear", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, removed)
}
