package sirihub

import "net/http"

type healthResponse struct {
	Status string         `json:"status"`
	Sizes  map[string]int `json:"sizes"`
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	sizes := map[string]int{}
	for kind, size := range map[string]func() (int, error){
		"vm": h.Vehicles.Size,
		"et": h.Timetables.Size,
		"sx": h.Situations.Size,
		"pt": h.Production.Size,
	} {
		n, err := size()
		if err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "storage unavailable"})
			return
		}
		sizes[kind] = n
	}
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sizes: sizes})
}
