package sirihub

import (
	"encoding/json"
	"encoding/xml"
	"net/http"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

// writeSiri renders a SIRI response in the requested format.
func (h *Hub) writeSiri(w http.ResponseWriter, format string, resp siri.SiriResponse) {
	if format == "xml" {
		w.Header().Set("Content-Type", "application/xml")
		if err := xml.NewEncoder(w).Encode(resp.Siri); err != nil {
			h.log.WithError(err).Warn("writing xml response")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.WithError(err).Warn("writing json response")
	}
}

func (h *Hub) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("writing json response")
	}
}

type errorPayload struct {
	Call  string `json:"call" xml:"call"`
	Error string `json:"error" xml:"error"`
}

func (h *Hub) writeError(w http.ResponseWriter, status int, format, call, msg string) {
	payload := errorPayload{Call: call, Error: msg}
	if format == "xml" {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		if err := xml.NewEncoder(w).Encode(payload); err != nil {
			h.log.WithError(err).Warn("writing xml error")
		}
		return
	}
	h.writeJSON(w, status, payload)
}
