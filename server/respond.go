package server

import (
	"encoding/json"
	"net/http"

	"github.com/nvr-ai/roi-detect/detector"
)

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error string        `json:"error"`
	Kind  detector.Kind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps detector error kinds onto status codes: input errors are 400, inference
// errors 500, anything else 500 without a kind.
func (s *Server) writeError(w http.ResponseWriter, route string, err error) {
	kind := detector.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case "", detector.KindInferenceFailed:
	default:
		status = http.StatusBadRequest
	}

	outcome := string(kind)
	if outcome == "" {
		outcome = "error"
	}
	s.metrics.ObserveRequest(route, outcome)

	if status >= http.StatusInternalServerError {
		s.logger.Errorw("request failed", "route", route, "kind", kind, "error", err)
	} else {
		s.logger.Debugw("request rejected", "route", route, "kind", kind, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}
