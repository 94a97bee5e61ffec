package sessionapi

import (
	"encoding/json"
	"net/http"

	"gbmwave/internal/domain"
)

// handleHealthz reports liveness: 200 once the updater has produced at
// least one snapshot, 503 beforehand.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	snap := s.updater.LatestSnapshot()
	if snap.UpdateCount == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleSnapshot returns the most recently published Snapshot as JSON.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.updater.LatestSnapshot())
}

// handleZones returns just the reversal zones from the latest snapshot,
// or an empty array if none have been detected yet.
func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	snap := s.updater.LatestSnapshot()
	zones := snap.ReversalZones
	if zones == nil {
		zones = []domain.Zone{}
	}
	writeJSON(w, zones)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
