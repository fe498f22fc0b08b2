package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth returns service health including a database ping
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := s.db.QuickCheck(r.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}

	response := map[string]interface{}{
		"status":  "healthy",
		"service": "arena",
		"db":      dbStatus,
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
