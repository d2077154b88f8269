package server

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is the storage connectivity probe. The Qdrant store
// implements it; the in-memory store has nothing to check.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthResponse is the JSON body of the /health endpoint.
type HealthResponse struct {
	Status    string   `json:"status"`
	Storage   string   `json:"storage"`
	Backends  []string `json:"backends"`
	Timestamp string   `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Backends:  s.service.BackendNames(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.health.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Storage = "disconnected"
			s.writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	response.Status = "healthy"
	response.Storage = "connected"
	s.writeJSON(w, http.StatusOK, response)
}
