package api

import (
	"net/http"
)

func (s *Server) handleLoadStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "load stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects":    s.catalog.Len(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"loads":       s.stats.Snapshot(),
	})
}
