package handler

import (
	"net/http"

	"github.com/attaboy/gamesocial/internal/infra"
)

type healthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	LatencyMS int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// HealthHandler reports whether the configured score/chat store answers a ping.
func HealthHandler(store infra.Pinger, backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latency, err := infra.HealthCheck(r.Context(), store)
		resp := healthResponse{Status: "healthy", Backend: backend, LatencyMS: latency.Milliseconds()}
		if err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			RespondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		RespondJSON(w, http.StatusOK, resp)
	}
}
