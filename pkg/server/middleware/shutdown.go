package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"bastion-hq/bastion/pkg/lifecycle"
)

// ShutdownResponse is the body returned for requests arriving after
// shutdown has begun.
type ShutdownResponse struct {
	Error        string    `json:"error"`
	ShuttingDown bool      `json:"shutting_down"`
	Timestamp    time.Time `json:"timestamp"`
}

// ShutdownGate rejects application requests with 503 once shutdown has
// begun, without routing further. Paths in exempt keep responding: the
// liveness endpoint reports alive until exit, readiness returns its own
// 503 body, and metrics stay scrapable during the drain.
func ShutdownGate(state *lifecycle.State, exempt ...string) func(http.Handler) http.Handler {
	exemptSet := make(map[string]struct{}, len(exempt))
	for _, path := range exempt {
		exemptSet[path] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if state.ShuttingDown() {
				if _, ok := exemptSet[r.URL.Path]; !ok {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_ = json.NewEncoder(w).Encode(ShutdownResponse{
						Error:        "Service shutting down",
						ShuttingDown: true,
						Timestamp:    time.Now().UTC(),
					})
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
