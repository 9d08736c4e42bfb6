// Package health provides the liveness and readiness probe endpoints.
//
// Liveness reports that the process is running and is independent of
// shutdown state: the process is alive until it exits. Readiness reflects
// the shutdown flag exactly and is the signal an external load balancer or
// orchestrator uses to stop routing new traffic.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"bastion-hq/bastion/pkg/lifecycle"
)

// LivenessStatus is the response body of the liveness endpoint.
type LivenessStatus struct {
	// Status is always "healthy" while the process can serve the check.
	Status string `json:"status"`

	// Uptime is the process uptime in seconds.
	Uptime float64 `json:"uptime"`

	// Timestamp is when the check was performed.
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessStatus is the response body of the readiness endpoint.
type ReadinessStatus struct {
	// Ready is true iff the server is accepting new traffic.
	Ready bool `json:"ready"`

	// Timestamp is when the check was performed.
	Timestamp time.Time `json:"timestamp"`
}

// LivenessHandler returns the /health endpoint handler. It always responds
// 200, including during shutdown.
func LivenessHandler(state *lifecycle.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := LivenessStatus{
			Status:    "healthy",
			Uptime:    state.Uptime().Seconds(),
			Timestamp: time.Now().UTC(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(status)
		}
	}
}

// ReadinessHandler returns the /ready endpoint handler.
//
// Returns:
//   - 200 OK: the server is accepting new traffic
//   - 503 Service Unavailable: shutdown has begun
func ReadinessHandler(state *lifecycle.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ready := !state.ShuttingDown()

		status := ReadinessStatus{
			Ready:     ready,
			Timestamp: time.Now().UTC(),
		}

		w.Header().Set("Content-Type", "application/json")
		if ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(status)
		}
	}
}
