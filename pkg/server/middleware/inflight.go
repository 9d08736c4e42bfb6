package middleware

import (
	"net/http"

	"bastion-hq/bastion/pkg/lifecycle"
)

// InFlight registers each request in the lifecycle tracker before any
// routing logic runs and deregisters it when the response completes. The
// deregistration is deferred so it happens regardless of outcome, including
// a panicking handler.
func InFlight(state *lifecycle.State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state.RequestStarted()
			defer state.RequestFinished()

			next.ServeHTTP(w, r)
		})
	}
}
