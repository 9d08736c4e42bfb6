package middleware

import (
	"net/http"

	"bastion-hq/bastion/pkg/telemetry/metrics"
)

// Metrics records a request counter sample for each completed request.
// Only paths in known are used as label values; everything else is folded
// into "other" to keep label cardinality bounded.
func Metrics(collector *metrics.Collector, known ...string) func(http.Handler) http.Handler {
	knownSet := make(map[string]struct{}, len(known))
	for _, path := range known {
		knownSet[path] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if _, ok := knownSet[path]; !ok {
				path = "other"
			}
			collector.RecordRequest(r.Method, path, rw.statusCode)
		})
	}
}
