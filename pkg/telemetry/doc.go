// Package telemetry groups the observability surfaces of the application
// server.
//
// # Components
//
//   - logging: structured slog logger built from configuration
//   - health: liveness and readiness probe endpoints
//   - metrics: Prometheus collectors and the exposition handler
//   - stats: cron-scheduled runtime stats log
//
// Each subpackage is wired to the shared lifecycle.State so probes, gauges,
// and log lines all report the same view of the process: uptime, in-flight
// request count, and whether shutdown has begun.
package telemetry
