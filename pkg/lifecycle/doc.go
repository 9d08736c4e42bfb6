// Package lifecycle tracks the runtime state of the application server:
// whether shutdown has begun, how many requests are currently in flight,
// and how long the process has been running.
//
// The state is shared between the HTTP middleware (which registers and
// deregisters requests), the health endpoints (which report readiness),
// and the server's shutdown routine (which drains in-flight requests).
// All fields are updated atomically so the state can be read from any
// goroutine without additional locking.
package lifecycle
