// Bastion is the reference application server for hardened container base
// images. It serves a minimal HTTP workload whose whole job is correct
// lifecycle behavior:
//
//   - Liveness, readiness, and Prometheus metrics endpoints
//   - Security headers on every response
//   - Bounded graceful shutdown that drains in-flight requests
//
// Usage:
//
//	# Start the server with defaults (PORT, HOST, APP_ENV, SHUTDOWN_TIMEOUT_MS respected)
//	bastion run
//
//	# Start with a configuration file
//	bastion run --config /etc/bastion/config.yaml
//
//	# Validate a configuration file without starting
//	bastion validate --config /etc/bastion/config.yaml
//
//	# Show version information
//	bastion version
package main

func main() {
	Execute()
}
