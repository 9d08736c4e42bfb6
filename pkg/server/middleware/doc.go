// Package middleware contains the HTTP middleware chain for the application
// server. The chain, outermost first:
//
//	Recovery        panic in a handler -> 500 JSON, process unaffected
//	RequestID       UUID per request, X-Request-ID passthrough
//	SecurityHeaders hardening headers on every response
//	Logging         structured request/response log
//	Metrics         request counter by method, path, and status
//	InFlight        registers the request in the lifecycle tracker
//	ShutdownGate    503 for application paths once shutdown has begun
//
// InFlight runs before routing so every accepted request is tracked, and
// deregisters via defer so completion is recorded regardless of outcome.
package middleware
