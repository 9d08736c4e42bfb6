// Package server provides the lifecycle-aware HTTP application server.
//
// The server owns the listening socket, the lifecycle state (shutdown flag
// and in-flight request tracker), and the HTTP route table. It ties
// together the middleware chain, the health and metrics endpoints, and the
// application content handlers.
//
// # Basic Usage
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	state := lifecycle.NewState()
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, state, nil)
//
//	srv := server.New(cfg, state, collector, nil)
//	if err := srv.Start(context.Background()); err != nil {
//	    os.Exit(1) // bind failure
//	}
//
// # Shutdown Protocol
//
// On the first SIGTERM or SIGINT (or context cancellation):
//
//  1. The shutdown flag is set synchronously; readiness flips to 503.
//  2. The listening socket is closed; accepted connections keep serving.
//  3. A drain timer starts, bounded by the configured shutdown timeout,
//     while the in-flight tracker is polled at the drain poll interval.
//  4. If the tracker empties first the server closes immediately; if the
//     timer fires first the remaining connections are force-closed and a
//     warning reports the count.
//
// Both paths are clean terminations: Start returns nil and the process
// exits 0. A second signal while draining forces an immediate exit. Only a
// listener bind failure makes Start return an error.
package server
