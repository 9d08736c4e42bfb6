package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"bastion-hq/bastion/pkg/config"
	"bastion-hq/bastion/pkg/content"
	"bastion-hq/bastion/pkg/lifecycle"
	"bastion-hq/bastion/pkg/server/handlers"
	"bastion-hq/bastion/pkg/server/middleware"
	"bastion-hq/bastion/pkg/telemetry/health"
	"bastion-hq/bastion/pkg/telemetry/metrics"
)

// Server is the lifecycle-aware HTTP application server.
type Server struct {
	cfg       *config.Config
	state     *lifecycle.State
	collector *metrics.Collector
	store     *content.Store

	extraRoutes map[string]http.Handler

	httpServer *http.Server

	// listenerMu guards listener, which is set in Start and read
	// concurrently by Addr and the shutdown path.
	listenerMu sync.Mutex
	listener   net.Listener

	shutdownOnce sync.Once
	shutdownDone chan error

	// signals is created in Start when nil; tests inject their own.
	signals chan os.Signal

	// forceExit terminates the process on a second shutdown signal.
	forceExit func(int)
}

// Option configures optional server behavior.
type Option func(*Server)

// WithRoute registers an additional exact-match route. Application routes
// added this way are gated during shutdown like the built-in content paths.
func WithRoute(path string, handler http.Handler) Option {
	return func(s *Server) {
		s.extraRoutes[path] = handler
	}
}

// New creates a server. collector may be nil when metrics are disabled and
// store may be nil when no content file is configured.
func New(cfg *config.Config, state *lifecycle.State, collector *metrics.Collector, store *content.Store, opts ...Option) *Server {
	s := &Server{
		cfg:          cfg,
		state:        state,
		collector:    collector,
		store:        store,
		extraRoutes:  make(map[string]http.Handler),
		shutdownDone: make(chan error, 1),
		forceExit:    os.Exit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start binds the listening socket and serves until shutdown. It returns an
// error only for a bind failure or an unexpected serve error; every shutdown
// path returns nil so the process can exit 0.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Server.ListenAddress()

	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(listener)
		// Closing the listener during shutdown surfaces here; only
		// report errors from a still-serving socket.
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	slog.Info("server started",
		"address", addr,
		"environment", s.cfg.Server.Environment,
		"shutdown_timeout", s.cfg.Server.ShutdownTimeout.String(),
	)

	if s.signals == nil {
		s.signals = make(chan os.Signal, 2)
	}
	signal.Notify(s.signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(s.signals)

	ctxDone := ctx.Done()

	for {
		select {
		case err := <-errChan:
			return err

		case <-ctxDone:
			ctxDone = nil
			slog.Info("context cancelled, initiating shutdown")
			s.beginShutdown()

		case sig := <-s.signals:
			if s.state.ShuttingDown() {
				slog.Warn("second shutdown signal received, forcing immediate exit",
					"signal", sig.String(),
					"in_flight", s.state.InFlight(),
				)
				_ = s.httpServer.Close()
				s.forceExit(0)
				return nil
			}
			slog.Info("received shutdown signal", "signal", sig.String())
			s.beginShutdown()

		case err := <-s.shutdownDone:
			return err
		}
	}
}

// TriggerShutdown starts the shutdown protocol programmatically, as if a
// termination signal had been received. Safe to call from any goroutine and
// idempotent: repeat calls are no-ops. Must not be called before Start.
func (s *Server) TriggerShutdown() {
	s.beginShutdown()
}

// Fault handles a process-level fault (a panic escaping a background
// goroutine). The fault is logged and converted into a shutdown trigger so
// in-flight requests still get a chance to drain.
func (s *Server) Fault(err error) {
	slog.Error("process-level fault, initiating shutdown", "error", err)
	s.beginShutdown()
}

func (s *Server) beginShutdown() {
	s.shutdownOnce.Do(func() {
		// Flip the flag before anything else so readiness reflects
		// shutdown immediately.
		s.state.BeginShutdown()

		// Stop accepting new connections. Connections already accepted
		// keep serving; their requests see the shutdown gate.
		s.listenerMu.Lock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.listenerMu.Unlock()

		lifecycle.Go("shutdown drain", nil, func() {
			s.shutdownDone <- s.drain()
		})
	})
}

// drain waits for in-flight requests to finish within the configured
// timeout, then closes the server. The timeout path force-closes remaining
// connections but is still a successful shutdown.
func (s *Server) drain() error {
	timeout := s.cfg.Server.ShutdownTimeout

	slog.Info("draining in-flight requests",
		"in_flight", s.state.InFlight(),
		"timeout", timeout.String(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.state.AwaitDrain(ctx, s.cfg.Server.DrainPollInterval) {
		_ = s.httpServer.Close()
		slog.Info("graceful shutdown complete",
			"uptime_seconds", s.state.Uptime().Seconds(),
		)
		return nil
	}

	remaining := s.state.InFlight()
	slog.Warn("shutdown timeout reached, force-closing connections",
		"force_closed", remaining,
	)
	_ = s.httpServer.Close()
	return nil
}

// Handler builds the complete HTTP handler: routes wrapped in the
// middleware chain. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	metricsPath := s.cfg.Telemetry.Metrics.Path
	metricsEnabled := s.cfg.Telemetry.Metrics.Enabled && s.collector != nil

	mux.HandleFunc("/health", health.LivenessHandler(s.state))
	mux.HandleFunc("/ready", health.ReadinessHandler(s.state))
	mux.HandleFunc("/info", handlers.Info())
	if metricsEnabled {
		mux.Handle(metricsPath, s.collector.Handler())
	}
	for path, handler := range s.extraRoutes {
		mux.Handle(path, handler)
	}

	// The root handler enforces exact matching itself and answers 404
	// with the requested path for everything unmatched.
	mux.Handle("/", handlers.Root(s.cfg.Content.Message, s.cfg.Server.Environment, s.store))

	knownPaths := []string{"/", "/health", "/ready", "/info"}
	if metricsEnabled {
		knownPaths = append(knownPaths, metricsPath)
	}
	for path := range s.extraRoutes {
		knownPaths = append(knownPaths, path)
	}

	// Liveness always answers, readiness reports its own 503 body, and
	// metrics stay scrapable during the drain.
	exempt := []string{"/health", "/ready"}
	if metricsEnabled {
		exempt = append(exempt, metricsPath)
	}

	var handler http.Handler = mux
	handler = middleware.ShutdownGate(s.state, exempt...)(handler)
	handler = middleware.InFlight(s.state)(handler)
	if metricsEnabled {
		handler = middleware.Metrics(s.collector, knownPaths...)(handler)
	}
	handler = middleware.Logging(handler)
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return handler
}

// Addr returns the bound listener address, useful when the configured port
// is 0. Returns empty string before Start.
func (s *Server) Addr() string {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
