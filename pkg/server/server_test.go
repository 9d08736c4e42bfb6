package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"
	"time"

	"bastion-hq/bastion/pkg/config"
	"bastion-hq/bastion/pkg/lifecycle"
	"bastion-hq/bastion/pkg/telemetry/metrics"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Server.DrainPollInterval = 10 * time.Millisecond
	cfg.Telemetry.Metrics.Enabled = true
	return cfg
}

func newTestServer(cfg *config.Config, opts ...Option) (*Server, *lifecycle.State) {
	state := lifecycle.NewState()
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, state, nil)
	srv := New(cfg, state, collector, nil, opts...)
	srv.forceExit = func(int) {}
	return srv, state
}

// startServer runs Start on a goroutine and waits for the listener to bind.
func startServer(t *testing.T, srv *Server, ctx context.Context) chan error {
	t.Helper()

	result := make(chan error, 1)
	go func() { result <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not bind in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return result
}

// rawRequest sends one HTTP request over an already-open connection and
// returns the status code. The connection stays open (keep-alive).
func rawRequest(t *testing.T, conn net.Conn, path string) int {
	t.Helper()

	fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: test\r\n\r\n", path)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("failed to read response for %s: %v", path, err)
	}
	defer resp.Body.Close()

	var discard [4096]byte
	for {
		if _, err := resp.Body.Read(discard[:]); err != nil {
			break
		}
	}

	return resp.StatusCode
}

// TestRouting tests the route table and response shapes via the composed
// handler.
func TestRouting(t *testing.T) {
	cfg := testConfig()
	srv, _ := newTestServer(cfg)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/info", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/missing", http.StatusNotFound},
		{"/health/extra", http.StatusNotFound}, // exact match only
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("path %s: expected %d, got %d", tt.path, tt.wantStatus, resp.StatusCode)
			}

			if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("missing security header on %s", tt.path)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Errorf("missing request ID header on %s", tt.path)
			}
		})
	}
}

// TestShutdownResponses tests the full 503 surface once shutdown has begun.
func TestShutdownResponses(t *testing.T) {
	cfg := testConfig()
	srv, state := newTestServer(cfg)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	state.BeginShutdown()

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/", http.StatusServiceUnavailable},
		{"/info", http.StatusServiceUnavailable},
		{"/anything", http.StatusServiceUnavailable},
		{"/ready", http.StatusServiceUnavailable},
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("path %s: expected %d, got %d", tt.path, tt.wantStatus, resp.StatusCode)
			}
		})
	}

	// Readiness body flips exactly with the flag.
	resp, err := http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Ready bool `json:"ready"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Ready {
		t.Error("expected ready false during shutdown")
	}
}

// TestGracefulShutdownEmpty tests that an empty in-flight set exits well
// before the configured timeout.
func TestGracefulShutdownEmpty(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ShutdownTimeout = 10 * time.Second

	srv, state := newTestServer(cfg)
	result := startServer(t, srv, context.Background())

	start := time.Now()
	srv.TriggerShutdown()

	// The flag flips synchronously with the trigger.
	if !state.ShuttingDown() {
		t.Error("expected shutting down immediately after trigger")
	}

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit")
	}

	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("empty in-flight set should exit within 200ms, took %v", elapsed)
	}
}

// TestShutdownWaitsForInFlight tests that a request completing during the
// drain leads to an exit before the timeout.
func TestShutdownWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	})

	cfg := testConfig()
	cfg.Server.ShutdownTimeout = 5 * time.Second

	srv, state := newTestServer(cfg, WithRoute("/slow", slow))
	result := startServer(t, srv, context.Background())

	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial server: %v", err)
	}
	defer conn.Close()

	fmt.Fprintf(conn, "GET /slow HTTP/1.1\r\nHost: test\r\n\r\n")

	waitForInFlight(t, state, 1)

	start := time.Now()
	srv.TriggerShutdown()

	time.Sleep(100 * time.Millisecond)
	close(release)

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not exit after drain")
	}

	elapsed := time.Since(start)
	if elapsed >= cfg.Server.ShutdownTimeout {
		t.Errorf("drain should finish before the timeout, took %v", elapsed)
	}
}

// TestShutdownTimeoutForcesClose tests that a stuck request is force-closed
// at approximately the configured timeout, still exiting cleanly.
func TestShutdownTimeoutForcesClose(t *testing.T) {
	stuck := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	const timeout = 500 * time.Millisecond

	cfg := testConfig()
	cfg.Server.ShutdownTimeout = timeout

	srv, state := newTestServer(cfg, WithRoute("/stuck", stuck))
	result := startServer(t, srv, context.Background())

	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial server: %v", err)
	}
	defer conn.Close()

	fmt.Fprintf(conn, "GET /stuck HTTP/1.1\r\nHost: test\r\n\r\n")

	waitForInFlight(t, state, 1)

	start := time.Now()
	srv.TriggerShutdown()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("timeout path must still be a clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not exit after timeout")
	}

	elapsed := time.Since(start)
	if elapsed < timeout {
		t.Errorf("exited before the drain timeout: %v < %v", elapsed, timeout)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Errorf("exit overshot the drain timeout: %v", elapsed)
	}
}

// TestRequestsDuringDrainGet503 tests that an already-open connection
// receives 503 responses while the server drains.
func TestRequestsDuringDrainGet503(t *testing.T) {
	stuck := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	cfg := testConfig()
	cfg.Server.ShutdownTimeout = 5 * time.Second

	srv, state := newTestServer(cfg, WithRoute("/stuck", stuck))
	srv.signals = make(chan os.Signal, 2)
	result := startServer(t, srv, context.Background())

	// Keep the server draining with one stuck request.
	stuckConn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial server: %v", err)
	}
	defer stuckConn.Close()
	fmt.Fprintf(stuckConn, "GET /stuck HTTP/1.1\r\nHost: test\r\n\r\n")

	// Open a second connection before the listener closes.
	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial server: %v", err)
	}
	defer conn.Close()

	if status := rawRequest(t, conn, "/ready"); status != http.StatusOK {
		t.Fatalf("expected 200 before shutdown, got %d", status)
	}

	waitForInFlight(t, state, 1)
	srv.TriggerShutdown()

	// Within 50ms readiness must flip; the kept-alive connection still
	// gets responses while the drain runs.
	time.Sleep(50 * time.Millisecond)

	if status := rawRequest(t, conn, "/ready"); status != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from readiness during drain, got %d", status)
	}
	if status := rawRequest(t, conn, "/"); status != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from application path during drain, got %d", status)
	}
	if status := rawRequest(t, conn, "/health"); status != http.StatusOK {
		t.Errorf("liveness must keep reporting healthy during drain, got %d", status)
	}

	// New connections are refused once the listener is closed.
	if c, err := net.DialTimeout("tcp", srv.Addr(), 200*time.Millisecond); err == nil {
		c.Close()
		t.Error("expected new connections to be refused during drain")
	}

	srv.signals <- syscall.SIGTERM // already shutting down: force exit
	select {
	case <-result:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after forced signal")
	}
}

// TestSecondSignalForcesExit tests that a second signal while draining
// forces an immediate exit without waiting for the drain timer.
func TestSecondSignalForcesExit(t *testing.T) {
	stuck := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	cfg := testConfig()
	cfg.Server.ShutdownTimeout = 30 * time.Second

	srv, state := newTestServer(cfg, WithRoute("/stuck", stuck))

	exitCode := make(chan int, 1)
	srv.forceExit = func(code int) { exitCode <- code }
	srv.signals = make(chan os.Signal, 2)

	result := startServer(t, srv, context.Background())

	conn, err := net.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("failed to dial server: %v", err)
	}
	defer conn.Close()
	fmt.Fprintf(conn, "GET /stuck HTTP/1.1\r\nHost: test\r\n\r\n")

	waitForInFlight(t, state, 1)

	start := time.Now()
	srv.signals <- syscall.SIGTERM

	waitForShuttingDown(t, state)

	srv.signals <- syscall.SIGTERM

	select {
	case code := <-exitCode:
		if code != 0 {
			t.Errorf("forced exit must still use code 0, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not force exit")
	}

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("expected nil from Start, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after forced exit")
	}

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("forced exit should not wait for the drain timer, took %v", elapsed)
	}
}

// TestContextCancelTriggersShutdown tests shutdown via context cancellation.
func TestContextCancelTriggersShutdown(t *testing.T) {
	cfg := testConfig()

	srv, state := newTestServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	result := startServer(t, srv, ctx)

	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit on context cancellation")
	}

	if !state.ShuttingDown() {
		t.Error("expected shutdown flag set")
	}
}

// TestBindFailure tests that an occupied port is a fatal startup error.
func TestBindFailure(t *testing.T) {
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open blocking listener: %v", err)
	}
	defer blocker.Close()

	addr := blocker.Addr().(*net.TCPAddr)

	cfg := testConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = addr.Port

	srv, _ := newTestServer(cfg)

	if err := srv.Start(context.Background()); err == nil {
		t.Error("expected bind error for occupied port")
	}
}

// TestFaultTriggersShutdown tests that a process-level fault starts the
// shutdown protocol instead of crashing.
func TestFaultTriggersShutdown(t *testing.T) {
	cfg := testConfig()

	srv, state := newTestServer(cfg)
	result := startServer(t, srv, context.Background())

	srv.Fault(fmt.Errorf("background task panicked"))

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("expected clean shutdown after fault, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after fault")
	}

	if !state.ShuttingDown() {
		t.Error("expected shutdown flag set after fault")
	}
}

func waitForInFlight(t *testing.T, state *lifecycle.State, want int64) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for state.InFlight() != want {
		if time.Now().After(deadline) {
			t.Fatalf("in-flight count did not reach %d (got %d)", want, state.InFlight())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitForShuttingDown(t *testing.T, state *lifecycle.State) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !state.ShuttingDown() {
		if time.Now().After(deadline) {
			t.Fatal("shutdown flag was not set")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
