package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure for the Bastion application
// server. It is read once at startup and never mutated afterwards.
type Config struct {
	// Server contains the HTTP server configuration including listen
	// address, timeouts, and the graceful shutdown budget.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for logging, the Prometheus
	// metrics endpoint, and the scheduled runtime stats reporter.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Content contains configuration for the application content served
	// on the root path.
	Content ContentConfig `yaml:"content"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// Host is the address to bind the listening socket to.
	// Default: "0.0.0.0"
	Host string `yaml:"host"`

	// Port is the TCP port to listen on.
	// Default: 8080
	Port int `yaml:"port"`

	// Environment is the deployment environment name reported by the
	// application endpoints (e.g. "development", "staging", "production").
	// Default: "development"
	Environment string `yaml:"environment"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests to drain after a termination signal. When the timeout
	// elapses, remaining connections are force-closed and the process
	// still exits cleanly.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// DrainPollInterval is how often the shutdown routine checks the
	// in-flight request count while draining.
	// Default: 100ms
	DrainPollInterval time.Duration `yaml:"drain_poll_interval"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// kept-alive connection.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// ListenAddress returns the host:port string to bind to.
func (c *ServerConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Stats configures the scheduled runtime stats reporter.
	Stats StatsConfig `yaml:"stats"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is registered.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path the exposition handler is mounted on.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the prefix for request metrics (not applied to the
	// process-level gauges, which use the conventional process_ names).
	// Default: "bastion"
	Namespace string `yaml:"namespace"`
}

// StatsConfig contains configuration for the scheduled runtime stats log.
type StatsConfig struct {
	// Enabled controls whether the stats reporter runs.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression (robfig/cron v3 syntax, @every
	// shorthand supported) controlling how often stats are logged.
	// Default: "@every 1m"
	Schedule string `yaml:"schedule"`
}

// ContentConfig contains configuration for application content served on
// the root path.
type ContentConfig struct {
	// Message is the greeting returned by the root endpoint when no
	// content file is configured.
	// Default: "Hello from the Bastion base image!"
	Message string `yaml:"message"`

	// File is an optional path to a static file served as the root
	// response body instead of the JSON greeting. The file is cached and
	// re-read when it changes on disk.
	File string `yaml:"file"`
}
