// Package metrics exposes the server's Prometheus metrics: process-level
// gauges (uptime, memory by type, goroutines) plus per-request counters.
// Metrics are registered on a private registry so the exposition surface is
// exactly what this package defines.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"bastion-hq/bastion/pkg/config"
	"bastion-hq/bastion/pkg/lifecycle"
)

// Collector owns the Prometheus registry and the request-level metrics.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
}

// NewCollector creates a metrics collector bound to the given lifecycle
// state. If registry is nil a new private registry is created.
func NewCollector(cfg *config.MetricsConfig, state *lifecycle.State, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "bastion"
	}

	c := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed, by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
	}

	registry.MustRegister(c.requestsTotal)
	registry.MustRegister(newRuntimeCollector(state))
	registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests accepted but not yet completed.",
		},
		func() float64 { return float64(state.InFlight()) },
	))

	return c
}

// RecordRequest records a completed request.
func (c *Collector) RecordRequest(method, path string, status int) {
	c.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
