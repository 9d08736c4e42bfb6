package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"

	"bastion-hq/bastion/pkg/lifecycle"
)

// runtimeCollector implements prometheus.Collector for the process-level
// gauges: uptime, memory usage by type, and goroutine count. Values are
// read at scrape time so every exposition reflects current measurements.
type runtimeCollector struct {
	state *lifecycle.State

	uptimeDesc     *prometheus.Desc
	memoryDesc     *prometheus.Desc
	goroutinesDesc *prometheus.Desc
	gcRunsDesc     *prometheus.Desc
}

func newRuntimeCollector(state *lifecycle.State) *runtimeCollector {
	return &runtimeCollector{
		state: state,
		uptimeDesc: prometheus.NewDesc(
			"process_uptime_seconds",
			"Process uptime in seconds.",
			nil, nil,
		),
		memoryDesc: prometheus.NewDesc(
			"process_memory_bytes",
			"Process memory usage in bytes, by type.",
			[]string{"type"}, nil,
		),
		goroutinesDesc: prometheus.NewDesc(
			"process_goroutines",
			"Number of goroutines.",
			nil, nil,
		),
		gcRunsDesc: prometheus.NewDesc(
			"process_gc_runs_total",
			"Completed garbage collection cycles since process start.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *runtimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.uptimeDesc
	ch <- c.memoryDesc
	ch <- c.goroutinesDesc
	ch <- c.gcRunsDesc
}

// Collect implements prometheus.Collector.
func (c *runtimeCollector) Collect(ch chan<- prometheus.Metric) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue, c.state.Uptime().Seconds(),
	)

	for _, m := range []struct {
		kind  string
		value uint64
	}{
		{"heap_alloc", mem.HeapAlloc},
		{"heap_sys", mem.HeapSys},
		{"stack_inuse", mem.StackInuse},
		{"sys", mem.Sys},
	} {
		ch <- prometheus.MustNewConstMetric(
			c.memoryDesc, prometheus.GaugeValue, float64(m.value), m.kind,
		)
	}

	ch <- prometheus.MustNewConstMetric(
		c.goroutinesDesc, prometheus.GaugeValue, float64(runtime.NumGoroutine()),
	)
	ch <- prometheus.MustNewConstMetric(
		c.gcRunsDesc, prometheus.CounterValue, float64(mem.NumGC),
	)
}
