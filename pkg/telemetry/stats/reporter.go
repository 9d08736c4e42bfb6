// Package stats logs a periodic snapshot of runtime measurements (uptime,
// memory, goroutines, in-flight requests) on a cron schedule. It gives
// operators a heartbeat in the logs even when nothing scrapes /metrics.
package stats

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/robfig/cron/v3"

	"bastion-hq/bastion/pkg/config"
	"bastion-hq/bastion/pkg/lifecycle"
)

// Reporter runs the scheduled stats job.
type Reporter struct {
	cron    *cron.Cron
	state   *lifecycle.State
	cfg     *config.StatsConfig
	onFault func(error)
}

// NewReporter creates a stats reporter bound to the lifecycle state. onFault
// is invoked if the job panics; it may be nil.
func NewReporter(cfg *config.StatsConfig, state *lifecycle.State, onFault func(error)) *Reporter {
	return &Reporter{
		cron:    cron.New(),
		state:   state,
		cfg:     cfg,
		onFault: onFault,
	}
}

// Start schedules the job and starts the cron runner. It is a no-op when
// the reporter is disabled.
func (r *Reporter) Start() error {
	if !r.cfg.Enabled {
		return nil
	}

	_, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		lifecycle.Protect("stats reporter", r.onFault, r.report)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule stats reporter %q: %w", r.cfg.Schedule, err)
	}

	r.cron.Start()
	slog.Debug("stats reporter started", "schedule", r.cfg.Schedule)
	return nil
}

// Stop stops the cron runner. Jobs already running are not interrupted.
func (r *Reporter) Stop() {
	r.cron.Stop()
}

func (r *Reporter) report() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	slog.Info("runtime stats",
		"uptime_seconds", r.state.Uptime().Seconds(),
		"in_flight", r.state.InFlight(),
		"goroutines", runtime.NumGoroutine(),
		"heap_alloc_bytes", mem.HeapAlloc,
		"heap_sys_bytes", mem.HeapSys,
		"gc_runs", mem.NumGC,
	)
}
