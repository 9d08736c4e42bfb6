package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bastion-hq/bastion/pkg/cli"
	"bastion-hq/bastion/pkg/config"
	"bastion-hq/bastion/pkg/content"
	"bastion-hq/bastion/pkg/lifecycle"
	"bastion-hq/bastion/pkg/server"
	"bastion-hq/bastion/pkg/telemetry/logging"
	"bastion-hq/bastion/pkg/telemetry/metrics"
	"bastion-hq/bastion/pkg/telemetry/stats"
)

var runFlags struct {
	listenHost string
	listenPort int
	logLevel   string
	dryRun     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the application server",
	Long: `Start the application server with the specified configuration.

The server reads its configuration from the optional config file, then from
the environment (PORT, HOST, APP_ENV, SHUTDOWN_TIMEOUT_MS, and BASTION_*
overrides). It exits 0 on every shutdown path, graceful or forced, and 1
only when the listening socket cannot be bound.

Examples:
  # Start with defaults and environment
  bastion run

  # Start with a config file
  bastion run --config /etc/bastion/config.yaml

  # Override the listen port
  bastion run --port 3000

  # Validate config without starting
  bastion run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.listenHost, "host", "", "override listen host")
	runCmd.Flags().IntVarP(&runFlags.listenPort, "port", "p", 0, "override listen port")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	// Apply flag overrides
	if runFlags.listenHost != "" {
		cfg.Server.Host = runFlags.listenHost
	}
	if runFlags.listenPort != 0 {
		cfg.Server.Port = runFlags.listenPort
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if _, err := logging.Setup(&cfg.Telemetry.Logging); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	slog.Info("starting bastion",
		"version", Version,
		"address", cfg.Server.ListenAddress(),
		"environment", cfg.Server.Environment,
	)

	state := lifecycle.NewState()

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, state, nil)
	}

	srv := &serverHolder{}

	store, err := content.NewStore(&cfg.Content, srv.fault)
	if err != nil {
		return cli.NewConfigError("content.file", err.Error())
	}
	if store != nil {
		defer store.Close()
	}

	srv.Server = server.New(cfg, state, collector, store)

	reporter := stats.NewReporter(&cfg.Telemetry.Stats, state, srv.fault)
	if err := reporter.Start(); err != nil {
		return cli.NewConfigError("telemetry.stats", err.Error())
	}
	defer reporter.Stop()

	// The server installs its own signal handler: the first SIGINT/SIGTERM
	// starts the drain, a second one forces an immediate exit. The context
	// is reserved for programmatic cancellation.
	if err := srv.Start(context.Background()); err != nil {
		slog.Error("server failed", "error", err)
		return cli.NewCommandError("run", err)
	}

	return nil
}

// serverHolder lets the content store and stats reporter report faults into
// the server before the server value itself exists.
type serverHolder struct {
	*server.Server
}

func (h *serverHolder) fault(err error) {
	if h.Server != nil {
		h.Server.Fault(err)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadConfigWithEnvOverrides(cfgFile)
	}
	return config.New()
}
