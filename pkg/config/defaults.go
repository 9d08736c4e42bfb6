package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 8080
	DefaultEnvironment       = "development"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultDrainPollInterval = 100 * time.Millisecond
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
	DefaultMetricsNS      = "bastion"
	DefaultStatsEnabled   = true
	DefaultStatsSchedule  = "@every 1m"

	// Content defaults
	DefaultContentMessage = "Hello from the Bastion base image!"
)

// ApplyDefaults applies default values to a Config struct. It sets defaults
// for any fields that have zero values, so it must run before YAML or
// environment values are layered on top. The function is idempotent.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = DefaultEnvironment
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.DrainPollInterval == 0 {
		cfg.Server.DrainPollInterval = DefaultDrainPollInterval
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNS
	}
	if cfg.Telemetry.Stats.Schedule == "" {
		cfg.Telemetry.Stats.Schedule = DefaultStatsSchedule
	}

	if cfg.Content.Message == "" {
		cfg.Content.Message = DefaultContentMessage
	}
}

// New returns a configuration populated entirely from defaults and
// environment variables, for deployments that run without a config file.
func New() (*Config, error) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	// Enabled-by-default booleans cannot be expressed as zero-value
	// defaults; set them here, before environment overrides.
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Stats.Enabled = DefaultStatsEnabled

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
