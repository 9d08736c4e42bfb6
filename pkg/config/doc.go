// Package config loads and validates the application server configuration.
//
// Configuration is an immutable snapshot read once at startup. It comes from
// three layers, later layers winning:
//
//  1. Built-in defaults (ApplyDefaults)
//  2. An optional YAML file (LoadConfig)
//  3. Environment variables (applyEnvOverrides)
//
// The conventional container environment variables are recognized directly:
//
//	PORT                 listen port (default 8080)
//	HOST                 listen host (default 0.0.0.0)
//	APP_ENV              environment name (default "development")
//	SHUTDOWN_TIMEOUT_MS  graceful shutdown budget in milliseconds (default 10000)
//
// Everything else is overridable through BASTION_-prefixed variables, e.g.
// BASTION_LOGGING_LEVEL or BASTION_STATS_SCHEDULE.
package config
