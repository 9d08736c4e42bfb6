package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "bastion",
	Short: "Bastion - lifecycle-aware application server for hardened base images",
	Long: `Bastion is the reference application server that ships with the hardened
container base image scaffold.

It serves a minimal HTTP workload with production lifecycle behavior:
  - Liveness, readiness, and Prometheus metrics endpoints
  - Security headers on every response
  - Bounded graceful shutdown draining in-flight requests`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Config file is optional: without one the server runs from defaults
	// plus environment variables, which is the common container setup.
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (optional)")
}
