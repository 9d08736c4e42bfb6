package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bastion-hq/bastion/pkg/cli"
	"bastion-hq/bastion/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the server.

All validation errors are reported together, so a broken file can be fixed
in one pass.

Examples:
  bastion validate --config /etc/bastion/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			return cli.NewConfigError("", "no config file specified; use --config")
		}

		if _, err := config.LoadConfig(cfgFile); err != nil {
			return cli.NewConfigError("", err.Error())
		}

		fmt.Printf("✓ %s is valid\n", cfgFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
