// Package cli contains shared helpers for the bastion command surface:
// typed errors for configuration and command failures.
package cli
