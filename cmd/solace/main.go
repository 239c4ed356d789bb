// Package main is the entry point for the solace binary.
// It provides a CLI for running the tri-chamber reasoning engine as a
// server, processing one-shot batches, and inspecting fingerprints.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for solace
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "solace",
		Short: "Solace tri-chamber reasoning engine",
		Long: `Solace runs raw claims through three chambers (Weight, Pattern and
Integrity), preserves contradictions in a lattice memory, and watches its own
drift through E-PASA fingerprinting.

Examples:
  solace serve --config solace.yaml
  solace process --config solace.yaml "the sky is blue" "the sky is not blue"
  solace fingerprint`,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "Enable pretty console logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newFingerprintCmd())

	return rootCmd
}
