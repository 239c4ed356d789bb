package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/solace-ai/solace/pkg/config"
	"github.com/solace-ai/solace/pkg/epasa"
)

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the baseline fingerprint for the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			computer := epasa.NewComputer(nil, cfg.Epasa.EthicalSeed)
			fp := computer.Compute(nil)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(fp)
		},
	}
}
