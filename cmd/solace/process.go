package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solace-ai/solace/pkg/config"
	"github.com/solace-ai/solace/pkg/engine"
	"github.com/solace-ai/solace/pkg/logging"
)

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [items...]",
		Short: "Run one batch through the pipeline and print the result",
		Long: `Process runs a single batch through the tri-chamber pipeline with an
in-process engine and prints the batch result as JSON.

Items are taken from positional arguments, or from a YAML/JSON file via
--file with entries of the form {content, source, contradiction}.`,
		RunE: runProcess,
	}
	cmd.Flags().StringP("file", "f", "", "Path to a YAML or JSON file with batch items")
	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	pretty, _ := cmd.Flags().GetBool("pretty")
	filePath, _ := cmd.Flags().GetString("file")

	logger := logging.NewLogger(logging.Config{Level: logLevel, Pretty: pretty})

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	items, err := collectItems(args, filePath)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("no items to process; pass arguments or --file")
	}

	pipeline, _, _, _, err := buildEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	result, err := pipeline.Process(cmd.Context(), items)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func collectItems(args []string, filePath string) ([]engine.Item, error) {
	items := make([]engine.Item, 0, len(args))
	for _, arg := range args {
		items = append(items, engine.Item{Content: arg, Source: "cli"})
	}

	if filePath != "" {
		//nolint:gosec // Batch file path is provided by the operator
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read batch file: %w", err)
		}
		var fromFile []engine.Item
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			if jsonErr := json.Unmarshal(data, &fromFile); jsonErr != nil {
				return nil, fmt.Errorf("parse batch file: %w", err)
			}
		}
		items = append(items, fromFile...)
	}

	return items, nil
}
