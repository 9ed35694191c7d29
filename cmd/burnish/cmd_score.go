package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/burnish-dev/burnish/internal/metrics"
	"github.com/burnish-dev/burnish/internal/projectconfig"
)

func newScoreCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "score [directory]",
		Short: "Run one scoring pass and print the results",
		Long: `Run a single scoring pass against the configured metrics and print the
per-metric and composite scores without starting the polish loop.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return scoreCommandE(cmd, dir, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the score result as JSON")

	return cmd
}

func scoreCommandE(cmd *cobra.Command, dir string, asJSON bool) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}

	if err := validateConfigAt(absPath); err != nil {
		return err
	}

	cfg, err := projectconfig.Load(absPath)
	if err != nil {
		return err
	}

	defs := cfg.MetricDefs()
	if len(defs) == 0 {
		return fmt.Errorf("no metrics configured; run `burnish init` to create .burnish.yaml")
	}

	scorer, err := metrics.NewScorer(defs)
	if err != nil {
		return fmt.Errorf("building scorer: %w", err)
	}

	result, err := scorer.Score(cmd.Context(), absPath)
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printScoreTable(cmd.OutOrStdout(), result)
	return nil
}
