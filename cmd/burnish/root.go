package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "burnish",
		Short: "Burnish - closed-loop code quality polishing",
		Long: `Burnish drives a closed improvement loop over a codebase: it scores the
code against configured quality metrics, asks a coding agent for one atomic
fix aimed at the worst metric, re-scores, and keeps the change only if the
score improved. The loop ends at the target score, on a plateau, or when a
budget runs out.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newPolishCommand())
	cmd.AddCommand(newScoreCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newSessionCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
