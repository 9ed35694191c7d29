package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/burnish-dev/burnish/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var interactive bool
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a project for polishing",
		Long: `Initialize a project for polishing.

Creates a .burnish.yaml config file with a starter metric and a POLISH.md
rules document the fix agent must respect.

Use --interactive to run a guided wizard that collects budgets, the model,
and your first metric.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive, force)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run the guided setup wizard")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive, force bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, ".burnish.yaml")
	rulesPath := filepath.Join(dir, "POLISH.md")

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
	}

	spec := wizard.DefaultSpec()
	if interactive {
		var err error
		spec, err = wizard.RunProjectWizard(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	content, err := wizard.GenerateConfigYAML(spec)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	if _, err := os.Stat(rulesPath); os.IsNotExist(err) || force {
		if err := os.WriteFile(rulesPath, []byte(wizard.GenerateRulesMD()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rulesPath, err)
		}
	}

	// Print summary
	fmt.Fprintln(cmd.OutOrStdout(), "Initialized polish project:") //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", configPath)           //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", rulesPath)            //nolint:errcheck

	return nil
}
