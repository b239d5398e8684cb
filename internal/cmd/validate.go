package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/scadbench/internal/challenge"
	"github.com/harrison/scadbench/internal/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and challenge tree",
		Long: `Validate the config file, check that the OpenSCAD executable can be
found, and list the challenges that would run. No API calls are made.`,
		Args: cobra.NoArgs,
		RunE: validateCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: scadbench.yaml)")

	return cmd
}

func validateCommand(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = DefaultConfigFile
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Fprintf(out, "✓ config valid (%d models)\n", len(cfg.Models))

	if cfg.ValidateOpenSCADPath() {
		green.Fprintf(out, "✓ OpenSCAD found (%s)\n", cfg.OpenSCADPath)
	} else {
		yellow.Fprintf(out, "! OpenSCAD executable %q not found; renders will fail\n", cfg.OpenSCADPath)
	}

	discovered, err := challenge.Discover(cfg.ProjectRoot)
	if err != nil {
		return err
	}

	selected, warnings, err := challenge.Filter(discovered, cfg.Challenges, cfg.ExcludeChallenges)
	if err != nil {
		return err
	}
	for _, warning := range warnings {
		yellow.Fprintf(out, "! %s\n", warning)
	}

	green.Fprintf(out, "✓ %d challenges selected\n", len(selected))
	for _, ch := range selected {
		fmt.Fprintf(out, "    %s\n", ch.Name)
	}

	return nil
}
