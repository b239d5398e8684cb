package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/scadbench/internal/config"
	"github.com/harrison/scadbench/internal/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past benchmark runs",
		Long: `List recent benchmark runs, or show the per-attempt results of one
run when a run ID is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: historyCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: scadbench.yaml)")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")

	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = DefaultConfigFile
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in the configuration")
	}

	dbPath := cfg.History.DBPath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(cfg.ProjectRoot, dbPath)
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		return printRunAttempts(cmd, store, args[0])
	}

	limit, _ := cmd.Flags().GetInt("limit")
	return printRunList(cmd, store, limit)
}

func printRunList(cmd *cobra.Command, store *history.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(out, "%s  %s  %d/%d rendered  (%d models, %d challenges)\n",
			run.RunID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Rendered, run.Total,
			len(run.Models), len(run.Challenges))
	}
	return nil
}

func printRunAttempts(cmd *cobra.Command, store *history.Store, runID string) error {
	attempts, err := store.Attempts(runID)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		return fmt.Errorf("no attempts recorded for run %s", runID)
	}
	out := cmd.OutOrStdout()

	for _, a := range attempts {
		var status string
		switch {
		case a.RenderSuccess:
			status = color.GreenString("✓ (%.1fs)", a.RenderSecs)
		case !a.APISuccess:
			status = color.RedString("API ✗")
		default:
			status = color.RedString("✗")
		}
		fmt.Fprintf(out, "%-20s  %-40s  %s\n", a.Challenge, a.Model, status)
		if !a.RenderSuccess && a.ErrorMessage != "" {
			fmt.Fprintf(out, "%22s%s\n", "", a.ErrorMessage)
		}
	}
	return nil
}
