package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/scadbench/internal/bench"
	"github.com/harrison/scadbench/internal/challenge"
	"github.com/harrison/scadbench/internal/config"
	"github.com/harrison/scadbench/internal/filelock"
	"github.com/harrison/scadbench/internal/history"
	"github.com/harrison/scadbench/internal/logger"
	"github.com/harrison/scadbench/internal/openrouter"
)

// StateDirName holds the lock, logs, and history database.
const StateDirName = ".scadbench"

// DefaultConfigFile is the config looked up when --config is not given.
const DefaultConfigFile = "scadbench.yaml"

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark",
		Long: `Run every configured challenge against every configured model.

For each challenge the prompt is dispatched to all models in parallel with a
live status table, then the extracted OpenSCAD code is rendered to STL
through a bounded worker pool.

Exit status is 0 when every attempt rendered, 2 when none did, and 1
otherwise.

Examples:
  scadbench run
  scadbench run --challenges headphone-hook --models openai/gpt-4o
  scadbench run --dry-run
  scadbench run --max-workers 8 --timeout 10m`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: scadbench.yaml)")
	cmd.Flags().Bool("dry-run", false, "Show what would run without calling the API")
	cmd.Flags().StringSlice("models", nil, "Override configured models")
	cmd.Flags().StringSlice("challenges", nil, "Restrict to named challenges")
	cmd.Flags().Int("max-workers", 0, "Maximum concurrent OpenSCAD renders")
	cmd.Flags().String("timeout", "", "API timeout per model (e.g., 5m, 600s)")
	cmd.Flags().String("log-level", "", "Log verbosity (debug, info, warn, error)")
	cmd.Flags().Bool("verbose", false, "Shorthand for --log-level debug")
	cmd.Flags().Bool("no-history", false, "Skip recording this run in the history database")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	challenges, err := discoverChallenges(cfg, cmd)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		printDryRun(cmd, cfg, challenges)
		return nil
	}

	if err := cfg.LoadAPIKey(); err != nil {
		return err
	}

	stateDir := filepath.Join(cfg.ProjectRoot, StateDirName)
	release, err := filelock.AcquireRunLock(stateDir)
	if err != nil {
		return err
	}
	defer release()

	log, closeLog, err := buildLogger(cfg, stateDir)
	if err != nil {
		return err
	}
	defer closeLog()

	if !cfg.ValidateOpenSCADPath() {
		log.LogWarn(fmt.Sprintf("OpenSCAD executable %q not found; renders will fail", cfg.OpenSCADPath))
	}

	var store *history.Store
	noHistory, _ := cmd.Flags().GetBool("no-history")
	if cfg.History.Enabled && !noHistory {
		dbPath := cfg.History.DBPath
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(cfg.ProjectRoot, dbPath)
		}
		store, err = history.NewStore(dbPath)
		if err != nil {
			log.LogWarn(fmt.Sprintf("history disabled: %v", err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	client := openrouter.NewClient(cfg.APIKey(), cfg.API.Timeout, log)
	runner := bench.NewRunner(cfg, client, log, cmd.OutOrStdout(), store)

	results, err := runner.Run(cmd.Context(), challenges)
	if err != nil {
		return err
	}

	bench.PrintSummary(cmd.OutOrStdout(), results)

	if code := bench.ExitCode(results); code != 0 {
		return &ExitError{
			Code:    code,
			Message: fmt.Sprintf("%d of %d attempts rendered", bench.RenderedCount(results), len(results)),
		}
	}
	return nil
}

func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = DefaultConfigFile
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	models, _ := cmd.Flags().GetStringSlice("models")
	challengeNames, _ := cmd.Flags().GetStringSlice("challenges")

	var logLevelPtr *string
	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &level
	} else if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		debug := "debug"
		logLevelPtr = &debug
	}

	var maxWorkersPtr *int
	if cmd.Flags().Changed("max-workers") {
		v, _ := cmd.Flags().GetInt("max-workers")
		maxWorkersPtr = &v
	}

	var timeoutPtr *time.Duration
	if cmd.Flags().Changed("timeout") {
		raw, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", raw, err)
		}
		timeoutPtr = &timeout
	}

	cfg.MergeWithFlags(models, challengeNames, logLevelPtr, maxWorkersPtr, timeoutPtr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func discoverChallenges(cfg *config.Config, cmd *cobra.Command) ([]challenge.Challenge, error) {
	discovered, err := challenge.Discover(cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}

	selected, warnings, err := challenge.Filter(discovered, cfg.Challenges, cfg.ExcludeChallenges)
	if err != nil {
		return nil, err
	}
	for _, warning := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("no challenges selected")
	}
	return selected, nil
}

func printDryRun(cmd *cobra.Command, cfg *config.Config, challenges []challenge.Challenge) {
	out := cmd.OutOrStdout()
	nonDefault := cfg.API.NonDefaultParams()

	fmt.Fprintf(out, "Dry run: %d challenges x %d models = %d attempts\n\n",
		len(challenges), len(cfg.Models), len(challenges)*len(cfg.Models))

	for _, ch := range challenges {
		fmt.Fprintf(out, "%s:\n", ch.Name)
		for _, model := range cfg.Models {
			fmt.Fprintf(out, "  %s -> %s\n", model, challenge.OutputPath(ch.Path, model, nonDefault))
		}
	}

	fmt.Fprintf(out, "\nrender: %d workers, %s timeout\n", cfg.Render.MaxWorkers, cfg.Render.Timeout)
	if cfg.API.MaxConcurrency > 0 {
		fmt.Fprintf(out, "api: at most %d concurrent requests\n", cfg.API.MaxConcurrency)
	}
}

func buildLogger(cfg *config.Config, stateDir string) (logger.Logger, func(), error) {
	console := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)

	fileLog, err := logger.NewFileLogger(filepath.Join(stateDir, "logs"), "debug")
	if err != nil {
		// A read-only checkout still gets console logging
		return console, func() {}, nil
	}
	return logger.NewMultiLogger(console, fileLog), func() { fileLog.Close() }, nil
}
