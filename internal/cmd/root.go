// Package cmd defines the scadbench CLI.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCommand creates the root cobra command for scadbench.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scadbench",
		Short: "Benchmark LLMs on OpenSCAD modeling challenges",
		Long: `Scadbench sends modeling challenges to a set of LLMs through the
OpenRouter API, extracts the OpenSCAD code from each response, and renders
it to STL in parallel.

Each challenge is a directory under challenges/ containing a prompt.md.
Per-model artifacts (source, STL, raw response, parameters) are written to
challenges/<name>/models/<model>/.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
