// Package commands implements CLI command handlers for papersift.
package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/llm"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
	verbose    bool
	quiet      bool
	noColor    bool
}

// NewRootCommand creates the papersift command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(llm.NewChatModel)
}

func newRootCommandWithDeps(factory llm.Factory) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "papersift",
		Short: "papersift - resumable LLM screening of research paper collections",
		Long: `papersift screens and categorizes research paper collections.

Stages:
  keyword     Split papers by AI and coding keywords (no LLM)
  filter      LLM relevance screen into included and rejected lists
  categorize  LLM categorization into a fixed task taxonomy
  stats       Category statistics of a categorized list

The filter and categorize stages save progress after every batch. Re-running
an interrupted command resumes after the last completed batch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default: .papersift.yaml in CWD or $HOME)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&opts.logJSON, "log-json", false, "Write logs as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Only log warnings and errors")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newKeywordCommand(opts),
		newFilterCommandWithDeps(opts, factory),
		newCategorizeCommandWithDeps(opts, factory),
		newStatsCommand(opts),
		newStatusCommand(opts),
		newExportCommand(opts),
		newMCPCommand(opts),
		newVersionCommand(),
	)

	return rootCmd
}

// ExitCode maps a command error to the process exit code: 130 for an
// interrupted run, 1 for anything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, driver.ErrInterrupted), errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}
