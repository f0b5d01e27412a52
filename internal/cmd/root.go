package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// globalOptions holds the persistent flags shared by every subcommand
type globalOptions struct {
	configPath string
	logLevel   string
	format     string
	record     bool
	dbPath     string
	logFile    bool
}

// NewRootCommand creates and returns the root cobra command for parallelizer
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "parallelizer",
		Short: "Dependency-aware parallel task planner and conflict detector",
		Long: `Parallelizer plans how a list of tasks can be spread across multiple
agents working at the same time.

It builds a dependency graph from declared and inferred dependencies,
finds the critical path, partitions tasks into ordered batches, and after
execution checks agent results for conflicting changes. It never runs the
tasks itself.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (default: .parallelizer/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default from config)")
	flags.StringVarP(&opts.format, "format", "o", "text", "Output format: text, json, yaml")
	flags.BoolVar(&opts.record, "record", false, "Record the report in the run history database")
	flags.StringVar(&opts.dbPath, "db", "", "Path to the run history database (default: .parallelizer/history.db)")
	flags.BoolVar(&opts.logFile, "log-file", false, "Also write a run log under the configured log_dir")

	cmd.AddCommand(newGraphCommand(opts))
	cmd.AddCommand(newAnalyzeCommand(opts))
	cmd.AddCommand(newBatchCommand(opts))
	cmd.AddCommand(newContinueCommand(opts))
	cmd.AddCommand(newConflictsCommand(opts))
	cmd.AddCommand(newProgressCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))

	return cmd
}
