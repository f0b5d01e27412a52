package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrison/parallelizer/internal/config"
	"github.com/harrison/parallelizer/internal/display"
	"github.com/harrison/parallelizer/internal/logger"
	"github.com/harrison/parallelizer/internal/models"
	"github.com/harrison/parallelizer/internal/parser"
	"github.com/harrison/parallelizer/internal/planner"
	"github.com/harrison/parallelizer/internal/store"
)

// Output formats
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// session is the per-invocation state every subcommand works with: merged
// configuration, loggers, and the output writers.
type session struct {
	cfg    *config.Config
	log    logger.Logger
	format string
	record bool
	out    io.Writer
	errOut io.Writer

	fileLog *logger.FileLogger
}

// newSession loads configuration (defaults, then file, then flags that were
// set on the command line), validates it, and creates the loggers. Log lines
// go to stderr so stdout only carries the report.
func newSession(cmd *cobra.Command, opts *globalOptions) (*session, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.LoadConfig(opts.configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.MergeWithFlags(
		changedString(cmd, "log-level"),
		changedInt(cmd, "agents"),
		changedString(cmd, "objective"),
		changedBool(cmd, "detect-implicit"),
		changedString(cmd, "failure-strategy"),
		changedString(cmd, "db"),
	)
	if strategy := changedString(cmd, "strategy"); strategy != nil {
		cfg.Progress.Strategy = *strategy
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	format := strings.ToLower(strings.TrimSpace(opts.format))
	switch format {
	case formatText, formatJSON, formatYAML:
	case "yml":
		format = formatYAML
	default:
		return nil, fmt.Errorf("invalid format %q, must be one of: text, json, yaml", opts.format)
	}

	s := &session{
		cfg:    cfg,
		format: format,
		record: opts.record || cfg.Store.Enabled,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	console := logger.NewConsoleLogger(s.errOut, cfg.LogLevel)
	if opts.logFile {
		fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create run log: %w", err)
		}
		s.fileLog = fileLog
		s.log = logger.NewMultiLogger(console, fileLog)
	} else {
		s.log = console
	}
	return s, nil
}

// Close flushes the run log, if any.
func (s *session) Close() error {
	if s.fileLog != nil {
		return s.fileLog.Close()
	}
	return nil
}

func changedString(cmd *cobra.Command, name string) *string {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	v := f.Value.String()
	return &v
}

func changedInt(cmd *cobra.Command, name string) *int {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return nil
	}
	return &v
}

func changedBool(cmd *cobra.Command, name string) *bool {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return nil
	}
	return &v
}

// emit writes report as JSON or YAML, or calls text for the text format.
func (s *session) emit(report interface{}, text func(w io.Writer)) error {
	switch s.format {
	case formatJSON:
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	case formatYAML:
		enc := yaml.NewEncoder(s.out)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	default:
		text(s.out)
	}
	return nil
}

// loadTasks parses a task list file or split task list directory.
func (s *session) loadTasks(path string) (*parser.TaskFile, error) {
	if path != "-" && parser.IsSplitTaskList(path) {
		var progress *display.ProgressIndicator
		tf, err := parser.ParseDirectoryWithProgress(path, func(file string, index, total int) {
			if progress == nil {
				progress = display.NewProgressIndicator(s.errOut, total)
				progress.Start()
			}
			progress.Step(file)
		})
		if err != nil {
			return nil, err
		}
		if progress != nil {
			progress.Complete()
		}
		s.log.LogDebug(fmt.Sprintf("Loaded %d tasks from %s", len(tf.Tasks), path))
		return tf, nil
	}

	if path != "-" && s.format == formatText {
		display.DisplaySingleFile(s.errOut, path)
	}
	tf, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	s.log.LogDebug(fmt.Sprintf("Loaded %d tasks from %s", len(tf.Tasks), path))
	return tf, nil
}

// buildGraph loads a task list and builds its dependency graph.
func (s *session) buildGraph(path string) (*parser.TaskFile, *models.DependencyGraph, error) {
	tf, err := s.loadTasks(path)
	if err != nil {
		return nil, nil, err
	}

	g, err := planner.BuildDependencyGraph(tf.Tasks, planner.BuildOptions{
		DetectImplicit: s.cfg.DetectImplicit,
		MinConfidence:  s.cfg.Inference.MinConfidence,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	s.log.LogGraph(g)
	return tf, g, nil
}

// requireAcyclic warns about and rejects a cyclic graph.
func (s *session) requireAcyclic(g *models.DependencyGraph) error {
	report := planner.DetectCycles(g)
	if !report.HasCycles {
		return nil
	}
	if w, ok := display.WarnCycle(report.Cycle); ok {
		w.Display(s.errOut)
	}
	return &models.GraphCycleError{Cycle: report.Cycle}
}

func (s *session) analysisOptions() planner.AnalysisOptions {
	return planner.AnalysisOptions{
		CoordinationOverhead: s.cfg.Analysis.CoordinationOverhead,
		MinSpeedup:           s.cfg.Analysis.MinSpeedup,
		MinTasks:             s.cfg.Analysis.MinTasks,
	}
}

func (s *session) optimizeOptions() planner.OptimizeOptions {
	return planner.OptimizeOptions{
		MaxAgents: s.cfg.MaxAgents,
		Objective: models.Objective(s.cfg.Objective),
	}
}

// recordRun stores the report in the run history when recording is on.
func (s *session) recordRun(ctx context.Context, run *store.Run, report interface{}) error {
	if !s.record {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report for history: %w", err)
	}
	run.Report = string(data)

	dbPath, err := config.ResolveDBPath(s.cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("failed to resolve history database: %w", err)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer st.Close()

	if err := st.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	s.log.LogInfo(fmt.Sprintf("Recorded run %s", run.ID))
	return nil
}
