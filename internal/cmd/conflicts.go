package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/parallelizer/internal/conflict"
	"github.com/harrison/parallelizer/internal/display"
	"github.com/harrison/parallelizer/internal/models"
	"github.com/harrison/parallelizer/internal/parser"
	"github.com/harrison/parallelizer/internal/store"
)

// ErrHighSeverityConflicts is returned by conflicts --fail-on-high when at
// least one high-severity conflict was found.
var ErrHighSeverityConflicts = errors.New("high-severity conflicts detected")

func newConflictsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts <results>",
		Short: "Detect conflicting changes in agent execution results",
		Long: `Inspect execution results for unsafe interactions between tasks that ran
concurrently:

  file-level            two tasks wrote the same resource
  dependency-violation  a task used a resource created by a task that is not
                        ordered before it
  semantic              concurrent changes touched the same identifiers or
                        described similar work

With --tasks the task list is planned so dependency violations can be
checked and results without a batch are placed in their planned batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			tasksPath, _ := cmd.Flags().GetString("tasks")
			failOnHigh, _ := cmd.Flags().GetBool("fail-on-high")
			return runConflicts(cmd, s, args[0], tasksPath, failOnHigh)
		},
	}

	addPlanFlags(cmd)
	cmd.Flags().String("tasks", "", "Task list the results belong to")
	cmd.Flags().Bool("fail-on-high", false, "Exit non-zero when high-severity conflicts are found")
	return cmd
}

func runConflicts(cmd *cobra.Command, s *session, resultsPath, tasksPath string, failOnHigh bool) error {
	opts := conflict.Options{SemanticThreshold: s.cfg.Conflicts.SemanticThreshold}
	taskCount := 0
	objective := ""
	if tasksPath != "" {
		_, g, plan, err := s.plan(tasksPath)
		if err != nil {
			return err
		}
		opts.Graph = g
		opts.Plan = plan
		taskCount = g.Len()
		objective = string(plan.Objective)
	}

	results, err := parser.ParseResultsFile(resultsPath)
	if err != nil {
		return err
	}

	report := conflict.Detect(results, opts)
	s.log.LogConflicts(report)

	if err := s.emit(report, func(w io.Writer) { printConflicts(w, report) }); err != nil {
		return err
	}
	if warning, ok := display.WarnConflicts(&report); ok {
		warning.Display(s.errOut)
	}

	if taskCount == 0 {
		taskCount = report.ResultsAnalyzed
	}
	run := &store.Run{
		Command:   "conflicts",
		Source:    resultsPath,
		Objective: objective,
		Summary: fmt.Sprintf("%d conflicts (%d high) in %d results",
			len(report.Conflicts), report.HighSeverity, report.ResultsAnalyzed),
		TaskCount: taskCount,
		Tasks:     resultRecords(results, opts.Plan),
	}
	if err := s.recordRun(cmd.Context(), run, report); err != nil {
		return err
	}

	if failOnHigh && report.HighSeverity > 0 {
		return fmt.Errorf("%w: %d", ErrHighSeverityConflicts, report.HighSeverity)
	}
	return nil
}

// resultRecords lists one record per analyzed result
func resultRecords(results []models.ExecutionResult, plan *models.BatchPlan) []store.TaskRecord {
	var records []store.TaskRecord
	for _, r := range models.NormalizeResults(results) {
		if r.TaskID == "" {
			continue
		}
		rec := store.TaskRecord{TaskID: r.TaskID, Agent: r.AgentID, Batch: plan.BatchOf(r.TaskID)}
		if r.Batch != nil {
			rec.Batch = *r.Batch
		}
		records = append(records, rec)
	}
	return records
}

func printConflicts(w io.Writer, r models.ConflictReport) {
	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)

	bold.Fprintf(w, "Results analyzed: ")
	fmt.Fprintln(w, r.ResultsAnalyzed)
	if !r.HasConflicts() {
		color.New(color.FgGreen).Fprintln(w, "No conflicts detected")
		return
	}
	fmt.Fprintf(w, "Conflicts: %d (file-level %d, dependency-violation %d, semantic %d)\n",
		len(r.Conflicts), r.FileLevel, r.DependencyViolation, r.Semantic)

	for i, c := range r.Conflicts {
		fmt.Fprintln(w)
		severityColor(c.Severity).Fprintf(w, "%d. [%s] %s", i+1, c.Severity, c.Kind)
		gray.Fprintf(w, "  confidence %.2f\n", c.Confidence)
		fmt.Fprintf(w, "   %s\n", c.Description)
		fmt.Fprintf(w, "   Tasks: %s", strings.Join(c.AffectedTasks, ", "))
		if len(c.AffectedAgents) > 0 {
			fmt.Fprintf(w, "  Agents: %s", strings.Join(c.AffectedAgents, ", "))
		}
		fmt.Fprintln(w)
		if c.Resource != "" {
			fmt.Fprintf(w, "   Resource: %s\n", c.Resource)
		}
		fmt.Fprintf(w, "   Resolution: %s\n", c.Resolution.Strategy)
		for _, step := range c.Resolution.Steps {
			gray.Fprintf(w, "     - %s\n", step)
		}
	}
}

func severityColor(s models.Severity) *color.Color {
	switch s {
	case models.SeverityHigh:
		return color.New(color.FgRed, color.Bold)
	case models.SeverityMedium:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgCyan)
	}
}
