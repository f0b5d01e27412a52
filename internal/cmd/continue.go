package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/parallelizer/internal/display"
	"github.com/harrison/parallelizer/internal/models"
	"github.com/harrison/parallelizer/internal/parser"
	"github.com/harrison/parallelizer/internal/planner"
	"github.com/harrison/parallelizer/internal/store"
)

func newContinueCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "continue <tasks> <outcomes>",
		Short: "Decide which batches may still run after task outcomes are known",
		Long: `Re-plan the task list, apply the reported outcomes (completed, failed or
cancelled per task), and print the batches that may still be scheduled.

Failed and cancelled tasks block their dependents. With the conservative
strategy (default) the current batch finishes and later batches are
skipped. With the aggressive strategy every unblocked task keeps its place.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			return runContinue(cmd, s, args[0], args[1])
		},
	}

	addPlanFlags(cmd)
	cmd.Flags().String("failure-strategy", "", "Failure handling: conservative, aggressive (default from config)")
	return cmd
}

func runContinue(cmd *cobra.Command, s *session, tasksPath, outcomesPath string) error {
	_, g, plan, err := s.plan(tasksPath)
	if err != nil {
		return err
	}

	outcomes, err := parser.ParseOutcomesFile(outcomesPath)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		if !g.Has(o.TaskID) {
			s.log.LogWarn(fmt.Sprintf("Ignoring outcome for unknown task %q", o.TaskID))
		}
	}

	c, err := planner.Continue(g, plan, outcomes, models.FailureStrategy(s.cfg.FailureStrategy))
	if err != nil {
		return err
	}
	s.log.LogContinuation(c)

	if err := s.emit(c, func(w io.Writer) { printContinuation(w, c) }); err != nil {
		return err
	}
	if warning, ok := display.WarnHalted(c); ok {
		warning.Display(s.errOut)
	}

	run := &store.Run{
		Command:   "continue",
		Source:    tasksPath,
		Objective: string(plan.Objective),
		Summary:   continuationSummary(c),
		TaskCount: g.Len(),
		Tasks:     remainingRecords(plan, c),
	}
	return s.recordRun(cmd.Context(), run, c)
}

func continuationSummary(c *models.Continuation) string {
	remaining := 0
	for _, b := range c.RemainingBatches {
		remaining += len(b.TaskIDs)
	}
	state := "continuing"
	if c.Halted {
		state = "halted"
	}
	return fmt.Sprintf("%s (%s), %d remaining, %d failed, %d blocked",
		state, c.Strategy, remaining, len(c.Failed), len(c.Blocked))
}

// remainingRecords lists the tasks still scheduled with their planned placement
func remainingRecords(plan *models.BatchPlan, c *models.Continuation) []store.TaskRecord {
	var records []store.TaskRecord
	for _, b := range c.RemainingBatches {
		for _, id := range b.TaskIDs {
			rec := store.TaskRecord{TaskID: id, Batch: b.Index}
			if p, ok := plan.PlacementOf(id); ok {
				rec.Agent = p.AgentID
				rec.StartMinute = p.Start
				rec.EndMinute = p.End
			}
			records = append(records, rec)
		}
	}
	return records
}

func printContinuation(w io.Writer, c *models.Continuation) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "Strategy: ")
	fmt.Fprintln(w, c.Strategy)
	if c.Halted {
		color.New(color.FgRed, color.Bold).Fprint(w, "Halted")
		if c.Reason != "" {
			fmt.Fprintf(w, ": %s", c.Reason)
		}
		fmt.Fprintln(w)
	}

	printIDList(w, "Completed", c.Completed, color.FgGreen)
	printIDList(w, "Failed", c.Failed, color.FgRed)
	printIDList(w, "Cancelled", c.Cancelled, color.FgYellow)
	printIDList(w, "Blocked", c.Blocked, color.FgYellow)
	printIDList(w, "Skipped", c.Skipped, color.FgHiBlack)

	fmt.Fprintln(w)
	if len(c.RemainingBatches) == 0 {
		fmt.Fprintln(w, "Nothing left to schedule")
		return
	}
	bold.Fprintln(w, "Remaining batches:")
	for _, b := range c.RemainingBatches {
		fmt.Fprintf(w, "  %d. %s\n", b.Index+1, strings.Join(b.TaskIDs, ", "))
	}
}

func printIDList(w io.Writer, label string, ids []string, attr color.Attribute) {
	if len(ids) == 0 {
		return
	}
	color.New(attr).Fprintf(w, "%s (%d): ", label, len(ids))
	fmt.Fprintln(w, strings.Join(ids, ", "))
}
