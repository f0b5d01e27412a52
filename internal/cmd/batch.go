package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/parallelizer/internal/models"
	"github.com/harrison/parallelizer/internal/parser"
	"github.com/harrison/parallelizer/internal/planner"
	"github.com/harrison/parallelizer/internal/store"
)

// batchReport is the output of the batch command
type batchReport struct {
	Name             string `json:"name,omitempty" yaml:"name,omitempty"`
	models.BatchPlan `yaml:",inline"`
}

func newBatchCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <tasks>",
		Short: "Partition tasks into ordered batches across agents",
		Long: `Simulate running the task list on --agents agents and print the resulting
batches, per-agent assignments and estimated total time.

Objectives:
  minimize-time       critical-path tasks first (default)
  balance-load        longest task to the least loaded agent
  minimize-conflicts  defer tasks that share resources with running ones`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			return runBatch(cmd, s, args[0])
		},
	}

	addPlanFlags(cmd)
	return cmd
}

// addPlanFlags registers the flags of every command that plans batches
func addPlanFlags(cmd *cobra.Command) {
	addGraphFlags(cmd)
	cmd.Flags().Int("agents", 0, "Number of agents to plan for (default from config)")
	cmd.Flags().String("objective", "", "Optimization objective: minimize-time, balance-load, minimize-conflicts")
}

// plan builds the graph for path and optimizes its batches.
func (s *session) plan(path string) (*parser.TaskFile, *models.DependencyGraph, *models.BatchPlan, error) {
	tf, g, err := s.buildGraph(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := s.requireAcyclic(g); err != nil {
		return nil, nil, nil, err
	}

	plan, err := planner.OptimizeBatches(g, s.optimizeOptions())
	if err != nil {
		return nil, nil, nil, err
	}
	s.log.LogBatchPlan(plan)
	return tf, g, plan, nil
}

func runBatch(cmd *cobra.Command, s *session, path string) error {
	tf, g, plan, err := s.plan(path)
	if err != nil {
		return err
	}

	report := batchReport{Name: tf.Name, BatchPlan: *plan}
	if err := s.emit(report, func(w io.Writer) { printBatchPlan(w, plan) }); err != nil {
		return err
	}

	cp, err := planner.AnalyzeCriticalPath(g, s.analysisOptions())
	if err != nil {
		return err
	}

	run := &store.Run{
		Command:   "batch",
		Source:    path,
		Objective: string(plan.Objective),
		Summary: fmt.Sprintf("%d batches on %d agents, estimated %s",
			len(plan.Batches), plan.MaxAgents, formatMinutes(plan.EstimatedTotalTime)),
		TaskCount: g.Len(),
		Tasks:     placementRecords(plan, cp),
	}
	return s.recordRun(cmd.Context(), run, report)
}

// placementRecords turns the plan's placements into task records
func placementRecords(plan *models.BatchPlan, cp *models.CriticalPathReport) []store.TaskRecord {
	records := make([]store.TaskRecord, 0, len(plan.Placements))
	for _, p := range plan.Placements {
		records = append(records, store.TaskRecord{
			TaskID:      p.TaskID,
			Batch:       p.Batch,
			Agent:       p.AgentID,
			StartMinute: p.Start,
			EndMinute:   p.End,
			Critical:    cp.OnCriticalPath(p.TaskID),
		})
	}
	return records
}

func printBatchPlan(w io.Writer, plan *models.BatchPlan) {
	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)

	bold.Fprintf(w, "Batch plan: ")
	fmt.Fprintf(w, "%s, %d agents\n", plan.Objective, plan.MaxAgents)
	fmt.Fprintf(w, "Estimated total time: %s\n", formatMinutes(plan.EstimatedTotalTime))
	if plan.EstimatedConflictCount > 0 {
		color.New(color.FgYellow).Fprintf(w, "Estimated resource conflicts: %d\n", plan.EstimatedConflictCount)
	}

	for _, b := range plan.Batches {
		fmt.Fprintln(w)
		bold.Fprintf(w, "Batch %d", b.Index+1)
		gray.Fprintf(w, "  %s - %s\n", formatMinutes(b.Start), formatMinutes(b.End))
		for _, id := range b.TaskIDs {
			p, _ := plan.PlacementOf(id)
			fmt.Fprintf(w, "  %s  %s", id, p.AgentID)
			if p.Reason != "" {
				gray.Fprintf(w, "  %s", p.Reason)
			}
			fmt.Fprintln(w)
		}
	}

	if len(plan.Assignments) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tTASKS\tTOTAL")
	for _, a := range plan.Assignments {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.AgentID, strings.Join(a.TaskIDs, ", "), formatMinutes(a.TotalDuration))
	}
	tw.Flush()
}
