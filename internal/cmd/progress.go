package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/parallelizer/internal/models"
	"github.com/harrison/parallelizer/internal/parser"
	"github.com/harrison/parallelizer/internal/planner"
	"github.com/harrison/parallelizer/internal/progress"
	"github.com/harrison/parallelizer/internal/store"
	"github.com/harrison/parallelizer/internal/watch"
)

func newProgressCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress <snapshot>",
		Short: "Combine per-agent progress into an overall completion estimate",
		Long: `Read a snapshot of agent progress (agent_id, percent_complete and
optionally current_task_id per agent) and print the overall completion
percentage and the bottleneck agent.

Strategies:
  simple-average  mean of all agents (default)
  weighted        agents weighted by their planned work (needs --tasks)
  critical-path   completion along the critical path (needs --tasks)

With --elapsed the remaining time is estimated from the observed rate.
With --watch the estimate is recomputed whenever the snapshot changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			tasksPath, _ := cmd.Flags().GetString("tasks")
			elapsed, _ := cmd.Flags().GetFloat64("elapsed")
			watching, _ := cmd.Flags().GetBool("watch")
			if elapsed < 0 {
				return fmt.Errorf("--elapsed must be >= 0, got %g", elapsed)
			}

			agg, err := newProgressAggregator(s, tasksPath, elapsed)
			if err != nil {
				return err
			}
			if watching {
				return watchProgress(cmd, s, agg, args[0])
			}

			summary, err := agg.aggregate(args[0])
			if err != nil {
				return err
			}
			return agg.record(cmd.Context(), args[0], summary)
		},
	}

	addPlanFlags(cmd)
	cmd.Flags().String("strategy", "", "Aggregation strategy: simple-average, weighted, critical-path (default from config)")
	cmd.Flags().String("tasks", "", "Task list the agents are executing")
	cmd.Flags().Float64("elapsed", 0, "Minutes since execution started")
	cmd.Flags().Bool("watch", false, "Recompute whenever the snapshot file changes")
	return cmd
}

// progressAggregator holds the plan context reused across snapshot reads
type progressAggregator struct {
	s        *session
	strategy models.ProgressStrategy
	opts     progress.Options
	tasks    int
}

func newProgressAggregator(s *session, tasksPath string, elapsed float64) (*progressAggregator, error) {
	agg := &progressAggregator{
		s:        s,
		strategy: models.ProgressStrategy(s.cfg.Progress.Strategy),
		opts:     progress.Options{Elapsed: elapsed},
	}
	if tasksPath == "" {
		if agg.strategy != models.ProgressSimpleAverage {
			s.log.LogWarn(fmt.Sprintf("Strategy %s works best with --tasks", agg.strategy))
		}
		return agg, nil
	}

	_, g, plan, err := s.plan(tasksPath)
	if err != nil {
		return nil, err
	}
	cp, err := planner.AnalyzeCriticalPath(g, s.analysisOptions())
	if err != nil {
		return nil, err
	}

	agg.tasks = g.Len()
	agg.opts.Weights = progress.WeightsFromPlan(plan)
	agg.opts.CriticalPath = cp.CriticalPath
	agg.opts.Durations = progress.DurationsFromGraph(g)
	agg.opts.Plan = plan
	agg.opts.PlannedTotal = plan.EstimatedTotalTime
	return agg, nil
}

// aggregate reads the snapshot and prints the summary.
func (a *progressAggregator) aggregate(path string) (models.ProgressSummary, error) {
	agents, err := parser.ParseProgressFile(path)
	if err != nil {
		return models.ProgressSummary{}, err
	}

	summary, err := progress.Aggregate(agents, a.strategy, a.opts)
	if err != nil {
		return models.ProgressSummary{}, err
	}
	a.s.log.LogProgress(summary)

	if err := a.s.emit(summary, func(w io.Writer) { printProgress(w, summary) }); err != nil {
		return models.ProgressSummary{}, err
	}
	return summary, nil
}

func (a *progressAggregator) record(ctx context.Context, path string, summary models.ProgressSummary) error {
	taskCount := a.tasks
	if taskCount == 0 {
		taskCount = summary.AgentCount
	}
	run := &store.Run{
		Command:   "progress",
		Source:    path,
		Summary:   fmt.Sprintf("%.1f%% complete (%s, %d agents)", summary.OverallPercent, summary.Strategy, summary.AgentCount),
		TaskCount: taskCount,
	}
	if b := summary.Bottleneck; b != nil && b.TaskID != "" {
		run.Tasks = []store.TaskRecord{{TaskID: b.TaskID, Agent: b.AgentID, Batch: a.opts.Plan.BatchOf(b.TaskID)}}
	}
	return a.s.recordRun(ctx, run, summary)
}

// watchProgress re-aggregates on every snapshot change until interrupted.
// Read errors are logged and the previous estimate stays on screen.
func watchProgress(cmd *cobra.Command, s *session, agg *progressAggregator, path string) error {
	if path == "-" {
		return fmt.Errorf("--watch needs a snapshot file, not stdin")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.log.LogInfo(fmt.Sprintf("Watching %s (Ctrl+C to stop)", path))
	return watch.Run(ctx, path, s.cfg.Progress.WatchDebounce, func() {
		if _, err := agg.aggregate(path); err != nil {
			s.log.LogWarn(fmt.Sprintf("Failed to read progress snapshot: %v", err))
		}
	}, func(err error) {
		s.log.LogWarn(fmt.Sprintf("Watch error: %v", err))
	})
}

func printProgress(w io.Writer, p models.ProgressSummary) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "Overall: ")
	percent := color.New(color.FgYellow)
	if p.OverallPercent >= 100 {
		percent = color.New(color.FgGreen)
	}
	percent.Fprintf(w, "%.1f%%", p.OverallPercent)
	fmt.Fprintf(w, " (%s, %d agents)\n", p.Strategy, p.AgentCount)

	if b := p.Bottleneck; b != nil {
		fmt.Fprintf(w, "Bottleneck: %s at %.1f%%", b.AgentID, b.Percent)
		if b.TaskID != "" {
			fmt.Fprintf(w, " on %s", b.TaskID)
		}
		if b.Ratio > 0 {
			fmt.Fprintf(w, " (%.2fx of expected)", b.Ratio)
		}
		fmt.Fprintln(w)
	}
	if p.EstimatedRemaining != nil {
		fmt.Fprintf(w, "Estimated remaining: %s\n", formatMinutes(*p.EstimatedRemaining))
	}
	if p.EstimatedCompletionDelta != nil {
		delta := *p.EstimatedCompletionDelta
		switch {
		case delta > 0:
			color.New(color.FgRed).Fprintf(w, "Behind plan by %s\n", formatMinutes(delta))
		case delta < 0:
			color.New(color.FgGreen).Fprintf(w, "Ahead of plan by %s\n", formatMinutes(-delta))
		default:
			fmt.Fprintln(w, "On plan")
		}
	}
	for _, note := range p.Notes {
		color.New(color.FgHiBlack).Fprintf(w, "Note: %s\n", note)
	}
}
