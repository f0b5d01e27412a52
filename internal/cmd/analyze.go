package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/parallelizer/internal/display"
	"github.com/harrison/parallelizer/internal/models"
	"github.com/harrison/parallelizer/internal/planner"
	"github.com/harrison/parallelizer/internal/store"
)

// analyzeReport is the output of the analyze command
type analyzeReport struct {
	Name                      string `json:"name,omitempty" yaml:"name,omitempty"`
	models.CriticalPathReport `yaml:",inline"`
}

func newAnalyzeCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <tasks>",
		Short: "Find the critical path and estimate the parallel speedup",
		Long: `Compute topological layers, the critical path, per-task slack, and the
speedup parallel execution can reach over running every task in sequence.

The verdict is NOT_RECOMMENDED when the speedup is below
analysis.min_speedup or there are fewer than analysis.min_tasks tasks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			return runAnalyze(cmd, s, args[0])
		},
	}

	addGraphFlags(cmd)
	return cmd
}

func runAnalyze(cmd *cobra.Command, s *session, path string) error {
	tf, g, err := s.buildGraph(path)
	if err != nil {
		return err
	}
	if err := s.requireAcyclic(g); err != nil {
		return err
	}

	cp, err := planner.AnalyzeCriticalPath(g, s.analysisOptions())
	if err != nil {
		return err
	}
	s.log.LogCriticalPath(cp)

	report := analyzeReport{Name: tf.Name, CriticalPathReport: *cp}
	if err := s.emit(report, func(w io.Writer) { printCriticalPath(w, cp) }); err != nil {
		return err
	}
	if warning, ok := display.WarnNotRecommended(cp); ok {
		warning.Display(s.errOut)
	}

	run := &store.Run{
		Command:   "analyze",
		Source:    path,
		Summary:   fmt.Sprintf("speedup %.2fx, %s", cp.Speedup, cp.Recommendation),
		TaskCount: g.Len(),
		Tasks:     layerRecords(cp.Layers, cp),
	}
	return s.recordRun(cmd.Context(), run, report)
}

func printCriticalPath(w io.Writer, r *models.CriticalPathReport) {
	bold := color.New(color.Bold)

	chain := strings.Join(r.CriticalPath, " -> ")
	if chain == "" {
		chain = "(none)"
	}
	bold.Fprintf(w, "Critical path: ")
	fmt.Fprintf(w, "%s (%s)\n", chain, formatMinutes(r.CriticalPathLength))
	fmt.Fprintf(w, "Serial time: %s, parallel bound: %s, layered bound: %s, %d layers\n",
		formatMinutes(r.SerialTime), formatMinutes(r.ParallelBound), formatMinutes(r.LayeredBound), len(r.Layers))
	fmt.Fprintf(w, "Speedup: %.2fx\n", r.Speedup)

	verdict := color.New(color.FgGreen, color.Bold)
	if r.Recommendation != models.Recommended {
		verdict = color.New(color.FgYellow, color.Bold)
	}
	fmt.Fprint(w, "Recommendation: ")
	verdict.Fprint(w, string(r.Recommendation))
	if r.Reason != "" {
		fmt.Fprintf(w, " (%s)", r.Reason)
	}
	fmt.Fprintln(w)

	if len(r.Timings) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tLAYER\tDURATION\tEARLIEST\tLATEST\tSLACK\tCRITICAL")
	for _, t := range r.Timings {
		critical := ""
		if t.Critical {
			critical = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Layer+1, formatMinutes(t.Duration), formatMinutes(t.EarliestStart),
			formatMinutes(t.LatestStart), formatMinutes(t.Slack), critical)
	}
	tw.Flush()
}

// formatMinutes renders minutes as a compact duration such as 1h30m or 45s
func formatMinutes(minutes float64) string {
	if minutes <= 0 {
		return "0m"
	}
	seconds := int(minutes*60 + 0.5)
	h, m, sec := seconds/3600, (seconds%3600)/60, seconds%60

	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dm", m)
	}
	if sec > 0 {
		fmt.Fprintf(&b, "%ds", sec)
	}
	return b.String()
}
