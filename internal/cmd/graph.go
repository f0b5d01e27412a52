package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/parallelizer/internal/models"
	"github.com/harrison/parallelizer/internal/planner"
	"github.com/harrison/parallelizer/internal/store"
)

// graphReport is the output of the graph command
type graphReport struct {
	Name   string                  `json:"name,omitempty" yaml:"name,omitempty"`
	Graph  *models.DependencyGraph `json:"graph" yaml:"graph"`
	Cycle  planner.CycleReport     `json:"cycle" yaml:"cycle"`
	Layers [][]string              `json:"layers,omitempty" yaml:"layers,omitempty"`
}

func newGraphCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <tasks>",
		Short: "Build the dependency graph and check it for cycles",
		Long: `Parse a task list (Markdown, YAML or JSON file, a directory of numbered
task files, or "-" for YAML on stdin) and build its dependency graph.

Declared dependencies become explicit edges. With --detect-implicit (the
default) task descriptions are scanned for references to other tasks and
confident matches become implicit edges.

Exit code: 0 if the graph is acyclic, 1 if it has a cycle`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			return runGraph(cmd, s, args[0])
		},
	}

	addGraphFlags(cmd)
	return cmd
}

// addGraphFlags registers the flags of every command that builds a graph
func addGraphFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("detect-implicit", true, "Infer dependencies from task descriptions")
}

func runGraph(cmd *cobra.Command, s *session, path string) error {
	tf, g, err := s.buildGraph(path)
	if err != nil {
		return err
	}

	report := graphReport{
		Name:  tf.Name,
		Graph: g,
		Cycle: planner.DetectCycles(g),
	}
	if !report.Cycle.HasCycles {
		report.Layers, err = planner.TopologicalLayers(g)
		if err != nil {
			return err
		}
	}

	if err := s.emit(report, func(w io.Writer) { printGraph(w, report) }); err != nil {
		return err
	}

	if err := s.requireAcyclic(g); err != nil {
		return err
	}

	run := &store.Run{
		Command:   "graph",
		Source:    path,
		Summary:   fmt.Sprintf("%d tasks, %d edges, %d layers", g.Len(), len(g.Edges), len(report.Layers)),
		TaskCount: g.Len(),
		Tasks:     layerRecords(report.Layers, nil),
	}
	return s.recordRun(cmd.Context(), run, report)
}

// layerRecords turns layers into task records, flagging ids on the critical path
func layerRecords(layers [][]string, report *models.CriticalPathReport) []store.TaskRecord {
	var records []store.TaskRecord
	for i, layer := range layers {
		for _, id := range layer {
			rec := store.TaskRecord{TaskID: id, Batch: i}
			if timing, ok := report.Timing(id); ok {
				rec.StartMinute = timing.EarliestStart
				rec.EndMinute = timing.EarliestFinish
				rec.Critical = timing.Critical
			}
			records = append(records, rec)
		}
	}
	return records
}

func printGraph(w io.Writer, r graphReport) {
	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)

	name := r.Name
	if name == "" {
		name = "(unnamed)"
	}
	explicit, implicit := 0, 0
	for _, e := range r.Graph.Edges {
		if e.Kind == models.EdgeImplicit {
			implicit++
		} else {
			explicit++
		}
	}
	bold.Fprintf(w, "Task list: %s\n", name)
	fmt.Fprintf(w, "  %d tasks, %d edges (%d explicit, %d implicit)\n", r.Graph.Len(), len(r.Graph.Edges), explicit, implicit)

	if len(r.Graph.Edges) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "Edges:")
		for _, e := range r.Graph.Edges {
			if e.Kind == models.EdgeImplicit {
				fmt.Fprintf(w, "  %s -> %s  implicit %.2f", e.From, e.To, e.Confidence)
				if e.Rationale != "" {
					gray.Fprintf(w, "  %s", e.Rationale)
				}
				fmt.Fprintln(w)
				continue
			}
			fmt.Fprintf(w, "  %s -> %s  explicit\n", e.From, e.To)
		}
	}

	fmt.Fprintln(w)
	if r.Cycle.HasCycles {
		color.New(color.FgRed, color.Bold).Fprintf(w, "Cycle: %s\n", strings.Join(r.Cycle.Cycle, " -> "))
		return
	}

	bold.Fprintln(w, "Layers:")
	for i, layer := range r.Layers {
		fmt.Fprintf(w, "  %d. %s\n", i+1, strings.Join(layer, ", "))
	}
}
