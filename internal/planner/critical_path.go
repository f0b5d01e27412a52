package planner

import (
	"fmt"

	"github.com/harrison/parallelizer/internal/models"
)

// Recommendation thresholds
const (
	DefaultMinSpeedup = 1.5
	DefaultMinTasks   = 3
)

// epsilon absorbs float rounding when comparing schedule times
const epsilon = 1e-9

// AnalysisOptions tunes the speedup estimate and recommendation
type AnalysisOptions struct {
	CoordinationOverhead float64 // Minutes added per layer to the parallel bound
	MinSpeedup           float64 // Below this speedup parallelism is not recommended (0 = default)
	MinTasks             int     // Below this task count parallelism is not recommended (0 = default)
}

// DefaultAnalysisOptions returns the standard thresholds.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		MinSpeedup: DefaultMinSpeedup,
		MinTasks:   DefaultMinTasks,
	}
}

func (o AnalysisOptions) withDefaults() AnalysisOptions {
	if o.MinSpeedup == 0 {
		o.MinSpeedup = DefaultMinSpeedup
	}
	if o.MinTasks == 0 {
		o.MinTasks = DefaultMinTasks
	}
	return o
}

// TopologicalLayers groups nodes with Kahn's algorithm: layer k holds every
// node whose predecessors all sit in layers < k. Within a layer nodes keep
// their input order.
func TopologicalLayers(g *models.DependencyGraph) ([][]string, error) {
	if err := RequireAcyclic(g); err != nil {
		return nil, err
	}
	return kahnLayers(g), nil
}

func kahnLayers(g *models.DependencyGraph) [][]string {
	succ, pred := g.Adjacency()
	inDegree := make(map[string]int, g.Len())
	for _, id := range g.IDs() {
		inDegree[id] = len(pred[id])
	}

	layers := [][]string{}
	remaining := g.IDs()
	for len(remaining) > 0 {
		var layer, rest []string
		for _, id := range remaining {
			if inDegree[id] == 0 {
				layer = append(layer, id)
			} else {
				rest = append(rest, id)
			}
		}
		if len(layer) == 0 {
			// Unreachable for acyclic input.
			break
		}
		for _, id := range layer {
			for _, dependent := range succ[id] {
				inDegree[dependent]--
			}
		}
		layers = append(layers, layer)
		remaining = rest
	}
	return layers
}

// remainingPath returns, for every node, the longest duration chain from the
// node to a sink, including the node itself. The optimizer uses it as priority.
func remainingPath(g *models.DependencyGraph, topo []string) map[string]float64 {
	succ, _ := g.Adjacency()
	remaining := make(map[string]float64, len(topo))
	for i := len(topo) - 1; i >= 0; i-- {
		id := topo[i]
		t, _ := g.Task(id)
		longest := 0.0
		for _, s := range succ[id] {
			if remaining[s] > longest {
				longest = remaining[s]
			}
		}
		remaining[id] = t.EstimatedDuration + longest
	}
	return remaining
}

// AnalyzeCriticalPath computes layers, per-node timings, the critical path
// and the serial-vs-parallel speedup estimate for an acyclic graph.
func AnalyzeCriticalPath(g *models.DependencyGraph, opts AnalysisOptions) (*models.CriticalPathReport, error) {
	if err := RequireAcyclic(g); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if opts.CoordinationOverhead < 0 {
		return nil, &models.InvalidConfigurationError{
			Field:  "coordination_overhead",
			Reason: fmt.Sprintf("must be >= 0, got %g", opts.CoordinationOverhead),
		}
	}

	report := &models.CriticalPathReport{
		Layers:       kahnLayers(g),
		Timings:      []models.NodeTiming{},
		CriticalPath: []string{},
	}

	var topo []string
	layerOf := make(map[string]int, g.Len())
	for k, layer := range report.Layers {
		for _, id := range layer {
			topo = append(topo, id)
			layerOf[id] = k
		}
	}

	succ, pred := g.Adjacency()
	duration := func(id string) float64 {
		t, _ := g.Task(id)
		return t.EstimatedDuration
	}

	// Forward pass: earliest start/finish.
	es := make(map[string]float64, len(topo))
	ef := make(map[string]float64, len(topo))
	for _, id := range topo {
		start := 0.0
		for _, p := range pred[id] {
			if ef[p] > start {
				start = ef[p]
			}
		}
		es[id] = start
		ef[id] = start + duration(id)
		report.SerialTime += duration(id)
		if ef[id] > report.CriticalPathLength {
			report.CriticalPathLength = ef[id]
		}
	}

	// Backward pass: latest start.
	ls := make(map[string]float64, len(topo))
	for i := len(topo) - 1; i >= 0; i-- {
		id := topo[i]
		finish := report.CriticalPathLength
		for _, s := range succ[id] {
			if ls[s] < finish {
				finish = ls[s]
			}
		}
		ls[id] = finish - duration(id)
	}

	remaining := remainingPath(g, topo)
	report.CriticalPath = criticalChain(topo, pred, succ, remaining, duration)

	onPath := make(map[string]bool, len(report.CriticalPath))
	for _, id := range report.CriticalPath {
		onPath[id] = true
	}
	for _, id := range topo {
		slack := ls[id] - es[id]
		if slack < epsilon && slack > -epsilon {
			slack = 0
		}
		report.Timings = append(report.Timings, models.NodeTiming{
			ID:             id,
			Layer:          layerOf[id],
			Duration:       duration(id),
			EarliestStart:  es[id],
			EarliestFinish: ef[id],
			LatestStart:    ls[id],
			Slack:          slack,
			Remaining:      remaining[id],
			Critical:       onPath[id],
		})
	}

	overhead := float64(len(report.Layers)) * opts.CoordinationOverhead
	for _, layer := range report.Layers {
		longest := 0.0
		for _, id := range layer {
			if d := duration(id); d > longest {
				longest = d
			}
		}
		report.LayeredBound += longest
	}
	report.LayeredBound += overhead
	report.ParallelBound = report.CriticalPathLength + overhead
	if report.ParallelBound > 0 {
		report.Speedup = report.SerialTime / report.ParallelBound
	}

	report.Recommendation, report.Reason = recommend(g.Len(), len(report.Layers), report.Speedup, opts)
	return report, nil
}

// criticalChain walks from the root with the longest remaining path down to a
// sink, always following a successor that carries the rest of that length.
func criticalChain(topo []string, pred, succ map[string][]string, remaining map[string]float64, duration func(string) float64) []string {
	start := ""
	for _, id := range topo {
		if len(pred[id]) != 0 {
			continue
		}
		if start == "" || remaining[id] > remaining[start]+epsilon {
			start = id
		}
	}
	if start == "" {
		return []string{}
	}

	chain := []string{start}
	current := start
	for {
		want := remaining[current] - duration(current)
		next := ""
		for _, s := range succ[current] {
			if diff := remaining[s] - want; diff < epsilon && diff > -epsilon {
				next = s
				break
			}
		}
		if next == "" {
			return chain
		}
		chain = append(chain, next)
		current = next
	}
}

func recommend(taskCount, layerCount int, speedup float64, opts AnalysisOptions) (models.Recommendation, string) {
	switch {
	case taskCount == 0:
		return models.NotRecommended, "no tasks to schedule"
	case taskCount < opts.MinTasks:
		return models.NotRecommended, fmt.Sprintf("only %d tasks; coordination overhead is not justified below %d", taskCount, opts.MinTasks)
	case speedup < opts.MinSpeedup:
		return models.NotRecommended, fmt.Sprintf("estimated speedup %.2fx is below the %.2fx threshold", speedup, opts.MinSpeedup)
	default:
		return models.Recommended, fmt.Sprintf("estimated speedup %.2fx across %d layers", speedup, layerCount)
	}
}
