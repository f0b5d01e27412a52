// Package progress combines per-agent progress snapshots into a single
// completion estimate.
package progress

import (
	"fmt"
	"math"

	"github.com/harrison/parallelizer/internal/models"
)

// Options carries the optional inputs the weighted and critical-path
// strategies use.
type Options struct {
	Weights      map[string]float64 // Agent id -> assigned duration (weighted)
	CriticalPath []string           // Chain of task ids (critical-path)
	Durations    map[string]float64 // Task id -> estimated minutes, for chain weighting
	Plan         *models.BatchPlan  // Placement windows for expected progress
	Elapsed      float64            // Minutes since execution started
	PlannedTotal float64            // Planned total minutes, for the completion delta
}

// WeightsFromPlan returns each agent's total assigned duration.
func WeightsFromPlan(plan *models.BatchPlan) map[string]float64 {
	weights := make(map[string]float64)
	if plan == nil {
		return weights
	}
	for _, a := range plan.Assignments {
		weights[a.AgentID] = a.TotalDuration
	}
	return weights
}

// DurationsFromGraph returns each task's estimated duration.
func DurationsFromGraph(g *models.DependencyGraph) map[string]float64 {
	durations := make(map[string]float64, g.Len())
	if g == nil {
		return durations
	}
	for _, n := range g.Nodes {
		durations[n.ID] = n.Task.EstimatedDuration
	}
	return durations
}

// Aggregate combines agent snapshots using the given strategy. An empty
// strategy means simple-average. Percentages outside 0-100 are clamped.
func Aggregate(list []models.AgentProgress, strategy models.ProgressStrategy, opts Options) (models.ProgressSummary, error) {
	if strategy == "" {
		strategy = models.ProgressSimpleAverage
	}
	if !strategy.Valid() {
		return models.ProgressSummary{}, &models.InvalidConfigurationError{
			Field:  "strategy",
			Reason: fmt.Sprintf("unknown progress strategy %q", strategy),
		}
	}

	summary := models.ProgressSummary{
		Strategy:   strategy,
		AgentCount: len(list),
	}
	if len(list) == 0 {
		return summary, nil
	}

	agents := make([]models.AgentProgress, len(list))
	for i, a := range list {
		a.PercentComplete = clampPercent(a.PercentComplete)
		agents[i] = a
	}

	switch strategy {
	case models.ProgressWeighted:
		overall, ok := weightedAverage(agents, opts.Weights)
		if !ok {
			summary.Notes = append(summary.Notes, "no positive agent weights; used simple average")
			overall = simpleAverage(agents)
		}
		summary.OverallPercent = overall
		summary.Bottleneck = lowestUnfinished(agents)
	case models.ProgressCriticalPath:
		if len(opts.CriticalPath) == 0 {
			summary.Notes = append(summary.Notes, "no critical path supplied; used simple average")
			summary.OverallPercent = simpleAverage(agents)
			summary.Bottleneck = lowestUnfinished(agents)
			break
		}
		summary.OverallPercent, summary.Notes = chainCompletion(agents, opts)
		summary.Bottleneck = chainBottleneck(agents, opts)
	default:
		summary.OverallPercent = simpleAverage(agents)
		summary.Bottleneck = lowestUnfinished(agents)
	}

	if opts.Elapsed > 0 && summary.OverallPercent > 0 {
		remaining := opts.Elapsed * (100 - summary.OverallPercent) / summary.OverallPercent
		summary.EstimatedRemaining = &remaining
		if opts.PlannedTotal > 0 {
			delta := opts.Elapsed + remaining - opts.PlannedTotal
			summary.EstimatedCompletionDelta = &delta
		}
	}
	return summary, nil
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func simpleAverage(agents []models.AgentProgress) float64 {
	total := 0.0
	for _, a := range agents {
		total += a.PercentComplete
	}
	return total / float64(len(agents))
}

// weightedAverage returns Σ(p·w)/Σw; false when no agent has a positive weight.
func weightedAverage(agents []models.AgentProgress, weights map[string]float64) (float64, bool) {
	var sum, total float64
	for _, a := range agents {
		w := weights[a.AgentID]
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			continue
		}
		sum += a.PercentComplete * w
		total += w
	}
	if total == 0 {
		return 0, false
	}
	return sum / total, true
}

func lowestUnfinished(agents []models.AgentProgress) *models.Bottleneck {
	var low *models.AgentProgress
	for i := range agents {
		a := &agents[i]
		if a.PercentComplete >= 100 {
			continue
		}
		if low == nil || a.PercentComplete < low.PercentComplete {
			low = a
		}
	}
	if low == nil {
		return nil
	}
	return &models.Bottleneck{AgentID: low.AgentID, TaskID: low.CurrentTaskID, Percent: low.PercentComplete}
}

// chainCompletion weights each chain task by its duration. A chain task that
// no agent reports counts as done when it precedes the last active chain
// task and as not started otherwise.
func chainCompletion(agents []models.AgentProgress, opts Options) (float64, []string) {
	var notes []string
	current := make(map[string]float64)
	for _, a := range agents {
		if a.CurrentTaskID == "" {
			continue
		}
		if p, ok := current[a.CurrentTaskID]; !ok || a.PercentComplete > p {
			current[a.CurrentTaskID] = a.PercentComplete
		}
	}

	lastActive := -1
	for i, id := range opts.CriticalPath {
		if _, ok := current[id]; ok {
			lastActive = i
		}
	}
	if lastActive < 0 {
		notes = append(notes, "no agent reports a critical path task")
	}

	var done, total float64
	for i, id := range opts.CriticalPath {
		d := chainDuration(id, opts)
		var pct float64
		switch p, ok := current[id]; {
		case ok:
			pct = p
		case i < lastActive:
			pct = 100
		}
		done += d * pct
		total += d
	}
	if total == 0 {
		// Every chain task has zero duration: weigh them equally.
		for i, id := range opts.CriticalPath {
			switch p, ok := current[id]; {
			case ok:
				done += p
			case i < lastActive:
				done += 100
			}
		}
		total = float64(len(opts.CriticalPath))
	}
	return done / total, notes
}

func chainDuration(id string, opts Options) float64 {
	if d, ok := opts.Durations[id]; ok && d >= 0 {
		return d
	}
	if pl, ok := opts.Plan.PlacementOf(id); ok {
		return pl.End - pl.Start
	}
	return 1
}

// chainBottleneck picks the chain agent furthest behind schedule. Without a
// schedule it falls back to the chain agent with the lowest percent.
func chainBottleneck(agents []models.AgentProgress, opts Options) *models.Bottleneck {
	onChain := make(map[string]bool, len(opts.CriticalPath))
	for _, id := range opts.CriticalPath {
		onChain[id] = true
	}

	var best *models.Bottleneck
	scheduled := false
	for _, a := range agents {
		if !onChain[a.CurrentTaskID] || a.PercentComplete >= 100 {
			continue
		}
		candidate := &models.Bottleneck{AgentID: a.AgentID, TaskID: a.CurrentTaskID, Percent: a.PercentComplete}
		if expected, ok := expectedPercent(a.CurrentTaskID, opts); ok {
			candidate.Ratio = a.PercentComplete / expected
			if !scheduled || best == nil || candidate.Ratio < best.Ratio {
				best = candidate
			}
			scheduled = true
			continue
		}
		if !scheduled && (best == nil || candidate.Percent < best.Percent) {
			best = candidate
		}
	}
	return best
}

// expectedPercent is how far a task should be at opts.Elapsed according to
// its placement window.
func expectedPercent(taskID string, opts Options) (float64, bool) {
	if opts.Elapsed <= 0 {
		return 0, false
	}
	pl, ok := opts.Plan.PlacementOf(taskID)
	if !ok || pl.End <= pl.Start {
		return 0, false
	}
	expected := clampPercent((opts.Elapsed - pl.Start) / (pl.End - pl.Start) * 100)
	if expected == 0 {
		return 0, false
	}
	return expected, true
}
