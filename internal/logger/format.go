package logger

import (
	"fmt"
	"strings"

	"github.com/harrison/parallelizer/internal/models"
)

// The line builders below are shared by ConsoleLogger and FileLogger.
// A nil scheme yields plain text.

func graphLine(g *models.DependencyGraph, scheme *colorScheme) string {
	explicit, implicit := 0, 0
	for _, e := range g.Edges {
		if e.Kind == models.EdgeImplicit {
			implicit++
		} else {
			explicit++
		}
	}
	return fmt.Sprintf("%s %d tasks, %d edges (%d explicit, %d implicit)",
		scheme.paint(boldColor, "Graph:"), g.Len(), len(g.Edges), explicit, implicit)
}

func inferredEdgeLines(g *models.DependencyGraph, scheme *colorScheme) []string {
	var lines []string
	for _, e := range g.Edges {
		if e.Kind != models.EdgeImplicit {
			continue
		}
		line := fmt.Sprintf("  inferred %s -> %s (%s)", e.From, e.To,
			formatColorizedMetric("confidence", fmt.Sprintf("%.2f", e.Confidence), scheme))
		if e.Rationale != "" {
			line += ": " + e.Rationale
		}
		lines = append(lines, line)
	}
	return lines
}

func criticalPathLines(r *models.CriticalPathReport, scheme *colorScheme) []string {
	chain := "(none)"
	if len(r.CriticalPath) > 0 {
		chain = strings.Join(r.CriticalPath, " -> ")
	}
	return []string{
		fmt.Sprintf("%s %s (%s)", scheme.paint(boldColor, "Critical path:"), chain, formatMinutes(r.CriticalPathLength)),
		fmt.Sprintf("Speedup: %.2fx (serial %s, bound %s, %d layers) %s: %s",
			r.Speedup, formatMinutes(r.SerialTime), formatMinutes(r.ParallelBound), len(r.Layers),
			recommendationText(r.Recommendation, scheme), r.Reason),
	}
}

func batchLines(plan *models.BatchPlan, scheme *colorScheme) []string {
	lines := []string{fmt.Sprintf("%s %d batches, %d agents, %s, estimated total %s, %d resource conflicts",
		scheme.paint(boldColor, "Batch plan:"), len(plan.Batches), len(plan.Assignments),
		plan.Objective, formatMinutes(plan.EstimatedTotalTime), plan.EstimatedConflictCount)}
	for _, b := range plan.Batches {
		lines = append(lines, fmt.Sprintf("Batch %d: %s (%s-%s)",
			b.Index+1, strings.Join(b.TaskIDs, ", "), formatMinutes(b.Start), formatMinutes(b.End)))
	}
	return lines
}

func placementLines(plan *models.BatchPlan) []string {
	lines := make([]string, 0, len(plan.Placements))
	for _, p := range plan.Placements {
		line := fmt.Sprintf("  batch %d: %s -> %s [%s-%s]",
			p.Batch+1, p.TaskID, p.AgentID, formatMinutes(p.Start), formatMinutes(p.End))
		if p.Reason != "" {
			line += " " + p.Reason
		}
		lines = append(lines, line)
	}
	return lines
}

func continuationLines(c *models.Continuation, scheme *colorScheme) []string {
	status := scheme.paint(successColor, "continuing")
	if c.Halted {
		status = scheme.paint(failColor, "halted")
	}
	lines := []string{fmt.Sprintf("Continuation (%s): %s, %d completed, %d failed, %d cancelled, %d blocked, %d skipped, %d batches remaining",
		c.Strategy, status, len(c.Completed), len(c.Failed), len(c.Cancelled),
		len(c.Blocked), len(c.Skipped), len(c.RemainingBatches))}
	if c.Reason != "" {
		lines = append(lines, "  "+c.Reason)
	}
	return lines
}

func conflictSummaryLine(r models.ConflictReport, scheme *colorScheme) string {
	return fmt.Sprintf("%s %d found in %d results (%d file-level, %d dependency-violation, %d semantic; %d high severity)",
		scheme.paint(boldColor, "Conflicts:"), len(r.Conflicts), r.ResultsAnalyzed,
		r.FileLevel, r.DependencyViolation, r.Semantic, r.HighSeverity)
}

func conflictLines(r models.ConflictReport, scheme *colorScheme) []string {
	lines := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		target := ""
		if c.Resource != "" {
			target = " on " + c.Resource
		}
		lines = append(lines, fmt.Sprintf("  [%s] %s%s: %s (%s)",
			severityText(c.Severity, scheme), c.Kind, target,
			strings.Join(c.AffectedTasks, ", "), c.Resolution.Strategy))
	}
	return lines
}

func progressLines(s models.ProgressSummary, bar string) []string {
	line := fmt.Sprintf("Progress: %s (%d agents, %s)", bar, s.AgentCount, s.Strategy)
	if s.Bottleneck != nil {
		line += fmt.Sprintf(" - bottleneck %s at %.1f%%", s.Bottleneck.AgentID, s.Bottleneck.Percent)
	}
	if s.EstimatedRemaining != nil {
		line += fmt.Sprintf(" - %s remaining", formatMinutes(*s.EstimatedRemaining))
	}
	lines := []string{line}
	for _, note := range s.Notes {
		lines = append(lines, "  note: "+note)
	}
	return lines
}
