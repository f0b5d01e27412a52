package planner

import (
	"fmt"
	"strings"

	"github.com/harrison/parallelizer/internal/models"
)

// Continue decides what may still run once the executor has reported
// outcomes for part of a plan.
//
// Failed and cancelled tasks block all of their transitive dependents.
// Under the conservative strategy a failure lets the current batch (the
// latest batch with a reported outcome) finish and skips everything after
// it. Under the aggressive strategy every batch keeps its tasks except the
// blocked ones. Nothing is retried.
func Continue(g *models.DependencyGraph, plan *models.BatchPlan, outcomes []models.TaskOutcome, strategy models.FailureStrategy) (*models.Continuation, error) {
	if g == nil {
		return nil, &models.InvalidConfigurationError{Field: "graph", Reason: "graph is required"}
	}
	if plan == nil {
		return nil, &models.InvalidConfigurationError{Field: "plan", Reason: "plan is required"}
	}
	if strategy == "" {
		strategy = models.FailureConservative
	}
	if !strategy.Valid() {
		return nil, &models.InvalidConfigurationError{
			Field:  "failure_strategy",
			Reason: fmt.Sprintf("unknown strategy %q", strategy),
		}
	}

	status := make(map[string]models.TaskStatus, len(outcomes))
	for _, o := range outcomes {
		if !g.Has(o.TaskID) {
			continue
		}
		switch o.Status {
		case models.StatusCompleted, models.StatusFailed, models.StatusCancelled:
			status[o.TaskID] = o.Status
		}
	}

	blocked := make(map[string]bool)
	currentBatch := -1
	for id, st := range status {
		if b := plan.BatchOf(id); b > currentBatch {
			currentBatch = b
		}
		if st == models.StatusCompleted {
			continue
		}
		for d := range g.Descendants(id) {
			if _, reported := status[d]; !reported {
				blocked[d] = true
			}
		}
	}

	c := &models.Continuation{
		Strategy:         strategy,
		Completed:        []string{},
		Failed:           []string{},
		Cancelled:        []string{},
		Blocked:          []string{},
		Skipped:          []string{},
		RemainingBatches: []models.Batch{},
	}
	for _, id := range g.IDs() {
		switch {
		case status[id] == models.StatusCompleted:
			c.Completed = append(c.Completed, id)
		case status[id] == models.StatusFailed:
			c.Failed = append(c.Failed, id)
		case status[id] == models.StatusCancelled:
			c.Cancelled = append(c.Cancelled, id)
		case blocked[id]:
			c.Blocked = append(c.Blocked, id)
		}
	}

	halt := strategy == models.FailureConservative && len(c.Failed) > 0
	for _, b := range plan.Batches {
		var pending []string
		for _, id := range b.TaskIDs {
			if _, reported := status[id]; reported || blocked[id] {
				continue
			}
			if halt && b.Index > currentBatch {
				c.Skipped = append(c.Skipped, id)
				continue
			}
			pending = append(pending, id)
		}
		if len(pending) == 0 {
			continue
		}
		c.RemainingBatches = append(c.RemainingBatches, models.Batch{
			Index:   len(c.RemainingBatches),
			TaskIDs: pending,
			Start:   b.Start,
			End:     b.End,
		})
	}

	switch {
	case halt:
		c.Halted = true
		c.Reason = fmt.Sprintf("task %s failed; finishing batch %d and skipping %d later tasks",
			strings.Join(c.Failed, ", "), currentBatch, len(c.Skipped))
	case len(c.Blocked) > 0:
		c.Reason = fmt.Sprintf("%d dependents of failed or cancelled tasks blocked", len(c.Blocked))
	}
	return c, nil
}
