package models

// Objective selects the assignment rule used by the batch optimizer
type Objective string

const (
	ObjectiveMinimizeTime      Objective = "minimize-time"
	ObjectiveBalanceLoad       Objective = "balance-load"
	ObjectiveMinimizeConflicts Objective = "minimize-conflicts"
)

// Valid reports whether the objective is one of the known values.
func (o Objective) Valid() bool {
	switch o {
	case ObjectiveMinimizeTime, ObjectiveBalanceLoad, ObjectiveMinimizeConflicts:
		return true
	default:
		return false
	}
}

// Batch represents a group of tasks scheduled at the same position.
// No ordering is implied between tasks of one batch.
type Batch struct {
	Index   int      `json:"index" yaml:"index"`       // Position in the plan (0-based)
	TaskIDs []string `json:"task_ids" yaml:"task_ids"` // Tasks started in this batch
	Start   float64  `json:"start" yaml:"start"`       // Simulated start time (minutes)
	End     float64  `json:"end" yaml:"end"`           // Latest simulated finish of the batch's tasks
}

// AgentAssignment is one agent's execution order
type AgentAssignment struct {
	AgentID       string   `json:"agent_id" yaml:"agent_id"`
	TaskIDs       []string `json:"task_ids" yaml:"task_ids"`
	TotalDuration float64  `json:"total_duration" yaml:"total_duration"`
}

// Placement records one scheduling decision.
type Placement struct {
	TaskID  string  `json:"task_id" yaml:"task_id"`
	AgentID string  `json:"agent_id" yaml:"agent_id"`
	Batch   int     `json:"batch" yaml:"batch"`
	Start   float64 `json:"start" yaml:"start"`
	End     float64 `json:"end" yaml:"end"`
	Reason  string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// BatchPlan is the optimizer output: ordered batches plus per-agent assignments
type BatchPlan struct {
	Objective              Objective         `json:"objective" yaml:"objective"`
	MaxAgents              int               `json:"max_agents" yaml:"max_agents"`
	Batches                []Batch           `json:"batches" yaml:"batches"`
	Assignments            []AgentAssignment `json:"assignments" yaml:"assignments"`
	Placements             []Placement       `json:"placements" yaml:"placements"`
	EstimatedTotalTime     float64           `json:"estimated_total_time" yaml:"estimated_total_time"`
	EstimatedConflictCount int               `json:"estimated_conflict_count" yaml:"estimated_conflict_count"`
}

// BatchOf returns the batch index holding the task, or -1.
func (p *BatchPlan) BatchOf(taskID string) int {
	if p == nil {
		return -1
	}
	for _, b := range p.Batches {
		for _, id := range b.TaskIDs {
			if id == taskID {
				return b.Index
			}
		}
	}
	return -1
}

// PlacementOf returns the scheduling decision for a task.
func (p *BatchPlan) PlacementOf(taskID string) (Placement, bool) {
	if p == nil {
		return Placement{}, false
	}
	for _, pl := range p.Placements {
		if pl.TaskID == taskID {
			return pl, true
		}
	}
	return Placement{}, false
}

// AgentOf returns the agent a task was assigned to.
func (p *BatchPlan) AgentOf(taskID string) string {
	pl, ok := p.PlacementOf(taskID)
	if !ok {
		return ""
	}
	return pl.AgentID
}

// TaskCount returns the number of tasks placed in the plan.
func (p *BatchPlan) TaskCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, b := range p.Batches {
		n += len(b.TaskIDs)
	}
	return n
}

// FailureStrategy controls what happens to later batches after a task fails
type FailureStrategy string

const (
	// FailureConservative lets the current batch finish, then stops scheduling.
	FailureConservative FailureStrategy = "conservative"
	// FailureAggressive keeps scheduling every branch not depending on the failure.
	FailureAggressive FailureStrategy = "aggressive"
)

// Valid reports whether the strategy is one of the known values.
func (s FailureStrategy) Valid() bool {
	return s == FailureConservative || s == FailureAggressive
}

// TaskOutcome is the executor's report for one task.
type TaskOutcome struct {
	TaskID string     `json:"task_id" yaml:"task_id"`
	Status TaskStatus `json:"status" yaml:"status"`
}

// Continuation describes what may still be scheduled after outcomes are known.
type Continuation struct {
	Strategy         FailureStrategy `json:"strategy" yaml:"strategy"`
	Halted           bool            `json:"halted" yaml:"halted"`
	Reason           string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	Completed        []string        `json:"completed" yaml:"completed"`
	Failed           []string        `json:"failed" yaml:"failed"`
	Cancelled        []string        `json:"cancelled" yaml:"cancelled"`
	Blocked          []string        `json:"blocked" yaml:"blocked"`
	Skipped          []string        `json:"skipped" yaml:"skipped"`
	RemainingBatches []Batch         `json:"remaining_batches" yaml:"remaining_batches"`
}
