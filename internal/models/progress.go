package models

// ProgressStrategy selects how agent snapshots are combined
type ProgressStrategy string

const (
	ProgressSimpleAverage ProgressStrategy = "simple-average"
	ProgressWeighted      ProgressStrategy = "weighted"
	ProgressCriticalPath  ProgressStrategy = "critical-path"
)

// Valid reports whether the strategy is one of the known values.
func (s ProgressStrategy) Valid() bool {
	switch s {
	case ProgressSimpleAverage, ProgressWeighted, ProgressCriticalPath:
		return true
	default:
		return false
	}
}

// AgentProgress is one agent's self-reported progress
type AgentProgress struct {
	AgentID         string  `json:"agent_id" yaml:"agent_id"`
	PercentComplete float64 `json:"percent_complete" yaml:"percent_complete"` // 0-100
	CurrentTaskID   string  `json:"current_task_id,omitempty" yaml:"current_task_id,omitempty"`
}

// Bottleneck identifies the agent/task most constraining completion
type Bottleneck struct {
	AgentID string  `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	TaskID  string  `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Percent float64 `json:"percent" yaml:"percent"`
	Ratio   float64 `json:"ratio,omitempty" yaml:"ratio,omitempty"` // percent / expected percent, when a schedule is known
}

// ProgressSummary is the project-level completion estimate
type ProgressSummary struct {
	Strategy                 ProgressStrategy `json:"strategy" yaml:"strategy"`
	OverallPercent           float64          `json:"overall_percent" yaml:"overall_percent"`
	AgentCount               int              `json:"agent_count" yaml:"agent_count"`
	Bottleneck               *Bottleneck      `json:"bottleneck,omitempty" yaml:"bottleneck,omitempty"`
	EstimatedRemaining       *float64         `json:"estimated_remaining,omitempty" yaml:"estimated_remaining,omitempty"`               // Minutes
	EstimatedCompletionDelta *float64         `json:"estimated_completion_delta,omitempty" yaml:"estimated_completion_delta,omitempty"` // Minutes behind (+) or ahead (-) of plan
	Notes                    []string         `json:"notes,omitempty" yaml:"notes,omitempty"`
}
