package models

// Recommendation is the go/no-go verdict on parallel execution
type Recommendation string

const (
	Recommended    Recommendation = "RECOMMENDED"
	NotRecommended Recommendation = "NOT_RECOMMENDED"
)

// NodeTiming holds the per-task schedule bounds computed from the DAG.
type NodeTiming struct {
	ID             string  `json:"id" yaml:"id"`
	Layer          int     `json:"layer" yaml:"layer"`
	Duration       float64 `json:"duration" yaml:"duration"`
	EarliestStart  float64 `json:"earliest_start" yaml:"earliest_start"`
	EarliestFinish float64 `json:"earliest_finish" yaml:"earliest_finish"`
	LatestStart    float64 `json:"latest_start" yaml:"latest_start"`
	Slack          float64 `json:"slack" yaml:"slack"`
	Remaining      float64 `json:"remaining" yaml:"remaining"` // Longest chain from this task to a sink, inclusive
	Critical       bool    `json:"critical" yaml:"critical"`
}

// CriticalPathReport is the analysis metadata returned for an acyclic graph
type CriticalPathReport struct {
	Layers             [][]string     `json:"layers" yaml:"layers"`
	Timings            []NodeTiming   `json:"timings" yaml:"timings"` // Topological order
	CriticalPath       []string       `json:"critical_path" yaml:"critical_path"`
	CriticalPathLength float64        `json:"critical_path_length" yaml:"critical_path_length"`
	SerialTime         float64        `json:"serial_time" yaml:"serial_time"`
	ParallelBound      float64        `json:"parallel_bound" yaml:"parallel_bound"`
	LayeredBound       float64        `json:"layered_bound" yaml:"layered_bound"`
	Speedup            float64        `json:"speedup" yaml:"speedup"`
	Recommendation     Recommendation `json:"recommendation" yaml:"recommendation"`
	Reason             string         `json:"reason" yaml:"reason"`
}

// Timing returns the timing row for a task.
func (r *CriticalPathReport) Timing(id string) (NodeTiming, bool) {
	if r == nil {
		return NodeTiming{}, false
	}
	for _, t := range r.Timings {
		if t.ID == id {
			return t, true
		}
	}
	return NodeTiming{}, false
}

// LayerOf returns the layer index of a task, or -1.
func (r *CriticalPathReport) LayerOf(id string) int {
	t, ok := r.Timing(id)
	if !ok {
		return -1
	}
	return t.Layer
}

// OnCriticalPath reports whether the task is part of the critical path chain.
func (r *CriticalPathReport) OnCriticalPath(id string) bool {
	if r == nil {
		return false
	}
	for _, c := range r.CriticalPath {
		if c == id {
			return true
		}
	}
	return false
}
