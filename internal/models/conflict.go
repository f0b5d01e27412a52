package models

// ConflictKind categorizes a detected conflict
type ConflictKind string

const (
	ConflictFileLevel           ConflictKind = "file-level"
	ConflictDependencyViolation ConflictKind = "dependency-violation"
	ConflictSemantic            ConflictKind = "semantic"
)

// Severity of a conflict
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Resolution strategies
const (
	ResolutionManualMerge  = "manual-merge"
	ResolutionResequence   = "re-sequence"
	ResolutionManualReview = "manual-review"
)

// Resolution is a suggested way to resolve a conflict
type Resolution struct {
	Strategy string   `json:"strategy" yaml:"strategy"`
	Steps    []string `json:"steps" yaml:"steps"`
}

// Conflict is an unsafe interaction between concurrently executed tasks
type Conflict struct {
	Kind           ConflictKind `json:"kind" yaml:"kind"`
	Severity       Severity     `json:"severity" yaml:"severity"`
	AffectedTasks  []string     `json:"affected_tasks" yaml:"affected_tasks"`
	AffectedAgents []string     `json:"affected_agents" yaml:"affected_agents"`
	Resource       string       `json:"resource,omitempty" yaml:"resource,omitempty"`
	Confidence     float64      `json:"confidence" yaml:"confidence"`
	Description    string       `json:"description" yaml:"description"`
	Resolution     Resolution   `json:"resolution" yaml:"resolution"`
}

// ConflictReport is the detector output
type ConflictReport struct {
	Conflicts           []Conflict `json:"conflicts" yaml:"conflicts"`
	ResultsAnalyzed     int        `json:"results_analyzed" yaml:"results_analyzed"`
	FileLevel           int        `json:"file_level" yaml:"file_level"`
	DependencyViolation int        `json:"dependency_violation" yaml:"dependency_violation"`
	Semantic            int        `json:"semantic" yaml:"semantic"`
	HighSeverity        int        `json:"high_severity" yaml:"high_severity"`
}

// HasConflicts returns true when at least one conflict was found.
func (r ConflictReport) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// OfKind returns the conflicts of one kind, preserving report order.
func (r ConflictReport) OfKind(kind ConflictKind) []Conflict {
	var out []Conflict
	for _, c := range r.Conflicts {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
