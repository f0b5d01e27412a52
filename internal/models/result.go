package models

import (
	"sort"
	"strings"
)

// Change record actions
const (
	ActionCreate = "create"
	ActionModify = "modify"
	ActionDelete = "delete"
	ActionRead   = "read"
)

// ChangeRecord describes one change an agent made (or relied on) while running a task.
type ChangeRecord struct {
	Resource    string   `json:"resource" yaml:"resource"`
	Action      string   `json:"action,omitempty" yaml:"action,omitempty"`           // create, modify, delete, read
	Identifiers []string `json:"identifiers,omitempty" yaml:"identifiers,omitempty"` // Symbols touched (functions, types, keys)
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// ExecutionResult is the external executor's report for one (task, agent) run.
// ModifiedResources and Changeset may be absent in the source data; call
// Normalize before inspecting them.
type ExecutionResult struct {
	TaskID            string         `json:"task_id" yaml:"task_id"`
	AgentID           string         `json:"agent_id" yaml:"agent_id"`
	Success           bool           `json:"success" yaml:"success"`
	ModifiedResources []string       `json:"modified_resources" yaml:"modified_resources"`
	Changeset         []ChangeRecord `json:"changeset" yaml:"changeset"`
	DurationActual    float64        `json:"duration_actual" yaml:"duration_actual"` // Minutes
	Batch             *int           `json:"batch,omitempty" yaml:"batch,omitempty"` // Batch the task ran in, when known
}

// Normalize returns a copy whose optional collections are always non-nil.
// Resources are trimmed, deduplicated and sorted; blank entries are dropped.
func (r ExecutionResult) Normalize() ExecutionResult {
	out := r
	out.TaskID = strings.TrimSpace(r.TaskID)
	out.AgentID = strings.TrimSpace(r.AgentID)
	out.ModifiedResources = normalizeSet(r.ModifiedResources)

	out.Changeset = make([]ChangeRecord, 0, len(r.Changeset))
	for _, c := range r.Changeset {
		c.Resource = strings.TrimSpace(c.Resource)
		c.Action = strings.ToLower(strings.TrimSpace(c.Action))
		if c.Action == "" {
			c.Action = ActionModify
		}
		c.Identifiers = normalizeSet(c.Identifiers)
		if c.Resource == "" && len(c.Identifiers) == 0 && c.Description == "" {
			continue
		}
		out.Changeset = append(out.Changeset, c)
	}
	if r.Batch != nil {
		b := *r.Batch
		out.Batch = &b
	}
	return out
}

// NormalizeResults normalizes every result. A nil slice yields an empty one.
func NormalizeResults(results []ExecutionResult) []ExecutionResult {
	out := make([]ExecutionResult, 0, len(results))
	for _, r := range results {
		out = append(out, r.Normalize())
	}
	return out
}

// ReferencedResources returns the resources named in the changeset, sorted.
func (r *ExecutionResult) ReferencedResources() []string {
	var refs []string
	for _, c := range r.Changeset {
		if c.Resource != "" {
			refs = append(refs, c.Resource)
		}
	}
	return normalizeSet(refs)
}

// Creates reports whether the changeset creates the resource.
func (r *ExecutionResult) Creates(resource string) bool {
	for _, c := range r.Changeset {
		if c.Resource == resource && c.Action == ActionCreate {
			return true
		}
	}
	return false
}

// Identifiers returns every identifier in the changeset, sorted and unique.
func (r *ExecutionResult) Identifiers() []string {
	var ids []string
	for _, c := range r.Changeset {
		ids = append(ids, c.Identifiers...)
	}
	return normalizeSet(ids)
}

func normalizeSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
