package models

import (
	"errors"
	"fmt"
	"math"
)

// TaskStatus tracks a task through an externally executed plan.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
	StatusBlocked   TaskStatus = "blocked"
)

// IsTerminal returns true for statuses that will not change without caller intervention.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusBlocked:
		return true
	default:
		return false
	}
}

// Task represents a single unit of work in a planning request
type Task struct {
	ID                string   `json:"id" yaml:"id"`                                     // Unique task identifier
	Description       string   `json:"description" yaml:"description"`                   // Free text, scanned for implicit dependencies
	EstimatedDuration float64  `json:"estimated_duration" yaml:"estimated_duration"`     // Estimated minutes
	DependsOn         []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"` // Explicit dependencies (task ids)
	Resources         []string `json:"resources,omitempty" yaml:"resources,omitempty"`   // Resources the task is expected to touch
}

// Validate checks if the task has all required fields
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if math.IsNaN(t.EstimatedDuration) || math.IsInf(t.EstimatedDuration, 0) {
		return fmt.Errorf("task %s: estimated duration must be a finite number, got %g", t.ID, t.EstimatedDuration)
	}
	if t.EstimatedDuration < 0 {
		return fmt.Errorf("task %s: estimated duration must be >= 0, got %g", t.ID, t.EstimatedDuration)
	}
	return nil
}

// HasResource reports whether the task declares the given resource.
func (t *Task) HasResource(resource string) bool {
	for _, r := range t.Resources {
		if r == resource {
			return true
		}
	}
	return false
}

// SharesResource reports whether two tasks declare at least one common resource.
func (t *Task) SharesResource(other *Task) bool {
	if len(t.Resources) == 0 || len(other.Resources) == 0 {
		return false
	}
	for _, r := range t.Resources {
		if other.HasResource(r) {
			return true
		}
	}
	return false
}
