package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks. The typed errors below unwrap to these.
var (
	ErrUnknownDependency    = errors.New("unknown dependency")
	ErrGraphCycle           = errors.New("dependency graph contains a cycle")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// UnknownDependencyError is returned when an edge names a task that is not in the graph.
type UnknownDependencyError struct {
	TaskID     string // Task declaring the dependency
	Dependency string // Missing task id
}

// Error implements the error interface for UnknownDependencyError.
func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %s: depends on non-existent task %s", e.TaskID, e.Dependency)
}

// Unwrap returns ErrUnknownDependency.
func (e *UnknownDependencyError) Unwrap() error {
	return ErrUnknownDependency
}

// GraphCycleError carries the offending cycle. The first id is repeated at the end.
type GraphCycleError struct {
	Cycle []string
}

// Error implements the error interface for GraphCycleError.
func (e *GraphCycleError) Error() string {
	if len(e.Cycle) == 0 {
		return ErrGraphCycle.Error()
	}
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrGraphCycle.
func (e *GraphCycleError) Unwrap() error {
	return ErrGraphCycle
}

// InvalidConfigurationError reports caller input that cannot be planned.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface for InvalidConfigurationError.
func (e *InvalidConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid configuration")
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Field))
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}

// Unwrap returns ErrInvalidConfiguration.
func (e *InvalidConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// IsGraphCycleError checks if the error is or wraps a GraphCycleError.
func IsGraphCycleError(err error) bool {
	if err == nil {
		return false
	}
	var ce *GraphCycleError
	return errors.As(err, &ce)
}

// IsUnknownDependencyError checks if the error is or wraps an UnknownDependencyError.
func IsUnknownDependencyError(err error) bool {
	if err == nil {
		return false
	}
	var ue *UnknownDependencyError
	return errors.As(err, &ue)
}

// IsInvalidConfigurationError checks if the error is or wraps an InvalidConfigurationError.
func IsInvalidConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var ie *InvalidConfigurationError
	return errors.As(err, &ie)
}
