package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/parallelizer/internal/models"
)

// mustGraph builds a graph from explicit dependencies only.
func mustGraph(t testing.TB, tasks ...models.Task) *models.DependencyGraph {
	t.Helper()
	g, err := BuildDependencyGraph(tasks, BuildOptions{})
	if err != nil {
		t.Fatalf("BuildDependencyGraph() error = %v", err)
	}
	return g
}

func task(id string, duration float64, deps ...string) models.Task {
	return models.Task{ID: id, EstimatedDuration: duration, DependsOn: deps}
}

func TestDetectCycles(t *testing.T) {
	tests := []struct {
		name      string
		tasks     []models.Task
		wantCycle []string
	}{
		{
			name: "three node cycle",
			tasks: []models.Task{
				task("A", 1, "C"),
				task("B", 1, "A"),
				task("C", 1, "B"),
			},
			wantCycle: []string{"A", "B", "C", "A"},
		},
		{
			name:      "self loop",
			tasks:     []models.Task{task("A", 1, "A")},
			wantCycle: []string{"A", "A"},
		},
		{
			name: "cycle behind an acyclic prefix",
			tasks: []models.Task{
				task("root", 1),
				task("x", 1, "root", "y"),
				task("y", 1, "x"),
			},
			wantCycle: []string{"x", "y", "x"},
		},
		{
			name: "diamond is acyclic",
			tasks: []models.Task{
				task("A", 1),
				task("B", 1, "A"),
				task("C", 1, "A"),
				task("D", 1, "B", "C"),
			},
		},
		{
			name:  "empty graph",
			tasks: []models.Task{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := DetectCycles(mustGraph(t, tt.tasks...))
			assert.Equal(t, tt.wantCycle != nil, report.HasCycles)
			assert.Equal(t, tt.wantCycle, report.Cycle)
		})
	}
}

func TestRequireAcyclic(t *testing.T) {
	g := mustGraph(t, task("A", 1, "C"), task("B", 1, "A"), task("C", 1, "B"))

	err := RequireAcyclic(g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrGraphCycle))

	var cycleErr *models.GraphCycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"A", "B", "C", "A"}, cycleErr.Cycle)
	assert.Contains(t, err.Error(), "A -> B -> C -> A")

	// The raw graph stays usable.
	assert.Equal(t, 3, g.Len())
	assert.NoError(t, RequireAcyclic(mustGraph(t, task("A", 1), task("B", 1, "A"))))
}

func TestOrderingOperationsRejectCycles(t *testing.T) {
	g := mustGraph(t, task("A", 1, "C"), task("B", 1, "A"), task("C", 1, "B"))

	_, err := AnalyzeCriticalPath(g, DefaultAnalysisOptions())
	assert.True(t, models.IsGraphCycleError(err), "AnalyzeCriticalPath: %v", err)

	plan, err := OptimizeBatches(g, OptimizeOptions{MaxAgents: 2})
	assert.Nil(t, plan)
	assert.True(t, models.IsGraphCycleError(err), "OptimizeBatches: %v", err)

	_, err = TopologicalLayers(g)
	assert.True(t, models.IsGraphCycleError(err), "TopologicalLayers: %v", err)
}
