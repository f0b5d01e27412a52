package planner

import "github.com/harrison/parallelizer/internal/models"

// CycleReport is the outcome of a cycle check
type CycleReport struct {
	HasCycles bool     `json:"has_cycles" yaml:"has_cycles"`
	Cycle     []string `json:"cycle,omitempty" yaml:"cycle,omitempty"` // First id repeated at the end
}

// DetectCycles runs a DFS with color marking over the graph, tracking the
// active path. The first back edge found yields the cycle.
// Roots are visited in node order and successors in edge order, so the
// reported cycle is deterministic.
func DetectCycles(g *models.DependencyGraph) CycleReport {
	const (
		white = 0 // not visited
		gray  = 1 // on the active path
		black = 2 // finished
	)

	if g.Len() == 0 {
		return CycleReport{}
	}

	succ, _ := g.Adjacency()
	colors := make(map[string]int, g.Len())
	var path []string
	var cycle []string

	var dfs func(string) bool
	dfs = func(node string) bool {
		colors[node] = gray
		path = append(path, node)

		for _, next := range succ[node] {
			switch colors[next] {
			case gray:
				// Back edge: the cycle is the path suffix starting at next.
				for i := len(path) - 1; i >= 0; i-- {
					if path[i] == next {
						cycle = append(append([]string{}, path[i:]...), next)
						break
					}
				}
				return true
			case white:
				if dfs(next) {
					return true
				}
			}
		}

		colors[node] = black
		path = path[:len(path)-1]
		return false
	}

	for _, id := range g.IDs() {
		if colors[id] == white && dfs(id) {
			return CycleReport{HasCycles: true, Cycle: cycle}
		}
	}
	return CycleReport{}
}

// RequireAcyclic returns a GraphCycleError when the graph has a cycle.
func RequireAcyclic(g *models.DependencyGraph) error {
	report := DetectCycles(g)
	if report.HasCycles {
		return &models.GraphCycleError{Cycle: report.Cycle}
	}
	return nil
}
