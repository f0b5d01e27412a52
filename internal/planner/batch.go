package planner

import (
	"fmt"
	"sort"

	"github.com/harrison/parallelizer/internal/models"
)

// OptimizeOptions configures batch optimization
type OptimizeOptions struct {
	MaxAgents int              // Number of simulated agents (>= 1)
	Objective models.Objective // Empty means minimize-time
}

// agentState is one simulated agent during optimization.
type agentState struct {
	id        string
	order     int
	freeAt    float64
	load      float64
	current   string
	tasks     []string
	resources map[string]int
}

// OptimizeBatches partitions an acyclic graph into ordered batches and
// per-agent assignments.
//
// The optimizer runs a list-scheduling simulation: at each simulated instant
// the ready tasks (every predecessor finished in an earlier round) are placed
// onto free agents, and every round that places at least one task becomes a
// batch. The objective only changes candidate order and agent choice, so the
// plan is always valid but not necessarily optimal.
func OptimizeBatches(g *models.DependencyGraph, opts OptimizeOptions) (*models.BatchPlan, error) {
	if opts.MaxAgents < 1 {
		return nil, &models.InvalidConfigurationError{
			Field:  "max_agents",
			Reason: fmt.Sprintf("must be >= 1, got %d", opts.MaxAgents),
		}
	}
	objective := opts.Objective
	if objective == "" {
		objective = models.ObjectiveMinimizeTime
	}
	if !objective.Valid() {
		return nil, &models.InvalidConfigurationError{
			Field:  "objective",
			Reason: fmt.Sprintf("unknown objective %q", objective),
		}
	}
	if err := RequireAcyclic(g); err != nil {
		return nil, err
	}

	var topo []string
	for _, layer := range kahnLayers(g) {
		topo = append(topo, layer...)
	}

	s := &simulation{
		graph:     g,
		objective: objective,
		remaining: remainingPath(g, topo),
		finish:    make(map[string]float64, g.Len()),
		batchOf:   make(map[string]int, g.Len()),
	}
	_, s.pred = g.Adjacency()
	for i := 0; i < opts.MaxAgents; i++ {
		s.agents = append(s.agents, &agentState{
			id:        fmt.Sprintf("agent-%d", i+1),
			order:     i,
			resources: make(map[string]int),
		})
	}

	if err := s.run(); err != nil {
		return nil, err
	}
	return s.plan(opts.MaxAgents), nil
}

type simulation struct {
	graph     *models.DependencyGraph
	objective models.Objective
	remaining map[string]float64
	pred      map[string][]string
	agents    []*agentState

	now        float64
	finish     map[string]float64
	batchOf    map[string]int
	batches    []models.Batch
	placements []models.Placement
}

func (s *simulation) run() error {
	total := s.graph.Len()
	for len(s.batchOf) < total {
		ready := s.ready()
		free := s.freeAgents()
		if len(ready) > 0 && len(free) > 0 {
			if placed := s.placeRound(ready, free); placed > 0 {
				continue
			}
		}
		if !s.advance() {
			return fmt.Errorf("batch optimizer stalled at t=%g with %d of %d tasks placed", s.now, len(s.batchOf), total)
		}
	}
	return nil
}

// ready returns unplaced tasks whose predecessors have all finished by now.
func (s *simulation) ready() []string {
	var ready []string
	for _, id := range s.graph.IDs() {
		if _, placed := s.batchOf[id]; placed {
			continue
		}
		ok := true
		for _, p := range s.pred[id] {
			end, placed := s.finish[p]
			if !placed || end > s.now+epsilon {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		}
	}
	return ready
}

func (s *simulation) freeAgents() []*agentState {
	var free []*agentState
	for _, a := range s.agents {
		if a.freeAt <= s.now+epsilon {
			free = append(free, a)
		}
	}
	return free
}

// advance moves the clock to the next task completion.
func (s *simulation) advance() bool {
	next := -1.0
	for _, a := range s.agents {
		if a.freeAt > s.now+epsilon && (next < 0 || a.freeAt < next) {
			next = a.freeAt
		}
	}
	if next < 0 {
		return false
	}
	s.now = next
	return true
}

// placeRound assigns ready tasks to free agents and records the batch.
func (s *simulation) placeRound(ready []string, free []*agentState) int {
	var chosen []models.Placement
	switch s.objective {
	case models.ObjectiveBalanceLoad:
		chosen = s.selectBalanced(ready, free)
	case models.ObjectiveMinimizeConflicts:
		chosen = s.selectConflictFree(ready, free)
	default:
		chosen = s.selectCritical(ready, free)
	}
	if len(chosen) == 0 {
		return 0
	}

	index := len(s.batches)
	batch := models.Batch{Index: index, Start: s.now, End: s.now}
	for _, pl := range chosen {
		pl.Batch = index
		s.batchOf[pl.TaskID] = index
		s.finish[pl.TaskID] = pl.End
		if pl.End > batch.End {
			batch.End = pl.End
		}
		batch.TaskIDs = append(batch.TaskIDs, pl.TaskID)
		s.placements = append(s.placements, pl)
	}
	s.batches = append(s.batches, batch)
	return len(chosen)
}

// start occupies an agent with a task and returns the placement.
func (s *simulation) start(a *agentState, id, reason string) models.Placement {
	t, _ := s.graph.Task(id)
	end := s.now + t.EstimatedDuration
	a.freeAt = end
	a.load += t.EstimatedDuration
	a.current = id
	a.tasks = append(a.tasks, id)
	for _, r := range t.Resources {
		a.resources[r]++
	}
	return models.Placement{
		TaskID:  id,
		AgentID: a.id,
		Start:   s.now,
		End:     end,
		Reason:  reason,
	}
}

// byCriticalPriority orders tasks by remaining path length, longest first.
func (s *simulation) byCriticalPriority(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := s.remaining[out[i]], s.remaining[out[j]]
		if ri-rj > epsilon || rj-ri > epsilon {
			return ri > rj
		}
		return s.graph.Index(out[i]) < s.graph.Index(out[j])
	})
	return out
}

// selectCritical pairs the longest-remaining tasks with the agents that
// became free earliest.
func (s *simulation) selectCritical(ready []string, free []*agentState) []models.Placement {
	agents := append([]*agentState(nil), free...)
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].freeAt != agents[j].freeAt {
			return agents[i].freeAt < agents[j].freeAt
		}
		return agents[i].order < agents[j].order
	})

	var chosen []models.Placement
	for i, id := range s.byCriticalPriority(ready) {
		if i == len(agents) {
			break
		}
		reason := fmt.Sprintf("remaining path %.1f; earliest free agent", s.remaining[id])
		chosen = append(chosen, s.start(agents[i], id, reason))
	}
	return chosen
}

// selectBalanced takes tasks in id order and gives each to the least loaded free agent.
func (s *simulation) selectBalanced(ready []string, free []*agentState) []models.Placement {
	ids := append([]string(nil), ready...)
	sort.Strings(ids)

	used := make(map[string]bool, len(free))
	var chosen []models.Placement
	for _, id := range ids {
		var best *agentState
		for _, a := range free {
			if used[a.id] {
				continue
			}
			if best == nil || a.load < best.load-epsilon {
				best = a
			}
		}
		if best == nil {
			break
		}
		used[best.id] = true
		reason := fmt.Sprintf("lowest accumulated load %.1f", best.load)
		chosen = append(chosen, s.start(best, id, reason))
	}
	return chosen
}

// selectConflictFree defers tasks whose declared resources overlap a running
// or already selected task, and steers each placed task to the free agent
// that has already handled its resources.
func (s *simulation) selectConflictFree(ready []string, free []*agentState) []models.Placement {
	var active []models.Task
	for _, a := range s.agents {
		if a.freeAt > s.now+epsilon && a.current != "" {
			t, _ := s.graph.Task(a.current)
			active = append(active, t)
		}
	}

	used := make(map[string]bool, len(free))
	var chosen []models.Placement
	for _, id := range s.byCriticalPriority(ready) {
		if len(used) == len(free) {
			break
		}
		t, _ := s.graph.Task(id)
		if overlapsAny(&t, active) {
			continue
		}

		var best *agentState
		bestAffinity := -1
		for _, a := range free {
			if used[a.id] {
				continue
			}
			affinity := 0
			for _, r := range t.Resources {
				affinity += a.resources[r]
			}
			if affinity > bestAffinity || (affinity == bestAffinity && a.load < best.load-epsilon) {
				best = a
				bestAffinity = affinity
			}
		}
		used[best.id] = true
		active = append(active, t)

		reason := "no shared resources with running tasks"
		if bestAffinity > 0 {
			reason = fmt.Sprintf("resource affinity %d with %s", bestAffinity, best.id)
		}
		chosen = append(chosen, s.start(best, id, reason))
	}
	return chosen
}

func overlapsAny(t *models.Task, others []models.Task) bool {
	for i := range others {
		if t.SharesResource(&others[i]) {
			return true
		}
	}
	return false
}

func (s *simulation) plan(maxAgents int) *models.BatchPlan {
	plan := &models.BatchPlan{
		Objective:   s.objective,
		MaxAgents:   maxAgents,
		Batches:     s.batches,
		Assignments: []models.AgentAssignment{},
		Placements:  s.placements,
	}
	if plan.Batches == nil {
		plan.Batches = []models.Batch{}
	}
	if plan.Placements == nil {
		plan.Placements = []models.Placement{}
	}
	for _, a := range s.agents {
		if len(a.tasks) == 0 {
			continue
		}
		plan.Assignments = append(plan.Assignments, models.AgentAssignment{
			AgentID:       a.id,
			TaskIDs:       a.tasks,
			TotalDuration: a.load,
		})
	}
	for _, b := range plan.Batches {
		if b.End > plan.EstimatedTotalTime {
			plan.EstimatedTotalTime = b.End
		}
	}
	plan.EstimatedConflictCount = CountResourceConflicts(s.graph, plan)
	return plan
}

// CountResourceConflicts counts same-batch task pairs that declare a common resource.
func CountResourceConflicts(g *models.DependencyGraph, plan *models.BatchPlan) int {
	if plan == nil {
		return 0
	}
	count := 0
	for _, b := range plan.Batches {
		for i := 0; i < len(b.TaskIDs); i++ {
			ti, ok := g.Task(b.TaskIDs[i])
			if !ok {
				continue
			}
			for j := i + 1; j < len(b.TaskIDs); j++ {
				tj, ok := g.Task(b.TaskIDs[j])
				if ok && ti.SharesResource(&tj) {
					count++
				}
			}
		}
	}
	return count
}

// ValidatePlan checks that every graph task is placed exactly once and that
// each edge goes from an earlier batch to a later one.
func ValidatePlan(g *models.DependencyGraph, plan *models.BatchPlan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}
	seen := make(map[string]int, g.Len())
	for _, b := range plan.Batches {
		for _, id := range b.TaskIDs {
			if !g.Has(id) {
				return fmt.Errorf("batch %d: unknown task %s", b.Index, id)
			}
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("task %s placed in batches %d and %d", id, prev, b.Index)
			}
			seen[id] = b.Index
		}
	}
	for _, id := range g.IDs() {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("task %s is not placed", id)
		}
	}
	for _, e := range g.Edges {
		if seen[e.From] >= seen[e.To] {
			return fmt.Errorf("edge %s -> %s: batch %d is not before batch %d", e.From, e.To, seen[e.From], seen[e.To])
		}
	}
	return nil
}
