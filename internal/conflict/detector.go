// Package conflict inspects execution results for unsafe interactions between
// tasks that ran concurrently.
//
// Detection never fails: absent or null collections in a result are treated
// as empty, and a result that names no task is counted but otherwise ignored.
package conflict

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/harrison/parallelizer/internal/models"
)

// DefaultSemanticThreshold is the description-token overlap at which two
// concurrent tasks are reported for review.
const DefaultSemanticThreshold = 0.5

// identifierOverlapMedium is the identifier Jaccard overlap at which a semantic
// conflict is raised to medium severity.
const identifierOverlapMedium = 0.5

// unknownBatch marks a result whose batch cannot be determined.
const unknownBatch = -1

// Options supplies optional context for detection
type Options struct {
	Graph             *models.DependencyGraph // Enables dependency-violation checks
	Plan              *models.BatchPlan       // Batch lookup for results without a batch
	SemanticThreshold float64                 // Description overlap threshold (0 = default)
}

var wordPattern = regexp.MustCompile(`[a-z0-9_]{4,}`)

// Detect reports file-level, dependency-violation and semantic conflicts.
func Detect(results []models.ExecutionResult, opts Options) models.ConflictReport {
	threshold := opts.SemanticThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSemanticThreshold
	}

	normalized := models.NormalizeResults(results)
	d := &detector{
		opts:    opts,
		flagged: make(map[pairKey]bool),
	}
	for _, r := range normalized {
		if r.TaskID == "" {
			continue
		}
		d.results = append(d.results, r)
	}

	var conflicts []models.Conflict
	conflicts = append(conflicts, d.fileLevel()...)
	if opts.Graph != nil {
		conflicts = append(conflicts, d.dependencyViolations()...)
	}
	conflicts = append(conflicts, d.semantic(threshold)...)
	sortConflicts(conflicts)

	report := models.ConflictReport{
		Conflicts:       conflicts,
		ResultsAnalyzed: len(normalized),
	}
	if report.Conflicts == nil {
		report.Conflicts = []models.Conflict{}
	}
	for _, c := range report.Conflicts {
		switch c.Kind {
		case models.ConflictFileLevel:
			report.FileLevel++
		case models.ConflictDependencyViolation:
			report.DependencyViolation++
		case models.ConflictSemantic:
			report.Semantic++
		}
		if c.Severity == models.SeverityHigh {
			report.HighSeverity++
		}
	}
	return report
}

type pairKey struct{ a, b string }

func newPairKey(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

type detector struct {
	opts    Options
	results []models.ExecutionResult
	flagged map[pairKey]bool
}

// batchOf returns the batch the result ran in, from the result itself or the plan.
func (d *detector) batchOf(r *models.ExecutionResult) int {
	if r.Batch != nil {
		return *r.Batch
	}
	if d.opts.Plan != nil {
		return d.opts.Plan.BatchOf(r.TaskID)
	}
	return unknownBatch
}

// concurrent reports whether two results may have run at the same time.
func (d *detector) concurrent(a, b *models.ExecutionResult) bool {
	if a.TaskID == b.TaskID {
		return false
	}
	ba, bb := d.batchOf(a), d.batchOf(b)
	return ba == unknownBatch || bb == unknownBatch || ba == bb
}

// ranBefore reports whether a finished in a strictly earlier batch than b.
func (d *detector) ranBefore(a, b *models.ExecutionResult) bool {
	ba, bb := d.batchOf(a), d.batchOf(b)
	return ba != unknownBatch && bb != unknownBatch && ba < bb
}

func (d *detector) flag(tasks []string) {
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks); j++ {
			d.flagged[newPairKey(tasks[i], tasks[j])] = true
		}
	}
}

// written returns the resources a result changed: modified resources plus
// every changeset record that is not a read.
func written(r *models.ExecutionResult) []string {
	out := append([]string(nil), r.ModifiedResources...)
	for _, c := range r.Changeset {
		if c.Resource != "" && c.Action != models.ActionRead && !contains(out, c.Resource) {
			out = append(out, c.Resource)
		}
	}
	return out
}

// fileLevel groups writers of each resource by batch. Results with an unknown
// batch are considered concurrent with every group.
func (d *detector) fileLevel() []models.Conflict {
	writers := make(map[string][]int)
	for i := range d.results {
		for _, res := range written(&d.results[i]) {
			writers[res] = append(writers[res], i)
		}
	}

	resources := make([]string, 0, len(writers))
	for res := range writers {
		resources = append(resources, res)
	}
	sort.Strings(resources)

	var conflicts []models.Conflict
	for _, res := range resources {
		groups := make(map[int][]int)
		var unknown []int
		for _, i := range writers[res] {
			b := d.batchOf(&d.results[i])
			if b == unknownBatch {
				unknown = append(unknown, i)
				continue
			}
			groups[b] = append(groups[b], i)
		}
		if len(groups) == 0 {
			groups[unknownBatch] = nil
		}

		batches := make([]int, 0, len(groups))
		for b := range groups {
			batches = append(batches, b)
		}
		sort.Ints(batches)

		seen := make(map[string]bool)
		for _, b := range batches {
			members := append(append([]int(nil), groups[b]...), unknown...)
			tasks, agents := d.participants(members)
			if len(tasks) < 2 {
				continue
			}
			key := strings.Join(tasks, "\x00")
			if seen[key] {
				continue
			}
			seen[key] = true
			d.flag(tasks)

			confidence := 1.0
			where := fmt.Sprintf("in batch %d", b)
			if len(unknown) > 0 {
				confidence = 0.8
				where = "with no batch ordering between them"
			}
			conflicts = append(conflicts, models.Conflict{
				Kind:           models.ConflictFileLevel,
				Severity:       models.SeverityHigh,
				AffectedTasks:  tasks,
				AffectedAgents: agents,
				Resource:       res,
				Confidence:     confidence,
				Description:    fmt.Sprintf("%s was modified by tasks %s %s", res, strings.Join(tasks, ", "), where),
				Resolution: models.Resolution{
					Strategy: models.ResolutionManualMerge,
					Steps: []string{
						fmt.Sprintf("Compare the changes each of %s made to %s", strings.Join(tasks, ", "), res),
						fmt.Sprintf("Merge the edits into a single version of %s", res),
						fmt.Sprintf("Re-run the checks that cover %s", res),
					},
				},
			})
		}
	}
	return conflicts
}

// participants returns the distinct task ids and agent ids of result indexes, sorted.
func (d *detector) participants(indexes []int) ([]string, []string) {
	var tasks, agents []string
	for _, i := range indexes {
		r := d.results[i]
		if !contains(tasks, r.TaskID) {
			tasks = append(tasks, r.TaskID)
		}
		if r.AgentID != "" && !contains(agents, r.AgentID) {
			agents = append(agents, r.AgentID)
		}
	}
	sort.Strings(tasks)
	sort.Strings(agents)
	if agents == nil {
		agents = []string{}
	}
	return tasks, agents
}

// dependencyViolations flags tasks that used a resource created by another
// task which ran in the same or a later batch, or whose batch is unknown,
// and which the graph does not order before them.
func (d *detector) dependencyViolations() []models.Conflict {
	producers := make(map[string][]int)
	for i := range d.results {
		for _, res := range d.results[i].ReferencedResources() {
			if d.results[i].Creates(res) {
				producers[res] = append(producers[res], i)
			}
		}
	}

	var conflicts []models.Conflict
	for i := range d.results {
		consumer := &d.results[i]
		if !d.opts.Graph.Has(consumer.TaskID) {
			continue
		}
		var ancestors map[string]bool
		for _, res := range consumer.ReferencedResources() {
			makers := producers[res]
			if len(makers) == 0 || consumer.Creates(res) {
				continue
			}
			if ancestors == nil {
				ancestors = d.opts.Graph.Ancestors(consumer.TaskID)
			}
			ordered := false
			var makerTasks []string
			for _, m := range makers {
				id := d.results[m].TaskID
				if id == consumer.TaskID || ancestors[id] || d.ranBefore(&d.results[m], consumer) {
					ordered = true
					break
				}
				if !contains(makerTasks, id) {
					makerTasks = append(makerTasks, id)
				}
			}
			if ordered {
				continue
			}
			sort.Strings(makerTasks)

			tasks, agents := d.participants(append(append([]int(nil), makers...), i))
			d.flag(tasks)
			conflicts = append(conflicts, models.Conflict{
				Kind:           models.ConflictDependencyViolation,
				Severity:       models.SeverityHigh,
				AffectedTasks:  tasks,
				AffectedAgents: agents,
				Resource:       res,
				Confidence:     0.9,
				Description: fmt.Sprintf("task %s uses %s, which is created by %s with no dependency ordering it first",
					consumer.TaskID, res, strings.Join(makerTasks, ", ")),
				Resolution: models.Resolution{
					Strategy: models.ResolutionResequence,
					Steps: []string{
						fmt.Sprintf("Add a dependency from %s to %s", strings.Join(makerTasks, ", "), consumer.TaskID),
						fmt.Sprintf("Re-run %s once %s exists", consumer.TaskID, res),
					},
				},
			})
		}
	}
	return conflicts
}

// semantic compares concurrent pairs that were not flagged by a stronger check.
func (d *detector) semantic(threshold float64) []models.Conflict {
	var conflicts []models.Conflict
	for i := 0; i < len(d.results); i++ {
		for j := i + 1; j < len(d.results); j++ {
			a, b := &d.results[i], &d.results[j]
			if !d.concurrent(a, b) {
				continue
			}
			key := newPairKey(a.TaskID, b.TaskID)
			if d.flagged[key] {
				continue
			}

			var c *models.Conflict
			if overlap, shared := jaccard(a.Identifiers(), b.Identifiers()); len(shared) > 0 {
				severity := models.SeverityLow
				if overlap >= identifierOverlapMedium {
					severity = models.SeverityMedium
				}
				c = &models.Conflict{
					Severity:    severity,
					Confidence:  overlap,
					Description: fmt.Sprintf("tasks %s and %s both changed %s", key.a, key.b, strings.Join(shared, ", ")),
				}
			} else if overlap, shared := jaccard(descriptionWords(a), descriptionWords(b)); len(shared) > 0 && overlap >= threshold {
				c = &models.Conflict{
					Severity:    models.SeverityLow,
					Confidence:  overlap / 2,
					Description: fmt.Sprintf("tasks %s and %s describe overlapping changes (%s)", key.a, key.b, strings.Join(shared, ", ")),
				}
			}
			if c == nil {
				continue
			}

			d.flagged[key] = true
			tasks, agents := d.participants([]int{i, j})
			c.Kind = models.ConflictSemantic
			c.AffectedTasks = tasks
			c.AffectedAgents = agents
			c.Resolution = models.Resolution{
				Strategy: models.ResolutionManualReview,
				Steps: []string{
					fmt.Sprintf("Review the changesets of %s and %s together", key.a, key.b),
					"Confirm the changes agree on shared names and behavior",
				},
			}
			conflicts = append(conflicts, *c)
		}
	}
	return conflicts
}

func descriptionWords(r *models.ExecutionResult) []string {
	var words []string
	for _, c := range r.Changeset {
		for _, w := range wordPattern.FindAllString(strings.ToLower(c.Description), -1) {
			if !contains(words, w) {
				words = append(words, w)
			}
		}
	}
	return words
}

// jaccard returns |a ∩ b| / |a ∪ b| and the sorted intersection.
func jaccard(a, b []string) (float64, []string) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	inA := make(map[string]bool, len(a))
	for _, v := range a {
		inA[v] = true
	}
	union := len(inA)
	var shared []string
	seen := make(map[string]bool, len(b))
	for _, v := range b {
		if seen[v] {
			continue
		}
		seen[v] = true
		if inA[v] {
			shared = append(shared, v)
		} else {
			union++
		}
	}
	sort.Strings(shared)
	return float64(len(shared)) / float64(union), shared
}

var kindOrder = map[models.ConflictKind]int{
	models.ConflictFileLevel:           0,
	models.ConflictDependencyViolation: 1,
	models.ConflictSemantic:            2,
}

func sortConflicts(conflicts []models.Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Kind != b.Kind {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return strings.Join(a.AffectedTasks, ",") < strings.Join(b.AffectedTasks, ",")
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
