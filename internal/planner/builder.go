// Package planner builds task dependency graphs and derives schedules from them.
//
// Every function in this package is a pure computation over its arguments:
// nothing is executed, written or logged, and identical input always yields
// identical output. Ordering operations (critical path analysis, batch
// optimization, continuation) reject cyclic graphs with a GraphCycleError.
package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harrison/parallelizer/internal/models"
)

// DefaultMinConfidence is the lowest confidence at which an inferred edge is kept
const DefaultMinConfidence = 0.6

// maxImplicitConfidence keeps inferred edges strictly below explicit ones.
const maxImplicitConfidence = 0.95

// BuildOptions controls graph construction
type BuildOptions struct {
	DetectImplicit bool    // Infer edges from task descriptions
	MinConfidence  float64 // Threshold for inferred edges (0 = DefaultMinConfidence)
}

// trigger is a phrase that signals the text after it names a prerequisite.
type trigger struct {
	phrase string
	weight float64
	re     *regexp.Regexp
}

var triggers = []trigger{
	newTrigger("depends on", 0.9),
	newTrigger("requires", 0.85),
	newTrigger("based on", 0.8),
	newTrigger("builds on", 0.8),
	newTrigger("after", 0.75),
	newTrigger("using", 0.7),
}

func newTrigger(phrase string, weight float64) trigger {
	return trigger{
		phrase: phrase,
		weight: weight,
		re:     regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`),
	}
}

var (
	sentenceSplit = regexp.MustCompile(`[.;!?\n]+`)
	tokenPattern  = regexp.MustCompile(`[a-z0-9][a-z0-9_\-/]*`)
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "into": true,
	"that": true, "this": true, "then": true, "when": true, "will": true, "should": true,
	"must": true, "each": true, "also": true, "have": true, "been": true, "task": true,
	"create": true, "build": true, "implement": true, "add": true, "update": true,
	"write": true, "make": true, "setup": true, "test": true, "tests": true, "some": true,
	"new": true, "all": true, "any": true, "its": true, "their": true, "using": true,
	"after": true, "based": true, "depends": true, "requires": true, "builds": true,
}

// BuildDependencyGraph constructs a DependencyGraph from a task list.
// Explicit dependencies become edges with confidence 1. When DetectImplicit
// is set, edges are also inferred from description text; an inferred edge
// never duplicates or reverses an explicit one.
func BuildDependencyGraph(tasks []models.Task, opts BuildOptions) (*models.DependencyGraph, error) {
	if err := ValidateTasks(tasks); err != nil {
		return nil, err
	}

	minConfidence := opts.MinConfidence
	if minConfidence == 0 {
		minConfidence = DefaultMinConfidence
	}
	if minConfidence < 0 || minConfidence > 1 {
		return nil, &models.InvalidConfigurationError{
			Field:  "min_confidence",
			Reason: fmt.Sprintf("must be within (0, 1], got %g", minConfidence),
		}
	}

	ids := make(map[string]bool, len(tasks))
	nodes := make([]models.Node, 0, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = true
		task := t
		task.DependsOn = dedupe(t.DependsOn)
		task.Resources = dedupe(t.Resources)
		nodes = append(nodes, models.Node{ID: t.ID, Task: task})
	}

	var edges []models.Edge
	for _, n := range nodes {
		for _, dep := range n.Task.DependsOn {
			if !ids[dep] {
				return nil, &models.UnknownDependencyError{TaskID: n.ID, Dependency: dep}
			}
			edges = append(edges, models.Edge{
				From:       dep,
				To:         n.ID,
				Kind:       models.EdgeExplicit,
				Confidence: 1,
				Rationale:  "declared dependency",
			})
		}
	}

	if opts.DetectImplicit {
		edges = append(edges, inferImplicitEdges(nodes, edges, minConfidence)...)
	}

	return models.NewDependencyGraph(nodes, edges)
}

// ValidateTasks checks ids and durations before a graph is built
func ValidateTasks(tasks []models.Task) error {
	seen := make(map[string]bool, len(tasks))
	for i := range tasks {
		if err := tasks[i].Validate(); err != nil {
			return &models.InvalidConfigurationError{Field: "tasks", Reason: err.Error()}
		}
		if seen[tasks[i].ID] {
			return &models.InvalidConfigurationError{
				Field:  "tasks",
				Reason: fmt.Sprintf("task %s: duplicate task id", tasks[i].ID),
			}
		}
		seen[tasks[i].ID] = true
	}
	return nil
}

type edgeKey struct{ from, to string }

// inferImplicitEdges scans each description for trigger phrases followed, in
// the same sentence, by another task's id or identifying keywords.
func inferImplicitEdges(nodes []models.Node, explicit []models.Edge, minConfidence float64) []models.Edge {
	declared := make(map[edgeKey]bool, len(explicit))
	for _, e := range explicit {
		declared[edgeKey{e.From, e.To}] = true
	}

	keywords := identifyingKeywords(nodes)

	best := make(map[edgeKey]models.Edge)
	var order []edgeKey

	for _, target := range nodes {
		for _, sentence := range sentenceSplit.Split(strings.ToLower(target.Task.Description), -1) {
			for _, trig := range triggers {
				for _, loc := range trig.re.FindAllStringIndex(sentence, -1) {
					tail := tokenSet(sentence[loc[1]:])
					if len(tail) == 0 {
						continue
					}
					for _, source := range nodes {
						if source.ID == target.ID {
							continue
						}
						confidence, why := scoreReference(trig, tail, source.ID, keywords[source.ID])
						if confidence < minConfidence {
							continue
						}
						key := edgeKey{source.ID, target.ID}
						if declared[key] || declared[edgeKey{target.ID, source.ID}] {
							continue
						}
						prev, seen := best[key]
						if seen && prev.Confidence >= confidence {
							continue
						}
						if !seen {
							order = append(order, key)
						}
						best[key] = models.Edge{
							From:       source.ID,
							To:         target.ID,
							Kind:       models.EdgeImplicit,
							Confidence: confidence,
							Rationale:  fmt.Sprintf("%q in %s %s", trig.phrase, target.ID, why),
						}
					}
				}
			}
		}
	}

	var inferred []models.Edge
	for _, key := range order {
		e := best[key]
		if rev, ok := best[edgeKey{key.to, key.from}]; ok {
			// Both directions were inferred: keep only a strictly stronger one.
			if rev.Confidence >= e.Confidence {
				continue
			}
		}
		inferred = append(inferred, e)
	}
	return inferred
}

// scoreReference rates how strongly the text after a trigger refers to a task.
func scoreReference(trig trigger, tail map[string]bool, sourceID string, keywords []string) (float64, string) {
	if tail[strings.ToLower(sourceID)] {
		return clampConfidence(trig.weight + 0.05), fmt.Sprintf("names task %s", sourceID)
	}
	if len(keywords) == 0 {
		return 0, ""
	}
	var matched []string
	for _, kw := range keywords {
		if tail[kw] {
			matched = append(matched, kw)
		}
	}
	if len(matched) == 0 {
		return 0, ""
	}
	coverage := float64(len(matched)) / float64(len(keywords))
	confidence := trig.weight * (0.5 + 0.5*coverage)
	return clampConfidence(confidence), fmt.Sprintf("mentions %s of task %s", strings.Join(matched, ", "), sourceID)
}

// identifyingKeywords picks up to four significant words per task description,
// skipping words that appear in more than half of the descriptions.
func identifyingKeywords(nodes []models.Node) map[string][]string {
	docFreq := make(map[string]int)
	perTask := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		var words []string
		seen := make(map[string]bool)
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(n.Task.Description), -1) {
			if len(tok) < 4 || stopwords[tok] || seen[tok] {
				continue
			}
			seen[tok] = true
			words = append(words, tok)
			docFreq[tok]++
		}
		perTask[n.ID] = words
	}

	out := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		var kws []string
		for _, w := range perTask[n.ID] {
			if len(nodes) >= 4 && docFreq[w]*2 > len(nodes) {
				continue
			}
			kws = append(kws, w)
			if len(kws) == 4 {
				break
			}
		}
		out[n.ID] = kws
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenPattern.FindAllString(s, -1) {
		set[tok] = true
		// "api/handlers" also matches "api" and "handlers"
		if strings.ContainsAny(tok, "/") {
			for _, part := range strings.Split(tok, "/") {
				if part != "" {
					set[part] = true
				}
			}
		}
	}
	return set
}

func clampConfidence(c float64) float64 {
	if c > maxImplicitConfidence {
		return maxImplicitConfidence
	}
	return c
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
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
	return out
}
