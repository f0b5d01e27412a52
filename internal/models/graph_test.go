package models

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"sort"
	"testing"

	"gopkg.in/yaml.v3"
)

func diamond(t *testing.T) *DependencyGraph {
	t.Helper()
	nodes := []Node{
		{ID: "a", Task: Task{ID: "a", EstimatedDuration: 10}},
		{ID: "b", Task: Task{ID: "b", EstimatedDuration: 20, DependsOn: []string{"a"}}},
		{ID: "c", Task: Task{ID: "c", EstimatedDuration: 5, DependsOn: []string{"a"}}},
		{ID: "d", Task: Task{ID: "d", EstimatedDuration: 1, DependsOn: []string{"b", "c"}}},
	}
	edges := []Edge{
		{From: "a", To: "b", Kind: EdgeExplicit, Confidence: 1},
		{From: "a", To: "c", Kind: EdgeExplicit, Confidence: 1},
		{From: "b", To: "d", Kind: EdgeExplicit, Confidence: 1},
		{From: "c", To: "d", Kind: EdgeImplicit, Confidence: 0.8, Rationale: "mentions c"},
	}
	g, err := NewDependencyGraph(nodes, edges)
	if err != nil {
		t.Fatalf("NewDependencyGraph() error = %v", err)
	}
	return g
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestNewDependencyGraph_Errors(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []Node
		edges   []Edge
		unknown bool
	}{
		{
			name:  "duplicate id",
			nodes: []Node{{ID: "a"}, {ID: "a"}},
		},
		{
			name:  "empty id",
			nodes: []Node{{ID: ""}},
		},
		{
			name:  "NaN duration",
			nodes: []Node{{ID: "a", Task: Task{ID: "a", EstimatedDuration: math.NaN()}}},
		},
		{
			name:  "infinite duration",
			nodes: []Node{{ID: "a", Task: Task{ID: "a", EstimatedDuration: math.Inf(1)}}},
		},
		{
			name:    "edge to missing node",
			nodes:   []Node{{ID: "a"}},
			edges:   []Edge{{From: "a", To: "z"}},
			unknown: true,
		},
		{
			name:    "edge from missing node",
			nodes:   []Node{{ID: "a"}},
			edges:   []Edge{{From: "z", To: "a"}},
			unknown: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDependencyGraph(tt.nodes, tt.edges)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.unknown && !IsUnknownDependencyError(err) {
				t.Errorf("expected UnknownDependencyError, got %v", err)
			}
			if !tt.unknown && !IsInvalidConfigurationError(err) {
				t.Errorf("expected InvalidConfigurationError, got %v", err)
			}
		})
	}
}

func TestDependencyGraph_Lookups(t *testing.T) {
	g := diamond(t)

	if g.Len() != 4 {
		t.Errorf("Len() = %d, want 4", g.Len())
	}
	if got := g.IDs(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("IDs() = %v", got)
	}
	if g.Index("c") != 2 || g.Index("zz") != -1 {
		t.Errorf("Index() mismatch: c=%d zz=%d", g.Index("c"), g.Index("zz"))
	}
	if task, ok := g.Task("b"); !ok || task.EstimatedDuration != 20 {
		t.Errorf("Task(b) = %+v, %v", task, ok)
	}
	if got := g.Predecessors("d"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Predecessors(d) = %v", got)
	}
	if got := g.Successors("a"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Successors(a) = %v", got)
	}
	if e, ok := g.FindEdge("c", "d"); !ok || e.Kind != EdgeImplicit {
		t.Errorf("FindEdge(c, d) = %+v, %v", e, ok)
	}
	if g.HasEdge("d", "a") {
		t.Error("HasEdge(d, a) should be false")
	}
	if got := keys(g.Ancestors("d")); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Ancestors(d) = %v", got)
	}
	if got := keys(g.Descendants("b")); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("Descendants(b) = %v", got)
	}
}

func TestDependencyGraph_NilSafe(t *testing.T) {
	var g *DependencyGraph
	if g.Len() != 0 || g.Has("a") || g.IDs() != nil || g.Clone() != nil {
		t.Error("nil graph should behave as empty")
	}
	if len(g.Descendants("a")) != 0 {
		t.Error("nil graph has no descendants")
	}
}

func TestDependencyGraph_CloneIsIndependent(t *testing.T) {
	g := diamond(t)
	clone := g.Clone()

	clone.Nodes[1].Task.DependsOn[0] = "changed"
	clone.Edges[0].From = "changed"

	if g.Nodes[1].Task.DependsOn[0] != "a" {
		t.Error("Clone shares DependsOn with the original")
	}
	if g.Edges[0].From != "a" {
		t.Error("Clone shares Edges with the original")
	}
	if !clone.Has("d") {
		t.Error("Clone lost its id lookup")
	}
}

func TestDependencyGraph_JSONRoundTrip(t *testing.T) {
	g := diamond(t)

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded DependencyGraph
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(decoded.Edges, g.Edges) || decoded.Index("d") != 3 {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestDependencyGraph_EmptyEncodesLists(t *testing.T) {
	data, err := json.Marshal(&DependencyGraph{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"nodes":[],"edges":[]}` {
		t.Errorf("Marshal(empty) = %s", data)
	}
}

func TestDependencyGraph_YAMLRejectsUnknownEndpoint(t *testing.T) {
	doc := `
nodes:
  - id: a
edges:
  - from: a
    to: b
`
	var g DependencyGraph
	err := yaml.Unmarshal([]byte(doc), &g)
	if !errors.Is(err, ErrUnknownDependency) {
		t.Errorf("expected ErrUnknownDependency, got %v", err)
	}
}
