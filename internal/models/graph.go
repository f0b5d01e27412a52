package models

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// EdgeKind distinguishes declared dependencies from inferred ones.
type EdgeKind string

const (
	EdgeExplicit EdgeKind = "explicit"
	EdgeImplicit EdgeKind = "implicit"
)

// Edge is a precedence constraint: From must complete before To starts.
type Edge struct {
	From       string   `json:"from" yaml:"from"`
	To         string   `json:"to" yaml:"to"`
	Kind       EdgeKind `json:"kind" yaml:"kind"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Rationale  string   `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Node pairs a task id with its task. Nodes keep their input order.
type Node struct {
	ID   string `json:"id" yaml:"id"`
	Task Task   `json:"task" yaml:"task"`
}

// DependencyGraph is an ordered list of nodes plus the edges between them.
// It is immutable after construction; the id lookup is derived from Nodes.
type DependencyGraph struct {
	Nodes []Node
	Edges []Edge

	index map[string]int
}

// graphDocument is the wire form of a DependencyGraph.
type graphDocument struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// NewDependencyGraph validates edge endpoints and builds the id lookup.
func NewDependencyGraph(nodes []Node, edges []Edge) (*DependencyGraph, error) {
	g := &DependencyGraph{
		Nodes: nodes,
		Edges: edges,
	}
	if err := g.reindex(); err != nil {
		return nil, err
	}
	for _, e := range edges {
		if _, ok := g.index[e.From]; !ok {
			return nil, &UnknownDependencyError{TaskID: e.To, Dependency: e.From}
		}
		if _, ok := g.index[e.To]; !ok {
			return nil, &UnknownDependencyError{TaskID: e.From, Dependency: e.To}
		}
	}
	return g, nil
}

func (g *DependencyGraph) reindex() error {
	g.index = make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return &InvalidConfigurationError{Field: "nodes", Reason: fmt.Sprintf("node %d has an empty id", i)}
		}
		if _, dup := g.index[n.ID]; dup {
			return &InvalidConfigurationError{Field: "nodes", Reason: fmt.Sprintf("duplicate task id %s", n.ID)}
		}
		if d := n.Task.EstimatedDuration; math.IsNaN(d) || math.IsInf(d, 0) {
			return &InvalidConfigurationError{Field: "nodes", Reason: fmt.Sprintf("task %s: estimated duration must be a finite number, got %g", n.ID, d)}
		}
		g.index[n.ID] = i
	}
	return nil
}

// Index returns the input position of a node, or -1.
func (g *DependencyGraph) Index(id string) int {
	if g == nil {
		return -1
	}
	if g.index != nil {
		if i, ok := g.index[id]; ok {
			return i
		}
		return -1
	}
	for i, n := range g.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Has reports whether the graph contains the id.
func (g *DependencyGraph) Has(id string) bool {
	return g.Index(id) >= 0
}

// Task returns the task stored under id.
func (g *DependencyGraph) Task(id string) (Task, bool) {
	i := g.Index(id)
	if i < 0 {
		return Task{}, false
	}
	return g.Nodes[i].Task, true
}

// Len returns the number of nodes.
func (g *DependencyGraph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}

// Clone returns a deep copy of the graph.
func (g *DependencyGraph) Clone() *DependencyGraph {
	if g == nil {
		return nil
	}
	nodes := make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		n.Task.DependsOn = append([]string(nil), n.Task.DependsOn...)
		n.Task.Resources = append([]string(nil), n.Task.Resources...)
		nodes[i] = n
	}
	clone := &DependencyGraph{
		Nodes: nodes,
		Edges: append([]Edge(nil), g.Edges...),
	}
	_ = clone.reindex()
	return clone
}

// IDs returns node ids in input order.
func (g *DependencyGraph) IDs() []string {
	if g == nil {
		return nil
	}
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Predecessors returns the ids with an edge into id, in edge order.
func (g *DependencyGraph) Predecessors(id string) []string {
	if g == nil {
		return nil
	}
	var preds []string
	for _, e := range g.Edges {
		if e.To == id && !contains(preds, e.From) {
			preds = append(preds, e.From)
		}
	}
	return preds
}

// Successors returns the ids reached by an edge from id, in edge order.
func (g *DependencyGraph) Successors(id string) []string {
	if g == nil {
		return nil
	}
	var succs []string
	for _, e := range g.Edges {
		if e.From == id && !contains(succs, e.To) {
			succs = append(succs, e.To)
		}
	}
	return succs
}

// Adjacency returns successor and predecessor lists for every node.
// Each list is deduplicated and keeps edge order.
func (g *DependencyGraph) Adjacency() (succ, pred map[string][]string) {
	succ = make(map[string][]string, g.Len())
	pred = make(map[string][]string, g.Len())
	if g == nil {
		return succ, pred
	}
	for _, e := range g.Edges {
		if !contains(succ[e.From], e.To) {
			succ[e.From] = append(succ[e.From], e.To)
		}
		if !contains(pred[e.To], e.From) {
			pred[e.To] = append(pred[e.To], e.From)
		}
	}
	return succ, pred
}

// HasEdge reports whether an edge from -> to exists, of any kind.
func (g *DependencyGraph) HasEdge(from, to string) bool {
	_, ok := g.FindEdge(from, to)
	return ok
}

// FindEdge returns the first edge from -> to.
func (g *DependencyGraph) FindEdge(from, to string) (Edge, bool) {
	if g == nil {
		return Edge{}, false
	}
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// Ancestors returns the set of transitive predecessors of id.
func (g *DependencyGraph) Ancestors(id string) map[string]bool {
	_, pred := g.Adjacency()
	seen := make(map[string]bool)
	stack := append([]string(nil), pred[id]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, pred[n]...)
	}
	return seen
}

// Descendants returns the set of transitive successors of id.
func (g *DependencyGraph) Descendants(id string) map[string]bool {
	succ, _ := g.Adjacency()
	seen := make(map[string]bool)
	stack := append([]string(nil), succ[id]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, succ[n]...)
	}
	return seen
}

// MarshalJSON writes the graph as {"nodes": [...], "edges": [...]}.
func (g DependencyGraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.document())
}

// UnmarshalJSON reads the wire form and rebuilds the id lookup.
func (g *DependencyGraph) UnmarshalJSON(data []byte) error {
	var doc graphDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return g.load(doc)
}

// MarshalYAML writes the same document shape as MarshalJSON.
func (g DependencyGraph) MarshalYAML() (interface{}, error) {
	return g.document(), nil
}

// UnmarshalYAML reads the wire form and rebuilds the id lookup.
func (g *DependencyGraph) UnmarshalYAML(value *yaml.Node) error {
	var doc graphDocument
	if err := value.Decode(&doc); err != nil {
		return err
	}
	return g.load(doc)
}

func (g DependencyGraph) document() graphDocument {
	doc := graphDocument{Nodes: g.Nodes, Edges: g.Edges}
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []Edge{}
	}
	return doc
}

func (g *DependencyGraph) load(doc graphDocument) error {
	loaded, err := NewDependencyGraph(doc.Nodes, doc.Edges)
	if err != nil {
		return err
	}
	*g = *loaded
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
