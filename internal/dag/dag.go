// Package dag records dependencies between declared types.
// It finds containment cycles and orders the acyclic "must be defined before" relation.
package dag

import (
	"fmt"
	"sort"
)

// Node represents a declared type in the graph.
type Node struct {
	// ID is the type's display name
	ID string
	// Data holds arbitrary node data
	Data any
}

// Graph is a directed graph over type names. Unlike a model DAG it may hold
// cycles: a recursive sum and its self-referential alternative form one.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // from -> to
	parents map[string][]string // to -> from
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node, or replaces the data of an existing one.
func (g *Graph) AddNode(id string, data any) {
	if n, exists := g.nodes[id]; exists {
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
}

// AddEdge adds a directed edge. Both nodes must exist. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("node %q does not exist", from)
	}
	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("node %q does not exist", to)
	}
	if !contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
		g.parents[to] = append(g.parents[to], from)
	}
	return nil
}

// Node returns a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Children returns the targets of edges leaving id.
func (g *Graph) Children(id string) []string { return g.edges[id] }

// Parents returns the sources of edges entering id.
func (g *Graph) Parents(id string) []string { return g.parents[id] }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	for _, id := range g.sortedIDs() {
		if c := g.CycleThrough(id); c != nil {
			return true, c
		}
	}
	return false, nil
}

// CycleThrough returns the shortest path that leaves id and returns to it,
// starting and ending with id, or nil when id is on no cycle.
func (g *Graph) CycleThrough(id string) []string {
	if _, ok := g.nodes[id]; !ok {
		return nil
	}

	prev := make(map[string]string)
	queue := []string{id}
	seen := map[string]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[cur] {
			if next == id {
				path := []string{id}
				for n := cur; n != id; n = prev[n] {
					path = append([]string{n}, path...)
				}
				return append([]string{id}, path...)
			}
			if seen[next] {
				continue
			}
			seen[next] = true
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	return nil
}

// TopologicalSort returns nodes so that every edge's source precedes its target.
// Returns an error if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[string]bool)
	var result []*Node

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, p := range g.parents[id] {
			visit(p)
		}
		result = append(result, g.nodes[id])
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return result, nil
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
