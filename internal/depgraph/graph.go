// Package depgraph provides the dependency-graph traversals shared by
// manifest validation and build-order computation. Nodes are repository
// names; an edge from A to B means A requires B.
//
// The two entry points deliberately fail differently: FindCycle reports one
// example cycle for aggregating callers, while Sort aborts on the first
// cycle it meets because a partial build order would be misleading.
package depgraph

import (
	"fmt"
)

// CycleError indicates that a topological sort hit a circular dependency.
type CycleError struct {
	// Node is the repository at which the cycle was detected.
	Node string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected involving %s", e.Node)
}

// Graph is a directed dependency graph over string-keyed nodes.
type Graph struct {
	nodes   []string
	nodeSet map[string]bool
	// deps maps each node to the nodes it requires.
	deps map[string][]string
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodeSet: make(map[string]bool),
		deps:    make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from requires to. Both nodes are implicitly added.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.deps[from] = append(g.deps[from], to)
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// FindCycle returns one circular dependency chain as an ordered path whose
// first and last entries are the same node, or nil if the graph is acyclic.
//
// When multiple cycles exist, which one is found depends on the order nodes
// were added, which for map-built graphs is not deterministic. Callers must
// only rely on "some cycle" being reported.
func (g *Graph) FindCycle() []string {
	for _, start := range g.nodes {
		visited := make(map[string]bool)
		var path []string
		if cycle, ok := g.findCycleFrom(start, visited, path); ok {
			return cycle
		}
	}
	return nil
}

func (g *Graph) findCycleFrom(node string, visited map[string]bool, path []string) ([]string, bool) {
	for i, p := range path {
		if p == node {
			// Drop the walk prefix so the path starts and ends at the
			// repeated node.
			return append(path[i:], node), true
		}
	}
	if visited[node] {
		return nil, false
	}

	visited[node] = true
	path = append(path, node)

	for _, dep := range g.deps[node] {
		if cycle, ok := g.findCycleFrom(dep, visited, path); ok {
			return cycle, true
		}
	}
	return nil, false
}

// Sort returns a topological ordering in which every node appears after all
// of its dependencies. Nodes with no dependency relationship have no
// guaranteed relative order. Returns a *CycleError as soon as a cycle is
// encountered; no partial ordering is returned.
func (g *Graph) Sort() ([]string, error) {
	visited := make(map[string]bool, len(g.nodes))
	visiting := make(map[string]bool)
	result := make([]string, 0, len(g.nodes))

	for _, node := range g.nodes {
		if visited[node] {
			continue
		}
		var err error
		result, err = g.visit(node, visited, visiting, result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (g *Graph) visit(node string, visited, visiting map[string]bool, result []string) ([]string, error) {
	if visiting[node] {
		return nil, &CycleError{Node: node}
	}
	if visited[node] {
		return result, nil
	}

	visiting[node] = true
	for _, dep := range g.deps[node] {
		var err error
		result, err = g.visit(dep, visited, visiting, result)
		if err != nil {
			return nil, err
		}
	}
	delete(visiting, node)
	visited[node] = true

	return append(result, node), nil
}
