// SPDX-License-Identifier: MPL-2.0

// Package dag provides the dependency graph used to order mods. Nodes are mod
// names; an edge from A to B records that A requires B, so B must load first.
// The graph computes each node's depth (the length of its longest requirement
// chain) and reports cycles instead of recursing forever.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultMaxRecursion caps the depth of the recursive depth computation.
const DefaultMaxRecursion = 1024

type (
	// CycleError indicates that the graph contains a cycle, preventing a depth
	// from being assigned.
	CycleError struct {
		// Cycle lists the nodes on the offending path, ending with the node
		// that closed the loop (not necessarily every node in the cycle).
		Cycle []string
	}

	// Graph is a directed requirement graph with deterministic iteration order.
	Graph struct {
		// edges maps each node to the nodes it requires, in insertion order.
		edges map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		edges:   make(map[string][]string),
		nodeSet: make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that "from" requires "to". Both nodes are implicitly added
// and duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.edges[from], to) {
		return
	}
	g.edges[from] = append(g.edges[from], to)
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool {
	return g.nodeSet[name]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodes)
}

// Requires returns the nodes that name requires, in insertion order.
func (g *Graph) Requires(name string) []string {
	return slices.Clone(g.edges[name])
}

// Depths returns the depth of every node: 1 for a node with no requirements,
// otherwise 1 + the maximum depth of its requirements.
//
// It uses a dual-map pattern for traversal control:
//   - depth: memoised results for nodes that have been fully computed.
//   - inProgress: nodes on the current recursion path; meeting one again
//     means the path loops back on itself.
//
// A path longer than maxRecursion is also reported as a CycleError. A
// non-positive maxRecursion selects DefaultMaxRecursion.
func (g *Graph) Depths(maxRecursion int) (map[string]int, error) {
	if maxRecursion <= 0 {
		maxRecursion = DefaultMaxRecursion
	}

	depth := make(map[string]int, len(g.nodes))
	inProgress := make(map[string]bool)
	var path []string

	var visit func(node string) (int, error)
	visit = func(node string) (int, error) {
		if d, ok := depth[node]; ok {
			return d, nil
		}
		if inProgress[node] {
			return 0, &CycleError{Cycle: append(cycleFrom(path, node), node)}
		}
		if len(path) >= maxRecursion {
			return 0, &CycleError{Cycle: append(slices.Clone(path), node)}
		}

		inProgress[node] = true
		path = append(path, node)
		defer func() {
			delete(inProgress, node)
			path = path[:len(path)-1]
		}()

		d := 1
		for _, req := range g.edges[node] {
			rd, err := visit(req)
			if err != nil {
				return 0, err
			}
			d = max(d, rd+1)
		}
		depth[node] = d
		return d, nil
	}

	for _, node := range g.nodes {
		if _, err := visit(node); err != nil {
			return nil, err
		}
	}
	return depth, nil
}

// cycleFrom trims path to start at the first occurrence of node.
func cycleFrom(path []string, node string) []string {
	if i := slices.Index(path, node); i >= 0 {
		return slices.Clone(path[i:])
	}
	return slices.Clone(path)
}
