// Package dag builds and traverses the operation graph (spec.md §4.B): a
// process-wide, read-only structure computed once from the catalog at
// startup and shared freely afterward.
package dag

import (
	"sort"

	tdperrors "github.com/tosit-io/tdp/pkg/errors"
)

// node is a vertex in the operation graph.
type node struct {
	name       string
	dependsOn  map[string]struct{}
	dependents map[string]struct{}
}

// graph is the adjacency structure underlying a Dag. Edges are "must
// precede" relations: an edge a->b means a must execute before b.
type graph struct {
	nodes map[string]*node
}

func newGraph() *graph {
	return &graph{nodes: make(map[string]*node)}
}

func (g *graph) addNode(name string) *node {
	if n, ok := g.nodes[name]; ok {
		return n
	}
	n := &node{name: name, dependsOn: map[string]struct{}{}, dependents: map[string]struct{}{}}
	g.nodes[name] = n
	return n
}

func (g *graph) addEdge(from, to string) {
	if from == to {
		return
	}
	src := g.addNode(from)
	dst := g.addNode(to)
	src.dependents[to] = struct{}{}
	dst.dependsOn[from] = struct{}{}
}

// topologicalOrder returns a single deterministic linear extension of the
// graph, breaking ties lexicographically by name (spec.md §4.B
// topological_sort_key rationale: stable plans across runs for identical
// inputs). Uses Kahn's algorithm with a sorted ready set instead of an
// unordered queue so the result is the same every time.
func (g *graph) topologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for name, n := range g.nodes {
		indegree[name] = len(n.dependsOn)
	}

	ready := make([]string, 0, len(g.nodes))
	for name, degree := range indegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		var freed []string
		for dependent := range g.nodes[name].dependents {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Strings(freed)
		ready = mergeSorted(ready, freed)
	}

	if len(order) != len(g.nodes) {
		return nil, tdperrors.NewInvalidDagError("cycle detected among catalog operations")
	}
	return order, nil
}

// mergeSorted merges two already-sorted string slices, keeping the combined
// result sorted, used to keep the Kahn ready-queue lexicographically ordered
// without re-sorting the whole thing on every step.
func mergeSorted(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
