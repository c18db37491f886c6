package dag

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/gobwas/glob"

	"github.com/tosit-io/tdp/internal/catalog"
	"github.com/tosit-io/tdp/internal/depmodel"
	tdperrors "github.com/tosit-io/tdp/pkg/errors"
)

// actionRank orders the actions that participate in automatic,
// per-(service,component) precedence edges: install precedes config, config
// precedes start/restart. Actions outside this set (init, stop, ...) get no
// edge from this ranking; apart from the service-level init rule in
// BuildDag, they're only ordered via a collection's explicit depends_on.
var actionRank = map[string]int{
	"install": 0,
	"config":  1,
	"start":   2,
	"restart": 2,
}

// Dag is the built operation graph plus the catalog it was built from.
// Immutable after construction; safe to share across goroutines.
type Dag struct {
	collections *catalog.Collections
	graph       *graph
	order       []string
	orderIndex  map[string]int
}

// BuildDag parses the catalog and builds the graph (spec.md §4.B `new`).
// Fails with InvalidDagError on cycles or dangling edges.
func BuildDag(collections *catalog.Collections) (*Dag, error) {
	g := newGraph()

	byGroup := make(map[depmodel.ComponentKey][]catalog.Entry)
	for name := range collections.Operations {
		entry := collections.Operations[name]
		g.addNode(entry.Name)
		key := depmodel.ComponentKey{Service: entry.Service, Component: entry.Component}
		byGroup[key] = append(byGroup[key], entry)
	}

	for _, entries := range byGroup {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, a := range entries {
			rankA, ok := actionRank[a.Action]
			if !ok {
				continue
			}
			for _, b := range entries {
				rankB, ok := actionRank[b.Action]
				if !ok || rankA >= rankB {
					continue
				}
				g.addEdge(a.Name, b.Name)
			}
		}
	}

	// A service-level "init" action (no component) is a whole-service
	// sanity check: it runs only after every start/restart of that
	// service, service-level or component-level, has completed.
	byService := make(map[string][]catalog.Entry)
	for name := range collections.Operations {
		entry := collections.Operations[name]
		byService[entry.Service] = append(byService[entry.Service], entry)
	}
	for name := range collections.Operations {
		entry := collections.Operations[name]
		if entry.Action != "init" || entry.Component != "" {
			continue
		}
		for _, sibling := range byService[entry.Service] {
			if sibling.Action == "start" || sibling.Action == "restart" {
				g.addEdge(sibling.Name, entry.Name)
			}
		}
	}

	for name := range collections.Operations {
		for _, dep := range collections.ExplicitDependsOn(name) {
			if !collections.Has(dep) {
				return nil, tdperrors.NewInvalidDagError(fmt.Sprintf("operation %q depends on unknown operation %q", name, dep))
			}
			g.addEdge(dep, name)
		}
	}

	order, err := g.topologicalOrder()
	if err != nil {
		return nil, err
	}

	orderIndex := make(map[string]int, len(order))
	for i, name := range order {
		orderIndex[name] = i
	}

	return &Dag{collections: collections, graph: g, order: order, orderIndex: orderIndex}, nil
}

// Operations returns the names of every node in the graph.
func (d *Dag) Operations() []string {
	return append([]string(nil), d.order...)
}

// TopologicalSortKey returns a deterministic sort key for opName: lower
// values come earlier in any valid plan. Ties in the underlying graph are
// broken lexicographically by name (spec.md §4.B).
func (d *Dag) TopologicalSortKey(opName string) int {
	return d.orderIndex[opName]
}

// GetOperations selects and orders operations per spec.md §4.B. sources and
// targets may be nil/empty. filterExpression and filterType must both be
// set, or both unset.
func (d *Dag) GetOperations(
	sources, targets []string,
	filterExpression string,
	filterType depmodel.FilterType,
	restart bool,
) ([]depmodel.Operation, error) {
	if err := d.checkKnown(sources); err != nil {
		return nil, err
	}
	if err := d.checkKnown(targets); err != nil {
		return nil, err
	}

	selected, err := d.selectNodes(sources, targets)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return d.orderIndex[names[i]] < d.orderIndex[names[j]] })

	if filterExpression != "" {
		names, err = d.applyFilter(names, filterExpression, filterType)
		if err != nil {
			return nil, err
		}
	}

	if restart {
		names = d.applyRestart(names)
	}

	operations := make([]depmodel.Operation, 0, len(names))
	for _, name := range names {
		operations = append(operations, d.collections.Operations[name].Operation())
	}
	return operations, nil
}

func (d *Dag) checkKnown(names []string) error {
	var unknown []string
	for _, name := range names {
		if !d.collections.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return tdperrors.NewUnknownNodeError(unknown)
	}
	return nil
}

// selectNodes computes the reachability set described in spec.md §4.B: all
// operations when both sources and targets are empty; descendants of
// sources; ancestors of targets; or the intersection of both.
func (d *Dag) selectNodes(sources, targets []string) (map[string]struct{}, error) {
	if len(sources) == 0 && len(targets) == 0 {
		all := make(map[string]struct{}, len(d.order))
		for _, name := range d.order {
			all[name] = struct{}{}
		}
		return all, nil
	}

	var forward, backward map[string]struct{}
	if len(sources) > 0 {
		forward = d.reachable(sources, func(n *node) map[string]struct{} { return n.dependents })
	}
	if len(targets) > 0 {
		backward = d.reachable(targets, func(n *node) map[string]struct{} { return n.dependsOn })
	}

	switch {
	case forward != nil && backward != nil:
		return intersect(forward, backward), nil
	case forward != nil:
		return forward, nil
	default:
		return backward, nil
	}
}

func (d *Dag) reachable(seeds []string, next func(*node) map[string]struct{}) map[string]struct{} {
	visited := make(map[string]struct{})
	queue := append([]string(nil), seeds...)
	for _, seed := range seeds {
		visited[seed] = struct{}{}
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		n := d.graph.nodes[name]
		if n == nil {
			continue
		}
		for adjacent := range next(n) {
			if _, ok := visited[adjacent]; ok {
				continue
			}
			visited[adjacent] = struct{}{}
			queue = append(queue, adjacent)
		}
	}
	return visited
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for name := range small {
		if _, ok := large[name]; ok {
			out[name] = struct{}{}
		}
	}
	return out
}

func (d *Dag) applyFilter(names []string, expression string, filterType depmodel.FilterType) ([]string, error) {
	switch filterType {
	case depmodel.FilterTypeGlob:
		g, err := glob.Compile(expression)
		if err != nil {
			return nil, tdperrors.NewInvalidFilterError(expression, err)
		}
		return filterNames(names, g.Match), nil
	case depmodel.FilterTypeRegex:
		re, err := regexp.Compile("^" + expression + "$")
		if err != nil {
			return nil, tdperrors.NewInvalidFilterError(expression, err)
		}
		return filterNames(names, re.MatchString), nil
	default:
		return nil, tdperrors.NewInvalidFilterError(expression, fmt.Errorf("unknown filter type %q", filterType))
	}
}

func filterNames(names []string, match func(string) bool) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if match(name) {
			out = append(out, name)
		}
	}
	return out
}

// applyRestart replaces every "*_start" name with its "*_restart"
// counterpart when the catalog has one, leaving the rest unchanged
// (spec.md §4.B, §9 restart substitution).
func (d *Dag) applyRestart(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		restartName, ok := depmodel.RestartNameFor(name)
		if ok && d.collections.Has(restartName) {
			out[i] = restartName
		} else {
			out[i] = name
		}
	}
	return out
}
