package depgraph

import (
	"slices"
	"strings"

	"github.com/jonwraymond/assetmigrate/failure"
)

// ResolveExecutionOrder returns every operation such that each one's
// dependencies appear strictly earlier. Operations that become ready at the
// same time keep their insertion order. A cyclic graph yields a
// failure.KindCyclicGraph error.
func ResolveExecutionOrder(g *Graph) ([]string, error) {
	if g == nil {
		return nil, failure.New(failure.KindValidation, "depgraph.resolve", "nil graph")
	}
	return g.order(nil)
}

// CalculateMinimalOperationSet returns goal and its transitive dependencies,
// each once, in execution order.
func CalculateMinimalOperationSet(g *Graph, goal string) ([]string, error) {
	return PlanFor(g, goal)
}

// PlanFor returns the union of the minimal operation sets of goals, in
// execution order. With no goals the plan covers the required operations;
// required operations are not added to an explicit goal list.
func PlanFor(g *Graph, goals ...string) ([]string, error) {
	if g == nil {
		return nil, failure.New(failure.KindValidation, "depgraph.plan", "nil graph")
	}
	if len(goals) == 0 {
		goals = g.RequiredOperations()
	}

	set := make(map[string]bool)
	for _, goal := range goals {
		if _, ok := g.nodes[goal]; !ok {
			return nil, failure.Newf(failure.KindNotFound, "depgraph.plan", "unknown operation %q", goal)
		}
		g.closure(goal, set)
	}
	return g.order(set)
}

// order runs Kahn's algorithm over the nodes in subset, or all nodes when
// subset is nil. Subsets are always closed under dependencies.
func (g *Graph) order(subset map[string]bool) ([]string, error) {
	in := func(id string) bool { return subset == nil || subset[id] }

	indegree := make(map[string]int, len(g.ids))
	var ready []int // insertion indexes, ascending
	for _, id := range g.ids {
		if !in(id) {
			continue
		}
		n := g.nodes[id]
		indegree[id] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, n.index)
		}
	}

	result := make([]string, 0, len(indegree))
	for len(ready) > 0 {
		id := g.ids[ready[0]]
		ready = ready[1:]
		result = append(result, id)

		for _, dep := range g.nodes[id].dependents {
			if !in(dep) {
				continue
			}
			indegree[dep]--
			if indegree[dep] == 0 {
				idx := g.nodes[dep].index
				pos, _ := slices.BinarySearch(ready, idx)
				ready = slices.Insert(ready, pos, idx)
			}
		}
	}

	if len(result) != len(indegree) {
		msg := "dependency graph contains a cycle"
		if c := g.Cycle(); c != nil {
			msg += ": " + strings.Join(c, " -> ")
		}
		return nil, failure.New(failure.KindCyclicGraph, "depgraph.resolve", msg)
	}
	return result, nil
}
