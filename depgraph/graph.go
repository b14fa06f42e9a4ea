package depgraph

import (
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/assetmigrate/failure"
)

// MissingDependency records a reference to an operation that is not part of
// the graph.
type MissingDependency struct {
	Operation  string
	Dependency string
}

// Graph is a dependency graph over operation definitions. It is safe for
// concurrent reads; nothing mutates it after Build.
type Graph struct {
	ids     []string // insertion order
	nodes   map[string]*node
	missing []MissingDependency
}

type node struct {
	def        OperationDefinition
	index      int
	deps       []string // known dependencies, declaration order
	dependents []string
}

// Build constructs a graph in O(n+e). Empty or duplicate operation ids are
// rejected. References to unknown operations do not fail construction; they
// are reported by MissingDependencies and ignored for ordering.
func Build(defs []OperationDefinition) (*Graph, error) {
	g, problems := build(defs)
	if len(problems) > 0 {
		return nil, failure.New(failure.KindValidation, "depgraph.build", problems[0])
	}
	return g, nil
}

// build keeps the first definition for each id and reports the rest as problems.
func build(defs []OperationDefinition) (*Graph, []string) {
	g := &Graph{
		ids:   make([]string, 0, len(defs)),
		nodes: make(map[string]*node, len(defs)),
	}
	var problems []string

	for i, d := range defs {
		if d.typ == "" {
			problems = append(problems, fmt.Sprintf("operation at index %d has an empty type", i))
			continue
		}
		if _, dup := g.nodes[d.typ]; dup {
			problems = append(problems, fmt.Sprintf("duplicate operation type %q", d.typ))
			continue
		}
		g.nodes[d.typ] = &node{def: d, index: len(g.ids)}
		g.ids = append(g.ids, d.typ)
	}

	for _, id := range g.ids {
		n := g.nodes[id]
		for _, dep := range n.def.dependencies {
			target, ok := g.nodes[dep]
			if !ok {
				g.missing = append(g.missing, MissingDependency{Operation: id, Dependency: dep})
				continue
			}
			n.deps = append(n.deps, dep)
			target.dependents = append(target.dependents, id)
		}
	}
	return g, problems
}

// Len returns the number of operations.
func (g *Graph) Len() int { return len(g.ids) }

// Operations returns the operation ids in insertion order.
func (g *Graph) Operations() []string { return slices.Clone(g.ids) }

// Definition returns the definition for id.
func (g *Graph) Definition(id string) (OperationDefinition, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return OperationDefinition{}, false
	}
	return n.def, true
}

// Dependents returns the operations that depend directly on id.
func (g *Graph) Dependents(id string) []string {
	if n, ok := g.nodes[id]; ok {
		return slices.Clone(n.dependents)
	}
	return nil
}

// MissingDependencies returns every reference to an unknown operation.
func (g *Graph) MissingDependencies() []MissingDependency {
	return slices.Clone(g.missing)
}

// RequiredOperations returns the ids of required operations in insertion order.
func (g *Graph) RequiredOperations() []string {
	var ids []string
	for _, id := range g.ids {
		if g.nodes[id].def.required {
			ids = append(ids, id)
		}
	}
	return ids
}

// EstimatedCost sums the estimated time cost of the given operations.
// Unknown ids contribute nothing.
func (g *Graph) EstimatedCost(order []string) time.Duration {
	var total time.Duration
	for _, id := range order {
		if n, ok := g.nodes[id]; ok {
			total += n.def.cost
		}
	}
	return total
}

const (
	white = iota
	grey
	black
)

// HasCycles reports whether any dependency chain leads back to itself.
func (g *Graph) HasCycles() bool {
	return g.Cycle() != nil
}

// Cycle returns one cycle as a path whose first and last elements are the
// same operation, or nil if the graph is acyclic.
func (g *Graph) Cycle() []string {
	colour := make(map[string]int, len(g.ids))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		colour[id] = grey
		stack = append(stack, id)
		for _, dep := range g.nodes[id].deps {
			switch colour[dep] {
			case grey:
				start := slices.Index(stack, dep)
				return append(slices.Clone(stack[start:]), dep)
			case white:
				if c := visit(dep); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		colour[id] = black
		return nil
	}

	for _, id := range g.ids {
		if colour[id] == white {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return nil
}

// closure returns goal and everything it transitively depends on.
func (g *Graph) closure(goal string, into map[string]bool) {
	if into[goal] {
		return
	}
	into[goal] = true
	for _, dep := range g.nodes[goal].deps {
		g.closure(dep, into)
	}
}
