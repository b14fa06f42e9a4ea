package operation

import (
	"slices"
	"strings"
	"time"

	"github.com/jonwraymond/assetmigrate/depgraph"
	"github.com/jonwraymond/assetmigrate/failure"
)

// Plan is a resolved execution order over a definition set.
type Plan struct {
	Graph     *depgraph.Graph
	Order     []string
	Estimated time.Duration
}

// NewPlan resolves the operations needed for goals, or the required
// operations of defs when goals is empty.
//
// A cyclic definition set is refused as a whole, even when the cycle lies
// outside the goals' closure. A planned operation that depends on an
// undefined operation is a validation error.
func NewPlan(defs []depgraph.OperationDefinition, goals ...string) (*Plan, error) {
	g, err := depgraph.Build(defs)
	if err != nil {
		return nil, err
	}
	if cycle := g.Cycle(); cycle != nil {
		return nil, failure.Newf(failure.KindCyclicGraph, "operation.plan",
			"dependency graph contains a cycle: %s", strings.Join(cycle, " -> "))
	}
	order, err := depgraph.PlanFor(g, goals...)
	if err != nil {
		return nil, err
	}
	for _, m := range g.MissingDependencies() {
		if slices.Contains(order, m.Operation) {
			return nil, failure.Newf(failure.KindValidation, "operation.plan",
				"operation %q depends on undefined operation %q", m.Operation, m.Dependency)
		}
	}
	return &Plan{Graph: g, Order: order, Estimated: g.EstimatedCost(order)}, nil
}
