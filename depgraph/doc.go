// Package depgraph resolves the order in which interdependent provider
// operations must run.
//
// A Graph is built fresh from caller supplied OperationDefinitions and is
// immutable afterwards. HasCycles is a pure query; ResolveExecutionOrder
// refuses cyclic graphs with a failure.KindCyclicGraph error, so callers that
// want a friendlier message check HasCycles (or Cycle) first.
//
//	g, err := depgraph.Build(defs)
//	if err != nil {
//	    return err
//	}
//	if g.HasCycles() {
//	    return fmt.Errorf("cycle: %v", g.Cycle())
//	}
//	plan, err := depgraph.PlanFor(g, "export-test-cases")
//
// Ties between operations that become ready together are broken by the order
// the definitions were supplied in, which keeps plans stable across runs.
package depgraph
