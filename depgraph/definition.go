package depgraph

import (
	"slices"
	"time"
)

// OperationDefinition describes one provider operation and what it needs.
// It is immutable: the constructor and accessors copy slices.
type OperationDefinition struct {
	typ            string
	dependencies   []string
	required       bool
	requiredParams []string
	cost           time.Duration
}

// Spec is the mutable, serializable form of an OperationDefinition.
type Spec struct {
	Type           string   `json:"type" toml:"type"`
	Dependencies   []string `json:"dependencies,omitempty" toml:"dependencies"`
	Required       bool     `json:"required,omitempty" toml:"required"`
	RequiredParams []string `json:"requiredParams,omitempty" toml:"required_params"`

	// EstimatedCostMs is the expected run time in milliseconds.
	EstimatedCostMs int64 `json:"estimatedTimeCost,omitempty" toml:"estimated_cost_ms"`
}

// Define creates a definition from s. Duplicate dependency ids are dropped,
// keeping the first occurrence.
func Define(s Spec) OperationDefinition {
	deps := make([]string, 0, len(s.Dependencies))
	for _, d := range s.Dependencies {
		if !slices.Contains(deps, d) {
			deps = append(deps, d)
		}
	}
	cost := time.Duration(s.EstimatedCostMs) * time.Millisecond
	if cost < 0 {
		cost = 0
	}
	return OperationDefinition{
		typ:            s.Type,
		dependencies:   deps,
		required:       s.Required,
		requiredParams: slices.Clone(s.RequiredParams),
		cost:           cost,
	}
}

// DefineAll converts specs in order.
func DefineAll(specs []Spec) []OperationDefinition {
	defs := make([]OperationDefinition, len(specs))
	for i, s := range specs {
		defs[i] = Define(s)
	}
	return defs
}

// Type returns the unique operation id.
func (d OperationDefinition) Type() string { return d.typ }

// Dependencies returns the ids this operation depends on.
func (d OperationDefinition) Dependencies() []string { return slices.Clone(d.dependencies) }

// Required reports whether the operation is part of every plan.
func (d OperationDefinition) Required() bool { return d.required }

// RequiredParams returns the parameter names that must be present before the
// operation is invoked.
func (d OperationDefinition) RequiredParams() []string { return slices.Clone(d.requiredParams) }

// EstimatedTimeCost returns the expected run time.
func (d OperationDefinition) EstimatedTimeCost() time.Duration { return d.cost }

// Spec returns a serializable copy.
func (d OperationDefinition) Spec() Spec {
	return Spec{
		Type:            d.typ,
		Dependencies:    d.Dependencies(),
		Required:        d.required,
		RequiredParams:  d.RequiredParams(),
		EstimatedCostMs: d.cost.Milliseconds(),
	}
}
