package operation

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/assetmigrate/depgraph"
	"github.com/jonwraymond/assetmigrate/failure"
)

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name      string
		goals     []string
		wantOrder []string
		wantCost  time.Duration
	}{
		{"single goal", []string{"list-folders"}, []string{"list-projects", "list-folders"}, 300 * time.Millisecond},
		{"shared dependency once", []string{"list-releases", "list-folders"}, []string{"list-projects", "list-folders", "list-releases"}, 300 * time.Millisecond},
		{"no goals and nothing required", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewPlan(migrationDefs(), tt.goals...)
			if err != nil {
				t.Fatalf("NewPlan() error = %v", err)
			}
			if !slices.Equal(plan.Order, tt.wantOrder) {
				t.Errorf("Order = %v, want %v", plan.Order, tt.wantOrder)
			}
			if plan.Estimated != tt.wantCost {
				t.Errorf("Estimated = %v, want %v", plan.Estimated, tt.wantCost)
			}
		})
	}
}

func TestNewPlan_Errors(t *testing.T) {
	tests := []struct {
		name  string
		specs []depgraph.Spec
		goals []string
		kind  failure.Kind
		msg   string
	}{
		{
			name:  "cycle outside goal closure",
			specs: []depgraph.Spec{{Type: "a"}, {Type: "b", Dependencies: []string{"c"}}, {Type: "c", Dependencies: []string{"b"}}},
			goals: []string{"a"},
			kind:  failure.KindCyclicGraph,
			msg:   "b -> c -> b",
		},
		{
			name:  "unknown goal",
			specs: []depgraph.Spec{{Type: "a"}},
			goals: []string{"z"},
			kind:  failure.KindNotFound,
			msg:   `"z"`,
		},
		{
			name:  "undefined dependency in plan",
			specs: []depgraph.Spec{{Type: "a", Dependencies: []string{"ghost"}}},
			goals: []string{"a"},
			kind:  failure.KindValidation,
			msg:   `"ghost"`,
		},
		{
			name:  "duplicate type",
			specs: []depgraph.Spec{{Type: "a"}, {Type: "a"}},
			kind:  failure.KindValidation,
			msg:   "duplicate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(depgraph.DefineAll(tt.specs), tt.goals...)
			if failure.KindOf(err) != tt.kind {
				t.Fatalf("kind = %v, want %v (err %v)", failure.KindOf(err), tt.kind, err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestNewPlan_UndefinedDependencyOutsidePlan(t *testing.T) {
	defs := depgraph.DefineAll([]depgraph.Spec{
		{Type: "a"},
		{Type: "b", Dependencies: []string{"ghost"}},
	})
	plan, err := NewPlan(defs, "a")
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	if !slices.Equal(plan.Order, []string{"a"}) {
		t.Errorf("Order = %v", plan.Order)
	}
}
