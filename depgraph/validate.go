package depgraph

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/assetmigrate/failure"
)

// ValidationResult reports every problem found in a definition set.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateDependencies checks defs for empty or duplicate ids, references to
// unknown operations and cycles. Malformed input is reported in the result;
// only a nil slice is an error.
func ValidateDependencies(defs []OperationDefinition) (ValidationResult, error) {
	if defs == nil {
		return ValidationResult{}, failure.New(failure.KindValidation, "depgraph.validate", "nil definitions")
	}

	g, problems := build(defs)
	for _, m := range g.missing {
		problems = append(problems, fmt.Sprintf("operation %q depends on unknown operation %q", m.Operation, m.Dependency))
	}
	if c := g.Cycle(); c != nil {
		problems = append(problems, "cycle detected: "+strings.Join(c, " -> "))
	}

	return ValidationResult{Valid: len(problems) == 0, Errors: problems}, nil
}
