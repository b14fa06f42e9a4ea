package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/assetmigrate/depgraph"
	"github.com/jonwraymond/assetmigrate/failure"
	"github.com/jonwraymond/assetmigrate/operation"
)

// opsFile is the TOML operations file read by the plan command:
//
//	[[operations]]
//	type = "list-folders"
//	dependencies = ["list-projects"]
//	required_params = ["projectId"]
//	estimated_cost_ms = 200
//	outputs = { folderId = "F-1" }
type opsFile struct {
	Operations []opEntry `toml:"operations"`
}

type opEntry struct {
	depgraph.Spec

	// Outputs are returned by the simulated invocation of --dry-run.
	Outputs map[string]any `toml:"outputs"`
}

func loadOps(path string) (opsFile, error) {
	var f opsFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read operations: %w", err)
	}
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return f, failure.Wrap(failure.KindValidation, "cli.ops", fmt.Errorf("parse %s: %w", path, err))
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return f, failure.Newf(failure.KindValidation, "cli.ops", "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return f, nil
}

func (f opsFile) definitions() []depgraph.OperationDefinition {
	specs := make([]depgraph.Spec, len(f.Operations))
	for i, op := range f.Operations {
		specs[i] = op.Spec
	}
	return depgraph.DefineAll(specs)
}

func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, failure.Newf(failure.KindValidation, "cli.param", "parameter %q is not key=value", p)
		}
		params[k] = v
	}
	return params, nil
}

type planOutput struct {
	Order             []string                  `json:"order"`
	EstimatedTimeCost int64                     `json:"estimatedTimeCost"`
	Outputs           map[string]map[string]any `json:"outputs,omitempty"`
	Durations         map[string]string         `json:"durations,omitempty"`
}

// Plan prints the execution order for the requested goals. With --dry-run
// the plan is executed through the operation runner, each invocation
// returning the outputs declared in the operations file.
func (r *Runner) Plan(ctx context.Context, cmd *cli.Command) error {
	ops, err := loadOps(cmd.String("ops"))
	if err != nil {
		return err
	}
	goals := cmd.StringSlice("goal")

	plan, err := operation.NewPlan(ops.definitions(), goals...)
	if err != nil {
		return err
	}
	out := planOutput{Order: plan.Order, EstimatedTimeCost: plan.Estimated.Milliseconds()}

	if cmd.Bool("dry-run") {
		report, err := r.simulate(ctx, cmd, ops, goals)
		if report != nil {
			out.Outputs = report.Outputs
			out.Durations = make(map[string]string, len(report.Durations))
			for id, d := range report.Durations {
				out.Durations[id] = d.Round(time.Microsecond).String()
			}
		}
		if err != nil {
			if cmd.Bool("json") {
				_ = r.writeJSON(out)
			}
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(out)
	}
	for i, id := range out.Order {
		def, _ := plan.Graph.Definition(id)
		if err := r.writePlain("%2d. %s (%s)\n", i+1, id, def.EstimatedTimeCost()); err != nil {
			return err
		}
	}
	return r.writePlain("estimated: %s\n", plan.Estimated)
}

func (r *Runner) simulate(ctx context.Context, cmd *cli.Command, ops opsFile, goals []string) (*operation.Report, error) {
	params, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return nil, err
	}
	cfg, err := r.loadConfig(ctx, cmd)
	if err != nil {
		return nil, err
	}
	a, err := r.startApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Shutdown(context.WithoutCancel(ctx)) }()

	outputs := make(map[string]map[string]any, len(ops.Operations))
	for _, op := range ops.Operations {
		outputs[op.Type] = op.Outputs
	}
	inv := operation.InvokerFunc(func(ctx context.Context, op depgraph.OperationDefinition, _ map[string]any) (map[string]any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return outputs[op.Type()], nil
	})
	return a.Runner().RunWithParams(ctx, ops.definitions(), goals, params, inv)
}
