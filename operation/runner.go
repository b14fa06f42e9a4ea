package operation

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jonwraymond/assetmigrate/cache"
	"github.com/jonwraymond/assetmigrate/depgraph"
	"github.com/jonwraymond/assetmigrate/failure"
	"github.com/jonwraymond/assetmigrate/observe"
	"github.com/jonwraymond/assetmigrate/resilience"
)

// DefaultTarget is the resilience target operations run under unless
// WithTarget is given.
const DefaultTarget = "operations"

// Invoker performs a single provider operation.
//
// Contract:
// - Concurrency: Invoke may be called again for the same operation while a
//   retry or background cache refresh is in flight.
// - Ownership: params must not be modified; the returned map is owned by the
//   runner.
type Invoker interface {
	Invoke(ctx context.Context, op depgraph.OperationDefinition, params map[string]any) (map[string]any, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, op depgraph.OperationDefinition, params map[string]any) (map[string]any, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, op depgraph.OperationDefinition, params map[string]any) (map[string]any, error) {
	return f(ctx, op, params)
}

// Report describes a finished or interrupted run.
type Report struct {
	// Order is the planned execution order.
	Order []string

	// Outputs holds the output of every operation that completed.
	Outputs map[string]map[string]any

	// Durations holds the wall-clock duration of every invoked operation,
	// including the one that failed.
	Durations map[string]time.Duration

	// Estimated is the sum of the planned operations' estimated costs.
	Estimated time.Duration
}

// Completed returns the operations of Order that produced an output.
func (r *Report) Completed() []string {
	var done []string
	for _, id := range r.Order {
		if _, ok := r.Outputs[id]; ok {
			done = append(done, id)
		}
	}
	return done
}

// Option configures a Runner.
type Option func(*Runner)

// WithTarget sets the resilience target operations run under.
func WithTarget(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.target = name
		}
	}
}

// WithProvider records the provider id on spans and metrics.
func WithProvider(id string) Option {
	return func(r *Runner) { r.provider = id }
}

// WithKeyer overrides the cache key derivation.
func WithKeyer(k cache.Keyer) Option {
	return func(r *Runner) {
		if k != nil {
			r.keyer = k
		}
	}
}

// WithSkipRule overrides which operation types bypass the cache.
func WithSkipRule(skip func(operation string) bool) Option {
	return func(r *Runner) {
		if skip != nil {
			r.skip = skip
		}
	}
}

// WithInstruments attaches telemetry.
func WithInstruments(in *observe.Instruments) Option {
	return func(r *Runner) {
		if in != nil {
			r.instruments = in
		}
	}
}

// Runner executes operation plans. It is safe for concurrent use.
type Runner struct {
	registry    *resilience.Registry
	target      string
	provider    string
	keyer       cache.Keyer
	skip        func(string) bool
	instruments *observe.Instruments
}

// NewRunner creates a runner executing under the policies of reg.
func NewRunner(reg *resilience.Registry, opts ...Option) *Runner {
	r := &Runner{
		registry:    reg,
		target:      DefaultTarget,
		keyer:       cache.NewKeyer(),
		skip:        cache.DefaultSkipRule,
		instruments: observe.NopInstruments(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run plans and executes the operations needed for goals. With no goals the
// required operations of defs are planned.
func (r *Runner) Run(ctx context.Context, defs []depgraph.OperationDefinition, goals []string, inv Invoker) (*Report, error) {
	return r.RunWithParams(ctx, defs, goals, nil, inv)
}

// RunWithParams is Run with initial parameters available to every operation.
//
// A cyclic definition set, an unknown goal, a planned operation with an
// undefined dependency or a nil invoker fail before any invocation. An operation whose required parameters are not available
// fails with a validation error before it is invoked. The first failing
// operation stops the run; the returned report covers what ran.
func (r *Runner) RunWithParams(ctx context.Context, defs []depgraph.OperationDefinition, goals []string, params map[string]any, inv Invoker) (*Report, error) {
	if inv == nil {
		return nil, failure.New(failure.KindValidation, "operation.run", "invoker is required")
	}
	if r.registry == nil {
		return nil, failure.New(failure.KindValidation, "operation.run", "runner is not configured")
	}

	plan, err := NewPlan(defs, goals...)
	if err != nil {
		return nil, err
	}
	g, order := plan.Graph, plan.Order

	report := &Report{
		Order:     order,
		Outputs:   make(map[string]map[string]any, len(order)),
		Durations: make(map[string]time.Duration, len(order)),
		Estimated: plan.Estimated,
	}
	logger := r.instruments.Logger.With(observe.F("resilience.target", r.target))
	logger.Info(ctx, "operation plan resolved",
		observe.F("order", order),
		observe.F("estimated_ms", report.Estimated.Milliseconds()))

	env := make(map[string]any, len(params))
	maps.Copy(env, params)

	policy := r.registry.Policy(r.target)
	exec := observe.MiddlewareFromInstruments(r.instruments).Wrap(
		func(ctx context.Context, meta observe.OperationMeta, in map[string]any) (any, error) {
			def, _ := g.Definition(meta.Type)
			return resilience.Do(ctx, policy, r.cacheKey(ctx, meta.Type, in),
				func(ctx context.Context) (map[string]any, error) {
					return inv.Invoke(ctx, def, in)
				})
		})

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		def, _ := g.Definition(id)
		if missing := missingParams(def, env); len(missing) > 0 {
			return report, failure.Newf(failure.KindValidation, "operation.run",
				"operation %q is missing required params: %s", id, strings.Join(missing, ", "))
		}

		meta := observe.OperationMeta{Type: id, Target: r.target, Provider: r.provider}
		start := time.Now()
		out, err := exec(ctx, meta, maps.Clone(env))
		report.Durations[id] = time.Since(start)
		if err != nil {
			return report, fmt.Errorf("operation %s: %w", id, err)
		}

		result, _ := out.(map[string]any)
		result = maps.Clone(result)
		if result == nil {
			result = map[string]any{}
		}
		report.Outputs[id] = result
		maps.Copy(env, result)
	}
	return report, nil
}

// cacheKey returns the response cache key for an invocation, or "" when the
// invocation must not be cached.
func (r *Runner) cacheKey(ctx context.Context, typ string, params map[string]any) string {
	if r.skip(typ) {
		return ""
	}
	key, err := r.keyer.Key(typ, params)
	if err != nil {
		r.instruments.Logger.Debug(ctx, "operation not cacheable",
			observe.F("operation.type", typ),
			observe.F("error", err.Error()))
		return ""
	}
	return key
}

func missingParams(def depgraph.OperationDefinition, env map[string]any) []string {
	var missing []string
	for _, p := range def.RequiredParams() {
		if _, ok := env[p]; !ok {
			missing = append(missing, p)
		}
	}
	slices.Sort(missing)
	return missing
}
