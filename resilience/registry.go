package resilience

import (
	"context"
	"slices"
	"sync"

	"github.com/jonwraymond/assetmigrate/health"
	"github.com/jonwraymond/assetmigrate/observe"
)

// HealthCheckPrefix prefixes the names policies are registered under in the
// health aggregator.
const HealthCheckPrefix = "resilience:"

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithInstruments attaches telemetry to every policy the registry creates.
func WithInstruments(in *observe.Instruments) RegistryOption {
	return func(r *Registry) {
		if in != nil {
			r.instruments = in
		}
	}
}

// WithHealth registers every policy with agg once the registry is initialized.
func WithHealth(agg *health.Aggregator) RegistryOption {
	return func(r *Registry) { r.health = agg }
}

// WithPolicyOptions appends options applied to every created policy.
func WithPolicyOptions(opts ...PolicyOption) RegistryOption {
	return func(r *Registry) { r.policyOpts = append(r.policyOpts, opts...) }
}

// Registry owns the long-lived resilience policies, one per target name.
//
// Policies are created lazily on first use. Concurrent first calls for the
// same name always observe the same instance.
type Registry struct {
	defaults    PolicyConfig
	instruments *observe.Instruments
	health      *health.Aggregator
	policyOpts  []PolicyOption

	mu          sync.Mutex
	overrides   map[string]PolicyConfig
	policies    map[string]*Policy
	limiters    map[string]*RateLimiter
	initialized bool
}

// NewRegistry creates a registry whose policies use defaults unless
// configured otherwise.
func NewRegistry(defaults PolicyConfig, opts ...RegistryOption) *Registry {
	r := &Registry{
		defaults:    defaults,
		instruments: observe.NopInstruments(),
		overrides:   make(map[string]PolicyConfig),
		policies:    make(map[string]*Policy),
		limiters:    make(map[string]*RateLimiter),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the policy for name, creating it on first use.
func (r *Registry) Policy(name string) *Policy {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.policies[name]; ok {
		return p
	}
	return r.createLocked(name)
}

func (r *Registry) createLocked(name string) *Policy {
	opts := []PolicyOption{
		WithMetrics(r.instruments.Metrics),
		WithLogger(r.instruments.Logger),
	}
	opts = append(opts, r.policyOpts...)

	p := NewPolicy(name, r.configLocked(name), opts...)
	r.policies[name] = p
	if r.initialized && r.health != nil {
		r.health.Register(HealthCheckPrefix+name, p)
	}
	return p
}

func (r *Registry) configLocked(name string) PolicyConfig {
	if cfg, ok := r.overrides[name]; ok {
		return cfg
	}
	return r.defaults
}

// Configure sets the configuration for name. An existing policy is replaced;
// callers holding the old instance keep using it until they look it up again.
func (r *Registry) Configure(name string, config PolicyConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.overrides[name] = config
	delete(r.limiters, name)
	if _, ok := r.policies[name]; ok {
		r.createLocked(name)
	}
}

// Reset closes the circuit, clears the cache and refills the rate limiter
// for name. It reports whether the target existed.
func (r *Registry) Reset(name string) bool {
	r.mu.Lock()
	p, ok := r.policies[name]
	rl := r.limiters[name]
	r.mu.Unlock()

	if rl != nil {
		rl.Reset()
	}
	if !ok {
		return rl != nil
	}
	p.Reset()
	return true
}

// ResetAll resets every target.
func (r *Registry) ResetAll() {
	for _, name := range r.Names() {
		r.Reset(name)
	}
}

// Names returns the names of created policies in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RateLimiter returns the dispatch limiter for name, or nil when the
// target's configuration has no rate.
func (r *Registry) RateLimiter(name string) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rl, ok := r.limiters[name]; ok {
		return rl
	}
	cfg := r.configLocked(name).RateLimit
	if cfg.Rate <= 0 {
		return nil
	}
	rl := NewRateLimiter(cfg)
	r.limiters[name] = rl
	return rl
}

// Init registers existing policies with the health aggregator. Policies
// created later are registered as they are created.
func (r *Registry) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.initialized = true
	if r.health == nil {
		return nil
	}
	for name, p := range r.policies {
		r.health.Register(HealthCheckPrefix+name, p)
	}
	return nil
}

// Shutdown waits for background cache refreshes and unregisters health checks.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	policies := make(map[string]*Policy, len(r.policies))
	for name, p := range r.policies {
		policies[name] = p
	}
	r.initialized = false
	r.mu.Unlock()

	if r.health != nil {
		for name := range policies {
			r.health.Unregister(HealthCheckPrefix + name)
		}
	}
	for _, p := range policies {
		if err := p.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
