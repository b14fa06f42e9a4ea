package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/assetmigrate/cache"
	"github.com/jonwraymond/assetmigrate/failure"
	"github.com/jonwraymond/assetmigrate/health"
	"github.com/jonwraymond/assetmigrate/observe"
)

// Operation is a call shielded by a Policy.
type Operation func(ctx context.Context) (any, error)

// Fallback produces a substitute result after a terminal failure.
type Fallback func(err error) (any, error)

// PolicyConfig configures the resilience chain of one downstream target.
type PolicyConfig struct {
	CircuitBreaker CircuitBreakerConfig
	Retry          RetryConfig
	Bulkhead       BulkheadConfig

	// Cache configures the response cache. A zero TTL disables caching.
	Cache cache.Policy

	// Timeout bounds each attempt. Zero disables the per-call timeout.
	Timeout time.Duration

	// RateLimit configures the optional dispatch limiter handed out by
	// Registry.RateLimiter. A zero Rate means no limiter.
	RateLimit RateLimiterConfig
}

// DefaultPolicyConfig returns the defaults used for targets without overrides.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold:         5,
			ResetTimeout:             30 * time.Second,
			HalfOpenSuccessThreshold: 1,
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2.0,
		},
		Bulkhead: BulkheadConfig{
			MaxConcurrentCalls: 10,
			MaxQueueSize:       100,
		},
		Cache:   cache.DefaultPolicy(),
		Timeout: 30 * time.Second,
	}
}

// PolicyOption configures a Policy.
type PolicyOption func(*policyOptions)

type policyOptions struct {
	metrics observe.Metrics
	logger  observe.Logger
	now     func() time.Time
}

// WithMetrics records every call and circuit transition on m.
func WithMetrics(m observe.Metrics) PolicyOption {
	return func(o *policyOptions) { o.metrics = m }
}

// WithLogger logs circuit transitions and fallbacks on l.
func WithLogger(l observe.Logger) PolicyOption {
	return func(o *policyOptions) { o.logger = l }
}

// WithClock overrides the clock used by the breaker and the cache.
func WithClock(now func() time.Time) PolicyOption {
	return func(o *policyOptions) { o.now = now }
}

// Policy composes a response cache, circuit breaker, bulkhead, retry and
// per-call timeout for one named target.
//
// The composition order is fixed: cache, breaker, bulkhead, retry, timeout.
// A cache hit bypasses every other layer. An empty key disables caching for
// that call.
//
// Contract:
// - Concurrency: safe for concurrent use; layers are shared by all callers.
// - Errors: terminal errors keep their failure kind; RetryError wraps exhausted retries.
type Policy struct {
	name     string
	config   PolicyConfig
	breaker  *CircuitBreaker
	bulkhead *Bulkhead
	retry    *Retry
	cache    *cache.ResponseCache[any]
	timeout  time.Duration
	metrics  observe.Metrics
	logger   observe.Logger
}

// NewPolicy creates a policy for the named target.
func NewPolicy(name string, config PolicyConfig, opts ...PolicyOption) *Policy {
	o := policyOptions{
		metrics: observe.NopMetrics(),
		logger:  observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Policy{
		name:    name,
		config:  config,
		timeout: config.Timeout,
		metrics: o.metrics,
		logger:  o.logger.With(observe.F("resilience.target", name)),
	}

	cbConfig := config.CircuitBreaker
	if cbConfig.IsFailure == nil {
		cbConfig.IsFailure = countsAsFailure
	}
	if o.now != nil && cbConfig.Now == nil {
		cbConfig.Now = o.now
	}
	userHook := cbConfig.OnStateChange
	cbConfig.OnStateChange = func(from, to State) {
		p.metrics.RecordTransition(context.Background(), name, from.String(), to.String())
		p.logger.Warn(context.Background(), "circuit state changed",
			observe.F("from", from.String()), observe.F("to", to.String()))
		if userHook != nil {
			userHook(from, to)
		}
	}

	var cacheOpts []cache.Option
	if o.now != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(o.now))
	}

	p.breaker = NewCircuitBreaker(cbConfig)
	p.bulkhead = NewBulkhead(config.Bulkhead)
	p.retry = NewRetry(config.Retry)
	p.cache = cache.NewResponseCache[any](config.Cache, cacheOpts...)
	return p
}

// countsAsFailure excludes local saturation, caller cancellation and errors
// scoped to a single item's input. None of them say anything about the
// health of the downstream target.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch failure.KindOf(err) {
	case failure.KindCapacityExceeded, failure.KindConversion, failure.KindValidation, failure.KindNotFound:
		return false
	default:
		return true
	}
}

// Name returns the target name.
func (p *Policy) Name() string {
	return p.name
}

// Config returns the policy configuration.
func (p *Policy) Config() PolicyConfig {
	return p.config
}

// WithRetry returns a view of the policy that shares its breaker, bulkhead
// and cache but retries according to config.
func (p *Policy) WithRetry(config RetryConfig) *Policy {
	view := *p
	view.retry = NewRetry(config)
	return &view
}

// Execute runs op through the policy.
//
// On terminal failure fallback, when non-nil, is invoked with the error and
// its result is returned instead.
func (p *Policy) Execute(ctx context.Context, key string, op Operation, fallback Fallback) (any, error) {
	start := time.Now()

	v, err := p.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		return p.run(ctx, op)
	})
	p.metrics.RecordCall(ctx, p.name, time.Since(start), err)

	if err != nil && fallback != nil {
		p.logger.Info(ctx, "invoking fallback",
			observe.F("error", err.Error()),
			observe.F("error.kind", failure.KindOf(err).String()))
		return fallback(err)
	}
	return v, err
}

func (p *Policy) run(ctx context.Context, op Operation) (any, error) {
	var result any

	// Build the execution chain from inside out
	execute := func(ctx context.Context) error {
		v, err := CallWithTimeout(ctx, p.timeout, op)
		if err != nil {
			return err
		}
		result = v
		return nil
	}

	// Wrap with retry
	attempt := execute
	execute = func(ctx context.Context) error {
		return p.retry.Execute(ctx, attempt)
	}

	// Wrap with bulkhead
	retried := execute
	execute = func(ctx context.Context) error {
		return p.bulkhead.Execute(ctx, retried)
	}

	// Wrap with circuit breaker (outermost below the cache)
	admitted := execute
	execute = func(ctx context.Context) error {
		return p.breaker.Execute(ctx, admitted)
	}

	if err := execute(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// Do runs op through p and returns its typed result.
func Do[T any](ctx context.Context, p *Policy, key string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	v, err := p.Execute(ctx, key, func(ctx context.Context) (any, error) {
		return op(ctx)
	}, nil)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, failure.Newf(failure.KindInternal, "resilience.Do", "cached value for %q has type %T", key, v)
	}
	return t, nil
}

// State returns the circuit breaker state.
func (p *Policy) State() State {
	return p.breaker.State()
}

// HealthStatus derives health from the circuit state.
func (p *Policy) HealthStatus() health.Status {
	switch p.breaker.State() {
	case StateHalfOpen:
		return health.StatusDegraded
	case StateOpen:
		return health.StatusUnhealthy
	default:
		return health.StatusHealthy
	}
}

// Check reports the policy's health.
func (p *Policy) Check(ctx context.Context) health.Result {
	m := p.Metrics()

	var r health.Result
	switch p.HealthStatus() {
	case health.StatusDegraded:
		r = health.Degraded("circuit half-open")
	case health.StatusUnhealthy:
		r = health.Unhealthy("circuit open", ErrCircuitOpen)
	default:
		r = health.Healthy("circuit closed")
	}
	return r.WithDetails(map[string]any{
		"state":             m.Circuit.State.String(),
		"failures":          m.Circuit.Failures,
		"rejected":          m.Circuit.Rejected,
		"bulkhead_active":   m.Bulkhead.Active,
		"bulkhead_queued":   m.Bulkhead.Queued,
		"bulkhead_rejected": m.Bulkhead.Rejected,
		"cache_entries":     m.CacheEntries,
		"cache_hits":        m.Cache.Hits,
	})
}

// PolicyMetrics is a snapshot of every layer's counters.
type PolicyMetrics struct {
	Circuit      CircuitBreakerMetrics
	Bulkhead     BulkheadMetrics
	Cache        cache.Stats
	CacheEntries int
}

// Metrics returns a snapshot of the policy counters.
func (p *Policy) Metrics() PolicyMetrics {
	return PolicyMetrics{
		Circuit:      p.breaker.Metrics(),
		Bulkhead:     p.bulkhead.Metrics(),
		Cache:        p.cache.Stats(),
		CacheEntries: p.cache.Len(),
	}
}

// Invalidate drops a cached response.
func (p *Policy) Invalidate(key string) {
	p.cache.Invalidate(key)
}

// Reset closes the circuit and clears the cache.
func (p *Policy) Reset() {
	p.breaker.Reset()
	p.cache.Clear()
}

// Wait blocks until background cache refreshes finish or ctx ends.
func (p *Policy) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.cache.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ensure Policy implements health.Checker
var _ health.Checker = (*Policy)(nil)
