package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/assetmigrate/cache"
	"github.com/jonwraymond/assetmigrate/resilience"
)

// ResilienceConfig holds the default policy and per-target overrides.
type ResilienceConfig struct {
	Defaults TargetConfig            `toml:"defaults"`
	Targets  map[string]TargetConfig `toml:"targets"`
}

// TargetConfig is the flat TOML form of a resilience.PolicyConfig. In a
// target override, zero values inherit from the defaults; pointer fields
// distinguish an explicit false.
type TargetConfig struct {
	FailureThreshold         int           `toml:"failure_threshold"`
	ResetTimeout             time.Duration `toml:"reset_timeout"`
	HalfOpenSuccessThreshold int           `toml:"half_open_success_threshold"`

	MaxAttempts   int           `toml:"max_attempts"`
	InitialDelay  time.Duration `toml:"initial_delay"`
	MaxDelay      time.Duration `toml:"max_delay"`
	BackoffFactor float64       `toml:"backoff_factor"`
	Jitter        *bool         `toml:"jitter"`

	MaxConcurrentCalls int `toml:"max_concurrent_calls"`
	MaxQueueSize       int `toml:"max_queue_size"`

	CacheTTL             *time.Duration `toml:"cache_ttl"`
	StaleWhileRevalidate *bool          `toml:"stale_while_revalidate"`
	CacheMaxEntries      int            `toml:"cache_max_entries"`

	Timeout time.Duration `toml:"timeout"`

	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// Validate rejects negative settings.
func (r ResilienceConfig) Validate() error {
	var errs []error
	check := func(name string, t TargetConfig) {
		if t.FailureThreshold < 0 || t.HalfOpenSuccessThreshold < 0 || t.MaxAttempts < 0 ||
			t.MaxConcurrentCalls < 0 || t.MaxQueueSize < 0 || t.CacheMaxEntries < 0 || t.Burst < 0 {
			errs = append(errs, fmt.Errorf("resilience.%s: counts must not be negative", name))
		}
		if t.ResetTimeout < 0 || t.InitialDelay < 0 || t.MaxDelay < 0 || t.Timeout < 0 ||
			(t.CacheTTL != nil && *t.CacheTTL < 0) {
			errs = append(errs, fmt.Errorf("resilience.%s: durations must not be negative", name))
		}
		if t.BackoffFactor < 0 || t.RatePerSecond < 0 {
			errs = append(errs, fmt.Errorf("resilience.%s: backoff_factor and rate_per_second must not be negative", name))
		}
	}
	check("defaults", r.Defaults)
	for _, name := range r.TargetNames() {
		check("targets."+name, r.Targets[name])
	}
	return errors.Join(errs...)
}

// TargetNames returns the names of the configured overrides, sorted.
func (r ResilienceConfig) TargetNames() []string {
	names := make([]string, 0, len(r.Targets))
	for name := range r.Targets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultPolicy returns the policy for targets without overrides.
func (r ResilienceConfig) DefaultPolicy() resilience.PolicyConfig {
	return r.Defaults.policy()
}

// Policy returns the policy of target: its override merged onto the
// defaults.
func (r ResilienceConfig) Policy(target string) resilience.PolicyConfig {
	t, ok := r.Targets[target]
	if !ok {
		return r.DefaultPolicy()
	}
	return t.over(r.Defaults).policy()
}

// Apply configures every override on reg.
func (r ResilienceConfig) Apply(reg *resilience.Registry) {
	for _, name := range r.TargetNames() {
		reg.Configure(name, r.Policy(name))
	}
}

// over returns t with zero fields taken from base.
func (t TargetConfig) over(base TargetConfig) TargetConfig {
	pick := func(v, b int) int {
		if v == 0 {
			return b
		}
		return v
	}
	pickD := func(v, b time.Duration) time.Duration {
		if v == 0 {
			return b
		}
		return v
	}
	pickF := func(v, b float64) float64 {
		if v == 0 {
			return b
		}
		return v
	}

	out := TargetConfig{
		FailureThreshold:         pick(t.FailureThreshold, base.FailureThreshold),
		ResetTimeout:             pickD(t.ResetTimeout, base.ResetTimeout),
		HalfOpenSuccessThreshold: pick(t.HalfOpenSuccessThreshold, base.HalfOpenSuccessThreshold),
		MaxAttempts:              pick(t.MaxAttempts, base.MaxAttempts),
		InitialDelay:             pickD(t.InitialDelay, base.InitialDelay),
		MaxDelay:                 pickD(t.MaxDelay, base.MaxDelay),
		BackoffFactor:            pickF(t.BackoffFactor, base.BackoffFactor),
		Jitter:                   t.Jitter,
		MaxConcurrentCalls:       pick(t.MaxConcurrentCalls, base.MaxConcurrentCalls),
		MaxQueueSize:             pick(t.MaxQueueSize, base.MaxQueueSize),
		CacheTTL:                 t.CacheTTL,
		StaleWhileRevalidate:     t.StaleWhileRevalidate,
		CacheMaxEntries:          pick(t.CacheMaxEntries, base.CacheMaxEntries),
		Timeout:                  pickD(t.Timeout, base.Timeout),
		RatePerSecond:            pickF(t.RatePerSecond, base.RatePerSecond),
		Burst:                    pick(t.Burst, base.Burst),
	}
	if out.Jitter == nil {
		out.Jitter = base.Jitter
	}
	if out.CacheTTL == nil {
		out.CacheTTL = base.CacheTTL
	}
	if out.StaleWhileRevalidate == nil {
		out.StaleWhileRevalidate = base.StaleWhileRevalidate
	}
	return out
}

func (t TargetConfig) policy() resilience.PolicyConfig {
	cfg := resilience.PolicyConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			FailureThreshold:         t.FailureThreshold,
			ResetTimeout:             t.ResetTimeout,
			HalfOpenSuccessThreshold: t.HalfOpenSuccessThreshold,
		},
		Retry: resilience.RetryConfig{
			MaxAttempts:   t.MaxAttempts,
			InitialDelay:  t.InitialDelay,
			MaxDelay:      t.MaxDelay,
			BackoffFactor: t.BackoffFactor,
			Jitter:        t.Jitter != nil && *t.Jitter,
		},
		Bulkhead: resilience.BulkheadConfig{
			MaxConcurrentCalls: t.MaxConcurrentCalls,
			MaxQueueSize:       t.MaxQueueSize,
		},
		Cache: cache.Policy{
			StaleWhileRevalidate: t.StaleWhileRevalidate != nil && *t.StaleWhileRevalidate,
			MaxEntries:           t.CacheMaxEntries,
		},
		Timeout: t.Timeout,
		RateLimit: resilience.RateLimiterConfig{
			Rate:  t.RatePerSecond,
			Burst: t.Burst,
		},
	}
	if t.CacheTTL != nil {
		cfg.Cache.TTL = *t.CacheTTL
	}
	return cfg
}
