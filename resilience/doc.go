// Package resilience shields outbound calls to migration targets.
//
// It provides the individual patterns and a Policy that composes them:
//
//   - CircuitBreaker: fails fast after consecutive failures and probes
//     recovery lazily once the reset timeout has elapsed.
//   - Retry: bounded retry with exponential, linear or constant backoff,
//     gated by a predicate or a list of message patterns.
//   - Bulkhead: bounds concurrent calls and queues excess callers FIFO.
//   - Timeout: bounds a single attempt.
//   - RateLimiter: token bucket used to throttle dispatch.
//
// A Policy runs every call through cache, circuit breaker, bulkhead, retry
// and per-call timeout, in that order. The Registry owns one Policy per
// target name and is constructed by the application root:
//
//	reg := resilience.NewRegistry(resilience.DefaultPolicyConfig(),
//	    resilience.WithHealth(aggregator))
//	if err := reg.Init(ctx); err != nil {
//	    return err
//	}
//	defer reg.Shutdown(ctx)
//
//	projects, err := resilience.Do(ctx, reg.Policy("zephyr"), key,
//	    func(ctx context.Context) ([]Project, error) {
//	        return client.Projects(ctx)
//	    })
//
// Errors returned by the patterns carry a failure.Kind. Validation, capacity
// and open-circuit errors are never retried.
package resilience
