package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads a fresh value for a key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// ResponseCache is an in-memory TTL cache with stale-while-revalidate.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: fetch errors are returned to the caller and never cached.
// - Revalidation: at most one background refresh per key is in flight.
type ResponseCache[T any] struct {
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry[T]
	order   *list.List // keys, oldest insertion first
	stats   Stats

	group singleflight.Group
	bg    sync.WaitGroup
}

type entry[T any] struct {
	value        T
	expiresAt    time.Time
	revalidating bool
	elem         *list.Element
}

// Stats contains cache counters.
type Stats struct {
	Hits            int64
	Misses          int64
	StaleHits       int64
	Revalidations   int64
	RefreshFailures int64
	Evictions       int64
}

// Option configures a ResponseCache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewResponseCache creates a cache with the given policy.
func NewResponseCache[T any](policy Policy, opts ...Option) *ResponseCache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if policy.RefreshTimeout <= 0 {
		policy.RefreshTimeout = 30 * time.Second
	}
	if policy.MaxEntries < 0 {
		policy.MaxEntries = 0
	}

	return &ResponseCache[T]{
		policy:  policy,
		now:     o.now,
		entries: make(map[string]*entry[T]),
		order:   list.New(),
	}
}

// Policy returns the cache policy.
func (c *ResponseCache[T]) Policy() Policy {
	return c.policy
}

// Lookup returns the cached value for key if it is present and fresh.
func (c *ResponseCache[T]) Lookup(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero T
		return zero, false
	}
	c.stats.Hits++
	return e.value, true
}

// Get returns the value for key, calling fetch when needed.
//
// A fresh entry is returned directly. A stale entry is returned immediately
// when StaleWhileRevalidate is set, and one background refresh is started
// unless one is already running. Otherwise fetch runs synchronously; callers
// missing on the same key concurrently share one fetch.
func (c *ResponseCache[T]) Get(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	if !c.policy.ShouldCache() || ValidateKey(key) != nil {
		return fetch(ctx)
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.now().Before(e.expiresAt) {
			c.stats.Hits++
			v := e.value
			c.mu.Unlock()
			return v, nil
		}
		if c.policy.StaleWhileRevalidate {
			c.stats.StaleHits++
			v := e.value
			if !e.revalidating {
				e.revalidating = true
				c.stats.Revalidations++
				c.bg.Add(1)
				go c.revalidate(key, fetch)
			}
			c.mu.Unlock()
			return v, nil
		}
	}
	c.stats.Misses++
	c.mu.Unlock()

	return c.refresh(ctx, key, fetch)
}

// refresh runs one fetch per key for all concurrent callers. The shared
// fetch is detached from the caller that started it, so that caller giving
// up does not fail the others; RefreshTimeout bounds it instead.
func (c *ResponseCache[T]) refresh(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.policy.RefreshTimeout)
		defer cancel()

		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *ResponseCache[T]) revalidate(key string, fetch FetchFunc[T]) {
	defer c.bg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.policy.RefreshTimeout)
	defer cancel()

	v, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.stats.RefreshFailures++
	} else {
		c.setLocked(key, v)
	}
	if e, ok := c.entries[key]; ok {
		e.revalidating = false
	}
}

// Set stores a value with the policy TTL.
func (c *ResponseCache[T]) Set(key string, value T) {
	if !c.policy.ShouldCache() {
		return
	}
	c.mu.Lock()
	c.setLocked(key, value)
	c.mu.Unlock()
}

func (c *ResponseCache[T]) setLocked(key string, value T) {
	expiresAt := c.now().Add(c.policy.TTL)

	if e, ok := c.entries[key]; ok {
		// Refreshing keeps the original insertion position.
		e.value = value
		e.expiresAt = expiresAt
		return
	}

	if c.policy.MaxEntries > 0 {
		for len(c.entries) >= c.policy.MaxEntries {
			oldest := c.order.Front()
			if oldest == nil {
				break
			}
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(string))
			c.stats.Evictions++
		}
	}

	c.entries[key] = &entry[T]{
		value:     value,
		expiresAt: expiresAt,
		elem:      c.order.PushBack(key),
	}
}

// Invalidate removes a key. Idempotent - no error on miss.
func (c *ResponseCache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.order.Remove(e.elem)
		delete(c.entries, key)
	}
}

// Clear removes every entry and resets the counters.
func (c *ResponseCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[T])
	c.order.Init()
	c.stats = Stats{}
}

// Len returns the number of cached keys, fresh or stale.
func (c *ResponseCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *ResponseCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Wait blocks until all background refreshes have finished.
func (c *ResponseCache[T]) Wait() {
	c.bg.Wait()
}
