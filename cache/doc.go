// Package cache provides response caching for calls to downstream targets.
//
// ResponseCache is a TTL cache with optional stale-while-revalidate and a
// bounded size. When full it evicts the oldest-inserted key, an approximate
// LRU that ignores access order. Concurrent misses for the same key share a
// single refresh.
//
//	rc := cache.NewResponseCache[[]Project](cache.Policy{
//	    TTL:                  time.Minute,
//	    StaleWhileRevalidate: true,
//	    MaxEntries:           1000,
//	})
//	projects, err := rc.Get(ctx, "projects", fetchProjects)
//
// Keys can be derived deterministically from structured input with Keyer.
package cache
