package cache

import (
	"strings"
	"time"
)

// Policy configures caching behavior.
type Policy struct {
	// TTL is how long an entry is fresh. Zero disables caching.
	TTL time.Duration

	// StaleWhileRevalidate serves expired entries immediately and refreshes
	// them in the background.
	StaleWhileRevalidate bool

	// MaxEntries bounds the number of cached keys. Zero means unbounded.
	MaxEntries int

	// RefreshTimeout bounds each background refresh.
	// Default: 30 seconds
	RefreshTimeout time.Duration
}

// DefaultPolicy returns the default caching policy.
// TTL: 5 minutes, stale-while-revalidate on, 1000 entries.
func DefaultPolicy() Policy {
	return Policy{
		TTL:                  5 * time.Minute,
		StaleWhileRevalidate: true,
		MaxEntries:           1000,
		RefreshTimeout:       30 * time.Second,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.TTL > 0
}

// UnsafePrefixes are operation name prefixes that indicate side effects.
// Results of such operations are never cached.
var UnsafePrefixes = []string{"create", "update", "delete", "upload", "write", "post", "put", "patch"}

// DefaultSkipRule reports whether caching should be skipped for an operation.
// Matching is case-insensitive on the operation name prefix.
func DefaultSkipRule(operation string) bool {
	lower := strings.ToLower(operation)
	for _, prefix := range UnsafePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
