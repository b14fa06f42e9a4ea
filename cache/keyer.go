package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxKeyLength bounds the keys the cache accepts.
const MaxKeyLength = 512

var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// ValidateKey rejects blank keys, keys containing line breaks and keys
// longer than MaxKeyLength.
func ValidateKey(key string) error {
	switch {
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	case strings.TrimSpace(key) == "", strings.ContainsAny(key, "\r\n"):
		return ErrInvalidKey
	}
	return nil
}

// Keyer derives a cache key from a scope, usually an operation type, and
// the input of the call. Equal inputs must give equal keys.
type Keyer interface {
	Key(scope string, input any) (string, error)
}

// KeyFunc adapts a function to Keyer.
type KeyFunc func(scope string, input any) (string, error)

// Key implements Keyer.
func (f KeyFunc) Key(scope string, input any) (string, error) { return f(scope, input) }

// HashKeyer builds keys of the form <prefix>:<scope>:<hash>, where hash is
// 16 hex characters of the SHA-256 of the input's JSON encoding. The
// encoding sorts map keys, so nested maps hash the same regardless of
// insertion order.
type HashKeyer struct {
	// Prefix starts every key.
	// Default: "cache"
	Prefix string
}

// NewKeyer returns a HashKeyer with the default prefix.
func NewKeyer() *HashKeyer {
	return &HashKeyer{Prefix: "cache"}
}

// Key implements Keyer. Inputs that cannot be encoded as JSON yield an
// error and should not be cached.
func (k *HashKeyer) Key(scope string, input any) (string, error) {
	if strings.TrimSpace(scope) == "" {
		return "", ErrInvalidKey
	}

	h := sha256.New()
	if err := json.NewEncoder(h).Encode(input); err != nil {
		return "", fmt.Errorf("cache: encode %s input: %w", scope, err)
	}

	prefix := k.Prefix
	if prefix == "" {
		prefix = "cache"
	}
	key := prefix + ":" + scope + ":" + hex.EncodeToString(h.Sum(nil)[:8])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

var (
	_ Keyer = (*HashKeyer)(nil)
	_ Keyer = KeyFunc(nil)
)
