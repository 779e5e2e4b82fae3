// Package cache stores parsed master tables between runs so unchanged
// master files are not re-read.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the byte-level store shared by the memory and disk layers
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from the parts that identify one parsed file
// (path, size, modification time, column mapping)
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "bufilter:v1:" + hex.EncodeToString(hash[:])
}

// Nop never stores anything; used when caching is disabled
type Nop struct{}

// Get always misses
func (Nop) Get(string) ([]byte, bool) { return nil, false }

// Set discards the value
func (Nop) Set(string, []byte, time.Duration) error { return nil }

// Delete is a no-op
func (Nop) Delete(string) error { return nil }

// Clear is a no-op
func (Nop) Clear() error { return nil }
