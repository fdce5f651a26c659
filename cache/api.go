package cache

import (
	"context"
	"time"
)

// Cache is a sharded, in-memory key/value cache evicting with SIEVE.
// All methods are safe for concurrent use by multiple goroutines.
//
// Each shard is a sieve.Cache behind a mutex, so operations cost one map
// lookup plus constant-time arena updates under a shard lock. An insert
// into a full shard additionally runs that shard's eviction scan.
type Cache[K comparable, V any] interface {
	// Add inserts k→v only if k is not present (or has expired).
	// It uses the cache's DefaultTTL (if any).
	// Returns false if the key already exists (no update is performed).
	Add(k K, v V) bool

	// Set inserts or updates k→v using DefaultTTL (if any).
	// Updates follow Options.ExistingSetPolicy and never reorder entries.
	Set(k K, v V)

	// SetWithTTL inserts or updates k→v with a per-key TTL (relative duration).
	// A non-positive ttl disables expiration for this entry.
	SetWithTTL(k K, v V, ttl time.Duration)

	// Get returns the value for k and a boolean flag indicating presence.
	// A hit marks the entry as visited.
	Get(k K) (V, bool)

	// Peek is like Get but does not mark the entry as visited
	// and does not count towards hit/miss statistics.
	Peek(k K) (V, bool)

	// Has reports whether k is present and unexpired, without marking it.
	Has(k K) bool

	// Remove deletes k if present and returns true on success.
	Remove(k K) bool

	// Len returns the total number of resident entries across all shards.
	// Expired entries that have not been read yet are included.
	Len() int

	// Range calls fn for every unexpired entry, shard by shard, in each
	// shard's insertion order, until fn returns false. fn runs under the
	// shard lock and must not call back into the cache.
	Range(fn func(k K, v V) bool)

	// Purge removes every entry from every shard.
	Purge()

	// Stats returns counters accumulated since construction.
	Stats() Stats

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced.
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Close marks the cache closed. Later calls behave as misses/no-ops and
	// GetOrLoad returns ErrClosed.
	Close() error
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64 // SIEVE and TTL evictions; explicit Remove/Purge excluded
	Loads     uint64 // Loader invocations, successful or not
}

// HitRatio returns Hits/(Hits+Misses), or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
