package cache

import (
	"context"
	"time"

	"github.com/IvanBrykalov/sievecache/sieve"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy: removed by the SIEVE scan to make room for a new key.
	EvictPolicy EvictReason = iota
	// EvictTTL: expired by TTL (lazy eviction on access).
	EvictTTL
)

func (r EvictReason) String() string {
	switch r {
	case EvictPolicy:
		return "policy"
	case EvictTTL:
		return "ttl"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
// Implementations must be safe for concurrent use.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	// Size reports the total number of resident entries after a change.
	Size(entries int)
	// Load reports one Loader call, its duration and outcome.
	Load(d time.Duration, err error)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. Zero values are safe except
// Capacity; defaults are applied in New():
//   - Shards <= 0  => auto (≈ 2*GOMAXPROCS, power of two)
//   - nil Metrics  => NoopMetrics
//   - nil Hash     => xxHash of common key types
type Options[K comparable, V any] struct {
	// Capacity is the total entry limit, split evenly (ceil) across shards.
	Capacity int

	// Shards defines the number of shards. It is rounded up to a power of
	// two and reduced until each shard holds at least one entry.
	Shards int

	// ExistingSetPolicy decides how Set on a resident key affects its
	// visited bit (default sieve.SkipVisitedChange).
	ExistingSetPolicy sieve.ExistingSetPolicy

	// DefaultTTL applies to Add/Set (0 = no TTL).
	DefaultTTL time.Duration

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called on eviction under the shard lock; keep callbacks
	// lightweight and do not call back into the cache.
	OnEvict func(k K, v V, reason EvictReason)

	Metrics Metrics

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock

	// Hash selects the shard for a key. Nil => util.Hash64, which panics on
	// key types it does not know.
	Hash func(K) uint64
}
