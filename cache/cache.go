package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/sievecache/internal/singleflight"
	"github.com/IvanBrykalov/sievecache/internal/util"
)

var (
	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")
	// ErrClosed is returned by GetOrLoad after Close.
	ErrClosed = errors.New("cache: closed")
)

// cache is a sharded in-memory KV store evicting with SIEVE per shard.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	resident atomic.Int64
	loads    atomic.Uint64

	opt Options[K, V]

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

type systemClock struct{}

func (systemClock) NowUnixNano() int64 { return time.Now().UnixNano() }

// New constructs a cache with the provided Options.
// Capacity is split evenly (ceil) across shards, so the total limit may
// round up by less than one entry per shard.
// Errors from the engine (sieve.ErrInvalidCapacity, sieve.ErrInvalidPolicy)
// are wrapped and can be matched with errors.Is.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Clock == nil {
		opt.Clock = systemClock{}
	}
	if opt.Hash == nil {
		opt.Hash = util.Hash64[K]
	}

	n := util.FitShards(opt.Shards, opt.Capacity)
	perShard := opt.Capacity / n
	if opt.Capacity%n != 0 {
		perShard++
	}

	c := &cache[K, V]{
		shards: make([]*shard[K, V], n),
		hash:   opt.Hash,
		opt:    opt,
	}
	for i := range c.shards {
		s, err := newShard(perShard, opt, &c.resident)
		if err != nil {
			return nil, fmt.Errorf("cache: shard %d of %d: %w", i, n, err)
		}
		c.shards[i] = s
	}
	return c, nil
}

// ---- Cache[K,V] implementation ----

func (c *cache[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).Add(k, v, c.deadline(c.opt.DefaultTTL))
}

func (c *cache[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, c.opt.DefaultTTL)
}

func (c *cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if c.closed.Load() {
		return
	}
	c.getShard(k).Set(k, v, c.deadline(ttl))
}

func (c *cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.getShard(k).Get(k)
}

func (c *cache[K, V]) Peek(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.getShard(k).Peek(k)
}

func (c *cache[K, V]) Has(k K) bool {
	_, ok := c.Peek(k)
	return ok
}

func (c *cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).Remove(k)
}

func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

func (c *cache[K, V]) Range(fn func(k K, v V) bool) {
	if c.closed.Load() {
		return
	}
	for _, s := range c.shards {
		if !s.Range(fn) {
			return
		}
	}
}

// Purge keeps working after Close so a closed cache can release memory.
func (c *cache[K, V]) Purge() {
	for _, s := range c.shards {
		s.Purge()
	}
}

func (c *cache[K, V]) Stats() Stats {
	st := Stats{Loads: c.loads.Load()}
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
	}
	return st
}

func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// Loader errors are returned as is and nothing is stored.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, ErrClosed
	}
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		return zero, ErrNoLoader
	}

	v, _, err := c.sf.Do(ctx, k, func() (V, error) {
		// A previous leader may have stored k while we were acquiring the flight.
		if v, ok := c.Peek(k); ok {
			return v, nil
		}
		start := time.Now()
		v, err := c.opt.Loader(ctx, k)
		c.loads.Add(1)
		c.opt.Metrics.Load(time.Since(start), err)
		if err != nil {
			return v, err
		}
		c.Set(k, v)
		return v, nil
	})
	return v, err
}

// ---- helpers ----

// getShard picks a shard by hashing the key.
// len(c.shards) is guaranteed to be a power of two.
func (c *cache[K, V]) getShard(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A non-positive ttl returns 0 (no expiration).
func (c *cache[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return c.opt.Clock.NowUnixNano() + int64(ttl)
}
