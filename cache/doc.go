// Package cache provides a generic, sharded, concurrency-safe in-memory
// cache built on the SIEVE eviction engine, with per-entry TTL,
// singleflight loading, eviction callbacks and lightweight metrics hooks.
//
// Design
//
//   - Concurrency: the cache is split into shards, each protected by a
//     Mutex. The default shard count is chosen by a heuristic
//     (about 2*GOMAXPROCS, a power of two) and reduced for small
//     capacities so that every shard holds at least one entry.
//
//   - Storage: each shard owns a sieve.Cache. Reads set the entry's visited
//     bit; nothing is moved on a hit, so the lock is held only for a map
//     lookup and a bit store. A write into a full shard runs the SIEVE scan
//     of that shard only.
//
//   - TTL: entries can have per-item deadlines (UnixNano). Expiration is lazy:
//     an expired entry is removed when it is read, or reported as a TTL
//     eviction when the scan happens to pick it.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using singleflight.
//     If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size/Load signals.
//     By default NoopMetrics is used; metrics/prom exports them to Prometheus.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every eviction
//     (reason is EvictPolicy or EvictTTL) while the shard lock is held.
//
// Basic usage
//
//	c, err := cache.New(cache.Options[string, []byte]{Capacity: 10_000})
//	if err != nil {
//	    return err
//	}
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// With GetOrLoad (singleflight)
//
//	c, _ := cache.New(cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        return "v:" + k, nil // e.g. fetch from DB
//	    },
//	})
//	v, err := c.GetOrLoad(ctx, "key")
//
// Exporting metrics
//
//	m := prom.New(nil, "sievecache", "demo", nil) // implements Metrics
//	c, _ := cache.New(cache.Options[string, []byte]{
//	    Capacity: 10_000,
//	    Metrics:  m,
//	})
package cache
