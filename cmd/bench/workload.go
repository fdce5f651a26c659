package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	arc "github.com/hashicorp/golang-lru/arc/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/sievecache/cache"
)

// target is the slice of cache behavior the workload drives.
// Implementations must be safe for concurrent use.
type target interface {
	Get(k string) (string, bool)
	Set(k, v string)
	Len() int
}

type lruTarget struct{ c *lru.Cache[string, string] }

func (t lruTarget) Get(k string) (string, bool) { return t.c.Get(k) }
func (t lruTarget) Set(k, v string)             { t.c.Add(k, v) }
func (t lruTarget) Len() int                    { return t.c.Len() }

type arcTarget struct{ c *arc.ARCCache[string, string] }

func (t arcTarget) Get(k string) (string, bool) { return t.c.Get(k) }
func (t arcTarget) Set(k, v string)             { t.c.Add(k, v) }
func (t arcTarget) Len() int                    { return t.c.Len() }

// newTarget builds the implementation selected by cfg.Impl. m is only
// wired into the sharded SIEVE cache; the baselines have no hooks.
func newTarget(cfg config, m cache.Metrics) (target, func(), error) {
	switch cfg.Impl {
	case "sieve":
		c, err := cache.New(cache.Options[string, string]{
			Capacity:          cfg.Capacity,
			Shards:            cfg.Shards,
			ExistingSetPolicy: cfg.policy,
			DefaultTTL:        time.Duration(cfg.TTL),
			Metrics:           m,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	case "lru":
		c, err := lru.New[string, string](cfg.Capacity)
		if err != nil {
			return nil, nil, err
		}
		return lruTarget{c}, func() {}, nil
	case "arc":
		c, err := arc.NewARC[string, string](cfg.Capacity)
		if err != nil {
			return nil, nil, err
		}
		return arcTarget{c}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown implementation %q", cfg.Impl)
	}
}

type result struct {
	ops, reads, writes, hits uint64
	elapsed                  time.Duration
}

func (r result) hitRate() float64 {
	if r.reads == 0 {
		return 0
	}
	return float64(r.hits) / float64(r.reads) * 100
}

func key(i uint64) string { return "k:" + strconv.FormatUint(i, 10) }

// preload fills the keyspace prefix so that reads start against a warm cache.
func preload(t target, n int) {
	for i := range n {
		t.Set(key(uint64(i)), "v"+strconv.Itoa(i))
	}
}

// run drives cfg.Workers goroutines with a Zipf key distribution until
// cfg.Duration elapses or ctx is cancelled.
func run(ctx context.Context, cfg config, t target) (result, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Duration))
	defer cancel()

	var res result
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := range cfg.Workers {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewPCG(cfg.Seed, uint64(w)*9973))
			zipf := rand.NewZipf(r, cfg.ZipfS, cfg.ZipfV, uint64(cfg.Keys-1))

			var local result
			for ctx.Err() == nil {
				local.ops++
				k := key(zipf.Uint64())
				if r.IntN(100) < cfg.ReadPct {
					local.reads++
					if _, ok := t.Get(k); ok {
						local.hits++
					}
					continue
				}
				local.writes++
				t.Set(k, "v"+strconv.FormatUint(r.Uint64(), 10))
			}
			atomic.AddUint64(&res.ops, local.ops)
			atomic.AddUint64(&res.reads, local.reads)
			atomic.AddUint64(&res.writes, local.writes)
			atomic.AddUint64(&res.hits, local.hits)
			return nil
		})
	}
	err := g.Wait()
	res.elapsed = time.Since(start)
	return res, err
}
