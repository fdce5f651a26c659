package cache

import (
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/sievecache/internal/util"
	"github.com/IvanBrykalov/sievecache/sieve"
)

// shard is an independent partition of the cache: one SIEVE engine behind
// its own lock. The engine is not safe for concurrent use, so every access
// to sc happens with mu held.
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu sync.Mutex
	sc *sieve.Cache[K, entry[V]]

	opt      Options[K, V]
	resident *atomic.Int64 // cache-wide entry count, shared by all shards

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
	evicts util.PaddedAtomicUint64
}

// newShard builds a shard holding at most capacity entries.
// opt must already carry defaults (Metrics, Clock).
func newShard[K comparable, V any](capacity int, opt Options[K, V], resident *atomic.Int64) (*shard[K, V], error) {
	sc, err := sieve.New[K, entry[V]](capacity, sieve.WithExistingSetPolicy(opt.ExistingSetPolicy))
	if err != nil {
		return nil, err
	}
	s := &shard[K, V]{sc: sc, opt: opt, resident: resident}
	// The engine calls back from inside Set, i.e. with mu held.
	sc.SetEvictCallback(func(k K, e entry[V]) {
		reason := EvictPolicy
		if e.expired(s.now()) {
			reason = EvictTTL
		}
		s.evicted(k, e.val, reason)
	})
	return s, nil
}

// Add inserts a NEW entry (no update). An expired resident entry counts
// as absent and is replaced.
// exp is an absolute UnixNano deadline (0 = no TTL).
func (s *shard[K, V]) Add(k K, v V, exp int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.resized(s.sc.Len())

	if e, ok := s.sc.Peek(k); ok {
		if !e.expired(s.now()) {
			return false
		}
		s.sc.Delete(k)
		s.evicted(k, e.val, EvictTTL)
	}
	s.sc.Set(k, entry[V]{val: v, exp: exp})
	return true
}

// Set inserts or updates an entry. Updates keep the entry's position and
// apply the configured ExistingSetPolicy to its visited bit.
func (s *shard[K, V]) Set(k K, v V, exp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.resized(s.sc.Len())

	s.sc.Set(k, entry[V]{val: v, exp: exp})
}

// Get returns the value and marks the entry as visited.
// TTL: if expired, the entry is evicted and a miss is returned.
func (s *shard[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.resized(s.sc.Len())

	e, ok := s.sc.Get(k)
	if ok && e.expired(s.now()) {
		s.sc.Delete(k)
		s.evicted(k, e.val, EvictTTL)
		ok = false
	}
	if !ok {
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	s.hits.Add(1)
	s.opt.Metrics.Hit()
	return e.val, true
}

// Peek returns an unexpired value without touching visited bits or counters.
func (s *shard[K, V]) Peek(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sc.Peek(k)
	if !ok || e.expired(s.now()) {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Remove deletes an entry by key. Returns true if the entry existed.
// Explicit removal is not counted as an eviction.
func (s *shard[K, V]) Remove(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.resized(s.sc.Len())

	return s.sc.Delete(k)
}

// Range calls fn for unexpired entries in insertion order and reports
// whether iteration ran to completion.
func (s *shard[K, V]) Range(fn func(K, V) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.sc.All() {
		if e.expired(now) {
			continue
		}
		if !fn(k, e.val) {
			return false
		}
	}
	return true
}

// Purge drops every entry without reporting evictions.
func (s *shard[K, V]) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.resized(s.sc.Len())

	s.sc.Clear()
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sc.Len()
}

// -------------------- internals (mu held) --------------------

func (s *shard[K, V]) now() int64 { return s.opt.Clock.NowUnixNano() }

// evicted updates counters/metrics and calls OnEvict.
func (s *shard[K, V]) evicted(k K, v V, reason EvictReason) {
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		cb(k, v, reason)
	}
}

// resized publishes the cache-wide size if this shard's length moved
// away from before.
func (s *shard[K, V]) resized(before int) {
	d := s.sc.Len() - before
	if d == 0 {
		return
	}
	s.opt.Metrics.Size(int(s.resident.Add(int64(d))))
}
