// Package sieve implements a fixed-capacity key/value [Cache] using the
// SIEVE eviction algorithm.
//
// SIEVE keeps every resident entry in a single list ordered by insertion
// (oldest at the tail, newest at the head), one "visited" bit per entry
// and a persistent scan cursor called the hand. A read only sets the
// visited bit; nothing is reordered on access. When a new key arrives
// and the cache is full, the hand walks from its last position towards
// the head, clearing visited bits, and evicts the first entry it finds
// unvisited. Walking past the head wraps around to the tail.
//
// Storage
//
//   - Entries live in a slot arena: parallel slices of length capacity+1
//     addressed by uint32 slot ids. Id 0 is the null id and never holds
//     an entry.
//   - The active list is an intrusive doubly linked list threaded through
//     the next/prev slices. Free slots reuse the next slice as a singly
//     linked FIFO list.
//   - New slots are handed out by a bump cursor until every id has been
//     used once; after that, released ids are recycled oldest first.
//   - A map from key to slot id gives O(1) lookups.
//
// The arena is allocated once by [New] and again by [Cache.Clear]; Get,
// Set and Delete perform no per-entry allocation in steady state.
//
// Basic usage
//
//	c, err := sieve.New[string, int](1024)
//	if err != nil {
//	    return err
//	}
//	c.Set("a", 1)
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//	for k, v := range c.All() { // insertion order
//	    _, _ = k, v
//	}
//
// Updating an existing key never moves it. [WithExistingSetPolicy]
// controls whether such an update touches the visited bit.
//
// A Cache is not safe for concurrent use. Guard it with a mutex or use
// the sharded front end in package cache.
package sieve
