package sieve

import "fmt"

// MaxCapacity is the largest capacity accepted by [New].
// Slot ids are uint32 and the arena reserves id 0.
const MaxCapacity = 1<<32 - 2

// Cache is a fixed-capacity key/value store evicting with SIEVE.
// Concurrent access must be guarded by the caller.
// Constructed by [New].
type Cache[K comparable, V any] struct {
	capacity uint32
	policy   ExistingSetPolicy
	onEvict  func(K, V)

	// Key index; its entry set is exactly the active slot set.
	index map[K]uint32

	// Slot arena, indexed by slot id. Slot 0 is never used.
	keys    []K
	values  []V
	visited []bool
	next    []uint32 // active: towards head; free: towards freeHead
	prev    []uint32 // active: towards tail; free: unused (0)

	head, tail         uint32 // newest and oldest active slot
	freeHead, freeTail uint32 // newest and oldest released slot
	bump               uint32 // next never-used slot id
	hand               uint32 // eviction cursor; 0 restarts at tail
}

// New creates a [Cache] holding at most capacity entries.
// It fails with [ErrInvalidCapacity] if capacity is outside [1, MaxCapacity]
// and with [ErrInvalidPolicy] if an unknown [ExistingSetPolicy] is supplied.
func New[K comparable, V any](capacity int, opts ...Option) (*Cache[K, V], error) {
	if capacity < 1 || uint64(capacity) > MaxCapacity {
		return nil, capacityError(capacity)
	}
	o := options{policy: SkipVisitedChange}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.policy.valid() {
		return nil, policyError(o.policy)
	}
	c := &Cache[K, V]{
		capacity: uint32(capacity),
		policy:   o.policy,
	}
	c.reset()
	return c, nil
}

// reset (re)allocates the arena and returns every cursor to its
// post-construction value.
func (c *Cache[K, V]) reset() {
	size := int(c.capacity) + 1
	c.index = make(map[K]uint32, c.capacity)
	c.keys = make([]K, size)
	c.values = make([]V, size)
	c.visited = make([]bool, size)
	c.next = make([]uint32, size)
	c.prev = make([]uint32, size)
	c.head, c.tail = 0, 0
	c.freeHead, c.freeTail = 0, 0
	c.bump = 1
	c.hand = 0
}

// SetEvictCallback registers fn to be called synchronously with the key
// and value of every entry removed by the eviction scan.
// Delete and Clear do not invoke it. A nil fn disables the callback.
func (c *Cache[K, V]) SetEvictCallback(fn func(key K, value V)) {
	c.onEvict = fn
}

// Get returns the value stored for key and marks the entry as visited.
// Otherwise, it returns the zero value and false.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	if id, ok := c.index[key]; ok {
		c.visited[id] = true
		return c.values[id], true
	}
	var zero V
	return zero, false
}

// Peek is like [Cache.Get] but leaves the visited bit unchanged.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	if id, ok := c.index[key]; ok {
		return c.values[id], true
	}
	var zero V
	return zero, false
}

// Has reports whether key is resident. It does not mark the entry visited.
func (c *Cache[K, V]) Has(key K) bool {
	_, ok := c.index[key]
	return ok
}

// Set inserts or updates key with value.
//
// Updating a resident key replaces its value in place and applies the
// configured [ExistingSetPolicy]; its position is unchanged.
// Inserting a new key into a full cache evicts exactly one entry first.
// New entries start unvisited.
func (c *Cache[K, V]) Set(key K, value V) {
	if id, ok := c.index[key]; ok {
		c.values[id] = value
		switch c.policy {
		case ForceVisitedFalse:
			c.visited[id] = false
		case ForceVisitedTrue:
			c.visited[id] = true
		}
		return
	}
	if len(c.index) == int(c.capacity) {
		c.evict()
	}
	id := c.allocate()
	c.pushHead(id)
	c.keys[id] = key
	c.values[id] = value
	c.visited[id] = false
	c.index[key] = id
}

// Delete removes key and reports whether it was resident.
func (c *Cache[K, V]) Delete(key K) bool {
	id, ok := c.index[key]
	if !ok {
		return false
	}
	c.discard(id)
	return true
}

// Clear removes every entry and reallocates the arena.
// Capacity, policy and the eviction callback are kept.
func (c *Cache[K, V]) Clear() {
	c.reset()
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	return len(c.index)
}

// Capacity returns the maximum number of resident entries.
func (c *Cache[K, V]) Capacity() int {
	return int(c.capacity)
}

// Policy returns the configured [ExistingSetPolicy].
func (c *Cache[K, V]) Policy() ExistingSetPolicy {
	return c.policy
}

// String implements [fmt.Stringer].
func (c *Cache[K, V]) String() string {
	return fmt.Sprintf("SieveCache(%d)", c.capacity)
}
