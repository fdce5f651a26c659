package sieve

import "iter"

// Iteration walks the active list from tail to head, which is the order
// keys were first inserted. The loop body may delete or insert entries:
// after each yield the walk continues from the current entry if it is
// still resident, otherwise from its recorded successor if that one still
// is, and stops when neither survived.

// walk calls visit for every active slot until visit returns false.
func (c *Cache[K, V]) walk(visit func(id uint32) bool) {
	for id := c.tail; id != 0; {
		key, next := c.keys[id], c.next[id]
		if !visit(id) {
			return
		}
		switch {
		case c.holds(id, key):
			id = c.next[id]
		case next != 0 && c.holds(next, c.keys[next]):
			id = next
		default:
			return
		}
	}
}

// holds reports whether slot id is active and stores key.
func (c *Cache[K, V]) holds(id uint32, key K) bool {
	got, ok := c.index[key]
	return ok && got == id && c.keys[id] == key
}

// Keys returns an iterator over resident keys in insertion order.
func (c *Cache[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		c.walk(func(id uint32) bool { return yield(c.keys[id]) })
	}
}

// Values returns an iterator over resident values in key insertion order.
func (c *Cache[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		c.walk(func(id uint32) bool { return yield(c.values[id]) })
	}
}

// All returns an iterator over resident key/value pairs in insertion order.
// Iterating does not mark entries as visited.
func (c *Cache[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		c.walk(func(id uint32) bool { return yield(c.keys[id], c.values[id]) })
	}
}

// ForEach calls fn for every resident entry in insertion order,
// passing the cache itself as the last argument.
func (c *Cache[K, V]) ForEach(fn func(value V, key K, c *Cache[K, V])) {
	for key, value := range c.All() {
		fn(value, key, c)
	}
}
