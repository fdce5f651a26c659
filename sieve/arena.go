package sieve

// evict runs the SIEVE scan and releases the first unvisited slot it
// reaches. The cache must be full.
func (c *Cache[K, V]) evict() {
	if c.hand == 0 {
		c.hand = c.tail
	}
	for c.visited[c.hand] {
		c.visited[c.hand] = false
		if c.hand = c.next[c.hand]; c.hand == 0 {
			c.hand = c.tail
		}
	}
	var (
		victim = c.hand
		key    = c.keys[victim]
		value  = c.values[victim]
	)
	// unlink moves the hand to the victim's successor,
	// which is 0 when the victim was the head.
	c.discard(victim)
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}

// discard removes an active slot from every structure
// and returns it to the free list.
func (c *Cache[K, V]) discard(id uint32) {
	var (
		zeroKey   K
		zeroValue V
	)
	c.unlink(id)
	delete(c.index, c.keys[id])
	c.keys[id] = zeroKey
	c.values[id] = zeroValue
	c.visited[id] = false
	c.release(id)
}

// pushHead links id into the active list as the newest entry.
func (c *Cache[K, V]) pushHead(id uint32) {
	if c.head == 0 {
		c.tail = id
	} else {
		c.next[c.head] = id
		c.prev[id] = c.head
	}
	c.head = id
}

// unlink detaches id from the active list.
func (c *Cache[K, V]) unlink(id uint32) {
	next, prev := c.next[id], c.prev[id]
	if next == 0 { // head
		c.head = prev
		if prev != 0 {
			c.next[prev] = 0
		}
	} else if prev != 0 {
		c.next[prev] = next
	}
	if prev == 0 { // tail
		c.tail = next
		if next != 0 {
			c.prev[next] = 0
		}
	} else if next != 0 {
		c.prev[next] = prev
	}
	if c.hand == id {
		c.hand = next
	}
	c.next[id], c.prev[id] = 0, 0
}

// allocate returns an unused slot id: never-used ids first,
// then released ids in release order.
func (c *Cache[K, V]) allocate() uint32 {
	if c.bump <= c.capacity {
		id := c.bump
		c.bump++
		return id
	}
	id := c.freeTail
	if c.freeTail = c.next[id]; c.freeTail == 0 {
		c.freeHead = 0
	}
	c.next[id] = 0
	return id
}

// release appends id to the head of the free list.
func (c *Cache[K, V]) release(id uint32) {
	if c.freeHead == 0 {
		c.freeTail = id
	} else {
		c.next[c.freeHead] = id
	}
	c.freeHead = id
}
