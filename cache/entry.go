package cache

// entry is what a shard stores in its engine: the caller's value and an
// absolute deadline in UnixNano (0 = no TTL).
type entry[V any] struct {
	val V
	exp int64
}

func (e entry[V]) expired(now int64) bool {
	return e.exp != 0 && now > e.exp
}
