package util

import (
	"math/bits"
	"runtime"
)

// ReasonableShardCount picks a default shard count from CPU parallelism:
// nextPow2(2*GOMAXPROCS), clamped to [1..256].
func ReasonableShardCount() int {
	p := max(runtime.GOMAXPROCS(0), 1)
	return min(int(NextPow2(uint64(p*2))), 256)
}

// FitShards rounds shards up to a power of two (0 or less selects
// ReasonableShardCount) and then halves it until every shard can hold at
// least one of capacity entries.
func FitShards(shards, capacity int) int {
	n := shards
	if n <= 0 {
		n = ReasonableShardCount()
	} else {
		n = int(NextPow2(uint64(n)))
	}
	for n > 1 && n > capacity {
		n >>= 1
	}
	return n
}

// ShardIndex maps a 64-bit hash to a shard index.
// Shard counts that are a power of two use a mask; others use modulo.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(shards)) {
		return int(hash & uint64(shards-1))
	}
	return int(hash % uint64(shards))
}

// IsPowerOfTwo reports whether x is a power of two (> 0).
func IsPowerOfTwo(x uint64) bool {
	return x != 0 && x&(x-1) == 0
}

// NextPow2 returns the smallest power of two >= x (1 for x <= 1).
// Results that would not fit in 64 bits are clamped to 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	n := bits.Len64(x - 1)
	if n >= 64 {
		return 1 << 63
	}
	return 1 << n
}
