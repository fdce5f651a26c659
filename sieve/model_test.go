package sieve

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// model is a deliberately simple SIEVE: a slice ordered oldest first and
// the hand as a slice index (-1 when the next scan restarts at the oldest).
// It favors clarity over performance and is the oracle for the arena.
type model struct {
	capacity int
	policy   ExistingSetPolicy
	order    []modelEntry
	hand     int
	evicted  []int
}

type modelEntry struct {
	key, value int
	visited    bool
}

func newModel(capacity int, policy ExistingSetPolicy) *model {
	return &model{capacity: capacity, policy: policy, hand: -1}
}

func (m *model) find(key int) int {
	return slices.IndexFunc(m.order, func(e modelEntry) bool { return e.key == key })
}

func (m *model) get(key int) (int, bool) {
	i := m.find(key)
	if i < 0 {
		return 0, false
	}
	m.order[i].visited = true
	return m.order[i].value, true
}

func (m *model) set(key, value int) {
	if i := m.find(key); i >= 0 {
		m.order[i].value = value
		switch m.policy {
		case ForceVisitedFalse:
			m.order[i].visited = false
		case ForceVisitedTrue:
			m.order[i].visited = true
		}
		return
	}
	if len(m.order) == m.capacity {
		if m.hand < 0 {
			m.hand = 0
		}
		for m.order[m.hand].visited {
			m.order[m.hand].visited = false
			if m.hand++; m.hand == len(m.order) {
				m.hand = 0
			}
		}
		m.evicted = append(m.evicted, m.order[m.hand].key)
		m.removeAt(m.hand)
	}
	m.order = append(m.order, modelEntry{key: key, value: value})
}

func (m *model) delete(key int) bool {
	i := m.find(key)
	if i < 0 {
		return false
	}
	m.removeAt(i)
	return true
}

// removeAt keeps the hand on the same logical entry, or on the removed
// entry's successor (none if it was the newest).
func (m *model) removeAt(i int) {
	m.order = slices.Delete(m.order, i, i+1)
	switch {
	case m.hand > i:
		m.hand--
	case m.hand == i && i == len(m.order):
		m.hand = -1
	}
}

func (m *model) clear() {
	m.order = m.order[:0]
	m.hand = -1
}

func (m *model) keys() []int {
	keys := make([]int, len(m.order))
	for i, e := range m.order {
		keys[i] = e.key
	}
	return keys
}

// checkInvariants walks the arena and verifies the structural invariants
// that must hold between operations.
func checkInvariants[K comparable, V any](tb testing.TB, c *Cache[K, V]) {
	tb.Helper()
	var zeroKey K
	if c.keys[0] != zeroKey || c.visited[0] || c.next[0] != 0 || c.prev[0] != 0 {
		tb.Fatalf("slot 0 holds data: key=%v visited=%t next=%d prev=%d",
			c.keys[0], c.visited[0], c.next[0], c.prev[0])
	}
	if c.bump < 1 || c.bump > c.capacity+1 {
		tb.Fatalf("bump cursor %d outside [1, %d]", c.bump, c.capacity+1)
	}
	active := make(map[uint32]bool, len(c.index))
	var last uint32
	for id := c.tail; id != 0; id = c.next[id] {
		if active[id] {
			tb.Fatalf("active list revisits slot %d", id)
		}
		if id >= c.bump {
			tb.Fatalf("active slot %d was never allocated (bump %d)", id, c.bump)
		}
		if c.prev[id] != last {
			tb.Fatalf("slot %d prev=%d, want %d", id, c.prev[id], last)
		}
		if got, ok := c.index[c.keys[id]]; !ok || got != id {
			tb.Fatalf("slot %d key %v indexed at %d (present=%t)", id, c.keys[id], got, ok)
		}
		active[id] = true
		last = id
	}
	if last != c.head {
		tb.Fatalf("active walk ended at %d, head is %d", last, c.head)
	}
	if len(active) != len(c.index) || len(active) > int(c.capacity) {
		tb.Fatalf("active slots %d, indexed keys %d, capacity %d",
			len(active), len(c.index), c.capacity)
	}
	free := make(map[uint32]bool)
	last = 0
	for id := c.freeTail; id != 0; id = c.next[id] {
		if free[id] || active[id] {
			tb.Fatalf("free slot %d repeated or active", id)
		}
		if c.prev[id] != 0 || c.visited[id] {
			tb.Fatalf("free slot %d carries prev=%d visited=%t", id, c.prev[id], c.visited[id])
		}
		free[id] = true
		last = id
	}
	if last != c.freeHead {
		tb.Fatalf("free walk ended at %d, freeHead is %d", last, c.freeHead)
	}
	unallocated := int(c.capacity) + 1 - int(c.bump)
	if want := int(c.capacity) - len(active); len(free)+unallocated != want {
		tb.Fatalf("free %d + unallocated %d, want %d", len(free), unallocated, want)
	}
	if c.hand != 0 && !active[c.hand] {
		tb.Fatalf("hand %d is not an active slot", c.hand)
	}
}

const (
	opSet = iota
	opGet
	opDelete
	opPeek
	opClear
	opCount
)

// runOps interprets data as an operation stream and checks the cache
// against the model after every step.
func runOps(t *testing.T, capacity int, policy ExistingSetPolicy, keySpace int, data []byte) {
	t.Helper()
	c, err := New[int, int](capacity, WithExistingSetPolicy(policy))
	if err != nil {
		t.Fatal(err)
	}
	m := newModel(capacity, policy)
	var evicted []int
	c.SetEvictCallback(func(key, _ int) { evicted = append(evicted, key) })

	for step := 0; step+1 < len(data); step += 2 {
		op, key := int(data[step])%opCount, int(data[step+1])%keySpace
		switch op {
		case opSet:
			c.Set(key, step)
			m.set(key, step)
		case opGet:
			got, gotOK := c.Get(key)
			want, wantOK := m.get(key)
			if got != want || gotOK != wantOK {
				t.Fatalf("step %d Get(%d) = %d,%t want %d,%t", step, key, got, gotOK, want, wantOK)
			}
		case opDelete:
			if got, want := c.Delete(key), m.delete(key); got != want {
				t.Fatalf("step %d Delete(%d) = %t want %t", step, key, got, want)
			}
		case opPeek:
			_, gotOK := c.Peek(key)
			if wantOK := m.find(key) >= 0; gotOK != wantOK || c.Has(key) != wantOK {
				t.Fatalf("step %d Peek/Has(%d) = %t want %t", step, key, gotOK, wantOK)
			}
		case opClear:
			if data[step+1]%8 != 0 { // keep clears rare
				continue
			}
			c.Clear()
			m.clear()
		}
		checkInvariants(t, c)
		if diff := cmp.Diff(m.keys(), slices.Collect(c.Keys()), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("step %d keys mismatch (-model +cache):\n%s", step, diff)
		}
		if diff := cmp.Diff(m.evicted, evicted, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("step %d evictions mismatch (-model +cache):\n%s", step, diff)
		}
	}
}

func TestModelRandomOps(t *testing.T) {
	t.Parallel()
	policies := []ExistingSetPolicy{SkipVisitedChange, ForceVisitedFalse, ForceVisitedTrue}
	for _, capacity := range []int{1, 2, 3, 7, 16} {
		for _, policy := range policies {
			t.Run(fmt.Sprintf("cap%d/%s", capacity, policy), func(t *testing.T) {
				t.Parallel()
				rng := rand.New(rand.NewPCG(uint64(capacity), uint64(policy)))
				data := make([]byte, 4096)
				for i := range data {
					data[i] = byte(rng.Uint32())
				}
				runOps(t, capacity, policy, capacity*3, data)
			})
		}
	}
}

func FuzzModel(f *testing.F) {
	f.Add(uint8(2), uint8(0), []byte{})
	f.Add(uint8(2), uint8(0), []byte{0, 1, 1, 1, 0, 2, 0, 3, 0, 2})
	f.Add(uint8(3), uint8(1), []byte{0, 1, 0, 2, 2, 1, 2, 2, 0, 3, 0, 4, 0, 5})
	f.Add(uint8(7), uint8(2), []byte("sievecache"))
	f.Fuzz(func(t *testing.T, capacity, policy uint8, data []byte) {
		const limit = 1 << 12
		if len(data) > limit {
			data = data[:limit]
		}
		runOps(t, int(capacity%16)+1, ExistingSetPolicy(policy%3), 24, data)
	})
}

// Deleting several entries leaves a multi-slot free list; recycled slots
// must come back without their old free-list links.
func TestRecycledSlotsStartUnlinked(t *testing.T) {
	t.Parallel()
	c, err := New[int, int](4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 4 {
		c.Set(i, i)
	}
	c.Delete(0)
	c.Delete(1)
	c.Delete(2)
	checkInvariants(t, c)
	c.Set(10, 10)
	checkInvariants(t, c)
	c.Set(11, 11)
	c.Set(12, 12)
	checkInvariants(t, c)
	if got, want := slices.Collect(c.Keys()), []int{3, 10, 11, 12}; !slices.Equal(got, want) {
		t.Fatalf("keys %v, want %v", got, want)
	}
	if c.freeHead != 0 || c.freeTail != 0 {
		t.Fatalf("free list should be drained: head=%d tail=%d", c.freeHead, c.freeTail)
	}
}

// The hand resumes at the victim's successor; after evicting the head it
// is 0 and the following scan restarts at the tail.
func TestHandResumesAfterVictim(t *testing.T) {
	t.Parallel()
	c, err := New[string, int](3)
	if err != nil {
		t.Fatal(err)
	}
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Get("a")
	c.Get("b")
	c.Set("d", 4) // clears a, b; evicts c (head)
	if c.hand != 0 {
		t.Fatalf("hand = %d after evicting head, want 0", c.hand)
	}
	c.Set("e", 5) // restarts at tail: a is unvisited now
	if c.Has("a") || !c.Has("b") || !c.Has("d") {
		t.Fatalf("unexpected residents %v", slices.Collect(c.Keys()))
	}
	c.Set("f", 6) // hand at b (a's successor)
	if c.Has("b") {
		t.Fatalf("b should be evicted, residents %v", slices.Collect(c.Keys()))
	}
	checkInvariants(t, c)
}
