// Package singleflight coalesces concurrent loads of the same cache key.
package singleflight

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanicked is reported to followers when the leader's fn panicked.
var ErrPanicked = errors.New("singleflight: load panicked")

// Group runs at most one fn per key at a time. Callers arriving while a
// call for the same key is in flight wait for its result instead of
// starting their own.
//
// The zero Group is ready to use.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed once val/err are published
	val  V
	err  error
	dups int
}

// Do runs fn for key unless a call for key is already in flight, in which
// case it waits for that call. shared reports whether the result was
// delivered to more than one caller.
//
// Cancelling ctx releases a waiting follower with ctx.Err(); it never
// interrupts the leader. Pass ctx into fn if the work itself should stop.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, shared bool, err error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, true, c.err
		case <-ctx.Done():
			var zero V
			return zero, true, ctx.Err()
		}
	}
	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	g.mu.Lock()
	shared = c.dups > 0
	g.mu.Unlock()
	return c.val, shared, c.err
}

// run executes fn and publishes its outcome. A panic is re-raised after
// followers have been released with ErrPanicked.
func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	normalReturn := false
	defer func() {
		var recovered any
		if !normalReturn {
			recovered = recover()
			c.err = fmt.Errorf("%w: %v", ErrPanicked, recovered)
		}
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
		close(c.done)
		if !normalReturn {
			panic(recovered)
		}
	}()
	c.val, c.err = fn()
	normalReturn = true
}
