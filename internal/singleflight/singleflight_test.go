package singleflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestDo_Coalesces(t *testing.T) {
	t.Parallel()

	var (
		g       Group[string, int]
		calls   atomic.Int32
		release = make(chan struct{})
		started = make(chan struct{})
		once    sync.Once
	)
	fn := func() (int, error) {
		calls.Add(1)
		once.Do(func() { close(started) })
		<-release
		return 42, nil
	}

	var eg errgroup.Group
	var sharedCount atomic.Int32
	eg.Go(func() error {
		v, shared, err := g.Do(context.Background(), "k", fn)
		if err != nil || v != 42 {
			return errors.New("leader got wrong result")
		}
		if shared {
			sharedCount.Add(1)
		}
		return nil
	})
	<-started
	const followers = 8
	for range followers {
		eg.Go(func() error {
			v, shared, err := g.Do(context.Background(), "k", fn)
			if err != nil || v != 42 {
				return errors.New("follower got wrong result")
			}
			if shared {
				sharedCount.Add(1)
			}
			return nil
		})
	}
	for waiting(&g, "k") < followers {
		time.Sleep(time.Millisecond)
	}
	close(release)
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
	if sharedCount.Load() == 0 {
		t.Fatal("no caller observed a shared result")
	}
}

func waiting[K comparable, V any](g *Group[K, V], key K) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.m[key]; ok {
		return c.dups
	}
	return 0
}

func TestDo_FollowerCancel(t *testing.T) {
	t.Parallel()

	var g Group[int, int]
	release := make(chan struct{})
	started := make(chan struct{})
	leaderDone := make(chan error, 1)
	go func() {
		_, _, err := g.Do(context.Background(), 1, func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		leaderDone <- err
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := g.Do(ctx, 1, func() (int, error) { return 2, nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled follower err = %v", err)
	}
	close(release)
	if err := <-leaderDone; err != nil {
		t.Fatalf("leader err = %v", err)
	}
}

func TestDo_PanicReleasesFollowers(t *testing.T) {
	t.Parallel()

	var g Group[string, int]
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("leader panic was swallowed")
			}
		}()
		g.Do(context.Background(), "p", func() (int, error) { panic("boom") })
	}()
	v, _, err := g.Do(context.Background(), "p", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("after panic: v=%d err=%v", v, err)
	}
}
