package prom

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/sievecache/cache"
)

func TestAdapter_Counters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	m := New(reg, "sievecache", "test", prometheus.Labels{"cache": "users"})

	c, err := cache.New(cache.Options[string, int]{
		Capacity: 2,
		Shards:   1,
		Metrics:  m,
		Loader: func(_ context.Context, k string) (int, error) {
			if k == "bad" {
				return 0, errors.New("boom")
			}
			return len(k), nil
		},
	})
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Get("zz")
	c.Set("c", 3) // evicts b
	_, err = c.GetOrLoad(context.Background(), "dd")
	require.NoError(t, err) // hand restarts at a, now unvisited
	_, err = c.GetOrLoad(context.Background(), "bad")
	require.Error(t, err)

	// Misses: zz, dd and bad miss on Get before loading.
	assert.InDelta(t, 1, testutil.ToFloat64(m.hits), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.misses), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.evicts.WithLabelValues("policy")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.evicts.WithLabelValues("ttl")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.loads.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.loads.WithLabelValues("error")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.sizeEnt), 0)

	const want = `
# HELP sievecache_test_size_entries Entries resident across all shards
# TYPE sievecache_test_size_entries gauge
sievecache_test_size_entries{cache="users"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "sievecache_test_size_entries"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.loadTime))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg, "sievecache", "dup", nil)
	assert.Panics(t, func() { New(reg, "sievecache", "dup", nil) })
}
