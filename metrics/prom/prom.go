// Package prom exports cache metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/sievecache/cache"
)

// Adapter implements cache.Metrics on top of Prometheus collectors.
// Create one Adapter per cache; constLabels tell caches on one registry apart.
type Adapter struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	evicts   *prometheus.CounterVec
	loads    *prometheus.CounterVec
	loadTime prometheus.Histogram
	sizeEnt  prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
//
// New panics if the metrics are already registered on reg.
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Lookups answered by a resident, unexpired entry",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Lookups that found no live entry",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Entries dropped by the SIEVE scan (policy) or on expiry (ttl)",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "loads_total",
				Help:        "GetOrLoad loader invocations by outcome (ok, error)",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
		loadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "load_duration_seconds",
			Help:        "Wall time spent inside the GetOrLoad loader",
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			ConstLabels: constLabels,
		}),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Entries resident across all shards",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.loads, a.loadTime, a.sizeEnt)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict counts an eviction under the EvictReason label ("policy" or "ttl").
func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(r.String()).Inc()
}

// Size records the cache-wide entry count reported after each change.
func (a *Adapter) Size(entries int) {
	a.sizeEnt.Set(float64(entries))
}

// Load counts one loader call under its outcome label and observes its latency.
func (a *Adapter) Load(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	a.loads.WithLabelValues(result).Inc()
	a.loadTime.Observe(d.Seconds())
}

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
