// Command bench runs a synthetic Zipf workload against the sharded SIEVE
// cache or a golang-lru baseline and exposes optional pprof/Prometheus
// endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/IvanBrykalov/sievecache/cache"
	pmet "github.com/IvanBrykalov/sievecache/metrics/prom"
)

func main() {
	cfg, err := loadConfig(os.Args[1:], env.ToMap(os.Environ()))
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = bench(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("bench failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func bench(ctx context.Context, cfg config) error {
	// ---- pprof server (on DefaultServeMux) ----
	if cfg.PprofAddr != "" {
		srv := &http.Server{Addr: cfg.PprofAddr, ReadHeaderTimeout: 5 * time.Second}
		defer serve(srv, "pprof")()
	}

	// ---- Prometheus metrics (own registry) ----
	var metrics cache.Metrics = cache.NoopMetrics{}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = pmet.New(reg, "sievecache", "bench", prometheus.Labels{"impl": cfg.Impl})
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		defer serve(srv, "metrics")()
	}

	t, closeTarget, err := newTarget(cfg, metrics)
	if err != nil {
		return fmt.Errorf("build %s cache: %w", cfg.Impl, err)
	}
	defer closeTarget()

	pl := cfg.Preload
	if pl == 0 {
		pl = cfg.Capacity / 2
	}
	preload(t, pl)
	slog.Info("starting workload",
		slog.String("impl", cfg.Impl),
		slog.Int("capacity", cfg.Capacity),
		slog.Int("workers", cfg.Workers),
		slog.Int("preload", pl),
		slog.Duration("duration", time.Duration(cfg.Duration)),
		slog.Uint64("seed", cfg.Seed))

	res, err := run(ctx, cfg, t)
	if err != nil {
		return err
	}

	// ---- Report ----
	fmt.Printf("impl=%s cap=%d shards=%d policy=%s workers=%d keys=%d dur=%v seed=%d\n",
		cfg.Impl, cfg.Capacity, cfg.Shards, cfg.policy, cfg.Workers, cfg.Keys, res.elapsed, cfg.Seed)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		res.ops, float64(res.ops)/res.elapsed.Seconds(), res.reads, res.writes)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", res.hits, res.reads-res.hits, res.hitRate())
	fmt.Printf("Len()=%d\n", t.Len())
	return nil
}

// serve starts srv in the background and returns a function that shuts it down.
func serve(srv *http.Server, name string) func() {
	go func() {
		slog.Info("serving", slog.String("server", name), slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", slog.String("server", name), slog.Any("error", err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
