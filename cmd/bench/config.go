package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/IvanBrykalov/sievecache/sieve"
)

// envPrefix namespaces environment variables, e.g. SIEVE_BENCH_CAPACITY.
const envPrefix = "SIEVE_BENCH_"

// config is the benchmark configuration. Sources are layered in order:
// defaults, TOML file (--config), .env file plus environment, then flags
// that were set explicitly on the command line.
type config struct {
	Impl     string   `toml:"impl" env:"IMPL"`
	Capacity int      `toml:"capacity" env:"CAPACITY"`
	Shards   int      `toml:"shards" env:"SHARDS"`
	Policy   string   `toml:"policy" env:"POLICY"` // existing-set policy: skip | false | true
	TTL      duration `toml:"ttl" env:"TTL"`

	Workers  int      `toml:"workers" env:"WORKERS"`
	Duration duration `toml:"duration" env:"DURATION"`
	ReadPct  int      `toml:"reads" env:"READS"`
	Keys     int      `toml:"keys" env:"KEYS"`
	ZipfS    float64  `toml:"zipf_s" env:"ZIPF_S"`
	ZipfV    float64  `toml:"zipf_v" env:"ZIPF_V"`
	Seed     uint64   `toml:"seed" env:"SEED"`
	Preload  int      `toml:"preload" env:"PRELOAD"` // 0 = capacity/2

	MetricsAddr string `toml:"metrics_addr" env:"METRICS_ADDR"` // empty = disabled
	PprofAddr   string `toml:"pprof_addr" env:"PPROF_ADDR"`     // empty = disabled
	LogLevel    string `toml:"log_level" env:"LOG_LEVEL"`

	policy sieve.ExistingSetPolicy
	level  slog.Level
}

func defaultConfig() config {
	return config{
		Impl:        "sieve",
		Capacity:    100_000,
		Policy:      sieve.SkipVisitedChange.String(),
		Workers:     2 * runtime.GOMAXPROCS(0),
		Duration:    duration(10 * time.Second),
		ReadPct:     80,
		Keys:        1_000_000,
		ZipfS:       1.1,
		ZipfV:       1.0,
		Seed:        uint64(time.Now().UnixNano()),
		MetricsAddr: ":8080",
		LogLevel:    "info",
	}
}

// loadConfig parses args and layers every configuration source over the
// defaults. environ holds the process environment (see env.ToMap); values
// from the .env file only fill keys environ does not already define.
// It returns pflag.ErrHelp when usage was requested.
func loadConfig(args []string, environ map[string]string) (config, error) {
	cfg := defaultConfig()

	flags := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	configFile := flags.String("config", "", "TOML configuration file")
	envFile := flags.String("env-file", ".env", "dotenv file (ignored if missing)")
	flags.StringVar(&cfg.Impl, "impl", cfg.Impl, "cache implementation: sieve | lru | arc")
	flags.IntVar(&cfg.Capacity, "cap", cfg.Capacity, "cache capacity (entries)")
	flags.IntVar(&cfg.Shards, "shards", cfg.Shards, "number of shards for sieve (0=auto)")
	flags.StringVar(&cfg.Policy, "policy", cfg.Policy, "existing-set policy for sieve: skip | false | true")
	flags.Var(&cfg.TTL, "ttl", "default TTL for sieve entries (0=none)")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of worker goroutines")
	flags.Var(&cfg.Duration, "duration", "benchmark duration")
	flags.IntVar(&cfg.ReadPct, "reads", cfg.ReadPct, "read percentage [0..100]")
	flags.IntVar(&cfg.Keys, "keys", cfg.Keys, "keyspace size")
	flags.Float64Var(&cfg.ZipfS, "zipf-s", cfg.ZipfS, "Zipf s > 1 (skew)")
	flags.Float64Var(&cfg.ZipfV, "zipf-v", cfg.ZipfV, "Zipf v >= 1")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	flags.IntVar(&cfg.Preload, "preload", cfg.Preload, "preload entries (0 = cap/2)")
	flags.StringVar(&cfg.MetricsAddr, "http", cfg.MetricsAddr, "serve Prometheus metrics at addr (empty = disabled)")
	flags.StringVar(&cfg.PprofAddr, "pprof", cfg.PprofAddr, "serve pprof at addr (e.g. :6060); empty = disabled")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug | info | warn | error")
	if err := flags.Parse(args); err != nil {
		return config{}, err
	}

	// Flags are bound to cfg, so remember the explicit ones and put them
	// back once the lower-priority layers have been applied.
	explicit := make(map[string]string)
	flags.Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })

	if *configFile != "" {
		if _, err := toml.DecodeFile(*configFile, &cfg); err != nil {
			return config{}, fmt.Errorf("config file %s: %w", *configFile, err)
		}
	}

	dotenv, err := godotenv.Read(*envFile)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !flags.Changed("env-file"):
	case err != nil:
		return config{}, fmt.Errorf("env file %s: %w", *envFile, err)
	}
	merged := maps.Clone(dotenv)
	if merged == nil {
		merged = make(map[string]string, len(environ))
	}
	maps.Copy(merged, environ)
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix, Environment: merged}); err != nil {
		return config{}, fmt.Errorf("environment: %w", err)
	}

	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return config{}, err
		}
	}
	err = cfg.validate()
	return cfg, err
}

// validate checks ranges and resolves the parsed policy and log level.
// All problems are reported together.
func (c *config) validate() error {
	var errs []error
	switch c.Impl {
	case "sieve", "lru", "arc":
	default:
		errs = append(errs, fmt.Errorf("impl: unknown implementation %q (use sieve, lru or arc)", c.Impl))
	}
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("capacity: must be positive, got %d", c.Capacity))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers: must be positive, got %d", c.Workers))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration: must be positive, got %s", c.Duration))
	}
	if c.ReadPct < 0 || c.ReadPct > 100 {
		errs = append(errs, fmt.Errorf("reads: must be within [0, 100], got %d", c.ReadPct))
	}
	if c.Keys < 1 {
		errs = append(errs, fmt.Errorf("keys: must be positive, got %d", c.Keys))
	}
	if c.ZipfS <= 1 || c.ZipfV < 1 {
		errs = append(errs, fmt.Errorf("zipf: need s > 1 and v >= 1, got s=%g v=%g", c.ZipfS, c.ZipfV))
	}
	if c.Preload < 0 {
		errs = append(errs, fmt.Errorf("preload: must not be negative, got %d", c.Preload))
	}
	policy, err := sieve.ParseExistingSetPolicy(c.Policy)
	if err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}
	c.policy = policy
	if err := c.level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}

// duration is a time.Duration written as a Go duration string ("10s") in
// TOML files, environment variables and flags.
type duration time.Duration

func (d duration) String() string { return time.Duration(d).String() }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// Set and Type implement pflag.Value.
func (d *duration) Set(s string) error { return d.UnmarshalText([]byte(s)) }
func (*duration) Type() string         { return "duration" }
