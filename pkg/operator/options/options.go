/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package options collects the engine's runtime configuration from flags,
// environment variables, and an optional TOML file, in that order of
// precedence (flags win).
package options

import (
	"errors"
	"flag"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/utils/env"
)

// Options for running this binary
type Options struct {
	*flag.FlagSet
	// Service
	MetricsPort int
	LogLevel    string
	ConfigFile  string
	// Store
	DBURL string
	// Solver
	Solver       string
	Seed         int64
	SolveTimeout time.Duration
	// Mutations
	StrictCompliance bool
	AllOrNothing     bool
	CreatedBy        string
	// Swap matching
	SwapMinScore float64
	SwapTopK     int
}

// fileConfig mirrors the TOML file layout. Only fields present in the file
// override built-in defaults; flags override both.
type fileConfig struct {
	MetricsPort      *int     `toml:"metrics_port"`
	LogLevel         *string  `toml:"log_level"`
	DBURL            *string  `toml:"db_url"`
	Solver           *string  `toml:"solver"`
	Seed             *int64   `toml:"seed"`
	SolveTimeout     *string  `toml:"solve_timeout"`
	StrictCompliance *bool    `toml:"strict_compliance"`
	AllOrNothing     *bool    `toml:"all_or_nothing"`
	CreatedBy        *string  `toml:"created_by"`
	SwapMinScore     *float64 `toml:"swap_min_score"`
	SwapTopK         *int     `toml:"swap_top_k"`
}

// New creates an Options struct and registers CLI flags and environment variables to fill-in the Options struct fields
func New() *Options {
	opts := &Options{}
	f := flag.NewFlagSet("rotad", flag.ContinueOnError)
	opts.FlagSet = f

	f.IntVar(&opts.MetricsPort, "metrics-port", env.WithDefaultInt("METRICS_PORT", 0), "The port the metric endpoint binds to; 0 disables the endpoint")
	f.StringVar(&opts.LogLevel, "log-level", env.WithDefaultString("LOG_LEVEL", "info"), "Log level: debug, info, warn, or error")
	f.StringVar(&opts.ConfigFile, "config", env.WithDefaultString("ROTA_CONFIG", ""), "Path to a TOML configuration file; flags override its values")
	f.StringVar(&opts.DBURL, "db-url", env.WithDefaultString("ROTA_DB_URL", ""), "Postgres connection URL; empty selects the in-memory store")
	f.StringVar(&opts.Solver, "solver", env.WithDefaultString("ROTA_SOLVER", "cpsat"), "Solver adapter: cpsat, lp, or qubo")
	f.Int64Var(&opts.Seed, "seed", env.WithDefaultInt64("ROTA_SEED", 1), "Deterministic solver seed")
	f.DurationVar(&opts.SolveTimeout, "solve-timeout", env.WithDefaultDuration("ROTA_SOLVE_TIMEOUT", 60*time.Second), "Wall-clock budget per solver call")
	f.BoolVar(&opts.StrictCompliance, "strict-compliance", env.WithDefaultBool("ROTA_STRICT_COMPLIANCE", false), "Reject batches whose compliance pre-check finds CRITICAL violations")
	f.BoolVar(&opts.AllOrNothing, "all-or-nothing", env.WithDefaultBool("ROTA_ALL_OR_NOTHING", false), "Roll back the whole batch on the first item failure")
	f.StringVar(&opts.CreatedBy, "created-by", env.WithDefaultString("ROTA_CREATED_BY", "rotad"), "Attribution recorded on assignments this process writes")
	f.Float64Var(&opts.SwapMinScore, "swap-min-score", env.WithDefaultFloat64("ROTA_SWAP_MIN_SCORE", 0.4), "Minimum swap match score in [0, 1]")
	f.IntVar(&opts.SwapTopK, "swap-top-k", env.WithDefaultInt("ROTA_SWAP_TOP_K", 5), "Number of swap candidates returned")
	return opts
}

// MustParse reads the user passed flags, environment variables, config file,
// and default values. Options are validated and panics if an error is returned
func (o *Options) MustParse() *Options {
	err := o.Parse(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		panic(err)
	}
	if err := o.mergeConfigFile(); err != nil {
		panic(err)
	}
	if err := o.Validate(); err != nil {
		panic(err)
	}
	return o
}

// mergeConfigFile fills fields the user did not set on the command line from
// the TOML file, when one was named.
func (o *Options) mergeConfigFile() error {
	if o.ConfigFile == "" {
		return nil
	}
	data, err := os.ReadFile(o.ConfigFile)
	if err != nil {
		return rotaerrors.Wrap(rotaerrors.KindInvalid, err, "reading config file %s", o.ConfigFile)
	}
	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return rotaerrors.Wrap(rotaerrors.KindInvalid, err, "parsing config file %s", o.ConfigFile)
	}

	set := map[string]bool{}
	o.Visit(func(f *flag.Flag) { set[f.Name] = true })
	apply := func(name string, fn func()) {
		if !set[name] {
			fn()
		}
	}
	if cfg.MetricsPort != nil {
		apply("metrics-port", func() { o.MetricsPort = *cfg.MetricsPort })
	}
	if cfg.LogLevel != nil {
		apply("log-level", func() { o.LogLevel = *cfg.LogLevel })
	}
	if cfg.DBURL != nil {
		apply("db-url", func() { o.DBURL = *cfg.DBURL })
	}
	if cfg.Solver != nil {
		apply("solver", func() { o.Solver = *cfg.Solver })
	}
	if cfg.Seed != nil {
		apply("seed", func() { o.Seed = *cfg.Seed })
	}
	if cfg.SolveTimeout != nil {
		if d, err := time.ParseDuration(*cfg.SolveTimeout); err == nil {
			apply("solve-timeout", func() { o.SolveTimeout = d })
		}
	}
	if cfg.StrictCompliance != nil {
		apply("strict-compliance", func() { o.StrictCompliance = *cfg.StrictCompliance })
	}
	if cfg.AllOrNothing != nil {
		apply("all-or-nothing", func() { o.AllOrNothing = *cfg.AllOrNothing })
	}
	if cfg.CreatedBy != nil {
		apply("created-by", func() { o.CreatedBy = *cfg.CreatedBy })
	}
	if cfg.SwapMinScore != nil {
		apply("swap-min-score", func() { o.SwapMinScore = *cfg.SwapMinScore })
	}
	if cfg.SwapTopK != nil {
		apply("swap-top-k", func() { o.SwapTopK = *cfg.SwapTopK })
	}
	return nil
}
