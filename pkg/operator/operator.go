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

// Package operator assembles the engine: store, solver adapter, pipelines,
// and observability, wired from Options. The Core it produces is the whole
// in-process API surface collaborators expose over HTTP.
package operator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/utils/clock"

	"github.com/gmesched/rota/pkg/batch"
	"github.com/gmesched/rota/pkg/calendar"
	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/events"
	"github.com/gmesched/rota/pkg/generation"
	"github.com/gmesched/rota/pkg/metrics"
	"github.com/gmesched/rota/pkg/operator/options"
	"github.com/gmesched/rota/pkg/resilience"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/scheduling/constraints"
	"github.com/gmesched/rota/pkg/solver"
	"github.com/gmesched/rota/pkg/solver/cpsat"
	"github.com/gmesched/rota/pkg/solver/linear"
	"github.com/gmesched/rota/pkg/solver/qubo"
	"github.com/gmesched/rota/pkg/store"
	"github.com/gmesched/rota/pkg/store/memory"
	"github.com/gmesched/rota/pkg/store/postgres"
	"github.com/gmesched/rota/pkg/swaps"
	"github.com/gmesched/rota/pkg/validation"
)

// Core is the assembled engine. All public operations hang off it.
type Core struct {
	Store     store.Store
	Adapter   solver.Adapter
	Registry  *scheduling.Registry
	Calendar  *calendar.Calendar
	Generator *generation.Generator
	Validator *validation.Validator
	Batches   *batch.Pipeline
	Matcher   *swaps.Matcher
	Applier   *swaps.Applier
	Analyzer  *resilience.Analyzer
	Recorder  events.Recorder

	opts  *options.Options
	log   *zap.Logger
	close func() error
}

// NewLogger builds the process logger at the configured level.
func NewLogger(opts *options.Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, rotaerrors.Wrap(rotaerrors.KindInvalid, err, "parsing log level %q", opts.LogLevel)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// NewCore wires every component from options. Callers own Close.
func NewCore(ctx context.Context, opts *options.Options, log *zap.Logger) (*Core, error) {
	clk := clock.RealClock{}

	var s store.Store
	closeStore := func() error { return nil }
	if opts.DBURL != "" {
		pg, err := postgres.Open(ctx, opts.DBURL, clk)
		if err != nil {
			return nil, err
		}
		s = pg
		closeStore = pg.Close
	} else {
		s = memory.NewStore(clk)
		log.Warn("no db-url configured, using the in-memory store")
	}

	adapter, err := adapterFor(opts.Solver, log)
	if err != nil {
		return nil, err
	}

	recorder := events.NewDedupeRecorder(events.NewLoadSheddingRecorder(events.NewRecorder(log)))
	registry := scheduling.NewRegistry()
	constraints.Register(registry)

	core := &Core{
		Store:     s,
		Adapter:   adapter,
		Registry:  registry,
		Calendar:  calendar.New(),
		Generator: generation.NewGenerator(s, adapter, clk, recorder, log),
		Validator: validation.NewValidator(s, clk, recorder, log),
		Batches:   batch.NewPipeline(s, clk, recorder, log),
		Matcher:   swaps.NewMatcher(s, clk, recorder, log).WithThresholds(opts.SwapMinScore, opts.SwapTopK),
		Applier:   swaps.NewApplier(s, clk, log),
		Analyzer:  resilience.NewAnalyzer(s, clk, recorder, log),
		Recorder:  recorder,
		opts:      opts,
		log:       log,
		close:     closeStore,
	}
	if opts.MetricsPort > 0 {
		core.serveMetrics(opts.MetricsPort)
	}
	return core, nil
}

func adapterFor(name string, log *zap.Logger) (solver.Adapter, error) {
	switch name {
	case "cpsat":
		return cpsat.New(log), nil
	case "lp":
		return linear.New(log), nil
	case "qubo":
		return qubo.New(log), nil
	}
	return nil, rotaerrors.Invalid("unknown solver %q", name)
}

func (c *Core) serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.log.Error("metrics server failed", zap.Error(err))
		}
	}()
}

func (c *Core) Close() error { return c.close() }

// GenerateSchedule solves and persists the period with the default
// constraint sets.
func (c *Core) GenerateSchedule(ctx context.Context, start, end time.Time) (*generation.Result, error) {
	return c.Generator.Generate(ctx, generation.Request{
		Start:     start,
		End:       end,
		Hard:      constraints.DefaultHard(),
		Soft:      constraints.DefaultSoft(),
		Seed:      c.opts.Seed,
		Timeout:   c.opts.SolveTimeout,
		CreatedBy: c.opts.CreatedBy,
	})
}

// ValidateSchedule re-checks the period with the default hard set.
func (c *Core) ValidateSchedule(ctx context.Context, start, end time.Time) (*validation.Report, error) {
	return c.Validator.Validate(ctx, start, end, constraints.DefaultHard())
}

func (c *Core) batchOptions() batch.Options {
	return batch.Options{
		AllOrNothing: c.opts.AllOrNothing,
		Strict:       c.opts.StrictCompliance,
		CreatedBy:    c.opts.CreatedBy,
	}
}

func (c *Core) BatchCreate(ctx context.Context, items []batch.CreateItem) (*batch.Result, error) {
	return c.Batches.Create(ctx, items, c.batchOptions())
}

func (c *Core) BatchUpdate(ctx context.Context, items []batch.UpdateItem) (*batch.Result, error) {
	return c.Batches.Update(ctx, items, c.batchOptions())
}

func (c *Core) BatchDelete(ctx context.Context, items []batch.DeleteItem) (*batch.Result, error) {
	return c.Batches.Delete(ctx, items, c.batchOptions())
}

// MatchSwap ranks counterparts for a pending swap.
func (c *Core) MatchSwap(ctx context.Context, swapID uuid.UUID) ([]swaps.Candidate, error) {
	return c.Matcher.Match(ctx, swapID)
}

// AnalyzeResilience runs one resilience sub-engine over the period.
func (c *Core) AnalyzeResilience(ctx context.Context, start, end time.Time, kind resilience.Kind, cascade *resilience.CascadeParams, spc *resilience.SPCParams) (*resilience.Analysis, error) {
	return c.Analyzer.Analyze(ctx, start, end, kind, cascade, spc)
}

// BlockDates resolves an academic calendar block to its span.
func (c *Core) BlockDates(n, academicYear int) (calendar.Span, error) {
	return c.Calendar.BlockDates(n, academicYear)
}

// BlockNumberForDate maps a date to (block number, academic year).
func (c *Core) BlockNumberForDate(d time.Time) (int, int) {
	return c.Calendar.BlockNumberForDate(d)
}
