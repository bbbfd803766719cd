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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmesched/rota/pkg/batch"
	"github.com/gmesched/rota/pkg/operator"
	"github.com/gmesched/rota/pkg/operator/options"
	"github.com/gmesched/rota/pkg/resilience"
	"github.com/gmesched/rota/pkg/validation"
)

func main() {
	opts := options.New()
	var (
		op        string
		startStr  string
		endStr    string
		inputPath string
		swapID    string
		kind      string
		blockNum  int
		year      int
	)
	opts.StringVar(&op, "op", "generate", "Operation: generate, validate, batch-create, batch-update, batch-delete, match-swap, analyze, block-dates, block-number")
	opts.StringVar(&startStr, "start", "", "Period start date (YYYY-MM-DD)")
	opts.StringVar(&endStr, "end", "", "Period end date, exclusive (YYYY-MM-DD)")
	opts.StringVar(&inputPath, "input", "", "JSON input file for batch operations")
	opts.StringVar(&swapID, "swap-id", "", "Swap record ID for match-swap")
	opts.StringVar(&kind, "kind", "n1", "Resilience analysis kind: n1, n2, cascade, or spc")
	opts.IntVar(&blockNum, "block", 1, "Block number for block-dates")
	opts.IntVar(&year, "year", 0, "Academic year for block-dates; 0 means the current one")
	opts.MustParse()

	log, err := operator.NewLogger(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := operator.NewCore(ctx, opts, log)
	if err != nil {
		log.Fatal("assembling engine", zap.Error(err))
	}
	defer func() { _ = core.Close() }()

	out, err := run(ctx, core, op, runArgs{
		start: startStr, end: endStr, input: inputPath,
		swapID: swapID, kind: kind, block: blockNum, year: year,
	})
	if err != nil {
		log.Fatal("operation failed", zap.String("op", op), zap.Error(err))
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal("encoding result", zap.Error(err))
	}
	if report, ok := out.(*validation.Report); ok && report.CriticalCount() > 0 {
		// Scripted callers treat critical findings as a failed check.
		os.Exit(2)
	}
}

type runArgs struct {
	start, end, input, swapID, kind string
	block, year                     int
}

func run(ctx context.Context, core *operator.Core, op string, args runArgs) (any, error) {
	switch op {
	case "generate":
		start, end, err := parsePeriod(args.start, args.end)
		if err != nil {
			return nil, err
		}
		return core.GenerateSchedule(ctx, start, end)
	case "validate":
		start, end, err := parsePeriod(args.start, args.end)
		if err != nil {
			return nil, err
		}
		return core.ValidateSchedule(ctx, start, end)
	case "batch-create":
		var items []batch.CreateItem
		if err := readInput(args.input, &items); err != nil {
			return nil, err
		}
		return core.BatchCreate(ctx, items)
	case "batch-update":
		var items []batch.UpdateItem
		if err := readInput(args.input, &items); err != nil {
			return nil, err
		}
		return core.BatchUpdate(ctx, items)
	case "batch-delete":
		var items []batch.DeleteItem
		if err := readInput(args.input, &items); err != nil {
			return nil, err
		}
		return core.BatchDelete(ctx, items)
	case "match-swap":
		id, err := uuid.Parse(args.swapID)
		if err != nil {
			return nil, fmt.Errorf("parsing swap id %q, %w", args.swapID, err)
		}
		return core.MatchSwap(ctx, id)
	case "analyze":
		start, end, err := parsePeriod(args.start, args.end)
		if err != nil {
			return nil, err
		}
		var params analyzeInput
		if args.input != "" {
			if err := readInput(args.input, &params); err != nil {
				return nil, err
			}
		}
		return core.AnalyzeResilience(ctx, start, end, resilience.Kind(args.kind), params.Cascade, params.SPC)
	case "block-dates":
		year := args.year
		if year == 0 {
			_, year = core.BlockNumberForDate(time.Now().UTC())
		}
		return core.BlockDates(args.block, year)
	case "block-number":
		d, err := time.Parse("2006-01-02", args.start)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q, %w", args.start, err)
		}
		n, y := core.BlockNumberForDate(d)
		return map[string]int{"block": n, "academic_year": y}, nil
	}
	return nil, fmt.Errorf("unknown operation %q", op)
}

type analyzeInput struct {
	Cascade *resilience.CascadeParams `json:"cascade,omitempty"`
	SPC     *resilience.SPCParams     `json:"spc,omitempty"`
}

func parsePeriod(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing start date %q, %w", startStr, err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing end date %q, %w", endStr, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s not after start %s", endStr, startStr)
	}
	return start, end, nil
}

func readInput(path string, v any) error {
	if path == "" {
		return fmt.Errorf("operation requires -input")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading input %s, %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing input %s, %w", path, err)
	}
	return nil
}
