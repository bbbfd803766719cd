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

package solver

import (
	"context"
	"time"
)

type Status string

const (
	StatusOptimal    Status = "OPTIMAL"
	StatusFeasible   Status = "FEASIBLE"
	StatusInfeasible Status = "INFEASIBLE"
	StatusTimeout    Status = "TIMEOUT"
	StatusEmpty      Status = "EMPTY"
	StatusError      Status = "ERROR"
)

// Options tune one solve call. Identical (model, Options) must produce an
// identical Result for every adapter.
type Options struct {
	Seed    int64
	Timeout time.Duration
}

type Statistics struct {
	VarCount   int
	Iterations int
	Conflicts  int
	Duration   time.Duration
}

// Result is the adapter's decision. Selected holds the chosen variable
// indices in ascending order, auxiliary variables excluded.
type Result struct {
	Status     Status
	Selected   []int
	Objective  float64
	Statistics Statistics
}

// Adapter is the solver port. Implementations must return StatusEmpty for a
// model with no decision variables and honour the wall-clock timeout by
// polling the context and Options.Timeout.
type Adapter interface {
	Name() string
	Solve(ctx context.Context, m *Model, opts Options) (*Result, error)
}

// SelectedIndices converts a bitset into the Result form, dropping aux vars.
func SelectedIndices(m *Model, selected []bool) []int {
	var out []int
	for i := range selected {
		if selected[i] && !m.VarAt(i).Aux {
			out = append(out, i)
		}
	}
	return out
}

// DeadlineOf resolves the effective wall-clock deadline from the context and
// options; a missing deadline falls back far enough out to never bind.
func DeadlineOf(ctx context.Context, opts Options, now time.Time) time.Time {
	deadline := now.Add(24 * time.Hour)
	if opts.Timeout > 0 {
		deadline = now.Add(opts.Timeout)
	}
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

// EmptyObjective reports whether the model carries no soft terms at all, in
// which case any feasible solution is optimal.
func EmptyObjective(m *Model) bool {
	for i := 0; i < m.NumVars(); i++ {
		if m.Reward(i) != 0 {
			return false
		}
	}
	return len(m.QuadraticPenalties()) == 0
}
