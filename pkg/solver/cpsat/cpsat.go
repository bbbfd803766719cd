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

// Package cpsat implements the mandatory constraint-programming adapter: a
// boolean backtracking search with bounds propagation over the model's
// linear constraints. It is complete (proves infeasibility) and
// deterministic for a given seed.
package cpsat

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/gmesched/rota/pkg/solver"
)

const (
	unknown int8 = -1
	fals    int8 = 0
	tru     int8 = 1
)

// deadlineCheckInterval is how many search nodes pass between wall-clock
// polls; cancellation is cooperative per the concurrency contract.
const deadlineCheckInterval = 256

type Adapter struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Adapter {
	return &Adapter{log: log.Named("cpsat")}
}

func (a *Adapter) Name() string { return "cpsat" }

func (a *Adapter) Solve(ctx context.Context, m *solver.Model, opts solver.Options) (*solver.Result, error) {
	start := time.Now()
	if m.NumVars() == 0 {
		return &solver.Result{Status: solver.StatusEmpty}, nil
	}
	if i, bad := m.Inconsistent(); bad {
		v := m.VarAt(i)
		a.log.Warn("model pins a variable both on and off",
			zap.Int("person", v.Person), zap.Int("block", v.Block), zap.Int("template", v.Template))
		return &solver.Result{Status: solver.StatusInfeasible, Statistics: solver.Statistics{VarCount: m.NumVars()}}, nil
	}

	s := &search{
		model:    m,
		values:   make([]int8, m.NumVars()),
		order:    branchOrder(m, opts.Seed),
		deadline: solver.DeadlineOf(ctx, opts, start),
	}
	for i := range s.values {
		s.values[i] = unknown
	}
	for i := 0; i < m.NumVars(); i++ {
		if m.IsFixed(i) {
			s.values[i] = tru
		}
		if m.IsForbidden(i) {
			s.values[i] = fals
		}
	}

	found := s.propagate() && s.dfs(ctx, 0)
	stats := solver.Statistics{
		VarCount:   m.NumVars(),
		Iterations: s.nodes,
		Conflicts:  s.conflicts,
		Duration:   time.Since(start),
	}
	if s.timedOut {
		return &solver.Result{Status: solver.StatusTimeout, Statistics: stats}, nil
	}
	if !found {
		return &solver.Result{Status: solver.StatusInfeasible, Statistics: stats}, nil
	}

	selected := make([]bool, m.NumVars())
	for i, v := range s.values {
		selected[i] = v == tru
	}
	status := solver.StatusFeasible
	if solver.EmptyObjective(m) {
		// Without soft terms any feasible solution is optimal.
		status = solver.StatusOptimal
	}
	return &solver.Result{
		Status:     status,
		Selected:   solver.SelectedIndices(m, selected),
		Objective:  m.ObjectiveValue(selected),
		Statistics: stats,
	}, nil
}

// branchOrder ranks variables by reward descending so preferred assignments
// are explored first; the seed shuffles ties to de-bias the search while
// staying reproducible.
func branchOrder(m *solver.Model, seed int64) []int {
	order := make([]int, m.NumVars())
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	tiebreak := make([]int, m.NumVars())
	for i := range tiebreak {
		tiebreak[i] = rng.Int()
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := m.Reward(order[a]), m.Reward(order[b])
		if ra != rb {
			return ra > rb
		}
		return tiebreak[order[a]] < tiebreak[order[b]]
	})
	return order
}

type search struct {
	model     *solver.Model
	values    []int8
	order     []int
	deadline  time.Time
	nodes     int
	conflicts int
	timedOut  bool
}

// dfs assigns variables in branch order, propagating after each decision.
// pos indexes into s.order.
func (s *search) dfs(ctx context.Context, pos int) bool {
	s.nodes++
	if s.nodes%deadlineCheckInterval == 0 {
		if time.Now().After(s.deadline) || ctx.Err() != nil {
			s.timedOut = true
			return false
		}
	}
	// Skip already-determined variables.
	for pos < len(s.order) && s.values[s.order[pos]] != unknown {
		pos++
	}
	if pos == len(s.order) {
		return true
	}
	v := s.order[pos]
	for _, value := range s.valueOrder(v) {
		saved := make([]int8, len(s.values))
		copy(saved, s.values)
		s.values[v] = value
		if s.propagate() && s.dfs(ctx, pos+1) {
			return true
		}
		if s.timedOut {
			return false
		}
		s.conflicts++
		copy(s.values, saved)
	}
	return false
}

// valueOrder tries the rewarded polarity first; unrewarded variables default
// to off, which keeps solutions sparse and lets GE constraints pull in what
// they need through propagation.
func (s *search) valueOrder(v int) [2]int8 {
	if s.model.Reward(v) > 0 {
		return [2]int8{tru, fals}
	}
	return [2]int8{fals, tru}
}

// propagate runs bounds reasoning over all linear constraints to fixpoint.
// Returns false on wipeout.
func (s *search) propagate() bool {
	for changed := true; changed; {
		changed = false
		for _, lin := range s.model.Linears() {
			minSum, maxSum := 0.0, 0.0
			for idx, vi := range lin.Vars {
				c := lin.Coeffs[idx]
				switch s.values[vi] {
				case tru:
					minSum += c
					maxSum += c
				case unknown:
					if c < 0 {
						minSum += c
					} else {
						maxSum += c
					}
				}
			}
			if lin.Op == solver.OpLE || lin.Op == solver.OpEQ {
				if minSum > lin.Bound+1e-9 {
					return false
				}
				for idx, vi := range lin.Vars {
					if s.values[vi] != unknown {
						continue
					}
					c := lin.Coeffs[idx]
					if c > 0 && minSum+c > lin.Bound+1e-9 {
						s.values[vi] = fals
						changed = true
					} else if c < 0 && minSum-c > lin.Bound+1e-9 {
						s.values[vi] = tru
						changed = true
					}
				}
			}
			if lin.Op == solver.OpGE || lin.Op == solver.OpEQ {
				bound := lin.Bound
				if maxSum < bound-1e-9 {
					return false
				}
				for idx, vi := range lin.Vars {
					if s.values[vi] != unknown {
						continue
					}
					c := lin.Coeffs[idx]
					if c > 0 && maxSum-c < bound-1e-9 {
						s.values[vi] = tru
						changed = true
					} else if c < 0 && maxSum+c < bound-1e-9 {
						s.values[vi] = fals
						changed = true
					}
				}
			}
		}
	}
	return true
}
