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

// Package linear implements the LP-style adapter as greedy first-fit
// decreasing with a repair phase: place the most rewarded variables first
// while respecting upper bounds, then pull in whatever the lower-bounded
// constraints still need. It is fast and deterministic but incomplete; an
// INFEASIBLE result here means "greedy found no placement", which the
// generator treats the same way.
package linear

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/gmesched/rota/pkg/solver"
)

type Adapter struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Adapter {
	return &Adapter{log: log.Named("linear")}
}

func (a *Adapter) Name() string { return "lp" }

func (a *Adapter) Solve(ctx context.Context, m *solver.Model, opts solver.Options) (*solver.Result, error) {
	start := time.Now()
	if m.NumVars() == 0 {
		return &solver.Result{Status: solver.StatusEmpty}, nil
	}
	if _, bad := m.Inconsistent(); bad {
		return &solver.Result{Status: solver.StatusInfeasible, Statistics: solver.Statistics{VarCount: m.NumVars()}}, nil
	}
	deadline := solver.DeadlineOf(ctx, opts, start)

	g := &greedy{model: m, selected: make([]bool, m.NumVars())}
	g.indexConstraints()
	for i := 0; i < m.NumVars(); i++ {
		if m.IsFixed(i) {
			g.selected[i] = true
		}
	}
	g.recomputeSums()

	// Decreasing phase: highest reward first, index ascending for ties.
	order := make([]int, m.NumVars())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m.Reward(order[a]) > m.Reward(order[b])
	})
	iterations := 0
	for _, i := range order {
		iterations++
		if time.Now().After(deadline) || ctx.Err() != nil {
			return &solver.Result{Status: solver.StatusTimeout, Statistics: g.stats(m, iterations, start)}, nil
		}
		if g.selected[i] || m.IsForbidden(i) || m.Reward(i) <= 0 {
			continue
		}
		if g.fitsUpperBounds(i) {
			g.selectVar(i)
		}
	}

	// Repair phase: satisfy lower bounds.
	if !g.repair(ctx, deadline, &iterations) {
		if time.Now().After(deadline) || ctx.Err() != nil {
			return &solver.Result{Status: solver.StatusTimeout, Statistics: g.stats(m, iterations, start)}, nil
		}
		a.log.Debug("greedy repair exhausted candidates", zap.Int("vars", m.NumVars()))
		return &solver.Result{Status: solver.StatusInfeasible, Statistics: g.stats(m, iterations, start)}, nil
	}

	if !m.Feasible(g.selected) {
		return &solver.Result{Status: solver.StatusInfeasible, Statistics: g.stats(m, iterations, start)}, nil
	}
	status := solver.StatusFeasible
	if solver.EmptyObjective(m) {
		status = solver.StatusOptimal
	}
	return &solver.Result{
		Status:     status,
		Selected:   solver.SelectedIndices(m, g.selected),
		Objective:  m.ObjectiveValue(g.selected),
		Statistics: g.stats(m, iterations, start),
	}, nil
}

type greedy struct {
	model    *solver.Model
	selected []bool
	// sums[c] is the running Σ coeff·selected for constraint c; varCons maps
	// a variable to the constraints containing it.
	sums    []float64
	varCons [][]int
}

func (g *greedy) indexConstraints() {
	linears := g.model.Linears()
	g.sums = make([]float64, len(linears))
	g.varCons = make([][]int, g.model.NumVars())
	for c, lin := range linears {
		for _, v := range lin.Vars {
			g.varCons[v] = append(g.varCons[v], c)
		}
	}
}

func (g *greedy) recomputeSums() {
	for c, lin := range g.model.Linears() {
		sum := 0.0
		for idx, v := range lin.Vars {
			if g.selected[v] {
				sum += lin.Coeffs[idx]
			}
		}
		g.sums[c] = sum
	}
}

func coeffOf(lin solver.Linear, v int) float64 {
	for idx, lv := range lin.Vars {
		if lv == v {
			return lin.Coeffs[idx]
		}
	}
	return 0
}

// fitsUpperBounds reports whether selecting v keeps every LE/EQ constraint at
// or under its bound.
func (g *greedy) fitsUpperBounds(v int) bool {
	linears := g.model.Linears()
	for _, c := range g.varCons[v] {
		lin := linears[c]
		if lin.Op == solver.OpGE {
			continue
		}
		if g.sums[c]+coeffOf(lin, v) > lin.Bound+1e-9 {
			return false
		}
	}
	return true
}

func (g *greedy) selectVar(v int) {
	g.selected[v] = true
	linears := g.model.Linears()
	for _, c := range g.varCons[v] {
		g.sums[c] += coeffOf(linears[c], v)
	}
}

// repair raises every GE/EQ constraint to its lower bound by selecting the
// cheapest viable candidates. Selections only increase sums, so a pass either
// makes progress or proves this greedy ordering stuck.
func (g *greedy) repair(ctx context.Context, deadline time.Time, iterations *int) bool {
	linears := g.model.Linears()
	for pass := 0; pass < len(linears)+1; pass++ {
		progressed := false
		satisfied := true
		for c, lin := range linears {
			if lin.Op == solver.OpLE {
				continue
			}
			for g.sums[c] < lin.Bound-1e-9 {
				*iterations++
				if time.Now().After(deadline) || ctx.Err() != nil {
					return false
				}
				v, ok := g.bestCandidate(lin)
				if !ok {
					satisfied = false
					break
				}
				g.selectVar(v)
				progressed = true
			}
		}
		if satisfied {
			return true
		}
		if !progressed {
			return false
		}
	}
	return false
}

// bestCandidate picks the unselected variable with the largest positive
// coefficient (reward as tie-break) whose selection breaks no upper bound.
func (g *greedy) bestCandidate(lin solver.Linear) (int, bool) {
	best, bestCoeff, bestReward := -1, 0.0, 0.0
	for idx, v := range lin.Vars {
		c := lin.Coeffs[idx]
		if c <= 0 || g.selected[v] || g.model.IsForbidden(v) {
			continue
		}
		if !g.fitsUpperBounds(v) {
			continue
		}
		r := g.model.Reward(v)
		if best == -1 || c > bestCoeff || (c == bestCoeff && r > bestReward) {
			best, bestCoeff, bestReward = v, c, r
		}
	}
	return best, best != -1
}

func (g *greedy) stats(m *solver.Model, iterations int, start time.Time) solver.Statistics {
	return solver.Statistics{
		VarCount:   m.NumVars(),
		Iterations: iterations,
		Duration:   time.Since(start),
	}
}
