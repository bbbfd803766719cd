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

// Package qubo implements the experimental annealing adapter. The model is
// flattened to indices 0..N-1 and energised as a Q matrix (diagonal =
// negated rewards, off-diagonal = quadratic penalties) plus squared penalty
// terms for the linear constraints, then minimised by simulated annealing.
// Suited to small and medium instances; the cpsat adapter stays the
// authority on infeasibility.
package qubo

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/gmesched/rota/pkg/solver"
)

const (
	// constraintPenalty scales the squared violation of each hard linear
	// constraint; it must dominate any reachable reward sum.
	constraintPenalty = 50.0
	pinPenalty        = 200.0
	sweepsPerVar      = 60
	initialTemp       = 4.0
	coolingRate       = 0.97
)

type Adapter struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Adapter {
	return &Adapter{log: log.Named("qubo")}
}

func (a *Adapter) Name() string { return "qubo" }

func (a *Adapter) Solve(ctx context.Context, m *solver.Model, opts solver.Options) (*solver.Result, error) {
	start := time.Now()
	n := m.NumVars()
	if n == 0 {
		return &solver.Result{Status: solver.StatusEmpty}, nil
	}
	if _, bad := m.Inconsistent(); bad {
		return &solver.Result{Status: solver.StatusInfeasible, Statistics: solver.Statistics{VarCount: n}}, nil
	}
	deadline := solver.DeadlineOf(ctx, opts, start)

	rng := rand.New(rand.NewSource(opts.Seed))
	state := make([]bool, n)
	for i := 0; i < n; i++ {
		state[i] = m.IsFixed(i)
	}

	best := make([]bool, n)
	copy(best, state)
	current := a.energy(m, state)
	bestEnergy := current

	temp := initialTemp
	sweeps := sweepsPerVar * n
	iterations := 0
	for sweep := 0; sweep < sweeps; sweep++ {
		iterations++
		if iterations%128 == 0 {
			if time.Now().After(deadline) || ctx.Err() != nil {
				break
			}
		}
		i := rng.Intn(n)
		if m.IsFixed(i) || m.IsForbidden(i) {
			continue
		}
		state[i] = !state[i]
		e := a.energy(m, state)
		delta := e - current
		if delta <= 0 || rng.Float64() < math.Exp(-delta/temp) {
			current = e
			if e < bestEnergy {
				bestEnergy = e
				copy(best, state)
			}
		} else {
			state[i] = !state[i]
		}
		if sweep%n == n-1 {
			temp *= coolingRate
		}
	}

	stats := solver.Statistics{VarCount: n, Iterations: iterations, Duration: time.Since(start)}
	if !m.Feasible(best) {
		a.log.Debug("annealing finished without a feasible state",
			zap.Float64("energy", bestEnergy), zap.Int("violated", len(m.Violated(best))))
		if time.Now().After(deadline) || ctx.Err() != nil {
			return &solver.Result{Status: solver.StatusTimeout, Statistics: stats}, nil
		}
		return &solver.Result{Status: solver.StatusInfeasible, Statistics: stats}, nil
	}
	return &solver.Result{
		Status:     solver.StatusFeasible,
		Selected:   solver.SelectedIndices(m, best),
		Objective:  m.ObjectiveValue(best),
		Statistics: stats,
	}, nil
}

// energy is the QUBO objective: negated rewards on the diagonal, quadratic
// penalties off it, squared penalties for broken linear constraints, and
// large pin penalties so fixed/forbidden bits stay put.
func (a *Adapter) energy(m *solver.Model, state []bool) float64 {
	e := -m.ObjectiveValue(state)
	for _, lin := range m.Violated(state) {
		excess := violationMagnitude(lin, state)
		e += constraintPenalty * excess * excess
	}
	for i := range state {
		if m.IsFixed(i) && !state[i] {
			e += pinPenalty
		}
		if m.IsForbidden(i) && state[i] {
			e += pinPenalty
		}
	}
	return e
}

func violationMagnitude(lin solver.Linear, state []bool) float64 {
	sum := 0.0
	for idx, v := range lin.Vars {
		if state[v] {
			sum += lin.Coeffs[idx]
		}
	}
	switch lin.Op {
	case solver.OpLE:
		return sum - lin.Bound
	case solver.OpGE:
		return lin.Bound - sum
	default:
		return math.Abs(sum - lin.Bound)
	}
}

