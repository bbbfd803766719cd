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

// Package solver holds the decision model shared by every adapter and the
// adapter port itself. Constraints encode into a Model; adapters search it.
// Variable numbering is owned by the Model so CP-SAT, linear, and QUBO
// renditions of the same context agree on what each bit means.
package solver

import (
	"fmt"
	"sort"
)

// Var identifies one t[r,b,k] decision: person r holds template k on block b.
// Auxiliary variables (used for day-off style encodings) carry Template == -1
// and are never decoded into assignments.
type Var struct {
	Person   int
	Block    int
	Template int
	Aux      bool
}

// Op is a linear constraint comparator.
type Op string

const (
	OpLE Op = "<="
	OpGE Op = ">="
	OpEQ Op = "=="
)

// Linear is Σ coeff·var  (op)  bound over boolean variables. Owner names the
// constraint that produced it, which drives minimal-core search and
// diagnostics.
type Linear struct {
	Owner  string
	Vars   []int
	Coeffs []float64
	Op     Op
	Bound  float64
}

// Model is the encoded instance. It is write-during-encode, read-only during
// solve.
type Model struct {
	People    int
	Blocks    int
	Templates int

	vars  []Var
	index map[Var]int

	fixed     map[int]bool
	forbidden map[int]bool

	linears []Linear

	// objective holds per-variable rewards; quadratic holds pairwise
	// penalties (positive = discouraged together). Adapters use what they
	// can: the linear adapter reads only objective, QUBO reads both.
	objective map[int]float64
	quadratic map[[2]int]float64
}

func NewModel(people, blocks, templates int) *Model {
	return &Model{
		People:    people,
		Blocks:    blocks,
		Templates: templates,
		index:     map[Var]int{},
		fixed:     map[int]bool{},
		forbidden: map[int]bool{},
		objective: map[int]float64{},
		quadratic: map[[2]int]float64{},
	}
}

// AddVar creates (or finds) the variable for person r, block b, template k.
func (m *Model) AddVar(r, b, k int) int {
	return m.intern(Var{Person: r, Block: b, Template: k})
}

// AddAux creates an auxiliary boolean keyed by (person, block). Encoders use
// these for derived facts like "person r has day d entirely free".
func (m *Model) AddAux(r, b int) int {
	return m.intern(Var{Person: r, Block: b, Template: -1, Aux: true})
}

func (m *Model) intern(v Var) int {
	if i, ok := m.index[v]; ok {
		return i
	}
	i := len(m.vars)
	m.vars = append(m.vars, v)
	m.index[v] = i
	return i
}

// Lookup finds an existing decision variable without creating it.
func (m *Model) Lookup(r, b, k int) (int, bool) {
	i, ok := m.index[Var{Person: r, Block: b, Template: k}]
	return i, ok
}

func (m *Model) NumVars() int { return len(m.vars) }

func (m *Model) VarAt(i int) Var { return m.vars[i] }

// PersonBlockVars returns every decision variable for person r on block b, in
// ascending index order.
func (m *Model) PersonBlockVars(r, b int) []int {
	var out []int
	for k := 0; k < m.Templates; k++ {
		if i, ok := m.Lookup(r, b, k); ok {
			out = append(out, i)
		}
	}
	return out
}

// Fix forces a variable to 1; expansion uses this for preloads and derived
// slots. Fixing a forbidden variable is a programmer error surfaced at solve
// time by Inconsistent.
func (m *Model) Fix(i int) { m.fixed[i] = true }

// Forbid forces a variable to 0.
func (m *Model) Forbid(i int) { m.forbidden[i] = true }

func (m *Model) IsFixed(i int) bool { return m.fixed[i] }

func (m *Model) IsForbidden(i int) bool { return m.forbidden[i] }

// Inconsistent reports the first variable both fixed and forbidden, if any.
func (m *Model) Inconsistent() (int, bool) {
	keys := make([]int, 0, len(m.fixed))
	for i := range m.fixed {
		keys = append(keys, i)
	}
	sort.Ints(keys)
	for _, i := range keys {
		if m.forbidden[i] {
			return i, true
		}
	}
	return 0, false
}

func (m *Model) AddLinear(owner string, vars []int, coeffs []float64, op Op, bound float64) {
	if len(vars) != len(coeffs) {
		panic(fmt.Sprintf("linear constraint %q has %d vars but %d coeffs", owner, len(vars), len(coeffs)))
	}
	m.linears = append(m.linears, Linear{Owner: owner, Vars: vars, Coeffs: coeffs, Op: op, Bound: bound})
}

func (m *Model) Linears() []Linear { return m.linears }

// AddObjective accumulates a reward (positive = preferred) for selecting var i.
func (m *Model) AddObjective(i int, reward float64) {
	m.objective[i] += reward
}

func (m *Model) Reward(i int) float64 { return m.objective[i] }

// AddQuadraticPenalty discourages selecting i and j together.
func (m *Model) AddQuadraticPenalty(i, j int, penalty float64) {
	if j < i {
		i, j = j, i
	}
	m.quadratic[[2]int{i, j}] += penalty
}

func (m *Model) QuadraticPenalties() map[[2]int]float64 { return m.quadratic }

// ObjectiveValue scores a selection: linear rewards minus quadratic penalties.
func (m *Model) ObjectiveValue(selected []bool) float64 {
	total := 0.0
	for i, reward := range m.objective {
		if selected[i] {
			total += reward
		}
	}
	for pair, penalty := range m.quadratic {
		if selected[pair[0]] && selected[pair[1]] {
			total -= penalty
		}
	}
	return total
}

// Violated returns the linear constraints the selection breaks, plus whether
// any fixed/forbidden pins are broken. Adapters use it to certify
// feasibility; the minimal-core search uses the owners.
func (m *Model) Violated(selected []bool) []Linear {
	var out []Linear
	for _, lin := range m.linears {
		sum := 0.0
		for idx, v := range lin.Vars {
			if selected[v] {
				sum += lin.Coeffs[idx]
			}
		}
		switch lin.Op {
		case OpLE:
			if sum > lin.Bound+1e-9 {
				out = append(out, lin)
			}
		case OpGE:
			if sum < lin.Bound-1e-9 {
				out = append(out, lin)
			}
		case OpEQ:
			if sum < lin.Bound-1e-9 || sum > lin.Bound+1e-9 {
				out = append(out, lin)
			}
		}
	}
	return out
}

// PinsRespected reports whether the selection honours every Fix and Forbid.
func (m *Model) PinsRespected(selected []bool) bool {
	for i := range m.fixed {
		if !selected[i] {
			return false
		}
	}
	for i := range m.forbidden {
		if selected[i] {
			return false
		}
	}
	return true
}

// Feasible reports full hard feasibility of a selection.
func (m *Model) Feasible(selected []bool) bool {
	return m.PinsRespected(selected) && len(m.Violated(selected)) == 0
}

// WithoutOwners copies the model minus every linear constraint owned by one
// of the named constraints. Pins and objective carry over. The minimal-core
// search bisects with this.
func (m *Model) WithoutOwners(owners map[string]bool) *Model {
	next := NewModel(m.People, m.Blocks, m.Templates)
	next.vars = m.vars
	next.index = m.index
	next.fixed = m.fixed
	next.forbidden = m.forbidden
	next.objective = m.objective
	next.quadratic = m.quadratic
	for _, lin := range m.linears {
		if !owners[lin.Owner] {
			next.linears = append(next.linears, lin)
		}
	}
	return next
}

// Owners lists the distinct linear constraint owners, sorted.
func (m *Model) Owners() []string {
	seen := map[string]bool{}
	for _, lin := range m.linears {
		seen[lin.Owner] = true
	}
	out := make([]string, 0, len(seen))
	for owner := range seen {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}
