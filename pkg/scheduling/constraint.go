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

package scheduling

import (
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/solver"
)

// Priority orders hard constraints during diagnostics. On conflict,
// CRITICAL > HIGH > MEDIUM > LOW; ties break alphabetically by name for
// determinism.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// rank maps priorities to a sortable weight; unknown priorities sink.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// Type groups constraints by concern; persisted in the constraint JSON.
type Type string

const (
	TypeAvailability Type = "availability"
	TypeCapacity     Type = "capacity"
	TypeRotation     Type = "rotation"
	TypeEquity       Type = "equity"
	TypePreference   Type = "preference"
	TypeSupervision  Type = "supervision"
	TypeRegulatory   Type = "regulatory"
)

// Constraint is what every hard or soft constraint exposes: a stable name, a
// concern type, and its parameters for serialisation.
type Constraint interface {
	Name() string
	Type() Type
	Parameters() map[string]interface{}
}

// HardConstraint must hold in any feasible solution. Encode writes the rule
// into a solver model; Validate re-checks a set of existing assignments and
// returns violations as values, never errors.
type HardConstraint interface {
	Constraint
	Priority() Priority
	Encode(m *solver.Model, c *Context) error
	Validate(c *Context, assignments []*roster.Assignment) []Violation
}

// SoftConstraint contributes a weighted penalty or reward to the objective.
type SoftConstraint interface {
	Constraint
	Weight() float64
	EncodeObjective(m *solver.Model, c *Context) error
}

// ByPriority sorts hard constraints for diagnostic output.
func ByPriority(constraints []HardConstraint) func(i, j int) bool {
	return func(i, j int) bool {
		pi, pj := constraints[i].Priority().rank(), constraints[j].Priority().rank()
		if pi != pj {
			return pi < pj
		}
		return constraints[i].Name() < constraints[j].Name()
	}
}
