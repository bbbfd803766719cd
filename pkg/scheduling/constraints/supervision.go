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

package constraints

import (
	"fmt"

	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/solver"
)

// Supervision keeps the faculty-to-resident ratio on every block: interns
// count double, each faculty member covers four supervision slots. Encoded
// as Σ 4·faculty − Σ weight·resident ≥ 0 per block, where only faculty on
// supervising-capable templates count.
type Supervision struct {
	base
}

func NewSupervision() *Supervision {
	return &Supervision{base{name: NameSupervision, ctype: scheduling.TypeSupervision, priority: scheduling.PriorityCritical}}
}

func (s *Supervision) Parameters() map[string]interface{} {
	return map[string]interface{}{"slots_per_faculty": 4, "intern_weight": 2}
}

func (s *Supervision) Encode(m *solver.Model, c *scheduling.Context) error {
	residents := c.ResidentIndices()
	faculty := c.FacultyIndices()
	for j := range c.Blocks {
		var vars []int
		var coeffs []float64
		for _, i := range faculty {
			for k, t := range c.Templates {
				if !t.SupervisingCapable() {
					continue
				}
				if v, ok := m.Lookup(i, j, k); ok {
					vars = append(vars, v)
					coeffs = append(coeffs, 4)
				}
			}
		}
		residentVars := 0
		for _, i := range residents {
			weight := float64(c.People[i].SupervisionWeight())
			for k, t := range c.Templates {
				if !t.SupervisingCapable() {
					continue
				}
				if v, ok := m.Lookup(i, j, k); ok {
					vars = append(vars, v)
					coeffs = append(coeffs, -weight)
					residentVars++
				}
			}
		}
		if residentVars == 0 {
			continue
		}
		m.AddLinear(NameSupervision, vars, coeffs, solver.OpGE, 0)
	}
	return nil
}

// countsAsSupervisor applies the faculty role taxonomy: supervising always
// counts, primary counts only on a supervising-capable template, backup never.
func countsAsSupervisor(a *roster.Assignment, t *roster.RotationTemplate) bool {
	switch a.Role {
	case roster.RoleSupervising:
		return true
	case roster.RolePrimary:
		return t != nil && t.SupervisingCapable()
	}
	return false
}

func (s *Supervision) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	type census struct {
		pgy1    int
		other   int
		faculty int
	}
	byBlock := map[int]*census{}
	for _, a := range assignments {
		p, ok := personOf(c, a)
		if !ok {
			continue
		}
		j, ok := c.BlockIdx[a.BlockID]
		if !ok {
			continue
		}
		t := c.TemplateOf(a)
		if byBlock[j] == nil {
			byBlock[j] = &census{}
		}
		switch {
		case p.IsFaculty():
			if countsAsSupervisor(a, t) {
				byBlock[j].faculty++
			}
		case t != nil && t.SupervisingCapable():
			if p.PGY() == 1 {
				byBlock[j].pgy1++
			} else {
				byBlock[j].other++
			}
		}
	}
	var out []scheduling.Violation
	for j, cen := range byBlock {
		required := roster.RequiredFaculty(cen.pgy1, cen.other)
		if cen.faculty >= required {
			continue
		}
		deficit := required - cen.faculty
		severity := scheduling.SeverityHigh
		if deficit >= 2 {
			severity = scheduling.SeverityCritical
		}
		b := c.Blocks[j]
		out = append(out, scheduling.Violation{
			ConstraintName: NameSupervision,
			Severity:       severity,
			Message: fmt.Sprintf("%s %s has %d supervising faculty for %d residents, needs %d",
				scheduling.DayKey(b.Date), b.TimeOfDay, cen.faculty, cen.pgy1+cen.other, required),
			BlockID: b.ID,
			Date:    b.Date,
			Details: map[string]interface{}{
				"required_faculty": required,
				"assigned_faculty": cen.faculty,
				"pgy1_count":       cen.pgy1,
				"other_count":      cen.other,
			},
			SuggestedAction: fmt.Sprintf("add %d faculty on %s %s", deficit, scheduling.DayKey(b.Date), b.TimeOfDay),
		})
	}
	scheduling.SortViolations(out)
	return out
}
