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

	"github.com/google/uuid"

	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/solver"
)

// OnePerBlock ties the decision variables together: a person holds at most
// one template per block.
type OnePerBlock struct {
	base
}

func NewOnePerBlock() *OnePerBlock {
	return &OnePerBlock{base{name: NameOnePerBlock, ctype: scheduling.TypeRotation, priority: scheduling.PriorityCritical}}
}

func (o *OnePerBlock) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (o *OnePerBlock) Encode(m *solver.Model, c *scheduling.Context) error {
	for i := range c.People {
		for j := range c.Blocks {
			vars := m.PersonBlockVars(i, j)
			if len(vars) < 2 {
				continue
			}
			coeffs := make([]float64, len(vars))
			for idx := range coeffs {
				coeffs[idx] = 1
			}
			m.AddLinear(NameOnePerBlock, vars, coeffs, solver.OpLE, 1)
		}
	}
	return nil
}

func (o *OnePerBlock) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	var out []scheduling.Violation
	seen := map[string]uuid.UUID{}
	for _, a := range assignments {
		key := a.BlockID.String() + "/" + a.PersonID.String()
		if prior, dup := seen[key]; dup && prior != a.ID {
			b, ok := blockOf(c, a)
			if !ok {
				continue
			}
			out = append(out, scheduling.Violation{
				ConstraintName:  NameOnePerBlock,
				Severity:        scheduling.SeverityCritical,
				Message:         fmt.Sprintf("%s holds more than one assignment on %s %s", c.PersonRef(a.PersonID), scheduling.DayKey(b.Date), b.TimeOfDay),
				PersonRef:       c.PersonRef(a.PersonID),
				BlockID:         a.BlockID,
				Date:            b.Date,
				SuggestedAction: "delete the duplicate assignment",
			})
			continue
		}
		seen[key] = a.ID
	}
	return out
}

// Capacity caps each physical slot: at most max residents per (block,
// template) when the template occupies real space.
type Capacity struct {
	base
	defaultCapacity int
}

func NewCapacity(defaultCapacity int) *Capacity {
	if defaultCapacity <= 0 {
		defaultCapacity = roster.DefaultClinicCapacity
	}
	return &Capacity{
		base:            base{name: NameCapacity, ctype: scheduling.TypeCapacity, priority: scheduling.PriorityHigh},
		defaultCapacity: defaultCapacity,
	}
}

func (cp *Capacity) Parameters() map[string]interface{} {
	return map[string]interface{}{"default_capacity": cp.defaultCapacity}
}

func (cp *Capacity) capacityOf(t *roster.RotationTemplate) int {
	if t.MaxResidents > 0 {
		return t.MaxResidents
	}
	return cp.defaultCapacity
}

func (cp *Capacity) Encode(m *solver.Model, c *scheduling.Context) error {
	residents := c.ResidentIndices()
	for j := range c.Blocks {
		for k, t := range c.Templates {
			if !t.CountsTowardPhysicalCapacity {
				continue
			}
			var vars []int
			for _, i := range residents {
				if v, ok := m.Lookup(i, j, k); ok {
					vars = append(vars, v)
				}
			}
			if len(vars) <= cp.capacityOf(t) {
				continue
			}
			coeffs := make([]float64, len(vars))
			for idx := range coeffs {
				coeffs[idx] = 1
			}
			m.AddLinear(NameCapacity, vars, coeffs, solver.OpLE, float64(cp.capacityOf(t)))
		}
	}
	return nil
}

func (cp *Capacity) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	type slot struct {
		block    uuid.UUID
		template uuid.UUID
	}
	counts := map[slot]int{}
	for _, a := range assignments {
		p, ok := personOf(c, a)
		if !ok || !p.IsResident() || a.RotationTemplateID == nil {
			continue
		}
		t := c.TemplateOf(a)
		if t == nil || !t.CountsTowardPhysicalCapacity {
			continue
		}
		counts[slot{a.BlockID, t.ID}]++
	}
	var out []scheduling.Violation
	for s, n := range counts {
		k, ok := c.TemplateIdx[s.template]
		if !ok {
			continue
		}
		t := c.Templates[k]
		if n <= cp.capacityOf(t) {
			continue
		}
		j := c.BlockIdx[s.block]
		b := c.Blocks[j]
		out = append(out, scheduling.Violation{
			ConstraintName:  NameCapacity,
			Severity:        scheduling.SeverityHigh,
			Message:         fmt.Sprintf("%s on %s %s holds %d residents, capacity %d", t.Abbreviation, scheduling.DayKey(b.Date), b.TimeOfDay, n, cp.capacityOf(t)),
			BlockID:         s.block,
			Date:            b.Date,
			Details:         map[string]interface{}{"count": n, "capacity": cp.capacityOf(t), "template": t.Abbreviation},
			SuggestedAction: "move the excess residents to another activity",
		})
	}
	scheduling.SortViolations(out)
	return out
}
