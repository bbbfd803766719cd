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

// Eligibility enforces the template gates: person kind, PGY range, required
// specialties, and the template's time-of-day restriction. The generator's
// pruning pass removes most of these variables up front; the constraint
// covers whatever survives and re-checks manual edits.
type Eligibility struct {
	base
}

func NewEligibility() *Eligibility {
	return &Eligibility{base{name: NameEligibility, ctype: scheduling.TypeRotation, priority: scheduling.PriorityHigh}}
}

func (e *Eligibility) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

// ineligible names the first gate the person fails for the template on the
// block, or "" when eligible.
func ineligible(p *roster.Person, t *roster.RotationTemplate, b *roster.Block) string {
	if !t.AllowsTimeOfDay(b.TimeOfDay) {
		return fmt.Sprintf("template %s is restricted to %s", t.Abbreviation, *t.TimeOfDay)
	}
	if !t.Allows(p) {
		if len(t.AllowedPersonTypes) > 0 {
			allowed := false
			for _, kind := range t.AllowedPersonTypes {
				if kind == p.Kind {
					allowed = true
				}
			}
			if !allowed {
				return fmt.Sprintf("template %s does not accept %s", t.Abbreviation, p.Kind)
			}
		}
		if p.IsResident() {
			if t.MinPGYLevel != nil && p.PGY() < *t.MinPGYLevel {
				return fmt.Sprintf("template %s requires PGY >= %d", t.Abbreviation, *t.MinPGYLevel)
			}
			if t.MaxPGYLevel != nil && p.PGY() > *t.MaxPGYLevel {
				return fmt.Sprintf("template %s requires PGY <= %d", t.Abbreviation, *t.MaxPGYLevel)
			}
		}
		return fmt.Sprintf("template %s requires specialties %v", t.Abbreviation, t.RequiredSpecialties)
	}
	return ""
}

func (e *Eligibility) Encode(m *solver.Model, c *scheduling.Context) error {
	for i, p := range c.People {
		for j, b := range c.Blocks {
			for k, t := range c.Templates {
				v, ok := m.Lookup(i, j, k)
				if !ok {
					continue
				}
				if ineligible(p, t, b) != "" {
					m.Forbid(v)
				}
			}
		}
	}
	return nil
}

func (e *Eligibility) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	var out []scheduling.Violation
	for _, a := range assignments {
		p, ok := personOf(c, a)
		if !ok {
			continue
		}
		b, ok := blockOf(c, a)
		if !ok {
			continue
		}
		t := c.TemplateOf(a)
		if t == nil {
			continue
		}
		reason := ineligible(p, t, b)
		if reason == "" {
			continue
		}
		ref := c.PersonRef(a.PersonID)
		out = append(out, scheduling.Violation{
			ConstraintName:  NameEligibility,
			Severity:        scheduling.SeverityHigh,
			Message:         fmt.Sprintf("%s on %s %s: %s", ref, scheduling.DayKey(b.Date), b.TimeOfDay, reason),
			PersonRef:       ref,
			BlockID:         a.BlockID,
			Date:            b.Date,
			Details:         map[string]interface{}{"template": t.Abbreviation, "reason": reason},
			SuggestedAction: "replace the assignment with an eligible template or record an override",
		})
	}
	scheduling.SortViolations(out)
	return out
}
