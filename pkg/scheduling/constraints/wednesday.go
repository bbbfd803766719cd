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

// WednesdayAMInternOnly keeps Wednesday-AM clinic slots for interns: no
// PGY-2/3 may hold a clinic template there.
type WednesdayAMInternOnly struct {
	base
}

func NewWednesdayAMInternOnly() *WednesdayAMInternOnly {
	return &WednesdayAMInternOnly{base{name: NameWednesdayAMIntern, ctype: scheduling.TypeRotation, priority: scheduling.PriorityHigh}}
}

func (w *WednesdayAMInternOnly) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (w *WednesdayAMInternOnly) Encode(m *solver.Model, c *scheduling.Context) error {
	for j, b := range c.Blocks {
		if !b.IsWednesdayAM() {
			continue
		}
		for _, i := range c.ResidentIndices() {
			if c.People[i].PGY() == 1 {
				continue
			}
			for k, t := range c.Templates {
				if !t.ClinicCapable() {
					continue
				}
				if v, ok := m.Lookup(i, j, k); ok {
					m.Forbid(v)
				}
			}
		}
	}
	return nil
}

func (w *WednesdayAMInternOnly) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	var out []scheduling.Violation
	for _, a := range assignments {
		p, ok := personOf(c, a)
		if !ok || !p.IsResident() || p.PGY() == 1 {
			continue
		}
		b, ok := blockOf(c, a)
		if !ok || !b.IsWednesdayAM() {
			continue
		}
		t := c.TemplateOf(a)
		if t == nil || !t.ClinicCapable() {
			continue
		}
		ref := c.PersonRef(a.PersonID)
		out = append(out, scheduling.Violation{
			ConstraintName:  NameWednesdayAMIntern,
			Severity:        scheduling.SeverityHigh,
			Message:         fmt.Sprintf("%s (PGY-%d) holds clinic %s on Wednesday AM %s, reserved for interns", ref, p.PGY(), t.Abbreviation, scheduling.DayKey(b.Date)),
			PersonRef:       ref,
			BlockID:         a.BlockID,
			Date:            b.Date,
			Details:         map[string]interface{}{"pgy": p.PGY(), "template": t.Abbreviation},
			SuggestedAction: "move the senior resident to another half-day",
		})
	}
	scheduling.SortViolations(out)
	return out
}

// WednesdayPMLecture requires every resident not on an exempt overnight or
// away rotation to hold LEC-PM on Wednesday afternoons. Expansion fills the
// slot; this constraint is the backstop for manual edits.
type WednesdayPMLecture struct {
	base
}

func NewWednesdayPMLecture() *WednesdayPMLecture {
	return &WednesdayPMLecture{base{name: NameWednesdayPMLecture, ctype: scheduling.TypeRotation, priority: scheduling.PriorityHigh}}
}

func (w *WednesdayPMLecture) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (w *WednesdayPMLecture) Encode(m *solver.Model, c *scheduling.Context) error {
	for j, b := range c.Blocks {
		if !b.IsWednesdayPM() {
			continue
		}
		for _, i := range c.ResidentIndices() {
			cell := c.Available(i, j)
			// Preloads (night float, away rotations) keep their forced slot.
			if !cell.Available || cell.ForcedAbbrev != "" {
				continue
			}
			for k, t := range c.Templates {
				if t.Abbreviation == roster.AbbrevLecture || roster.IsLectureExempt(t.Abbreviation) {
					continue
				}
				if v, ok := m.Lookup(i, j, k); ok {
					m.Forbid(v)
				}
			}
		}
	}
	return nil
}

func (w *WednesdayPMLecture) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	var out []scheduling.Violation
	for _, a := range assignments {
		p, ok := personOf(c, a)
		if !ok || !p.IsResident() {
			continue
		}
		b, ok := blockOf(c, a)
		if !ok || !b.IsWednesdayPM() {
			continue
		}
		abbrev := abbrevOf(c, a)
		if abbrev == roster.AbbrevLecture || roster.IsLectureExempt(abbrev) {
			continue
		}
		ref := c.PersonRef(a.PersonID)
		out = append(out, scheduling.Violation{
			ConstraintName:  NameWednesdayPMLecture,
			Severity:        scheduling.SeverityHigh,
			Message:         fmt.Sprintf("%s holds %s instead of %s on Wednesday PM %s", ref, abbrev, roster.AbbrevLecture, scheduling.DayKey(b.Date)),
			PersonRef:       ref,
			BlockID:         a.BlockID,
			Date:            b.Date,
			Details:         map[string]interface{}{"activity": abbrev},
			SuggestedAction: fmt.Sprintf("reassign to %s or record an exempt rotation", roster.AbbrevLecture),
		})
	}
	scheduling.SortViolations(out)
	return out
}

// PGY1WednesdayContinuity pins every available intern to continuity clinic
// on Wednesday mornings.
type PGY1WednesdayContinuity struct {
	base
}

func NewPGY1WednesdayContinuity() *PGY1WednesdayContinuity {
	return &PGY1WednesdayContinuity{base{name: NamePGY1Continuity, ctype: scheduling.TypeRotation, priority: scheduling.PriorityHigh}}
}

func (w *PGY1WednesdayContinuity) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (w *PGY1WednesdayContinuity) Encode(m *solver.Model, c *scheduling.Context) error {
	for j, b := range c.Blocks {
		if !b.IsWednesdayAM() {
			continue
		}
		for _, i := range c.ResidentIndices() {
			if c.People[i].PGY() != 1 {
				continue
			}
			cell := c.Available(i, j)
			if !cell.Available || cell.ForcedAbbrev != "" {
				continue
			}
			var continuity []int
			for k, t := range c.Templates {
				v, ok := m.Lookup(i, j, k)
				if !ok {
					continue
				}
				if roster.IsContinuityClinic(t.Abbreviation) {
					continuity = append(continuity, v)
				} else {
					m.Forbid(v)
				}
			}
			if len(continuity) == 0 {
				continue
			}
			coeffs := make([]float64, len(continuity))
			for idx := range coeffs {
				coeffs[idx] = 1
			}
			m.AddLinear(NamePGY1Continuity, continuity, coeffs, solver.OpEQ, 1)
		}
	}
	return nil
}

func (w *PGY1WednesdayContinuity) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	var out []scheduling.Violation
	covered := map[string]bool{}
	for _, a := range assignments {
		p, ok := personOf(c, a)
		if !ok || p.PGY() != 1 {
			continue
		}
		b, ok := blockOf(c, a)
		if !ok || !b.IsWednesdayAM() {
			continue
		}
		abbrev := abbrevOf(c, a)
		ref := c.PersonRef(a.PersonID)
		if roster.IsContinuityClinic(abbrev) {
			covered[ref+"/"+scheduling.DayKey(b.Date)] = true
			continue
		}
		out = append(out, scheduling.Violation{
			ConstraintName:  NamePGY1Continuity,
			Severity:        scheduling.SeverityHigh,
			Message:         fmt.Sprintf("%s (PGY-1) holds %s on Wednesday AM %s instead of continuity clinic", ref, abbrev, scheduling.DayKey(b.Date)),
			PersonRef:       ref,
			BlockID:         a.BlockID,
			Date:            b.Date,
			Details:         map[string]interface{}{"activity": abbrev},
			SuggestedAction: "reassign to continuity clinic",
		})
	}
	// Interns with no Wednesday-AM assignment at all get a reminder rather
	// than a hard miss; the slot may still be filled by a later run.
	occupied := map[string]bool{}
	for _, a := range assignments {
		if b, ok := blockOf(c, a); ok {
			occupied[a.PersonID.String()+"/"+b.Key()] = true
		}
	}
	for _, i := range c.ResidentIndices() {
		p := c.People[i]
		if p.PGY() != 1 {
			continue
		}
		for j, b := range c.Blocks {
			if !b.IsWednesdayAM() || !c.Available(i, j).Available {
				continue
			}
			ref := c.PersonRef(p.ID)
			if occupied[p.ID.String()+"/"+b.Key()] || covered[ref+"/"+scheduling.DayKey(b.Date)] {
				continue
			}
			out = append(out, scheduling.Violation{
				ConstraintName:  NamePGY1Continuity,
				Severity:        scheduling.SeverityWarning,
				Message:         fmt.Sprintf("%s (PGY-1) has no continuity clinic on Wednesday AM %s", ref, scheduling.DayKey(b.Date)),
				PersonRef:       ref,
				BlockID:         b.ID,
				Date:            b.Date,
				SuggestedAction: "assign continuity clinic",
			})
		}
	}
	scheduling.SortViolations(out)
	return out
}
