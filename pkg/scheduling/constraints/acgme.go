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
	"time"

	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/solver"
)

const (
	// MaxWeeklyHours is the ACGME duty-hour ceiling over any trailing
	// seven-day window.
	MaxWeeklyHours = 80

	// RestWindowDays is the span within which every resident needs at least
	// one fully free day.
	RestWindowDays = 7
)

// EightyHourWeek bounds every resident's duty hours in any trailing
// seven-day window. Each half-day contributes its template's hours; call
// templates carry their shift length.
type EightyHourWeek struct {
	base
	maxHours int
}

func NewEightyHourWeek(maxHours int) *EightyHourWeek {
	if maxHours <= 0 {
		maxHours = MaxWeeklyHours
	}
	return &EightyHourWeek{
		base:     base{name: NameEightyHourWeek, ctype: scheduling.TypeRegulatory, priority: scheduling.PriorityCritical},
		maxHours: maxHours,
	}
}

func (e *EightyHourWeek) Parameters() map[string]interface{} {
	return map[string]interface{}{"max_hours": e.maxHours, "window_days": RestWindowDays}
}

func (e *EightyHourWeek) Encode(m *solver.Model, c *scheduling.Context) error {
	days := c.Days()
	// Existing assignments without a decision variable contribute as
	// constants against the window's bound; anything with a variable is
	// counted through the variable itself.
	constantHours := map[int]map[string]int{}
	for _, a := range c.Existing {
		i, ok := c.PersonIdx[a.PersonID]
		if !ok || !c.People[i].IsResident() {
			continue
		}
		b, ok := blockOf(c, a)
		if !ok {
			continue
		}
		if t := c.TemplateOf(a); t != nil {
			if k, ok := c.TemplateIdx[t.ID]; ok {
				if _, exists := m.Lookup(i, c.BlockIdx[a.BlockID], k); exists {
					continue
				}
			}
		}
		if constantHours[i] == nil {
			constantHours[i] = map[string]int{}
		}
		constantHours[i][scheduling.DayKey(b.Date)] += c.HoursOf(a)
	}

	for _, i := range c.ResidentIndices() {
		for _, anchor := range days {
			var vars []int
			var coeffs []float64
			fixedSum := 0
			for back := 0; back < RestWindowDays; back++ {
				day := anchor.AddDate(0, 0, -back)
				fixedSum += constantHours[i][scheduling.DayKey(day)]
				for _, j := range c.BlocksOnDay(day) {
					for k, t := range c.Templates {
						if t.Hours() == 0 {
							continue
						}
						if v, ok := m.Lookup(i, j, k); ok {
							vars = append(vars, v)
							coeffs = append(coeffs, float64(t.Hours()))
						}
					}
				}
			}
			if len(vars) == 0 {
				continue
			}
			bound := float64(e.maxHours - fixedSum)
			// Skip windows that can't be exceeded even if everything fires.
			total := 0.0
			for _, co := range coeffs {
				total += co
			}
			if total <= bound {
				continue
			}
			m.AddLinear(NameEightyHourWeek, vars, coeffs, solver.OpLE, bound)
		}
	}
	return nil
}

func (e *EightyHourWeek) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	var out []scheduling.Violation
	for i, days := range byPersonDay(c, assignments) {
		if !c.People[i].IsResident() {
			continue
		}
		hoursByDay := map[string]int{}
		var dates []time.Time
		for day, dayAssignments := range days {
			for _, a := range dayAssignments {
				hoursByDay[day] += c.HoursOf(a)
			}
			if b, ok := blockOf(c, dayAssignments[0]); ok {
				dates = append(dates, b.Date)
			}
		}
		for _, anchor := range dates {
			total := 0
			for back := 0; back < RestWindowDays; back++ {
				total += hoursByDay[scheduling.DayKey(anchor.AddDate(0, 0, -back))]
			}
			if total <= e.maxHours {
				continue
			}
			ref := c.PersonRef(c.People[i].ID)
			out = append(out, scheduling.Violation{
				ConstraintName:  NameEightyHourWeek,
				Severity:        scheduling.SeverityCritical,
				Message:         fmt.Sprintf("%s works %d hours in the 7 days ending %s, limit %d", ref, total, scheduling.DayKey(anchor), e.maxHours),
				PersonRef:       ref,
				Date:            anchor,
				Details:         map[string]interface{}{"hours": total, "max_hours": e.maxHours},
				SuggestedAction: "drop an assignment inside the window",
			})
		}
	}
	scheduling.SortViolations(out)
	return out
}

// OneInSeven guarantees a fully free day inside every seven-day span. The
// encoding introduces one auxiliary "day free" boolean per (resident, day):
// aux + v <= 1 against every decision variable that day, then at least one
// aux per window.
type OneInSeven struct {
	base
}

func NewOneInSeven() *OneInSeven {
	return &OneInSeven{base{name: NameOneInSeven, ctype: scheduling.TypeRegulatory, priority: scheduling.PriorityCritical}}
}

func (o *OneInSeven) Parameters() map[string]interface{} {
	return map[string]interface{}{"window_days": RestWindowDays}
}

func (o *OneInSeven) Encode(m *solver.Model, c *scheduling.Context) error {
	days := c.Days()
	dayIdx := map[string]int{}
	for d, day := range days {
		dayIdx[scheduling.DayKey(day)] = d
	}

	occupied := map[int]map[int]bool{}
	for _, a := range c.Existing {
		i, ok := c.PersonIdx[a.PersonID]
		if !ok {
			continue
		}
		b, ok := blockOf(c, a)
		if !ok {
			continue
		}
		if t := c.TemplateOf(a); t != nil && !t.Occupies() {
			continue
		}
		if d, ok := dayIdx[scheduling.DayKey(b.Date)]; ok {
			if occupied[i] == nil {
				occupied[i] = map[int]bool{}
			}
			occupied[i][d] = true
		}
	}

	for _, i := range c.ResidentIndices() {
		aux := make([]int, len(days))
		for d, day := range days {
			aux[d] = m.AddAux(i, d)
			if occupied[i][d] {
				m.Forbid(aux[d])
			}
			for _, j := range c.BlocksOnDay(day) {
				for k, t := range c.Templates {
					if !t.Occupies() {
						continue
					}
					if v, ok := m.Lookup(i, j, k); ok {
						m.AddLinear(NameOneInSeven, []int{aux[d], v}, []float64{1, 1}, solver.OpLE, 1)
					}
				}
			}
		}
		for start := 0; start < len(days); start++ {
			end := days[start].AddDate(0, 0, RestWindowDays-1)
			var window []int
			gap := false
			for off := 0; off < RestWindowDays; off++ {
				d, present := dayIdx[scheduling.DayKey(days[start].AddDate(0, 0, off))]
				if !present {
					gap = true
					break
				}
				window = append(window, aux[d])
			}
			// A calendar day with no blocks is free by construction, so any
			// window containing one is already satisfied.
			if gap || end.After(days[len(days)-1]) {
				continue
			}
			coeffs := make([]float64, len(window))
			for idx := range coeffs {
				coeffs[idx] = 1
			}
			m.AddLinear(NameOneInSeven, window, coeffs, solver.OpGE, 1)
		}
	}
	return nil
}

func (o *OneInSeven) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	var out []scheduling.Violation
	for i, days := range byPersonDay(c, assignments) {
		if !c.People[i].IsResident() {
			continue
		}
		occupied := map[string]time.Time{}
		for _, dayAssignments := range days {
			for _, a := range dayAssignments {
				if t := c.TemplateOf(a); t != nil && !t.Occupies() {
					continue
				}
				if b, ok := blockOf(c, a); ok {
					occupied[scheduling.DayKey(b.Date)] = b.Date
				}
			}
		}
		for key, start := range occupied {
			// Only report runs at their left edge.
			if _, prior := occupied[scheduling.DayKey(start.AddDate(0, 0, -1))]; prior {
				continue
			}
			run := 0
			for {
				if _, ok := occupied[scheduling.DayKey(start.AddDate(0, 0, run))]; !ok {
					break
				}
				run++
			}
			if run < RestWindowDays {
				continue
			}
			ref := c.PersonRef(c.People[i].ID)
			out = append(out, scheduling.Violation{
				ConstraintName:  NameOneInSeven,
				Severity:        scheduling.SeverityCritical,
				Message:         fmt.Sprintf("%s works %d consecutive days starting %s without a free day", ref, run, key),
				PersonRef:       ref,
				Date:            start,
				Details:         map[string]interface{}{"consecutive_days": run},
				SuggestedAction: "clear one day inside the run",
			})
		}
	}
	scheduling.SortViolations(out)
	return out
}
