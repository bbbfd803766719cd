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
	"time"

	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/solver"
)

// softBase adds the weight every soft constraint carries.
type softBase struct {
	base
	weight float64
}

func (s softBase) Weight() float64 { return s.weight }

// Equity steers new assignments toward people with the lightest existing
// load. It is a linear reward, not a balancing constraint: people below the
// mean load earn a bonus on every candidate slot, scaled by how far below
// they sit.
type Equity struct {
	softBase
}

func NewEquity(weight float64) *Equity {
	return &Equity{softBase{base{name: NameEquity, ctype: scheduling.TypeEquity, priority: scheduling.PriorityLow}, weight}}
}

func (e *Equity) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (e *Equity) EncodeObjective(m *solver.Model, c *scheduling.Context) error {
	load := map[int]int{}
	maxLoad := 0
	for _, a := range c.Existing {
		if i, ok := c.PersonIdx[a.PersonID]; ok {
			load[i]++
			if load[i] > maxLoad {
				maxLoad = load[i]
			}
		}
	}
	// Call history counts double: it is the scarce, burdensome resource the
	// program balances hardest.
	for i, p := range c.People {
		load[i] += 2 * (p.SundayCallCount + p.WeekdayCallCount)
		if load[i] > maxLoad {
			maxLoad = load[i]
		}
	}
	if maxLoad == 0 {
		return nil
	}
	for i := range c.People {
		bonus := e.weight * float64(maxLoad-load[i]) / float64(maxLoad)
		if bonus == 0 {
			continue
		}
		for j := range c.Blocks {
			for _, v := range m.PersonBlockVars(i, j) {
				m.AddObjective(v, bonus)
			}
		}
	}
	return nil
}

// PreferenceTrails rewards continuity: a person who has historically worked
// an activity type earns a bonus for more of it, proportional to the share
// that type holds in their history.
type PreferenceTrails struct {
	softBase
}

func NewPreferenceTrails(weight float64) *PreferenceTrails {
	return &PreferenceTrails{softBase{base{name: NamePreferenceTrails, ctype: scheduling.TypePreference, priority: scheduling.PriorityLow}, weight}}
}

func (p *PreferenceTrails) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (p *PreferenceTrails) EncodeObjective(m *solver.Model, c *scheduling.Context) error {
	history := map[int]map[roster.ActivityType]int{}
	totals := map[int]int{}
	for _, a := range c.Existing {
		i, ok := c.PersonIdx[a.PersonID]
		if !ok {
			continue
		}
		t := c.TemplateOf(a)
		if t == nil {
			continue
		}
		if history[i] == nil {
			history[i] = map[roster.ActivityType]int{}
		}
		history[i][t.ActivityType]++
		totals[i]++
	}
	for i, byType := range history {
		for j := range c.Blocks {
			for k, t := range c.Templates {
				count := byType[t.ActivityType]
				if count == 0 {
					continue
				}
				if v, ok := m.Lookup(i, j, k); ok {
					m.AddObjective(v, p.weight*float64(count)/float64(totals[i]))
				}
			}
		}
	}
	return nil
}

// AvoidBackToBackCall penalises consecutive-day call pairs for people who
// flagged the preference. Quadratic: the penalty fires only when both call
// slots are taken.
type AvoidBackToBackCall struct {
	softBase
}

func NewAvoidBackToBackCall(weight float64) *AvoidBackToBackCall {
	return &AvoidBackToBackCall{softBase{base{name: NameAvoidBackToBack, ctype: scheduling.TypePreference, priority: scheduling.PriorityLow}, weight}}
}

func (a *AvoidBackToBackCall) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (a *AvoidBackToBackCall) EncodeObjective(m *solver.Model, c *scheduling.Context) error {
	days := c.Days()
	callVars := func(i int, day time.Time) []int {
		var out []int
		for _, j := range c.BlocksOnDay(day) {
			for k, t := range c.Templates {
				if t.ActivityType != roster.ActivityCall {
					continue
				}
				if v, ok := m.Lookup(i, j, k); ok {
					out = append(out, v)
				}
			}
		}
		return out
	}
	for i, p := range c.People {
		if !p.AvoidBackToBackCall {
			continue
		}
		for _, day := range days {
			today := callVars(i, day)
			tomorrow := callVars(i, day.AddDate(0, 0, 1))
			for _, v1 := range today {
				for _, v2 := range tomorrow {
					m.AddQuadraticPenalty(v1, v2, a.weight)
				}
			}
		}
	}
	return nil
}

// WednesdayCallPreference rewards Wednesday call slots for faculty who asked
// for them.
type WednesdayCallPreference struct {
	softBase
}

func NewWednesdayCallPreference(weight float64) *WednesdayCallPreference {
	return &WednesdayCallPreference{softBase{base{name: NameWednesdayCallPref, ctype: scheduling.TypePreference, priority: scheduling.PriorityLow}, weight}}
}

func (w *WednesdayCallPreference) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (w *WednesdayCallPreference) EncodeObjective(m *solver.Model, c *scheduling.Context) error {
	for i, p := range c.People {
		if !p.IsFaculty() || !p.PrefersWednesdayCall {
			continue
		}
		for j, b := range c.Blocks {
			if b.Weekday() != time.Wednesday {
				continue
			}
			for k, t := range c.Templates {
				if t.ActivityType != roster.ActivityCall {
					continue
				}
				if v, ok := m.Lookup(i, j, k); ok {
					m.AddObjective(v, w.weight)
				}
			}
		}
	}
	return nil
}
