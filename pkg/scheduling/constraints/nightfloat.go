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

// NightFloatAMPattern enforces the fixed morning slot that follows each
// overnight rotation: a resident on NF in the evening is OFF-AM the same
// morning, NEURO-NF pairs with NEURO, and so on per the pattern table.
type NightFloatAMPattern struct {
	base
}

func NewNightFloatAMPattern() *NightFloatAMPattern {
	return &NightFloatAMPattern{base{name: NameNightFloatPattern, ctype: scheduling.TypeRotation, priority: scheduling.PriorityHigh}}
}

func (n *NightFloatAMPattern) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (n *NightFloatAMPattern) Encode(m *solver.Model, c *scheduling.Context) error {
	for j, b := range c.Blocks {
		if b.TimeOfDay != roster.PM {
			continue
		}
		amBlock := -1
		for _, jj := range c.BlocksOnDay(b.Date) {
			if c.Blocks[jj].TimeOfDay == roster.AM {
				amBlock = jj
			}
		}
		if amBlock < 0 {
			continue
		}
		for kPM, tPM := range c.Templates {
			amAbbrev, isNF := roster.NightFloatAMPattern[tPM.Abbreviation]
			if !isNF {
				continue
			}
			kAM, hasAM := c.TemplateByAbbrev(amAbbrev)
			for _, i := range c.ResidentIndices() {
				pm, ok := m.Lookup(i, j, kPM)
				if !ok {
					continue
				}
				if !hasAM {
					// The paired morning template isn't in the population;
					// the night rotation can't be placed legally.
					m.Forbid(pm)
					continue
				}
				am, ok := m.Lookup(i, amBlock, kAM)
				if !ok {
					m.Forbid(pm)
					continue
				}
				// pm implies am: pm - am <= 0.
				m.AddLinear(NameNightFloatPattern, []int{pm, am}, []float64{1, -1}, solver.OpLE, 0)
			}
		}
	}
	return nil
}

func (n *NightFloatAMPattern) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	var out []scheduling.Violation
	for i, days := range byPersonDay(c, assignments) {
		if !c.People[i].IsResident() {
			continue
		}
		for _, dayAssignments := range days {
			var pmAbbrev string
			var pmBlock *roster.Block
			amAbbrev := ""
			for _, a := range dayAssignments {
				b, ok := blockOf(c, a)
				if !ok {
					continue
				}
				if b.TimeOfDay == roster.PM && roster.IsNightFloatAbbrev(abbrevOf(c, a)) {
					pmAbbrev = abbrevOf(c, a)
					pmBlock = b
				}
				if b.TimeOfDay == roster.AM {
					amAbbrev = abbrevOf(c, a)
				}
			}
			if pmAbbrev == "" {
				continue
			}
			want := roster.NightFloatAMPattern[pmAbbrev]
			if amAbbrev == want {
				continue
			}
			ref := c.PersonRef(c.People[i].ID)
			got := amAbbrev
			if got == "" {
				got = "nothing"
			}
			out = append(out, scheduling.Violation{
				ConstraintName:  NameNightFloatPattern,
				Severity:        scheduling.SeverityHigh,
				Message:         fmt.Sprintf("%s is on %s overnight %s but holds %s instead of %s that morning", ref, pmAbbrev, scheduling.DayKey(pmBlock.Date), got, want),
				PersonRef:       ref,
				BlockID:         pmBlock.ID,
				Date:            pmBlock.Date,
				Details:         map[string]interface{}{"night_rotation": pmAbbrev, "expected_am": want, "actual_am": amAbbrev},
				SuggestedAction: fmt.Sprintf("set the morning slot to %s", want),
			})
		}
	}
	scheduling.SortViolations(out)
	return out
}
