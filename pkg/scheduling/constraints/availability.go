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

// Availability forbids placing anyone on a block the availability matrix
// rules out, and narrows preloaded people to their preloaded activity.
type Availability struct {
	base
}

func NewAvailability() *Availability {
	return &Availability{base{name: NameAvailability, ctype: scheduling.TypeAvailability, priority: scheduling.PriorityCritical}}
}

func (av *Availability) Parameters() map[string]interface{} {
	return map[string]interface{}{}
}

func (av *Availability) Encode(m *solver.Model, c *scheduling.Context) error {
	for i := range c.People {
		for j := range c.Blocks {
			cell := c.Available(i, j)
			if cell.Available && cell.ForcedAbbrev == "" {
				continue
			}
			forcedK := -1
			if cell.ForcedAbbrev != "" {
				if k, ok := c.TemplateByAbbrev(cell.ForcedAbbrev); ok {
					forcedK = k
				}
			}
			for k := range c.Templates {
				v, ok := m.Lookup(i, j, k)
				if !ok {
					continue
				}
				if !cell.Available || (forcedK >= 0 && k != forcedK) {
					m.Forbid(v)
				}
			}
		}
	}
	return nil
}

func (av *Availability) Validate(c *scheduling.Context, assignments []*roster.Assignment) []scheduling.Violation {
	var out []scheduling.Violation
	for _, a := range assignments {
		i, ok := c.PersonIdx[a.PersonID]
		if !ok {
			continue
		}
		b, ok := blockOf(c, a)
		if !ok {
			continue
		}
		cell := c.Available(i, c.BlockIdx[a.BlockID])
		if cell.Available || a.IsOverride() {
			continue
		}
		out = append(out, scheduling.Violation{
			ConstraintName:  NameAvailability,
			Severity:        scheduling.SeverityCritical,
			Message:         fmt.Sprintf("%s is assigned on %s %s while unavailable (%s)", c.PersonRef(a.PersonID), scheduling.DayKey(b.Date), b.TimeOfDay, cell.Reason),
			PersonRef:       c.PersonRef(a.PersonID),
			BlockID:         a.BlockID,
			Date:            b.Date,
			Details:         map[string]interface{}{"reason": cell.Reason},
			SuggestedAction: "remove the assignment or record an acknowledged override",
		})
	}
	return out
}
