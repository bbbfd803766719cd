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

// Package constraints is the concrete constraint library: ACGME regulatory
// rules, rotation-specific patterns, capacity, and the soft preference
// terms. Every constraint encodes into the solver model and re-validates
// existing assignments; the two paths must agree on semantics.
package constraints

import (
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
)

// Stable constraint names. These appear in violations, stored configuration,
// and minimal cores; renaming one is a breaking change.
const (
	NameAvailability       = "Availability"
	NameOnePerBlock        = "OnePerBlock"
	NameCapacity           = "Capacity"
	NameEightyHourWeek     = "EightyHourWeek"
	NameOneInSeven         = "OneInSeven"
	NameWednesdayAMIntern  = "WednesdayAMInternOnly"
	NameWednesdayPMLecture = "WednesdayPMLecture"
	NamePGY1Continuity     = "PGY1WednesdayContinuity"
	NameNightFloatPattern  = "NightFloatAMPattern"
	NameSupervision        = "Supervision"
	NameEligibility        = "Eligibility"
	NameEquity             = "Equity"
	NamePreferenceTrails   = "PreferenceTrails"
	NameAvoidBackToBack    = "AvoidBackToBackCall"
	NameWednesdayCallPref  = "WednesdayCallPreference"
)

// base carries the identity every constraint shares.
type base struct {
	name     string
	ctype    scheduling.Type
	priority scheduling.Priority
}

func (b base) Name() string                  { return b.name }
func (b base) Type() scheduling.Type         { return b.ctype }
func (b base) Priority() scheduling.Priority { return b.priority }

// blockOf resolves an assignment's block within the context; ok is false
// when the assignment points outside the loaded period.
func blockOf(c *scheduling.Context, a *roster.Assignment) (*roster.Block, bool) {
	j, ok := c.BlockIdx[a.BlockID]
	if !ok {
		return nil, false
	}
	return c.Blocks[j], true
}

func personOf(c *scheduling.Context, a *roster.Assignment) (*roster.Person, bool) {
	i, ok := c.PersonIdx[a.PersonID]
	if !ok {
		return nil, false
	}
	return c.People[i], true
}

// abbrevOf is the activity code of an assignment: the template abbreviation,
// or the free-text override.
func abbrevOf(c *scheduling.Context, a *roster.Assignment) string {
	if t := c.TemplateOf(a); t != nil {
		return t.Abbreviation
	}
	return a.ActivityOverride
}

// byPersonDay groups assignments per person ordinal, then per day key.
func byPersonDay(c *scheduling.Context, assignments []*roster.Assignment) map[int]map[string][]*roster.Assignment {
	out := map[int]map[string][]*roster.Assignment{}
	for _, a := range assignments {
		i, ok := c.PersonIdx[a.PersonID]
		if !ok {
			continue
		}
		b, ok := blockOf(c, a)
		if !ok {
			continue
		}
		if out[i] == nil {
			out[i] = map[string][]*roster.Assignment{}
		}
		day := scheduling.DayKey(b.Date)
		out[i][day] = append(out[i][day], a)
	}
	return out
}

// paramFloat reads a numeric parameter from an envelope, tolerating the
// float64 typing JSON forces on numbers.
func paramFloat(env scheduling.Envelope, key string, def float64) float64 {
	if v, ok := env.Parameters[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
		if i, ok := v.(int); ok {
			return float64(i)
		}
	}
	return def
}

func priorityOf(env scheduling.Envelope, def scheduling.Priority) scheduling.Priority {
	if env.Priority != "" {
		return scheduling.Priority(env.Priority)
	}
	return def
}

func weightOf(env scheduling.Envelope, def float64) float64 {
	if env.Weight != nil {
		return *env.Weight
	}
	return def
}
