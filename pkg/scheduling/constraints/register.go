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
	"github.com/gmesched/rota/pkg/scheduling"
)

// Default soft weights, overridable per envelope or through configuration.
const (
	DefaultEquityWeight        = 5.0
	DefaultTrailsWeight        = 2.0
	DefaultBackToBackWeight    = 10.0
	DefaultWednesdayCallWeight = 3.0
)

// Register installs every constraint factory into a registry so stored
// envelopes can be rebuilt.
func Register(reg *scheduling.Registry) {
	reg.Register(NameAvailability, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewAvailability()
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NameOnePerBlock, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewOnePerBlock()
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NameCapacity, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewCapacity(int(paramFloat(env, "default_capacity", 0)))
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NameEightyHourWeek, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewEightyHourWeek(int(paramFloat(env, "max_hours", MaxWeeklyHours)))
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NameOneInSeven, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewOneInSeven()
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NameWednesdayAMIntern, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewWednesdayAMInternOnly()
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NameWednesdayPMLecture, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewWednesdayPMLecture()
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NamePGY1Continuity, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewPGY1WednesdayContinuity()
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NameNightFloatPattern, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewNightFloatAMPattern()
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NameSupervision, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewSupervision()
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})
	reg.Register(NameEligibility, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		c := NewEligibility()
		c.priority = priorityOf(env, c.priority)
		return c, nil
	})

	reg.Register(NameEquity, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		return NewEquity(weightOf(env, DefaultEquityWeight)), nil
	})
	reg.Register(NamePreferenceTrails, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		return NewPreferenceTrails(weightOf(env, DefaultTrailsWeight)), nil
	})
	reg.Register(NameAvoidBackToBack, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		return NewAvoidBackToBackCall(weightOf(env, DefaultBackToBackWeight)), nil
	})
	reg.Register(NameWednesdayCallPref, func(env scheduling.Envelope) (scheduling.Constraint, error) {
		return NewWednesdayCallPreference(weightOf(env, DefaultWednesdayCallWeight)), nil
	})
}

// DefaultHard is the standard hard set a generation run enforces, already in
// diagnostic priority order.
func DefaultHard() []scheduling.HardConstraint {
	return []scheduling.HardConstraint{
		NewAvailability(),
		NewOnePerBlock(),
		NewEightyHourWeek(MaxWeeklyHours),
		NewOneInSeven(),
		NewSupervision(),
		NewCapacity(0),
		NewEligibility(),
		NewNightFloatAMPattern(),
		NewPGY1WednesdayContinuity(),
		NewWednesdayAMInternOnly(),
		NewWednesdayPMLecture(),
	}
}

// DefaultSoft is the standard objective set with the stock weights.
func DefaultSoft() []scheduling.SoftConstraint {
	return []scheduling.SoftConstraint{
		NewEquity(DefaultEquityWeight),
		NewPreferenceTrails(DefaultTrailsWeight),
		NewAvoidBackToBackCall(DefaultBackToBackWeight),
		NewWednesdayCallPreference(DefaultWednesdayCallWeight),
	}
}
