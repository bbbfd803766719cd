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

package test

import (
	"context"
	"fmt"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/store/memory"
)

// Environment bundles a seeded in-memory store with the population it holds,
// so suites can reach entities by name instead of re-querying.
type Environment struct {
	Store     *memory.Store
	Clock     *clocktesting.FakeClock
	People    []*roster.Person
	Blocks    []*roster.Block
	Templates []*roster.RotationTemplate
}

// EnvironmentOptions size the default population and period.
type EnvironmentOptions struct {
	Residents   int
	PGY1        int
	Faculty     int
	PeriodStart time.Time
	PeriodDays  int
}

// NewEnvironment seeds a store with the standard template catalogue, a
// resident/faculty population, and a block grid. Zero options get a two-week
// period with six residents (two interns) and three faculty.
func NewEnvironment(overrides ...EnvironmentOptions) *Environment {
	options := EnvironmentOptions{}
	if len(overrides) > 0 {
		options = overrides[len(overrides)-1]
	}
	if options.Residents == 0 {
		options.Residents = 6
	}
	if options.PGY1 == 0 {
		options.PGY1 = 2
	}
	if options.Faculty == 0 {
		options.Faculty = 3
	}
	if options.PeriodStart.IsZero() {
		options.PeriodStart = DefaultPeriodStart
	}
	if options.PeriodDays == 0 {
		options.PeriodDays = 14
	}

	clk := clocktesting.NewFakeClock(options.PeriodStart)
	env := &Environment{
		Store:     memory.NewStore(clk),
		Clock:     clk,
		Blocks:    Period(options.PeriodStart, options.PeriodDays),
		Templates: StandardTemplates(),
	}
	for i := 0; i < options.Residents; i++ {
		pgy := 2
		if i < options.PGY1 {
			pgy = 1
		}
		env.People = append(env.People, Resident(pgy, PersonOptions{Name: fmt.Sprintf("resident-%02d", i+1)}))
	}
	for i := 0; i < options.Faculty; i++ {
		env.People = append(env.People, Faculty(PersonOptions{Name: fmt.Sprintf("faculty-%02d", i+1)}))
	}
	for _, p := range env.People {
		env.Store.AddPerson(p)
	}
	for _, b := range env.Blocks {
		env.Store.AddBlock(b)
	}
	for _, t := range env.Templates {
		env.Store.AddTemplate(t)
	}
	return env
}

// PeriodSpan is the [start, end) range covering every seeded block.
func (e *Environment) PeriodSpan() (time.Time, time.Time) {
	start := e.Blocks[0].Date
	end := e.Blocks[len(e.Blocks)-1].Date.AddDate(0, 0, 1)
	return start, end
}

// Residents returns the seeded residents in seed order.
func (e *Environment) Residents() []*roster.Person {
	var out []*roster.Person
	for _, p := range e.People {
		if p.IsResident() {
			out = append(out, p)
		}
	}
	return out
}

// FacultyMembers returns the seeded faculty in seed order.
func (e *Environment) FacultyMembers() []*roster.Person {
	var out []*roster.Person
	for _, p := range e.People {
		if p.IsFaculty() {
			out = append(out, p)
		}
	}
	return out
}

// Template returns the seeded template with the given code.
func (e *Environment) Template(abbrev string) *roster.RotationTemplate {
	return TemplateByAbbrev(e.Templates, abbrev)
}

// Assign persists an assignment fixture for (person, block, template).
func (e *Environment) Assign(p *roster.Person, b *roster.Block, t *roster.RotationTemplate, overrides ...AssignmentOptions) *roster.Assignment {
	a := Assignment(append(overrides, AssignmentOptions{Block: b, Person: p, Template: t})...)
	if err := e.Store.SaveAssignment(context.Background(), a); err != nil {
		panic(fmt.Sprintf("Failed to seed assignment: %s", err.Error()))
	}
	return a
}
