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

// Package scheduling holds the constraint framework and the immutable
// context a solve or validation runs against. Constraints encode themselves
// into a solver model and re-check existing assignments; the context gives
// both views the same ordered arrays and index maps.
package scheduling

import (
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/samber/lo"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/store"
)

// Availability is one cell of the person×block matrix. A preload narrows
// availability to a single activity rather than removing it.
type Availability struct {
	Available bool
	Reason    string
	// ForcedAbbrev, when set, restricts the person to the template with this
	// abbreviation on the block.
	ForcedAbbrev string
}

// Context is the read-only snapshot one generation or validation call runs
// against. Arrays are ordered; index maps go from entity id to ordinal.
type Context struct {
	Start time.Time
	End   time.Time

	People    []*roster.Person
	Blocks    []*roster.Block
	Templates []*roster.RotationTemplate

	PersonIdx   map[uuid.UUID]int
	BlockIdx    map[uuid.UUID]int
	TemplateIdx map[uuid.UUID]int

	// Availability[i][j] covers person i on block j.
	Availability [][]Availability

	// Existing assignments enable warm starts and duplicate avoidance.
	Existing []*roster.Assignment

	Refs *roster.RefTable

	templateByAbbrev map[string]int
	blocksByDay      map[string][]int
}

// NewContext assembles the availability matrix and index maps from a period
// snapshot. The snapshot's ordering is preserved, so a deterministic store
// yields a deterministic context.
func NewContext(snap *store.PeriodSnapshot, start, end time.Time) (*Context, error) {
	c := &Context{
		Start:            start,
		End:              end,
		People:           snap.People,
		Blocks:           snap.Blocks,
		Templates:        snap.Templates,
		PersonIdx:        map[uuid.UUID]int{},
		BlockIdx:         map[uuid.UUID]int{},
		TemplateIdx:      map[uuid.UUID]int{},
		Existing:         snap.Assignments,
		Refs:             roster.NewRefTable(snap.People),
		templateByAbbrev: map[string]int{},
		blocksByDay:      map[string][]int{},
	}
	for i, p := range snap.People {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		c.PersonIdx[p.ID] = i
	}
	for j, b := range snap.Blocks {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		c.BlockIdx[b.ID] = j
		day := DayKey(b.Date)
		c.blocksByDay[day] = append(c.blocksByDay[day], j)
	}
	for k, t := range snap.Templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		c.TemplateIdx[t.ID] = k
		c.templateByAbbrev[t.Abbreviation] = k
	}

	c.Availability = make([][]Availability, len(snap.People))
	for i := range c.Availability {
		row := make([]Availability, len(snap.Blocks))
		for j := range row {
			row[j] = Availability{Available: true}
		}
		c.Availability[i] = row
	}
	for _, absence := range snap.Absences {
		i, ok := c.PersonIdx[absence.PersonID]
		if !ok {
			continue
		}
		for j, b := range snap.Blocks {
			if !absence.Covers(b.Date) {
				continue
			}
			if absence.IsBlocking {
				c.Availability[i][j] = Availability{Available: false, Reason: "absence: " + string(absence.Type)}
			} else if c.Availability[i][j].Reason == "" {
				c.Availability[i][j].Reason = "soft absence: " + string(absence.Type)
			}
		}
	}
	for _, preload := range snap.InpatientPreloads {
		i, ok := c.PersonIdx[preload.PersonID]
		if !ok {
			continue
		}
		for j, b := range snap.Blocks {
			if preload.Covers(b.Date) {
				c.Availability[i][j] = Availability{
					Available:    true,
					Reason:       "inpatient preload",
					ForcedAbbrev: string(preload.RotationType),
				}
			}
		}
	}
	for _, preload := range snap.CallPreloads {
		i, ok := c.PersonIdx[preload.PersonID]
		if !ok {
			continue
		}
		for j, b := range snap.Blocks {
			if b.OnDate(preload.CallDate) {
				c.Availability[i][j] = Availability{
					Available:    true,
					Reason:       "call preload",
					ForcedAbbrev: preload.CallType.Abbrev(),
				}
			}
		}
	}
	return c, nil
}

// DayKey normalises a time to its UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Fingerprint hashes the identifying content of the context; identical
// fingerprints plus identical seeds guarantee identical solver output.
func (c *Context) Fingerprint() (uint64, error) {
	type identity struct {
		Start, End  string
		People      []string
		Blocks      []string
		Templates   []string
		Assignments []string
	}
	id := identity{
		Start: DayKey(c.Start),
		End:   DayKey(c.End),
		People: lo.Map(c.People, func(p *roster.Person, _ int) string {
			return p.ID.String()
		}),
		Blocks: lo.Map(c.Blocks, func(b *roster.Block, _ int) string {
			return b.Key()
		}),
		Templates: lo.Map(c.Templates, func(t *roster.RotationTemplate, _ int) string {
			return t.Abbreviation
		}),
		Assignments: lo.Map(c.Existing, func(a *roster.Assignment, _ int) string {
			return a.BlockID.String() + "/" + a.PersonID.String()
		}),
	}
	h, err := hashstructure.Hash(id, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, rotaerrors.Wrap(rotaerrors.KindInternal, err, "hashing context")
	}
	return h, nil
}

// ResidentIndices returns ordinals of every resident, ascending.
func (c *Context) ResidentIndices() []int {
	var out []int
	for i, p := range c.People {
		if p.IsResident() {
			out = append(out, i)
		}
	}
	return out
}

// FacultyIndices returns ordinals of every faculty member, ascending.
func (c *Context) FacultyIndices() []int {
	var out []int
	for i, p := range c.People {
		if p.IsFaculty() {
			out = append(out, i)
		}
	}
	return out
}

// TemplateByAbbrev resolves an abbreviation to its ordinal.
func (c *Context) TemplateByAbbrev(abbrev string) (int, bool) {
	k, ok := c.templateByAbbrev[abbrev]
	return k, ok
}

// BlocksOnDay returns block ordinals sharing the date, ascending (AM first).
func (c *Context) BlocksOnDay(date time.Time) []int {
	return c.blocksByDay[DayKey(date)]
}

// Days lists the distinct dates covered by the context's blocks, ascending.
func (c *Context) Days() []time.Time {
	seen := map[string]bool{}
	var out []time.Time
	for _, b := range c.Blocks {
		key := DayKey(b.Date)
		if !seen[key] {
			seen[key] = true
			out = append(out, b.Date)
		}
	}
	return out
}

// TemplateOf resolves an assignment's template, nil for overrides.
func (c *Context) TemplateOf(a *roster.Assignment) *roster.RotationTemplate {
	if a.RotationTemplateID == nil {
		return nil
	}
	if k, ok := c.TemplateIdx[*a.RotationTemplateID]; ok {
		return c.Templates[k]
	}
	return nil
}

// HoursOf is the duty-hour contribution of one assignment.
func (c *Context) HoursOf(a *roster.Assignment) int {
	if t := c.TemplateOf(a); t != nil {
		return t.Hours()
	}
	return roster.HalfDayHours
}

// Available reports the cell for (person ordinal, block ordinal).
func (c *Context) Available(i, j int) Availability {
	return c.Availability[i][j]
}

// PersonRef is the anonymised ref for logs and violations.
func (c *Context) PersonRef(id uuid.UUID) string {
	return c.Refs.Ref(id)
}
