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

// Package roster holds the entities the scheduling engine operates on. The
// entity store owns every value in here; all other packages hold read-only
// references scoped to a single request.
package roster

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
)

// PersonKind separates residents from faculty. Residents carry a PGY level,
// faculty never do.
type PersonKind string

const (
	PersonKindResident PersonKind = "resident"
	PersonKindFaculty  PersonKind = "faculty"
)

func ParsePersonKind(s string) (PersonKind, error) {
	switch PersonKind(s) {
	case PersonKindResident, PersonKindFaculty:
		return PersonKind(s), nil
	}
	return "", rotaerrors.Invalid("unknown person kind %q", s)
}

// AdminType categorises protected administrative half-days.
type AdminType string

const (
	AdminTypeGME AdminType = "GME"
	AdminTypeDFM AdminType = "DFM"
	AdminTypeSM  AdminType = "SM"
)

// Person is a resident or faculty member. CallCounts and FMITWeeksCount are
// equity counters maintained by collaborators; the engine reads them as soft
// constraint inputs only.
type Person struct {
	ID          uuid.UUID
	Name        string
	Kind        PersonKind
	PGYLevel    *int
	Email       string
	Specialties []string
	FacultyRole string
	AdminType   AdminType

	MinClinicHalfDaysPerWeek int
	MaxClinicHalfDaysPerWeek int

	SundayCallCount  int
	WeekdayCallCount int
	FMITWeeksCount   int

	// Preference flags consumed by soft constraints.
	AvoidBackToBackCall  bool
	PrefersWednesdayCall bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate enforces the structural invariants: PGY level set iff resident.
func (p *Person) Validate() error {
	if p.ID == uuid.Nil {
		return rotaerrors.Invalid("person id is required")
	}
	switch p.Kind {
	case PersonKindResident:
		if p.PGYLevel == nil {
			return rotaerrors.Invalid("resident requires a pgy level")
		}
		if *p.PGYLevel < 1 {
			return rotaerrors.Invalid("pgy level must be >= 1, got %d", *p.PGYLevel)
		}
	case PersonKindFaculty:
		if p.PGYLevel != nil {
			return rotaerrors.Invalid("faculty must not carry a pgy level")
		}
	default:
		return rotaerrors.Invalid("unknown person kind %q", p.Kind)
	}
	return nil
}

func (p *Person) IsResident() bool { return p.Kind == PersonKindResident }

func (p *Person) IsFaculty() bool { return p.Kind == PersonKindFaculty }

// PGY returns the resident's PGY level, or 0 for faculty.
func (p *Person) PGY() int {
	if p.PGYLevel == nil {
		return 0
	}
	return *p.PGYLevel
}

// SupervisionWeight is the number of supervision "slots" this resident
// consumes: interns supervise at 1:2, everyone else at 1:4, so an intern
// weighs twice as much against the 4-slot faculty capacity.
func (p *Person) SupervisionWeight() int {
	if p.PGY() == 1 {
		return 2
	}
	return 1
}

// RequiredFaculty is the minimum supervising faculty for the given resident
// census on one block: ceil((2*pgy1 + others) / 4).
func RequiredFaculty(pgy1Count, otherCount int) int {
	load := 2*pgy1Count + otherCount
	return (load + 3) / 4
}

// RefTable maps person ids to anonymised refs for logs and violations.
// Residents are numbered RES-001.. in id order so refs are stable across
// calls on the same population; faculty use their role tag when present.
type RefTable struct {
	refs map[uuid.UUID]string
}

func NewRefTable(people []*Person) *RefTable {
	t := &RefTable{refs: map[uuid.UUID]string{}}
	sorted := make([]*Person, len(people))
	copy(sorted, people)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.String() < sorted[j].ID.String() })
	residents, faculty := 0, 0
	for _, p := range sorted {
		if p.IsResident() {
			residents++
			t.refs[p.ID] = fmt.Sprintf("RES-%03d", residents)
			continue
		}
		faculty++
		if p.FacultyRole != "" {
			t.refs[p.ID] = fmt.Sprintf("FAC-%s", p.FacultyRole)
		} else {
			t.refs[p.ID] = fmt.Sprintf("FAC-%03d", faculty)
		}
	}
	return t
}

// Ref returns the anonymised ref for id, or "UNKNOWN" when the person was not
// part of the population the table was built from.
func (t *RefTable) Ref(id uuid.UUID) string {
	if ref, ok := t.refs[id]; ok {
		return ref
	}
	return "UNKNOWN"
}
