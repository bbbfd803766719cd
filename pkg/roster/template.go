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

package roster

import (
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
)

type ActivityType string

const (
	ActivityClinic    ActivityType = "clinic"
	ActivityInpatient ActivityType = "inpatient"
	ActivityProcedure ActivityType = "procedure"
	ActivityLecture   ActivityType = "lecture"
	ActivityCall      ActivityType = "call"
	ActivityAdmin     ActivityType = "admin"
	ActivityOff       ActivityType = "off"
)

func ParseActivityType(s string) (ActivityType, error) {
	switch ActivityType(s) {
	case ActivityClinic, ActivityInpatient, ActivityProcedure, ActivityLecture,
		ActivityCall, ActivityAdmin, ActivityOff:
		return ActivityType(s), nil
	}
	return "", rotaerrors.Invalid("unknown activity type %q", s)
}

// Rotation code policy. The spellings are load-bearing: they match what the
// residency program prints on its half-day grid and what preloads carry.
const (
	AbbrevClinic     = "C"
	AbbrevLecture    = "LEC-PM"
	AbbrevOffAM      = "OFF-AM"
	AbbrevNeuro      = "NEURO"
	AbbrevLaborDeliv = "L&D"
	AbbrevKapiolani  = "KAP"
)

// ContinuityAbbrevs are the template codes that satisfy the PGY-1
// Wednesday-AM continuity clinic requirement.
var ContinuityAbbrevs = map[string]struct{}{
	"C": {}, "CONT": {}, "CONTINUITY": {},
}

// LectureExemptAbbrevs lists the rotations excused from Wednesday-PM lecture,
// all overnight or away rotations.
var LectureExemptAbbrevs = map[string]struct{}{
	"NF": {}, "NF-PM": {}, "NF-ENDO": {}, "NEURO-NF": {}, "PNF": {},
	"LDNF": {}, "KAPI-LD": {}, "HILO": {}, "TDY": {},
}

// NightFloatAMPattern maps a night-float PM rotation code to the template the
// same resident must hold the following morning.
var NightFloatAMPattern = map[string]string{
	"NF":       AbbrevOffAM,
	"NF-PM":    AbbrevOffAM,
	"NF-ENDO":  AbbrevOffAM,
	"NEURO-NF": AbbrevNeuro,
	"PNF":      AbbrevOffAM,
	"LDNF":     AbbrevLaborDeliv,
	"KAPI-LD":  AbbrevKapiolani,
}

func IsNightFloatAbbrev(abbrev string) bool {
	_, ok := NightFloatAMPattern[abbrev]
	return ok
}

func IsLectureExempt(abbrev string) bool {
	_, ok := LectureExemptAbbrevs[abbrev]
	return ok
}

func IsContinuityClinic(abbrev string) bool {
	_, ok := ContinuityAbbrevs[abbrev]
	return ok
}

// DefaultClinicCapacity bounds how many residents fit in the physical clinic
// for one half-day when a template doesn't set its own limit.
const DefaultClinicCapacity = 6

// HalfDayHours is the duty-hour contribution of one non-call half-day block.
const HalfDayHours = 4

// DefaultCallHours is the duty-hour contribution of a call assignment when
// the template doesn't pin a shift length.
const DefaultCallHours = 12

// RotationTemplate describes one kind of schedulable activity. A template
// gates who may hold it (person kind, PGY range, specialties) and where it
// may be placed (time of day, capacity).
type RotationTemplate struct {
	ID           uuid.UUID
	Name         string
	Abbreviation string
	ActivityType ActivityType

	AllowedPersonTypes  []PersonKind
	MinPGYLevel         *int
	MaxPGYLevel         *int
	RequiredSpecialties []string

	// TimeOfDay restricts the template to one half of the day. Nil means
	// either half is allowed.
	TimeOfDay *TimeOfDay

	CountsTowardPhysicalCapacity bool
	MaxResidents                 int

	// CallHours overrides the duty-hour length for call templates. Zero
	// falls back to DefaultCallHours.
	CallHours int
}

func (t *RotationTemplate) Validate() error {
	if t.ID == uuid.Nil {
		return rotaerrors.Invalid("rotation template id is required")
	}
	if t.Abbreviation == "" {
		return rotaerrors.Invalid("rotation template %q requires an abbreviation", t.Name)
	}
	if t.Abbreviation != strings.ToUpper(t.Abbreviation) {
		return rotaerrors.Invalid("rotation template abbreviation %q must be upper-case", t.Abbreviation)
	}
	if t.MinPGYLevel != nil && t.MaxPGYLevel != nil && *t.MinPGYLevel > *t.MaxPGYLevel {
		return rotaerrors.Invalid("rotation template %q has reversed pgy bounds", t.Abbreviation)
	}
	return nil
}

// Allows reports whether the person passes the template's kind, PGY, and
// specialty gates. It says nothing about availability or capacity.
func (t *RotationTemplate) Allows(p *Person) bool {
	if len(t.AllowedPersonTypes) > 0 && !lo.Contains(t.AllowedPersonTypes, p.Kind) {
		return false
	}
	if p.IsResident() {
		if t.MinPGYLevel != nil && p.PGY() < *t.MinPGYLevel {
			return false
		}
		if t.MaxPGYLevel != nil && p.PGY() > *t.MaxPGYLevel {
			return false
		}
	}
	for _, required := range t.RequiredSpecialties {
		if !lo.Contains(p.Specialties, required) {
			return false
		}
	}
	return true
}

// AllowsTimeOfDay reports whether the template may occupy the given half.
// Templates that never set a restriction fit either half.
func (t *RotationTemplate) AllowsTimeOfDay(tod TimeOfDay) bool {
	return t.TimeOfDay == nil || *t.TimeOfDay == tod
}

// Capacity is the per-slot resident limit when the template occupies
// physical space, falling back to the clinic default.
func (t *RotationTemplate) Capacity() int {
	if t.MaxResidents > 0 {
		return t.MaxResidents
	}
	return DefaultClinicCapacity
}

// Hours is the duty-hour contribution of holding this template for one block.
// Off blocks are rest, not duty.
func (t *RotationTemplate) Hours() int {
	switch t.ActivityType {
	case ActivityOff:
		return 0
	case ActivityCall:
		if t.CallHours > 0 {
			return t.CallHours
		}
		return DefaultCallHours
	}
	return HalfDayHours
}

// Occupies reports whether holding this template counts as a worked slot for
// rest rules. An explicit off placement leaves the day free.
func (t *RotationTemplate) Occupies() bool {
	return t.ActivityType != ActivityOff
}

// ClinicCapable reports whether assignments to this template count as clinic
// time for continuity and Wednesday-AM rules.
func (t *RotationTemplate) ClinicCapable() bool {
	return t.ActivityType == ActivityClinic
}

// SupervisingCapable reports whether a faculty member assigned to this
// template counts toward the supervision ratio. Lectures, admin slots, and
// off blocks never supervise; see the faculty role taxonomy on AssignmentRole.
func (t *RotationTemplate) SupervisingCapable() bool {
	switch t.ActivityType {
	case ActivityClinic, ActivityInpatient, ActivityProcedure:
		return true
	}
	return false
}
