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
	"time"

	"github.com/google/uuid"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
)

type AbsenceType string

const (
	AbsenceVacation   AbsenceType = "vacation"
	AbsenceDeployment AbsenceType = "deployment"
	AbsenceTDY        AbsenceType = "tdy"
	AbsenceMedical    AbsenceType = "medical"
	AbsenceOther      AbsenceType = "other"
)

func ParseAbsenceType(s string) (AbsenceType, error) {
	switch AbsenceType(s) {
	case AbsenceVacation, AbsenceDeployment, AbsenceTDY, AbsenceMedical, AbsenceOther:
		return AbsenceType(s), nil
	}
	return "", rotaerrors.Invalid("unknown absence type %q", s)
}

// Absence removes a person from scheduling over a closed date interval.
// Blocking absences forbid assignments; non-blocking ones only warn.
type Absence struct {
	ID        uuid.UUID
	PersonID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Type      AbsenceType
	IsBlocking bool
}

func (a *Absence) Validate() error {
	if a.PersonID == uuid.Nil {
		return rotaerrors.Invalid("absence requires a person id")
	}
	if a.EndDate.Before(a.StartDate) {
		return rotaerrors.Invalid("absence end date precedes start date")
	}
	return nil
}

// Covers reports whether the date falls inside [StartDate, EndDate].
func (a *Absence) Covers(date time.Time) bool {
	d := date.UTC().Truncate(24 * time.Hour)
	start := a.StartDate.UTC().Truncate(24 * time.Hour)
	end := a.EndDate.UTC().Truncate(24 * time.Hour)
	return !d.Before(start) && !d.After(end)
}

// InpatientRotationType names the preloaded inpatient services. The codes
// are preserved verbatim for compatibility with upstream feeds.
type InpatientRotationType string

const (
	RotationFMIT  InpatientRotationType = "FMIT"
	RotationNF    InpatientRotationType = "NF"
	RotationPedW  InpatientRotationType = "PedW"
	RotationPedNF InpatientRotationType = "PedNF"
	RotationKAP   InpatientRotationType = "KAP"
	RotationIM    InpatientRotationType = "IM"
	RotationLDNF  InpatientRotationType = "LDNF"
)

func ParseInpatientRotationType(s string) (InpatientRotationType, error) {
	switch InpatientRotationType(s) {
	case RotationFMIT, RotationNF, RotationPedW, RotationPedNF, RotationKAP,
		RotationIM, RotationLDNF:
		return InpatientRotationType(s), nil
	}
	return "", rotaerrors.Invalid("unknown inpatient rotation type %q", s)
}

// InpatientPreload pins a person to an inpatient service for a date span.
// Preloads convert into hard availability overrides during context assembly:
// the person is only "available" for the preloaded activity.
type InpatientPreload struct {
	ID           uuid.UUID
	PersonID     uuid.UUID
	RotationType InpatientRotationType
	StartDate    time.Time
	EndDate      time.Time
	FMITWeek     *int
}

func (p *InpatientPreload) Validate() error {
	if p.PersonID == uuid.Nil {
		return rotaerrors.Invalid("inpatient preload requires a person id")
	}
	if p.EndDate.Before(p.StartDate) {
		return rotaerrors.Invalid("inpatient preload end date precedes start date")
	}
	if _, err := ParseInpatientRotationType(string(p.RotationType)); err != nil {
		return err
	}
	if p.FMITWeek != nil && (*p.FMITWeek < 1 || *p.FMITWeek > 4) {
		return rotaerrors.Invalid("fmit week must be 1..4, got %d", *p.FMITWeek)
	}
	return nil
}

// Covers reports whether the date falls inside the preload span.
func (p *InpatientPreload) Covers(date time.Time) bool {
	d := date.UTC().Truncate(24 * time.Hour)
	start := p.StartDate.UTC().Truncate(24 * time.Hour)
	end := p.EndDate.UTC().Truncate(24 * time.Hour)
	return !d.Before(start) && !d.After(end)
}

type CallType string

const (
	CallLD24Hour   CallType = "ld_24hr"
	CallNFCoverage CallType = "nf_coverage"
	CallWeekend    CallType = "weekend"
)

func ParseCallType(s string) (CallType, error) {
	switch CallType(s) {
	case CallLD24Hour, CallNFCoverage, CallWeekend:
		return CallType(s), nil
	}
	return "", rotaerrors.Invalid("unknown call type %q", s)
}

// Hours is the duty-hour contribution of the call shift.
func (c CallType) Hours() int {
	if c == CallLD24Hour {
		return 24
	}
	return DefaultCallHours
}

// Abbrev maps the call type to the template code a call preload pins the
// resident to.
func (c CallType) Abbrev() string {
	switch c {
	case CallLD24Hour:
		return "LD"
	case CallNFCoverage:
		return "NF"
	default:
		return "WKND"
	}
}

// CallPreload pins a resident to a call shift on a single date.
type CallPreload struct {
	ID       uuid.UUID
	PersonID uuid.UUID
	CallDate time.Time
	CallType CallType
}

func (p *CallPreload) Validate() error {
	if p.PersonID == uuid.Nil {
		return rotaerrors.Invalid("call preload requires a person id")
	}
	if _, err := ParseCallType(string(p.CallType)); err != nil {
		return err
	}
	return nil
}
