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

// AssignmentRole describes what the person does on the block.
//
// Faculty role taxonomy: RoleSupervising always counts toward the supervision
// ratio. RolePrimary counts only when the assigned template is itself a
// supervising activity (clinic, inpatient, procedure) — the upstream data is
// inconsistent about "primary" faculty on admin slots, so the template
// decides. RoleBackup never counts.
type AssignmentRole string

const (
	RolePrimary     AssignmentRole = "primary"
	RoleSupervising AssignmentRole = "supervising"
	RoleBackup      AssignmentRole = "backup"
)

func ParseAssignmentRole(s string) (AssignmentRole, error) {
	switch AssignmentRole(s) {
	case RolePrimary, RoleSupervising, RoleBackup:
		return AssignmentRole(s), nil
	}
	return "", rotaerrors.Invalid("unknown assignment role %q", s)
}

// AssignmentSource records which pipeline wrote the assignment.
type AssignmentSource string

const (
	SourcePreload  AssignmentSource = "preload"
	SourceManual   AssignmentSource = "manual"
	SourceSolver   AssignmentSource = "solver"
	SourceTemplate AssignmentSource = "template"
)

// Assignment places one person on one block. Assignments are value types:
// updates never mutate in place, they produce a new value persisted through
// the store port, and UpdatedAt doubles as the optimistic-lock token.
type Assignment struct {
	ID                 uuid.UUID
	BlockID            uuid.UUID
	PersonID           uuid.UUID
	RotationTemplateID *uuid.UUID

	Role AssignmentRole

	// ActivityOverride is free text taking the place of a template, always
	// paired with an OverrideReason.
	ActivityOverride       string
	Notes                  string
	OverrideReason         string
	OverrideAcknowledgedAt *time.Time

	// Solver outputs.
	Confidence float64
	Score      float64

	Source    AssignmentSource
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Assignment) Validate() error {
	if a.BlockID == uuid.Nil {
		return rotaerrors.Invalid("assignment requires a block id")
	}
	if a.PersonID == uuid.Nil {
		return rotaerrors.Invalid("assignment requires a person id")
	}
	if a.RotationTemplateID == nil && a.ActivityOverride == "" {
		return rotaerrors.Invalid("assignment requires a rotation template or an activity override")
	}
	if a.ActivityOverride != "" && a.OverrideReason == "" {
		return rotaerrors.Invalid("activity override requires an override reason")
	}
	if _, err := ParseAssignmentRole(string(a.Role)); err != nil {
		return err
	}
	return nil
}

// IsOverride reports whether the assignment bypasses availability with an
// acknowledged reason.
func (a *Assignment) IsOverride() bool {
	return a.OverrideReason != ""
}

// LockToken is the optimistic-lock comparison value. Stores truncate to
// microseconds so a round-trip through a TIMESTAMPTZ column compares equal.
func (a *Assignment) LockToken() time.Time {
	return a.UpdatedAt.UTC().Truncate(time.Microsecond)
}

// HalfDayAssignment is the persisted grid view: one activity per (person,
// date, half). It is derived from Assignment rows and preloads; the grid is
// what reports and the swap matcher read.
type HalfDayAssignment struct {
	PersonID   uuid.UUID
	Date       time.Time
	TimeOfDay  TimeOfDay
	ActivityID uuid.UUID
	Source     AssignmentSource
	IsOverride bool
}
