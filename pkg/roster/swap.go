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

type SwapType string

const (
	SwapOneToOne SwapType = "ONE_TO_ONE"
	SwapAbsorb   SwapType = "ABSORB"
)

type SwapStatus string

const (
	SwapPending   SwapStatus = "PENDING"
	SwapApproved  SwapStatus = "APPROVED"
	SwapRejected  SwapStatus = "REJECTED"
	SwapCompleted SwapStatus = "COMPLETED"
)

// SwapRecord is a request to trade one week of assignments. Lifecycle:
// PENDING -> (APPROVED | REJECTED) -> COMPLETED, enforced by the transition
// methods; the matcher only reads PENDING records.
type SwapRecord struct {
	ID              uuid.UUID
	SourcePersonID  uuid.UUID
	SourceWeekStart time.Time
	TargetPersonID  *uuid.UUID
	TargetWeekStart *time.Time
	Type            SwapType
	Status          SwapStatus

	// PreferenceTags bias the matcher toward counterparts sharing a tag.
	PreferenceTags []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *SwapRecord) Validate() error {
	if s.SourcePersonID == uuid.Nil {
		return rotaerrors.Invalid("swap requires a source person id")
	}
	if s.Type != SwapOneToOne && s.Type != SwapAbsorb {
		return rotaerrors.Invalid("unknown swap type %q", s.Type)
	}
	switch s.Status {
	case SwapPending, SwapApproved, SwapRejected, SwapCompleted:
	default:
		return rotaerrors.Invalid("unknown swap status %q", s.Status)
	}
	return nil
}

// Approve moves PENDING to APPROVED, recording the matched counterpart.
func (s *SwapRecord) Approve(target uuid.UUID, targetWeek time.Time, now time.Time) error {
	if s.Status != SwapPending {
		return rotaerrors.Conflict("swap %s is %s, not PENDING", s.ID, s.Status)
	}
	s.Status = SwapApproved
	s.TargetPersonID = &target
	s.TargetWeekStart = &targetWeek
	s.UpdatedAt = now
	return nil
}

// Reject moves PENDING to REJECTED.
func (s *SwapRecord) Reject(now time.Time) error {
	if s.Status != SwapPending {
		return rotaerrors.Conflict("swap %s is %s, not PENDING", s.ID, s.Status)
	}
	s.Status = SwapRejected
	s.UpdatedAt = now
	return nil
}

// Complete moves APPROVED to COMPLETED once assignments have been exchanged.
func (s *SwapRecord) Complete(now time.Time) error {
	if s.Status != SwapApproved {
		return rotaerrors.Conflict("swap %s is %s, not APPROVED", s.ID, s.Status)
	}
	s.Status = SwapCompleted
	s.UpdatedAt = now
	return nil
}
