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

// Package store defines the persistence port the engine consumes. The engine
// never talks to a database directly; implementations live in store/memory
// and store/postgres.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gmesched/rota/pkg/roster"
)

// PeriodSnapshot is everything the engine needs to reason about one date
// range. Slices are owned by the caller once returned; implementations must
// not retain or mutate them.
type PeriodSnapshot struct {
	People            []*roster.Person
	Blocks            []*roster.Block
	Templates         []*roster.RotationTemplate
	Assignments       []*roster.Assignment
	Absences          []*roster.Absence
	InpatientPreloads []*roster.InpatientPreload
	CallPreloads      []*roster.CallPreload
}

// AssignmentPatch carries the mutable fields of an assignment update. Nil
// fields are left unchanged.
type AssignmentPatch struct {
	RotationTemplateID *uuid.UUID
	Role               *roster.AssignmentRole
	ActivityOverride   *string
	Notes              *string
	OverrideReason     *string
	Confidence         *float64
	Score              *float64
}

// Store is the persistence port. Reads outside a transaction see committed
// state; writes must go through BeginTx when atomicity across several rows is
// required.
type Store interface {
	Reader
	Writer

	// BeginTx opens a transaction. The batch pipeline and solver writeback
	// run inside one.
	BeginTx(ctx context.Context) (Tx, error)
}

// Reader is the read-only half of the port.
type Reader interface {
	// LoadPeriod returns all entities relevant to [start, end], inclusive.
	LoadPeriod(ctx context.Context, start, end time.Time) (*PeriodSnapshot, error)
	GetPerson(ctx context.Context, id uuid.UUID) (*roster.Person, error)
	GetBlock(ctx context.Context, id uuid.UUID) (*roster.Block, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*roster.Assignment, error)
	// FindAssignmentByBlockPerson returns NotFound when the (block, person)
	// slot is empty; used for duplicate detection.
	FindAssignmentByBlockPerson(ctx context.Context, blockID, personID uuid.UUID) (*roster.Assignment, error)
	GetSwap(ctx context.Context, id uuid.UUID) (*roster.SwapRecord, error)
	ListPendingSwaps(ctx context.Context) ([]*roster.SwapRecord, error)
}

// Writer is the mutating half of the port.
type Writer interface {
	// SaveAssignment inserts a new assignment. A duplicate (block, person)
	// pair fails with Conflict.
	SaveAssignment(ctx context.Context, a *roster.Assignment) error
	// UpdateAssignment applies the patch iff the stored UpdatedAt matches
	// expectedUpdatedAt (microsecond precision); a mismatch fails with
	// Conflict and the caller may retry with a fresh read.
	UpdateAssignment(ctx context.Context, id uuid.UUID, patch AssignmentPatch, expectedUpdatedAt time.Time) (*roster.Assignment, error)
	DeleteAssignment(ctx context.Context, id uuid.UUID) error
	SaveSwap(ctx context.Context, s *roster.SwapRecord) error
}

// Tx is a transaction over the same surface. Commit and Rollback are
// terminal; using the Tx afterwards is a programmer error.
type Tx interface {
	Reader
	Writer
	Commit() error
	Rollback() error
}
