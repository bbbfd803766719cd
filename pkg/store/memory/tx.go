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

package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/store"
)

// tx holds the store lock for its whole lifetime and keeps a snapshot of the
// mutable maps for rollback. That serialises transactions, which is exactly
// the isolation a test store wants.
type tx struct {
	s    *Store
	done bool

	prevAssignments   map[uuid.UUID]*roster.Assignment
	prevByBlockPerson map[string]uuid.UUID
	prevSwaps         map[uuid.UUID]*roster.SwapRecord
}

func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, rotaerrors.Wrap(rotaerrors.KindTimeout, err, "begin transaction")
	}
	s.mu.Lock()
	t := &tx{
		s:                 s,
		prevAssignments:   make(map[uuid.UUID]*roster.Assignment, len(s.assignments)),
		prevByBlockPerson: make(map[string]uuid.UUID, len(s.byBlockPerson)),
		prevSwaps:         make(map[uuid.UUID]*roster.SwapRecord, len(s.swaps)),
	}
	for k, v := range s.assignments {
		t.prevAssignments[k] = v
	}
	for k, v := range s.byBlockPerson {
		t.prevByBlockPerson[k] = v
	}
	for k, v := range s.swaps {
		t.prevSwaps[k] = v
	}
	return t, nil
}

func (t *tx) Commit() error {
	if t.done {
		return rotaerrors.Internal("commit on finished transaction")
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return rotaerrors.Internal("rollback on finished transaction")
	}
	t.done = true
	t.s.assignments = t.prevAssignments
	t.s.byBlockPerson = t.prevByBlockPerson
	t.s.swaps = t.prevSwaps
	t.s.mu.Unlock()
	return nil
}

func (t *tx) LoadPeriod(_ context.Context, start, end time.Time) (*store.PeriodSnapshot, error) {
	return t.s.loadPeriodLocked(start, end)
}

func (t *tx) GetPerson(_ context.Context, id uuid.UUID) (*roster.Person, error) {
	return t.s.getPersonLocked(id)
}

func (t *tx) GetBlock(_ context.Context, id uuid.UUID) (*roster.Block, error) {
	return t.s.getBlockLocked(id)
}

func (t *tx) GetAssignment(_ context.Context, id uuid.UUID) (*roster.Assignment, error) {
	return t.s.getAssignmentLocked(id)
}

func (t *tx) FindAssignmentByBlockPerson(_ context.Context, blockID, personID uuid.UUID) (*roster.Assignment, error) {
	return t.s.findByBlockPersonLocked(blockID, personID)
}

func (t *tx) GetSwap(_ context.Context, id uuid.UUID) (*roster.SwapRecord, error) {
	return t.s.getSwapLocked(id)
}

func (t *tx) ListPendingSwaps(_ context.Context) ([]*roster.SwapRecord, error) {
	return t.s.listPendingSwapsLocked()
}

func (t *tx) SaveAssignment(_ context.Context, a *roster.Assignment) error {
	return t.s.saveAssignmentLocked(a)
}

func (t *tx) UpdateAssignment(_ context.Context, id uuid.UUID, patch store.AssignmentPatch, expectedUpdatedAt time.Time) (*roster.Assignment, error) {
	return t.s.updateAssignmentLocked(id, patch, expectedUpdatedAt)
}

func (t *tx) DeleteAssignment(_ context.Context, id uuid.UUID) error {
	return t.s.deleteAssignmentLocked(id)
}

func (t *tx) SaveSwap(_ context.Context, r *roster.SwapRecord) error {
	return t.s.saveSwapLocked(r)
}
