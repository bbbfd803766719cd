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

// Package memory implements the store port on in-process maps. It backs the
// test suites and the CLI's fixture mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/store"
)

type Store struct {
	mu    sync.Mutex
	clock clock.Clock

	people      map[uuid.UUID]*roster.Person
	blocks      map[uuid.UUID]*roster.Block
	templates   map[uuid.UUID]*roster.RotationTemplate
	assignments map[uuid.UUID]*roster.Assignment
	absences    map[uuid.UUID]*roster.Absence
	inpatient   map[uuid.UUID]*roster.InpatientPreload
	calls       map[uuid.UUID]*roster.CallPreload
	swaps       map[uuid.UUID]*roster.SwapRecord

	// byBlockPerson enforces the (block, person) uniqueness invariant and
	// serves duplicate lookups.
	byBlockPerson map[string]uuid.UUID
}

func NewStore(clk clock.Clock) *Store {
	return &Store{
		clock:         clk,
		people:        map[uuid.UUID]*roster.Person{},
		blocks:        map[uuid.UUID]*roster.Block{},
		templates:     map[uuid.UUID]*roster.RotationTemplate{},
		assignments:   map[uuid.UUID]*roster.Assignment{},
		absences:      map[uuid.UUID]*roster.Absence{},
		inpatient:     map[uuid.UUID]*roster.InpatientPreload{},
		calls:         map[uuid.UUID]*roster.CallPreload{},
		swaps:         map[uuid.UUID]*roster.SwapRecord{},
		byBlockPerson: map[string]uuid.UUID{},
	}
}

func pairKey(blockID, personID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", blockID, personID)
}

// Seeding helpers. These bypass the transaction surface; fixtures call them
// before the engine starts reading.

func (s *Store) AddPerson(p *roster.Person) { s.withLock(func() { s.people[p.ID] = p }) }

func (s *Store) AddBlock(b *roster.Block) { s.withLock(func() { s.blocks[b.ID] = b }) }

func (s *Store) AddTemplate(t *roster.RotationTemplate) {
	s.withLock(func() { s.templates[t.ID] = t })
}

func (s *Store) AddAbsence(a *roster.Absence) { s.withLock(func() { s.absences[a.ID] = a }) }

func (s *Store) AddInpatientPreload(p *roster.InpatientPreload) {
	s.withLock(func() { s.inpatient[p.ID] = p })
}

func (s *Store) AddCallPreload(p *roster.CallPreload) {
	s.withLock(func() { s.calls[p.ID] = p })
}

func (s *Store) AddSwap(r *roster.SwapRecord) { s.withLock(func() { s.swaps[r.ID] = r }) }

func (s *Store) withLock(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f()
}

func (s *Store) LoadPeriod(_ context.Context, start, end time.Time) (*store.PeriodSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPeriodLocked(start, end)
}

func (s *Store) loadPeriodLocked(start, end time.Time) (*store.PeriodSnapshot, error) {
	snap := &store.PeriodSnapshot{}
	for _, p := range s.people {
		snap.People = append(snap.People, p)
	}
	blockInRange := map[uuid.UUID]bool{}
	for _, b := range s.blocks {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		blockInRange[b.ID] = true
		snap.Blocks = append(snap.Blocks, b)
	}
	for _, t := range s.templates {
		snap.Templates = append(snap.Templates, t)
	}
	for _, a := range s.assignments {
		if blockInRange[a.BlockID] {
			snap.Assignments = append(snap.Assignments, copied(a))
		}
	}
	for _, a := range s.absences {
		if a.StartDate.After(end) || a.EndDate.Before(start) {
			continue
		}
		snap.Absences = append(snap.Absences, a)
	}
	for _, p := range s.inpatient {
		if p.StartDate.After(end) || p.EndDate.Before(start) {
			continue
		}
		snap.InpatientPreloads = append(snap.InpatientPreloads, p)
	}
	for _, p := range s.calls {
		if p.CallDate.Before(start) || p.CallDate.After(end) {
			continue
		}
		snap.CallPreloads = append(snap.CallPreloads, p)
	}
	sortSnapshot(snap)
	return snap, nil
}

// sortSnapshot fixes iteration order so two loads of the same state are
// byte-identical, which the determinism guarantees depend on.
func sortSnapshot(snap *store.PeriodSnapshot) {
	sort.Slice(snap.People, func(i, j int) bool { return snap.People[i].ID.String() < snap.People[j].ID.String() })
	sort.Slice(snap.Blocks, func(i, j int) bool {
		a, b := snap.Blocks[i], snap.Blocks[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.TimeOfDay != b.TimeOfDay {
			return a.TimeOfDay == roster.AM
		}
		return a.ID.String() < b.ID.String()
	})
	sort.Slice(snap.Templates, func(i, j int) bool {
		return snap.Templates[i].Abbreviation < snap.Templates[j].Abbreviation
	})
	sort.Slice(snap.Assignments, func(i, j int) bool {
		return snap.Assignments[i].ID.String() < snap.Assignments[j].ID.String()
	})
	sort.Slice(snap.Absences, func(i, j int) bool { return snap.Absences[i].ID.String() < snap.Absences[j].ID.String() })
	sort.Slice(snap.InpatientPreloads, func(i, j int) bool {
		return snap.InpatientPreloads[i].ID.String() < snap.InpatientPreloads[j].ID.String()
	})
	sort.Slice(snap.CallPreloads, func(i, j int) bool {
		return snap.CallPreloads[i].ID.String() < snap.CallPreloads[j].ID.String()
	})
}

func (s *Store) GetPerson(_ context.Context, id uuid.UUID) (*roster.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getPersonLocked(id)
}

func (s *Store) getPersonLocked(id uuid.UUID) (*roster.Person, error) {
	if p, ok := s.people[id]; ok {
		return p, nil
	}
	return nil, rotaerrors.NotFound("person %s", id)
}

func (s *Store) GetBlock(_ context.Context, id uuid.UUID) (*roster.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBlockLocked(id)
}

func (s *Store) getBlockLocked(id uuid.UUID) (*roster.Block, error) {
	if b, ok := s.blocks[id]; ok {
		return b, nil
	}
	return nil, rotaerrors.NotFound("block %s", id)
}

func (s *Store) GetAssignment(_ context.Context, id uuid.UUID) (*roster.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAssignmentLocked(id)
}

func (s *Store) getAssignmentLocked(id uuid.UUID) (*roster.Assignment, error) {
	if a, ok := s.assignments[id]; ok {
		return copied(a), nil
	}
	return nil, rotaerrors.NotFound("assignment %s", id)
}

func (s *Store) FindAssignmentByBlockPerson(_ context.Context, blockID, personID uuid.UUID) (*roster.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByBlockPersonLocked(blockID, personID)
}

func (s *Store) findByBlockPersonLocked(blockID, personID uuid.UUID) (*roster.Assignment, error) {
	if id, ok := s.byBlockPerson[pairKey(blockID, personID)]; ok {
		return copied(s.assignments[id]), nil
	}
	return nil, rotaerrors.NotFound("no assignment for block %s person %s", blockID, personID)
}

func (s *Store) GetSwap(_ context.Context, id uuid.UUID) (*roster.SwapRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSwapLocked(id)
}

func (s *Store) getSwapLocked(id uuid.UUID) (*roster.SwapRecord, error) {
	if r, ok := s.swaps[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, rotaerrors.NotFound("swap %s", id)
}

func (s *Store) ListPendingSwaps(_ context.Context) ([]*roster.SwapRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPendingSwapsLocked()
}

func (s *Store) listPendingSwapsLocked() ([]*roster.SwapRecord, error) {
	var out []*roster.SwapRecord
	for _, r := range s.swaps {
		if r.Status == roster.SwapPending {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) SaveAssignment(_ context.Context, a *roster.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAssignmentLocked(a)
}

func (s *Store) saveAssignmentLocked(a *roster.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if _, ok := s.byBlockPerson[pairKey(a.BlockID, a.PersonID)]; ok {
		return rotaerrors.Conflict("assignment already exists for block %s person %s", a.BlockID, a.PersonID)
	}
	cp := copied(a)
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	now := s.clock.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.assignments[cp.ID] = cp
	s.byBlockPerson[pairKey(cp.BlockID, cp.PersonID)] = cp.ID
	// Reflect generated fields back so callers observe the stored value.
	*a = *cp
	return nil
}

func (s *Store) UpdateAssignment(_ context.Context, id uuid.UUID, patch store.AssignmentPatch, expectedUpdatedAt time.Time) (*roster.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateAssignmentLocked(id, patch, expectedUpdatedAt)
}

func (s *Store) updateAssignmentLocked(id uuid.UUID, patch store.AssignmentPatch, expectedUpdatedAt time.Time) (*roster.Assignment, error) {
	stored, ok := s.assignments[id]
	if !ok {
		return nil, rotaerrors.NotFound("assignment %s", id)
	}
	if !stored.LockToken().Equal(expectedUpdatedAt.UTC().Truncate(time.Microsecond)) {
		return nil, rotaerrors.Conflict("assignment %s was modified concurrently", id)
	}
	next := copied(stored)
	if patch.RotationTemplateID != nil {
		next.RotationTemplateID = patch.RotationTemplateID
	}
	if patch.Role != nil {
		next.Role = *patch.Role
	}
	if patch.ActivityOverride != nil {
		next.ActivityOverride = *patch.ActivityOverride
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}
	if patch.OverrideReason != nil {
		next.OverrideReason = *patch.OverrideReason
	}
	if patch.Confidence != nil {
		next.Confidence = *patch.Confidence
	}
	if patch.Score != nil {
		next.Score = *patch.Score
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.clock.Now().UTC()
	s.assignments[id] = next
	return copied(next), nil
}

func (s *Store) DeleteAssignment(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteAssignmentLocked(id)
}

func (s *Store) deleteAssignmentLocked(id uuid.UUID) error {
	stored, ok := s.assignments[id]
	if !ok {
		return rotaerrors.NotFound("assignment %s", id)
	}
	delete(s.byBlockPerson, pairKey(stored.BlockID, stored.PersonID))
	delete(s.assignments, id)
	return nil
}

func (s *Store) SaveSwap(_ context.Context, r *roster.SwapRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSwapLocked(r)
}

func (s *Store) saveSwapLocked(r *roster.SwapRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	cp := *r
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
		r.ID = cp.ID
	}
	s.swaps[cp.ID] = &cp
	return nil
}

func copied(a *roster.Assignment) *roster.Assignment {
	cp := *a
	return &cp
}
