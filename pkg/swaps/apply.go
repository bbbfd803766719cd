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

package swaps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/store"
)

// weekLength is the span one swap trades.
const weekLength = 7 * 24 * time.Hour

// Applier executes approved swaps: it exchanges the two parties' week of
// assignments inside one transaction and completes the record.
type Applier struct {
	store store.Store
	clock clock.Clock
	log   *zap.Logger
}

func NewApplier(s store.Store, clk clock.Clock, log *zap.Logger) *Applier {
	return &Applier{store: s, clock: clk, log: log.Named("swaps")}
}

// Apply exchanges the assignments of an APPROVED swap and marks it
// COMPLETED. ONE_TO_ONE trades both weeks; ABSORB hands the source week to
// the target with nothing in return.
func (ap *Applier) Apply(ctx context.Context, swap *roster.SwapRecord) error {
	if swap.Status != roster.SwapApproved {
		return rotaerrors.Conflict("swap %s is %s, only APPROVED swaps apply", swap.ID, swap.Status)
	}
	if swap.TargetPersonID == nil || swap.TargetWeekStart == nil {
		return rotaerrors.Invalid("swap %s approved without a matched counterpart", swap.ID)
	}

	sourceWeek := swap.SourceWeekStart
	targetWeek := *swap.TargetWeekStart
	loadStart, loadEnd := sourceWeek, sourceWeek.Add(weekLength)
	if targetWeek.Before(loadStart) {
		loadStart = targetWeek
	}
	if targetWeek.Add(weekLength).After(loadEnd) {
		loadEnd = targetWeek.Add(weekLength)
	}

	tx, err := ap.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	snap, err := tx.LoadPeriod(ctx, loadStart, loadEnd)
	if err != nil {
		return err
	}
	blocks := map[string]*roster.Block{}
	for _, b := range snap.Blocks {
		blocks[b.ID.String()] = b
	}
	inWeek := func(a *roster.Assignment, weekStart time.Time) bool {
		b, ok := blocks[a.BlockID.String()]
		if !ok {
			return false
		}
		return !b.Date.Before(weekStart) && b.Date.Before(weekStart.Add(weekLength))
	}

	var sourceSide, targetSide []*roster.Assignment
	for _, a := range snap.Assignments {
		switch {
		case a.PersonID == swap.SourcePersonID && inWeek(a, sourceWeek):
			sourceSide = append(sourceSide, a)
		case a.PersonID == *swap.TargetPersonID && inWeek(a, targetWeek) && swap.Type == roster.SwapOneToOne:
			targetSide = append(targetSide, a)
		}
	}
	if len(sourceSide) == 0 {
		return rotaerrors.Invalid("swap %s: source has no assignments in week of %s",
			swap.ID, sourceWeek.Format("2006-01-02"))
	}

	// Clear both sides first so the recreations can't collide with the rows
	// they replace.
	for _, a := range append(append([]*roster.Assignment(nil), sourceSide...), targetSide...) {
		if err := tx.DeleteAssignment(ctx, a.ID); err != nil {
			return err
		}
	}
	createdBy := fmt.Sprintf("swap:%s", swap.ID)
	recreate := func(from []*roster.Assignment, person uuid.UUID) error {
		for _, a := range from {
			next := *a
			next.ID = uuid.Nil
			next.PersonID = person
			next.Source = roster.SourceManual
			next.CreatedBy = createdBy
			if err := tx.SaveAssignment(ctx, &next); err != nil {
				return err
			}
		}
		return nil
	}
	if err := recreate(sourceSide, *swap.TargetPersonID); err != nil {
		return err
	}
	if err := recreate(targetSide, swap.SourcePersonID); err != nil {
		return err
	}

	if err := swap.Complete(ap.clock.Now()); err != nil {
		return err
	}
	if err := tx.SaveSwap(ctx, swap); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	ap.log.Info("swap applied",
		zap.String("swap", swap.ID.String()),
		zap.String("type", string(swap.Type)),
		zap.Int("source_assignments", len(sourceSide)),
		zap.Int("target_assignments", len(targetSide)))
	return nil
}
