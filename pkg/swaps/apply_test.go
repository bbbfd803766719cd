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

package swaps_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"
	"go.uber.org/zap"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/swaps"
	"github.com/gmesched/rota/pkg/test"
)

var _ = Describe("Applier", func() {
	var (
		ctx     context.Context
		env     *test.Environment
		applier *swaps.Applier

		source, target *roster.Person
		week1, week2   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1})
		applier = swaps.NewApplier(env.Store, env.Clock, zap.NewNop())

		source = env.Residents()[0]
		target = env.Residents()[1]
		week1 = test.DefaultPeriodStart
		week2 = week1.AddDate(0, 0, 7)
	})

	// approvedSwap builds a swap already matched to the target's week.
	approvedSwap := func(swapType roster.SwapType) *roster.SwapRecord {
		swap := test.Swap(test.SwapOptions{SourcePerson: source, Type: swapType})
		Expect(swap.Approve(target.ID, week2, env.Clock.Now())).To(Succeed())
		env.Store.AddSwap(swap)
		return swap
	}

	owner := func(blockID uuid.UUID) uuid.UUID {
		snap, err := env.Store.LoadPeriod(ctx, week1, week2.AddDate(0, 0, 7))
		Expect(err).ToNot(HaveOccurred())
		for _, a := range snap.Assignments {
			if a.BlockID == blockID {
				return a.PersonID
			}
		}
		return uuid.Nil
	}

	It("should trade both weeks for a one-to-one swap", func() {
		clinic := env.Template("C")
		sourceBlock := test.BlockOn(env.Blocks, week1, roster.AM)
		sourceBlock2 := test.BlockOn(env.Blocks, week1.AddDate(0, 0, 1), roster.PM)
		targetBlock := test.BlockOn(env.Blocks, week2, roster.AM)
		env.Assign(source, sourceBlock, clinic)
		env.Assign(source, sourceBlock2, clinic)
		env.Assign(target, targetBlock, clinic)

		swap := approvedSwap(roster.SwapOneToOne)
		Expect(applier.Apply(ctx, swap)).To(Succeed())
		Expect(swap.Status).To(Equal(roster.SwapCompleted))

		Expect(owner(sourceBlock.ID)).To(Equal(target.ID))
		Expect(owner(sourceBlock2.ID)).To(Equal(target.ID))
		Expect(owner(targetBlock.ID)).To(Equal(source.ID))

		moved, err := env.Store.FindAssignmentByBlockPerson(ctx, sourceBlock.ID, target.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(moved.RotationTemplateID).To(Equal(test.Ptr(clinic.ID)))
		Expect(moved.Source).To(Equal(roster.SourceManual))
		Expect(moved.CreatedBy).To(Equal("swap:" + swap.ID.String()))

		stored, err := env.Store.GetSwap(ctx, swap.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Status).To(Equal(roster.SwapCompleted))
	})

	It("should hand over one week with nothing back for an absorb swap", func() {
		clinic := env.Template("C")
		sourceBlock := test.BlockOn(env.Blocks, week1, roster.AM)
		targetBlock := test.BlockOn(env.Blocks, week2, roster.AM)
		env.Assign(source, sourceBlock, clinic)
		env.Assign(target, targetBlock, clinic)

		swap := approvedSwap(roster.SwapAbsorb)
		Expect(applier.Apply(ctx, swap)).To(Succeed())

		Expect(owner(sourceBlock.ID)).To(Equal(target.ID))
		// The target keeps their own week.
		Expect(owner(targetBlock.ID)).To(Equal(target.ID))
	})

	It("should refuse swaps that are not approved", func() {
		pending := test.Swap(test.SwapOptions{SourcePerson: source})
		env.Store.AddSwap(pending)
		Expect(rotaerrors.IsConflict(applier.Apply(ctx, pending))).To(BeTrue())
	})

	It("should refuse an approval without a matched counterpart", func() {
		broken := &roster.SwapRecord{
			ID:              uuid.New(),
			SourcePersonID:  source.ID,
			SourceWeekStart: week1,
			Type:            roster.SwapOneToOne,
			Status:          roster.SwapApproved,
		}
		Expect(rotaerrors.IsInvalid(applier.Apply(ctx, broken))).To(BeTrue())
	})

	It("should refuse a swap whose source week is empty", func() {
		swap := approvedSwap(roster.SwapOneToOne)
		err := applier.Apply(ctx, swap)
		Expect(rotaerrors.IsInvalid(err)).To(BeTrue())

		stored, err := env.Store.GetSwap(ctx, swap.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Status).To(Equal(roster.SwapApproved))
	})
})
