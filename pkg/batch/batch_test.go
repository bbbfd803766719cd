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

package batch_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmesched/rota/pkg/batch"
	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/store"
	"github.com/gmesched/rota/pkg/test"
)

var _ = Describe("Pipeline", func() {
	var (
		ctx      context.Context
		env      *test.Environment
		recorder *appliedRecorder
		pipeline *batch.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 7})
		recorder = &appliedRecorder{}
		pipeline = batch.NewPipeline(env.Store, env.Clock, recorder, zap.NewNop())
	})

	clinicItem := func(p *roster.Person, date time.Time, tod roster.TimeOfDay) batch.CreateItem {
		block := test.BlockOn(env.Blocks, date, tod)
		return batch.CreateItem{
			BlockID:            block.ID,
			PersonID:           p.ID,
			RotationTemplateID: test.Ptr(env.Template("C").ID),
		}
	}

	Context("creating assignments", func() {
		It("should apply every valid item and report the batch", func() {
			items := []batch.CreateItem{
				clinicItem(env.Residents()[0], test.DefaultPeriodStart, roster.AM),
				clinicItem(env.FacultyMembers()[0], test.DefaultPeriodStart, roster.AM),
			}

			result, err := pipeline.Create(ctx, items, batch.Options{CreatedBy: "chief"})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(Equal(2))
			Expect(result.Errors).To(BeEmpty())
			Expect(result.RolledBack).To(BeFalse())

			saved, err := env.Store.FindAssignmentByBlockPerson(ctx,
				items[0].BlockID, items[0].PersonID)
			Expect(err).ToNot(HaveOccurred())
			Expect(saved.Role).To(Equal(roster.RolePrimary))
			Expect(saved.Source).To(Equal(roster.SourceManual))
			Expect(saved.CreatedBy).To(Equal("chief"))

			Expect(recorder.operations).To(Equal([]string{"create"}))
			Expect(recorder.applied).To(Equal([]int{2}))
		})

		It("should fail the later of two items targeting the same slot", func() {
			items := []batch.CreateItem{
				clinicItem(env.Residents()[0], test.DefaultPeriodStart, roster.AM),
				clinicItem(env.Residents()[0], test.DefaultPeriodStart, roster.AM),
			}

			result, err := pipeline.Create(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(Equal(1))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Index).To(Equal(1))
			Expect(result.Errors[0].Code).To(Equal("E_CONFLICT_OPTIMISTIC_LOCK"))
		})

		It("should catch collisions with persisted assignments before applying", func() {
			block := test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.AM)
			env.Assign(env.Residents()[0], block, env.Template("C"))

			items := []batch.CreateItem{
				clinicItem(env.Residents()[1], test.DefaultPeriodStart, roster.AM),
				clinicItem(env.Residents()[0], test.DefaultPeriodStart, roster.AM),
			}

			result, err := pipeline.Create(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(Equal(1))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Index).To(Equal(1))
			Expect(result.Errors[0].Code).To(Equal("E_CONFLICT_OPTIMISTIC_LOCK"))
			Expect(result.Errors[0].Message).To(ContainSubstring("already holds an assignment"))
		})

		It("should attribute missing entities to their rows", func() {
			items := []batch.CreateItem{
				clinicItem(env.Residents()[0], test.DefaultPeriodStart, roster.AM),
				{
					BlockID:            uuid.New(),
					PersonID:           env.Residents()[0].ID,
					RotationTemplateID: test.Ptr(env.Template("C").ID),
				},
			}

			result, err := pipeline.Create(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(Equal(1))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Index).To(Equal(1))
			Expect(result.Errors[0].Code).To(Equal("E_NOT_FOUND"))
		})

		It("should reject malformed items without touching the store", func() {
			block := test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.AM)
			items := []batch.CreateItem{
				{BlockID: block.ID}, // no person
				{
					BlockID:          block.ID,
					PersonID:         env.Residents()[0].ID,
					ActivityOverride: "jeopardy coverage", // no reason given
				},
				{
					BlockID:            block.ID,
					PersonID:           env.Residents()[1].ID,
					RotationTemplateID: test.Ptr(env.Template("C").ID),
					Role:               "owner",
				},
			}

			result, err := pipeline.Create(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(BeZero())
			Expect(result.Errors).To(HaveLen(3))
			for _, itemErr := range result.Errors {
				Expect(itemErr.Code).To(Equal("E_INVALID"))
			}
		})

		It("should refuse oversized batches outright", func() {
			items := make([]batch.CreateItem, batch.MaxItems+1)
			result, err := pipeline.Create(ctx, items, batch.Options{})
			Expect(result).To(BeNil())
			Expect(rotaerrors.IsInvalid(err)).To(BeTrue())
		})

		It("should roll everything back when all-or-nothing meets a bad row", func() {
			good := clinicItem(env.Residents()[0], test.DefaultPeriodStart, roster.AM)
			items := []batch.CreateItem{
				good,
				{
					BlockID:            uuid.New(),
					PersonID:           env.Residents()[1].ID,
					RotationTemplateID: test.Ptr(env.Template("C").ID),
				},
			}

			result, err := pipeline.Create(ctx, items, batch.Options{AllOrNothing: true})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.RolledBack).To(BeTrue())
			Expect(result.Applied).To(BeZero())
			Expect(result.Errors).To(HaveLen(1))

			_, err = env.Store.FindAssignmentByBlockPerson(ctx, good.BlockID, good.PersonID)
			Expect(rotaerrors.IsNotFound(err)).To(BeTrue())
		})

		Context("with a duty-hour busting batch", func() {
			var items []batch.CreateItem

			BeforeEach(func() {
				// Four 24-hour call days inside one week is 96 hours.
				resident := env.Residents()[0]
				ld := env.Template("LD")
				for day := 0; day < 4; day++ {
					block := test.BlockOn(env.Blocks, test.DefaultPeriodStart.AddDate(0, 0, day), roster.AM)
					items = append(items, batch.CreateItem{
						BlockID:            block.ID,
						PersonID:           resident.ID,
						RotationTemplateID: test.Ptr(ld.ID),
					})
				}
			})

			AfterEach(func() { items = nil })

			It("should surface the violation as a warning by default", func() {
				result, err := pipeline.Create(ctx, items, batch.Options{})
				Expect(err).ToNot(HaveOccurred())
				Expect(result.Applied).To(Equal(4))
				Expect(result.Warnings).ToNot(BeEmpty())
				Expect(result.Warnings[0].Severity).To(Equal(scheduling.SeverityCritical))
			})

			It("should reject the batch in strict mode", func() {
				result, err := pipeline.Create(ctx, items, batch.Options{Strict: true})
				Expect(result).To(BeNil())
				Expect(err).To(HaveOccurred())
				Expect(rotaerrors.KindOf(err)).To(Equal(rotaerrors.KindConstraintViolation))

				resident := env.Residents()[0]
				_, err = env.Store.FindAssignmentByBlockPerson(ctx, items[0].BlockID, resident.ID)
				Expect(rotaerrors.IsNotFound(err)).To(BeTrue())
			})
		})
	})

	Context("updating assignments", func() {
		var existing *roster.Assignment

		BeforeEach(func() {
			block := test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.AM)
			existing = env.Assign(env.Residents()[0], block, env.Template("C"))
		})

		It("should patch rows whose lock token is current", func() {
			items := []batch.UpdateItem{{
				ID:                existing.ID,
				ExpectedUpdatedAt: existing.UpdatedAt,
				Patch:             store.AssignmentPatch{Notes: test.Ptr("precepting swap")},
			}}

			result, err := pipeline.Update(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(Equal(1))
			Expect(result.Errors).To(BeEmpty())

			refreshed, err := env.Store.GetAssignment(ctx, existing.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(refreshed.Notes).To(Equal("precepting swap"))

			Expect(recorder.operations).To(Equal([]string{"update"}))
			Expect(recorder.applied).To(Equal([]int{1}))
		})

		It("should fail only the stale row", func() {
			block := test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.PM)
			other := env.Assign(env.Residents()[1], block, env.Template("C"))

			items := []batch.UpdateItem{
				{
					ID:                existing.ID,
					ExpectedUpdatedAt: existing.UpdatedAt.Add(time.Second),
					Patch:             store.AssignmentPatch{Notes: test.Ptr("stale")},
				},
				{
					ID:                other.ID,
					ExpectedUpdatedAt: other.UpdatedAt,
					Patch:             store.AssignmentPatch{Notes: test.Ptr("fresh")},
				},
			}

			result, err := pipeline.Update(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(Equal(1))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Index).To(BeZero())
			Expect(result.Errors[0].Code).To(Equal("E_CONFLICT_OPTIMISTIC_LOCK"))

			refreshed, err := env.Store.GetAssignment(ctx, existing.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(refreshed.Notes).To(BeEmpty())
		})

		It("should report unknown assignment ids", func() {
			items := []batch.UpdateItem{{
				ID:                uuid.New(),
				ExpectedUpdatedAt: env.Clock.Now(),
			}}

			result, err := pipeline.Update(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(BeZero())
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Code).To(Equal("E_NOT_FOUND"))
		})

		It("should undo applied rows when all-or-nothing meets a stale token", func() {
			block := test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.PM)
			other := env.Assign(env.Residents()[1], block, env.Template("C"))

			items := []batch.UpdateItem{
				{
					ID:                other.ID,
					ExpectedUpdatedAt: other.UpdatedAt,
					Patch:             store.AssignmentPatch{Notes: test.Ptr("applied then undone")},
				},
				{
					ID:                existing.ID,
					ExpectedUpdatedAt: existing.UpdatedAt.Add(time.Second),
					Patch:             store.AssignmentPatch{Notes: test.Ptr("stale")},
				},
			}

			result, err := pipeline.Update(ctx, items, batch.Options{AllOrNothing: true})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.RolledBack).To(BeTrue())
			Expect(result.Applied).To(BeZero())

			refreshed, err := env.Store.GetAssignment(ctx, other.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(refreshed.Notes).To(BeEmpty())
		})
	})

	Context("deleting assignments", func() {
		var existing *roster.Assignment

		BeforeEach(func() {
			block := test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.AM)
			existing = env.Assign(env.Residents()[0], block, env.Template("C"))
		})

		It("should delete with a matching token", func() {
			items := []batch.DeleteItem{{ID: existing.ID, ExpectedUpdatedAt: test.Ptr(existing.UpdatedAt)}}

			result, err := pipeline.Delete(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(Equal(1))

			_, err = env.Store.GetAssignment(ctx, existing.ID)
			Expect(rotaerrors.IsNotFound(err)).To(BeTrue())

			Expect(recorder.operations).To(Equal([]string{"delete"}))
			Expect(recorder.applied).To(Equal([]int{1}))
		})

		It("should refuse a stale token and keep the row", func() {
			stale := existing.UpdatedAt.Add(time.Second)
			items := []batch.DeleteItem{{ID: existing.ID, ExpectedUpdatedAt: test.Ptr(stale)}}

			result, err := pipeline.Delete(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(BeZero())
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Code).To(Equal("E_CONFLICT_OPTIMISTIC_LOCK"))

			_, err = env.Store.GetAssignment(ctx, existing.ID)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should delete unguarded when no token is supplied", func() {
			items := []batch.DeleteItem{{ID: existing.ID}}

			result, err := pipeline.Delete(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(Equal(1))
		})

		It("should report unknown ids", func() {
			items := []batch.DeleteItem{{ID: uuid.New()}}

			result, err := pipeline.Delete(ctx, items, batch.Options{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Applied).To(BeZero())
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].Code).To(Equal("E_NOT_FOUND"))
		})
	})
})
