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

var _ = Describe("Matcher", func() {
	var (
		ctx      context.Context
		env      *test.Environment
		recorder *matchRecorder
		matcher  *swaps.Matcher
		request  *roster.SwapRecord
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = test.NewEnvironment(test.EnvironmentOptions{Residents: 4, PGY1: 1, Faculty: 1})
		recorder = &matchRecorder{}
		matcher = swaps.NewMatcher(env.Store, env.Clock, recorder, zap.NewNop())

		request = test.Swap(test.SwapOptions{
			SourcePerson:   env.Residents()[0],
			PreferenceTags: []string{"clinic"},
		})
		env.Store.AddSwap(request)
	})

	It("should score a same-week, same-type, same-tag counterpart perfectly", func() {
		counterpart := test.Swap(test.SwapOptions{
			SourcePerson:   env.Residents()[1],
			PreferenceTags: []string{"clinic"},
		})
		env.Store.AddSwap(counterpart)

		candidates, err := matcher.Match(ctx, request.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(candidates).To(HaveLen(1))
		Expect(candidates[0].SwapID).To(Equal(counterpart.ID))
		Expect(candidates[0].PersonID).To(Equal(env.Residents()[1].ID))
		Expect(candidates[0].Score).To(BeNumerically("~", 1.0, 1e-9))
		Expect(candidates[0].DateProximity).To(BeNumerically("~", 1.0, 1e-9))
		Expect(candidates[0].TypeCompatibility).To(BeNumerically("~", 1.0, 1e-9))
		Expect(candidates[0].PreferenceAlignment).To(BeNumerically("~", 1.0, 1e-9))

		Expect(recorder.swaps).To(Equal([]uuid.UUID{request.ID}))
		Expect(recorder.candidates).To(Equal([]uuid.UUID{counterpart.ID}))
		Expect(recorder.scores[0]).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("should discount distance, mixed types, and disjoint tags", func() {
		counterpart := test.Swap(test.SwapOptions{
			SourcePerson:    env.Residents()[1],
			SourceWeekStart: test.DefaultPeriodStart.AddDate(0, 0, 7),
			Type:            roster.SwapAbsorb,
		})
		env.Store.AddSwap(counterpart)

		candidates, err := matcher.Match(ctx, request.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(candidates).To(HaveLen(1))
		// 0.5*(53/60) proximity + 0.2*0.5 type + 0.3*0 tags.
		Expect(candidates[0].DateProximity).To(BeNumerically("~", 53.0/60.0, 1e-9))
		Expect(candidates[0].TypeCompatibility).To(BeNumerically("~", 0.5, 1e-9))
		Expect(candidates[0].PreferenceAlignment).To(BeZero())
		Expect(candidates[0].Score).To(BeNumerically("~", 0.5*53.0/60.0+0.1, 1e-9))
	})

	It("should treat two untagged requests as fully aligned", func() {
		untagged := test.Swap(test.SwapOptions{SourcePerson: env.Residents()[1]})
		env.Store.AddSwap(untagged)
		bare := test.Swap(test.SwapOptions{SourcePerson: env.Residents()[2]})
		env.Store.AddSwap(bare)

		candidates, err := matcher.Match(ctx, untagged.ID)
		Expect(err).ToNot(HaveOccurred())
		found := false
		for _, c := range candidates {
			if c.SwapID == bare.ID {
				found = true
				Expect(c.PreferenceAlignment).To(BeNumerically("~", 1.0, 1e-9))
			}
		}
		Expect(found).To(BeTrue())
	})

	It("should rank an untagged counterpart five days out as a strong match", func() {
		untagged := test.Swap(test.SwapOptions{SourcePerson: env.Residents()[1]})
		env.Store.AddSwap(untagged)
		nearby := test.Swap(test.SwapOptions{
			SourcePerson:    env.Residents()[2],
			SourceWeekStart: test.DefaultPeriodStart.AddDate(0, 0, 5),
		})
		env.Store.AddSwap(nearby)

		candidates, err := matcher.Match(ctx, untagged.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(candidates).ToNot(BeEmpty())
		Expect(candidates[0].SwapID).To(Equal(nearby.ID))
		// 0.5*(55/60) proximity + 0.2 type + 0.3 tags.
		Expect(candidates[0].Score).To(BeNumerically("~", 0.5*55.0/60.0+0.5, 1e-9))
		Expect(candidates[0].Score).To(BeNumerically(">=", 0.9))
	})

	It("should never offer the requester their own swaps", func() {
		second := test.Swap(test.SwapOptions{
			SourcePerson:   env.Residents()[0],
			PreferenceTags: []string{"clinic"},
		})
		env.Store.AddSwap(second)

		candidates, err := matcher.Match(ctx, request.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(candidates).To(BeEmpty())
	})

	It("should drop candidates below the score floor", func() {
		far := test.Swap(test.SwapOptions{
			SourcePerson:    env.Residents()[1],
			SourceWeekStart: test.DefaultPeriodStart.AddDate(0, 0, 70),
			Type:            roster.SwapAbsorb,
		})
		env.Store.AddSwap(far)

		candidates, err := matcher.Match(ctx, request.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(candidates).To(BeEmpty())
		Expect(recorder.swaps).To(BeEmpty())
	})

	It("should cap results at top-k and break score ties by id", func() {
		matcher.WithThresholds(0, 2)
		twinA := test.Swap(test.SwapOptions{
			ID:             uuid.MustParse("00000000-0000-0000-0000-0000000000a2"),
			SourcePerson:   env.Residents()[1],
			PreferenceTags: []string{"clinic"},
		})
		twinB := test.Swap(test.SwapOptions{
			ID:             uuid.MustParse("00000000-0000-0000-0000-0000000000a1"),
			SourcePerson:   env.Residents()[2],
			PreferenceTags: []string{"clinic"},
		})
		weaker := test.Swap(test.SwapOptions{
			SourcePerson:    env.Residents()[3],
			SourceWeekStart: test.DefaultPeriodStart.AddDate(0, 0, 14),
		})
		env.Store.AddSwap(twinA)
		env.Store.AddSwap(twinB)
		env.Store.AddSwap(weaker)

		candidates, err := matcher.Match(ctx, request.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(candidates).To(HaveLen(2))
		Expect(candidates[0].SwapID).To(Equal(twinB.ID))
		Expect(candidates[1].SwapID).To(Equal(twinA.ID))
	})

	It("should only match PENDING swaps", func() {
		approved := test.Swap(test.SwapOptions{
			SourcePerson: env.Residents()[1],
			Status:       roster.SwapApproved,
		})
		env.Store.AddSwap(approved)

		_, err := matcher.Match(ctx, approved.ID)
		Expect(rotaerrors.IsConflict(err)).To(BeTrue())
	})

	It("should serve cached rankings until the swap record changes", func() {
		first, err := matcher.Match(ctx, request.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(first).To(BeEmpty())

		late := test.Swap(test.SwapOptions{
			SourcePerson:   env.Residents()[1],
			PreferenceTags: []string{"clinic"},
		})
		env.Store.AddSwap(late)

		again, err := matcher.Match(ctx, request.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(again).To(BeEmpty())

		// Touching the request rotates the cache key.
		touched := *request
		touched.UpdatedAt = request.UpdatedAt.Add(time.Minute)
		env.Store.AddSwap(&touched)

		fresh, err := matcher.Match(ctx, request.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(fresh).To(HaveLen(1))
		Expect(fresh[0].SwapID).To(Equal(late.ID))
	})
})
