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

package resilience_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/resilience"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/test"
)

var _ = Describe("Loss analysis", func() {
	var (
		env    *test.Environment
		intern *roster.Person
		senior *roster.Person
	)

	BeforeEach(func() {
		env = test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 2})
		intern = env.Residents()[0]
		senior = env.Residents()[1]
		// The intern holds every clinic slot of the period.
		for _, b := range env.Blocks {
			env.Assign(intern, b, env.Template("C"))
		}
	})

	Context("with nobody left to step in", func() {
		BeforeEach(func() {
			start, _ := env.PeriodSpan()
			end := start.AddDate(0, 0, 1)
			env.Store.AddAbsence(test.Absence(senior, start, end))
			env.Store.AddAbsence(test.Absence(env.FacultyMembers()[0], start, end))
		})

		It("should flag the sole holder as a single point of failure", func() {
			c := loadContext(env)
			risks := resilience.AnalyzeN1(c)
			Expect(risks).To(HaveLen(1))
			Expect(risks[0].PersonRef).To(Equal(c.PersonRef(intern.ID)))
			Expect(risks[0].AffectedSlots).To(Equal(4))
			Expect(risks[0].ViableBackups).To(BeZero())
			Expect(risks[0].Criticality).To(BeNumerically("~", 0.9, 1e-9))
			Expect(risks[0].SPOF).To(BeTrue())
		})
	})

	Context("with idle colleagues available", func() {
		It("should grade the holder as recoverable", func() {
			c := loadContext(env)
			risks := resilience.AnalyzeN1(c)
			Expect(risks).To(HaveLen(1))
			// The senior and the attending can both absorb the slots.
			Expect(risks[0].ViableBackups).To(Equal(2))
			Expect(risks[0].Criticality).To(BeNumerically("~", 0.2, 1e-9))
			Expect(risks[0].SPOF).To(BeFalse())
		})
	})

	Context("for pairs", func() {
		BeforeEach(func() {
			day2 := test.DefaultPeriodStart.AddDate(0, 0, 1)
			env.Assign(senior, test.BlockOn(env.Blocks, day2, roster.AM), env.Template("C"))
			env.Assign(senior, test.BlockOn(env.Blocks, day2, roster.PM), env.Template("C"))
		})

		It("should flag a pair nobody can replace as a cross-training candidate", func() {
			start, _ := env.PeriodSpan()
			env.Store.AddAbsence(test.Absence(env.FacultyMembers()[0], start, start.AddDate(0, 0, 1)))

			c := loadContext(env)
			risks := resilience.AnalyzeN2(c)
			Expect(risks).To(HaveLen(1))
			Expect(risks[0].AffectedSlots).To(Equal(6))
			Expect(risks[0].ViableBackups).To(BeZero())
			Expect(risks[0].Criticality).To(BeNumerically("~", 1.0, 1e-9))
			Expect(risks[0].CrossTrain).To(BeTrue())
			Expect(risks[0].PersonRefs[0] < risks[0].PersonRefs[1]).To(BeTrue())
		})

		It("should skip pairs a free attending can cover", func() {
			c := loadContext(env)
			Expect(resilience.AnalyzeN2(c)).To(BeEmpty())
		})
	})
})

var _ = Describe("Analyzer", func() {
	var (
		ctx      context.Context
		env      *test.Environment
		recorder *levelRecorder
		analyzer *resilience.Analyzer
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 1})
		recorder = &levelRecorder{}
		analyzer = resilience.NewAnalyzer(env.Store, env.Clock, recorder, zap.NewNop())
	})

	It("should assess the posture alongside every analysis", func() {
		start, end := env.PeriodSpan()
		out, err := analyzer.Analyze(ctx, start, end, resilience.KindN1, nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Kind).To(Equal(resilience.KindN1))
		Expect(out.N1).To(BeEmpty())
		// Two residents against one attending is full utilisation.
		Expect(out.Posture.Utilisation).To(BeNumerically("~", 1.0, 1e-9))
		Expect(out.DefenseLevel).To(Equal(resilience.DefenseYellow))
		Expect(out.Recovery).ToNot(BeEmpty())
		Expect(out.Recovery[0].Action).To(Equal(resilience.ActionReduceLoad))

		Expect(recorder.transitions).To(Equal([]string{"GREEN->YELLOW"}))

		// A second look at an unchanged posture stays quiet.
		_, err = analyzer.Analyze(ctx, start, end, resilience.KindN1, nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(recorder.transitions).To(HaveLen(1))
	})

	It("should run the cascade simulation with period-derived defaults", func() {
		start, end := env.PeriodSpan()
		params := &resilience.CascadeParams{Runs: 20, HorizonDays: 30, Seed: 5}
		out, err := analyzer.Analyze(ctx, start, end, resilience.KindCascade, params, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Cascade).ToNot(BeNil())
		Expect(out.Cascade.Runs).To(Equal(20))
		// One attending is below the minimum viable program size.
		Expect(out.Cascade.SurvivalRate).To(BeZero())
		Expect(out.Cascade.Classification).To(Equal("CRITICAL"))
	})

	It("should chart compliance samples against their baseline", func() {
		start, end := env.PeriodSpan()
		params := &resilience.SPCParams{
			Baseline: []float64{0.96, 0.94, 0.95, 0.97, 0.93},
			Samples:  []float64{0.95, 0.90, 0.80},
		}
		out, err := analyzer.Analyze(ctx, start, end, resilience.KindSPC, nil, params)
		Expect(err).ToNot(HaveOccurred())
		Expect(out.SPC).ToNot(BeNil())
		Expect(out.SPC.Chart.Center).To(BeNumerically("~", 0.95, 1e-9))
		Expect(out.SPC.Zones).To(HaveLen(3))
		Expect(out.SPC.Zones[0]).To(Equal(resilience.ZoneC))
		Expect(out.SPC.Zones[2]).To(Equal(resilience.ZoneOut))
		Expect(out.SPC.TrendSlope).To(BeNumerically("<", 0))
	})

	It("should reject an SPC request without samples", func() {
		start, end := env.PeriodSpan()
		_, err := analyzer.Analyze(ctx, start, end, resilience.KindSPC, nil, nil)
		Expect(rotaerrors.IsInvalid(err)).To(BeTrue())
	})

	It("should reject an unknown analysis kind", func() {
		start, end := env.PeriodSpan()
		_, err := analyzer.Analyze(ctx, start, end, resilience.Kind("voodoo"), nil, nil)
		Expect(rotaerrors.IsInvalid(err)).To(BeTrue())
	})
})
