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

package generation_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/generation"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling/constraints"
	"github.com/gmesched/rota/pkg/solver"
	"github.com/gmesched/rota/pkg/store/memory"
	"github.com/gmesched/rota/pkg/test"
)

func request(start, end time.Time) generation.Request {
	return generation.Request{
		Start:     start,
		End:       end,
		Hard:      constraints.DefaultHard(),
		Soft:      nil,
		Seed:      1,
		Timeout:   30 * time.Second,
		CreatedBy: "generator-suite",
	}
}

var _ = Describe("Generator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should cover every available resident block", func() {
		env := test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 1})
		start, end := env.PeriodSpan()

		result, err := newGenerator(env.Store, env.Clock).Generate(ctx, request(start, end))
		Expect(err).ToNot(HaveOccurred())
		// With no soft terms every feasible answer is proven optimal.
		Expect(result.Status).To(Equal(solver.StatusOptimal))
		Expect(result.Created).To(BeNumerically(">", 0))
		Expect(result.Fingerprint).ToNot(BeZero())

		snap, err := env.Store.LoadPeriod(ctx, start, end)
		Expect(err).ToNot(HaveOccurred())
		perResident := map[string]int{}
		for _, a := range snap.Assignments {
			Expect(a.Source).To(Equal(roster.SourceSolver))
			Expect(a.CreatedBy).To(Equal("generator-suite"))
			for _, r := range env.Residents() {
				if a.PersonID == r.ID {
					perResident[r.ID.String()]++
				}
			}
		}
		for _, r := range env.Residents() {
			Expect(perResident[r.ID.String()]).To(Equal(len(env.Blocks)), "resident %s", r.Name)
		}
	})

	It("should place lecture on Wednesday afternoons through expansion", func() {
		env := test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 7})
		// A PM off-template so the weekly free day stays reachable.
		env.Store.AddTemplate(test.Template(test.TemplateOptions{
			Abbreviation: "OFF-PM",
			ActivityType: roster.ActivityOff,
			TimeOfDay:    test.Ptr(roster.PM),
		}))
		start, end := env.PeriodSpan()
		wednesday := test.DefaultPeriodStart.AddDate(0, 0, 6)
		wedPM := test.BlockOn(env.Blocks, wednesday, roster.PM)

		result, err := newGenerator(env.Store, env.Clock).Generate(ctx, request(start, end))
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Status).To(Equal(solver.StatusOptimal))

		snap, err := env.Store.LoadPeriod(ctx, start, end)
		Expect(err).ToNot(HaveOccurred())
		lecture := env.Template("LEC-PM")
		for _, r := range env.Residents() {
			found := false
			for _, a := range snap.Assignments {
				if a.PersonID == r.ID && a.BlockID == wedPM.ID {
					found = true
					Expect(a.RotationTemplateID).ToNot(BeNil())
					Expect(*a.RotationTemplateID).To(Equal(lecture.ID))
				}
			}
			Expect(found).To(BeTrue(), "resident %s has no Wednesday PM assignment", r.Name)
		}
	})

	It("should honour call preloads as fixed slots", func() {
		env := test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 2})
		resident := env.Residents()[1]
		callDay := test.DefaultPeriodStart.AddDate(0, 0, 1)
		env.Store.AddCallPreload(&roster.CallPreload{
			PersonID: resident.ID,
			CallDate: callDay,
			CallType: roster.CallLD24Hour,
		})
		start, end := env.PeriodSpan()

		result, err := newGenerator(env.Store, env.Clock).Generate(ctx, request(start, end))
		Expect(err).ToNot(HaveOccurred())
		Expect(result.Status).To(Equal(solver.StatusOptimal))

		snap, err := env.Store.LoadPeriod(ctx, start, end)
		Expect(err).ToNot(HaveOccurred())
		ld := env.Template("LD")
		callBlocks := 0
		for _, a := range snap.Assignments {
			if a.PersonID != resident.ID {
				continue
			}
			b, err := env.Store.GetBlock(ctx, a.BlockID)
			Expect(err).ToNot(HaveOccurred())
			if b.OnDate(callDay) {
				Expect(a.RotationTemplateID).ToNot(BeNil())
				Expect(*a.RotationTemplateID).To(Equal(ld.ID))
				callBlocks++
			}
		}
		Expect(callBlocks).To(Equal(2))
	})

	It("should assign supervising roles to faculty", func() {
		env := test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 1})
		start, end := env.PeriodSpan()

		_, err := newGenerator(env.Store, env.Clock).Generate(ctx, request(start, end))
		Expect(err).ToNot(HaveOccurred())

		snap, err := env.Store.LoadPeriod(ctx, start, end)
		Expect(err).ToNot(HaveOccurred())
		fac := env.FacultyMembers()[0]
		for _, a := range snap.Assignments {
			if a.PersonID != fac.ID {
				continue
			}
			if t := test.TemplateByAbbrev(env.Templates, "C"); a.RotationTemplateID != nil && *a.RotationTemplateID == t.ID {
				Expect(a.Role).To(Equal(roster.RoleSupervising))
			}
		}
	})

	Context("with an unsatisfiable period", func() {
		It("should return the minimal core and suggestions without persisting", func() {
			// One intern, no faculty, and clinic as the only activity: coverage
			// demands clinic, supervision forbids it.
			clk := clocktesting.NewFakeClock(test.DefaultPeriodStart)
			st := memory.NewStore(clk)
			intern := test.Resident(1)
			st.AddPerson(intern)
			block := test.Block(test.BlockOptions{Date: test.DefaultPeriodStart, TimeOfDay: roster.AM})
			st.AddBlock(block)
			st.AddTemplate(test.Template(test.TemplateOptions{
				Abbreviation:                 "C",
				ActivityType:                 roster.ActivityClinic,
				CountsTowardPhysicalCapacity: true,
			}))
			start := test.DefaultPeriodStart
			end := start.AddDate(0, 0, 1)

			result, err := newGenerator(st, clk).Generate(ctx, request(start, end))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(solver.StatusInfeasible))
			Expect(result.MinimalCore).To(Equal([]string{constraints.NameAvailability, constraints.NameSupervision}))
			Expect(result.Suggestions).To(ContainElement("add ≥ 1 faculty on 2025-07-03 AM"))

			snap, err := st.LoadPeriod(ctx, start, end)
			Expect(err).ToNot(HaveOccurred())
			Expect(snap.Assignments).To(BeEmpty())
		})
	})

	Context("with existing assignments", func() {
		It("should leave matching assignments untouched and replace overrides", func() {
			clk := clocktesting.NewFakeClock(test.DefaultPeriodStart)
			st := memory.NewStore(clk)
			resident := test.Resident(2)
			attending := test.Faculty()
			st.AddPerson(resident)
			st.AddPerson(attending)
			block := test.Block(test.BlockOptions{Date: test.DefaultPeriodStart, TimeOfDay: roster.AM})
			st.AddBlock(block)
			clinic := test.Template(test.TemplateOptions{
				Abbreviation:                 "C",
				ActivityType:                 roster.ActivityClinic,
				CountsTowardPhysicalCapacity: true,
			})
			st.AddTemplate(clinic)
			// The resident already holds an ad-hoc override on the block.
			prior := test.Assignment(test.AssignmentOptions{Block: block, Person: resident})
			Expect(st.SaveAssignment(ctx, prior)).To(Succeed())
			start := test.DefaultPeriodStart
			end := start.AddDate(0, 0, 1)

			result, err := newGenerator(st, clk).Generate(ctx, request(start, end))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(solver.StatusOptimal))
			Expect(result.Replaced).To(Equal(1))
			Expect(result.Created).To(Equal(1))
			Expect(result.Unchanged).To(BeZero())

			got, err := st.GetAssignment(ctx, prior.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.RotationTemplateID).ToNot(BeNil())
			Expect(*got.RotationTemplateID).To(Equal(clinic.ID))
		})

		It("should count an already-correct assignment as unchanged", func() {
			clk := clocktesting.NewFakeClock(test.DefaultPeriodStart)
			st := memory.NewStore(clk)
			resident := test.Resident(2)
			attending := test.Faculty()
			st.AddPerson(resident)
			st.AddPerson(attending)
			block := test.Block(test.BlockOptions{Date: test.DefaultPeriodStart, TimeOfDay: roster.AM})
			st.AddBlock(block)
			clinic := test.Template(test.TemplateOptions{
				Abbreviation:                 "C",
				ActivityType:                 roster.ActivityClinic,
				CountsTowardPhysicalCapacity: true,
			})
			st.AddTemplate(clinic)
			prior := test.Assignment(test.AssignmentOptions{Block: block, Person: resident, Template: clinic})
			Expect(st.SaveAssignment(ctx, prior)).To(Succeed())
			start := test.DefaultPeriodStart
			end := start.AddDate(0, 0, 1)

			result, err := newGenerator(st, clk).Generate(ctx, request(start, end))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Unchanged).To(Equal(1))
			Expect(result.Replaced).To(BeZero())
		})
	})

	Context("with nothing to schedule", func() {
		It("should report an empty result", func() {
			clk := clocktesting.NewFakeClock(test.DefaultPeriodStart)
			st := memory.NewStore(clk)
			start := test.DefaultPeriodStart
			end := start.AddDate(0, 0, 1)

			result, err := newGenerator(st, clk).Generate(ctx, request(start, end))
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(solver.StatusEmpty))
		})
	})

	Context("with a degenerate period", func() {
		It("should reject start at or after end", func() {
			env := test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 1})
			start, _ := env.PeriodSpan()
			_, err := newGenerator(env.Store, env.Clock).Generate(ctx, request(start, start))
			Expect(err).To(HaveOccurred())
			Expect(rotaerrors.IsInvalid(err)).To(BeTrue())
		})
	})

	It("should produce identical schedules for identical seeds", func() {
		run := func() []string {
			env := test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 2})
			start, end := env.PeriodSpan()
			_, err := newGenerator(env.Store, env.Clock).Generate(ctx, request(start, end))
			Expect(err).ToNot(HaveOccurred())
			snap, err := env.Store.LoadPeriod(ctx, start, end)
			Expect(err).ToNot(HaveOccurred())
			var keys []string
			for _, a := range snap.Assignments {
				b, err := env.Store.GetBlock(ctx, a.BlockID)
				Expect(err).ToNot(HaveOccurred())
				p, err := env.Store.GetPerson(ctx, a.PersonID)
				Expect(err).ToNot(HaveOccurred())
				tmpl := ""
				if a.RotationTemplateID != nil {
					for _, t := range snap.Templates {
						if t.ID == *a.RotationTemplateID {
							tmpl = t.Abbreviation
						}
					}
				}
				keys = append(keys, b.Key()+"/"+p.Name+"/"+tmpl)
			}
			return keys
		}
		Expect(run()).To(ConsistOf(run()))
	})
})
