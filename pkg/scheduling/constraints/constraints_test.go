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

package constraints_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/scheduling/constraints"
	"github.com/gmesched/rota/pkg/solver"
	"github.com/gmesched/rota/pkg/test"
)

var _ = Describe("EightyHourWeek", func() {
	var env *test.Environment
	var schedCtx *scheduling.Context

	BeforeEach(func() {
		env = test.NewEnvironment()
		schedCtx = loadContext(env)
	})

	It("should flag a resident over 80 hours in a trailing week", func() {
		resident := env.Residents()[0]
		ld := env.Template("LD")
		var assignments []*roster.Assignment
		for d := 0; d < 4; d++ {
			b := test.BlockOn(env.Blocks, test.DefaultPeriodStart.AddDate(0, 0, d), roster.PM)
			assignments = append(assignments, test.Assignment(test.AssignmentOptions{Block: b, Person: resident, Template: ld}))
		}

		violations := constraints.NewEightyHourWeek(0).Validate(schedCtx, assignments)
		Expect(violations).ToNot(BeEmpty())
		Expect(violations[0].Severity).To(Equal(scheduling.SeverityCritical))
		Expect(violations[0].PersonRef).To(Equal(schedCtx.PersonRef(resident.ID)))
		Expect(violations[0].Details["hours"]).To(Equal(96))
	})

	It("should stay silent under the limit", func() {
		resident := env.Residents()[0]
		ld := env.Template("LD")
		var assignments []*roster.Assignment
		for d := 0; d < 3; d++ {
			b := test.BlockOn(env.Blocks, test.DefaultPeriodStart.AddDate(0, 0, d), roster.PM)
			assignments = append(assignments, test.Assignment(test.AssignmentOptions{Block: b, Person: resident, Template: ld}))
		}
		Expect(constraints.NewEightyHourWeek(0).Validate(schedCtx, assignments)).To(BeEmpty())
	})

	It("should ignore faculty hours", func() {
		fac := env.FacultyMembers()[0]
		ld := env.Template("LD")
		var assignments []*roster.Assignment
		for d := 0; d < 5; d++ {
			b := test.BlockOn(env.Blocks, test.DefaultPeriodStart.AddDate(0, 0, d), roster.PM)
			assignments = append(assignments, test.Assignment(test.AssignmentOptions{Block: b, Person: fac, Template: ld}))
		}
		Expect(constraints.NewEightyHourWeek(0).Validate(schedCtx, assignments)).To(BeEmpty())
	})
})

var _ = Describe("OneInSeven", func() {
	var env *test.Environment
	var schedCtx *scheduling.Context

	BeforeEach(func() {
		env = test.NewEnvironment()
		schedCtx = loadContext(env)
	})

	It("should flag seven consecutive occupied days", func() {
		resident := env.Residents()[0]
		clinic := env.Template("C")
		var assignments []*roster.Assignment
		for d := 0; d < 7; d++ {
			b := test.BlockOn(env.Blocks, test.DefaultPeriodStart.AddDate(0, 0, d), roster.AM)
			assignments = append(assignments, test.Assignment(test.AssignmentOptions{Block: b, Person: resident, Template: clinic}))
		}

		violations := constraints.NewOneInSeven().Validate(schedCtx, assignments)
		Expect(violations).To(HaveLen(1))
		Expect(violations[0].Severity).To(Equal(scheduling.SeverityCritical))
		Expect(violations[0].Details["consecutive_days"]).To(Equal(7))
	})

	It("should treat a day holding only off-time as free", func() {
		resident := env.Residents()[0]
		clinic := env.Template("C")
		off := env.Template("OFF-AM")
		var assignments []*roster.Assignment
		for d := 0; d < 7; d++ {
			tmpl := clinic
			if d == 3 {
				tmpl = off
			}
			b := test.BlockOn(env.Blocks, test.DefaultPeriodStart.AddDate(0, 0, d), roster.AM)
			assignments = append(assignments, test.Assignment(test.AssignmentOptions{Block: b, Person: resident, Template: tmpl}))
		}
		Expect(constraints.NewOneInSeven().Validate(schedCtx, assignments)).To(BeEmpty())
	})

	It("should encode one free day per window", func() {
		schedCtx = loadContext(env)
		resident := env.Residents()[0]
		i := schedCtx.PersonIdx[resident.ID]
		kC, ok := schedCtx.TemplateByAbbrev("C")
		Expect(ok).To(BeTrue())

		m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
		var clinicVars []int
		for d := 0; d < 7; d++ {
			day := test.DefaultPeriodStart.AddDate(0, 0, d)
			j := schedCtx.BlocksOnDay(day)[0]
			clinicVars = append(clinicVars, m.AddVar(i, j, kC))
		}
		Expect(constraints.NewOneInSeven().Encode(m, schedCtx)).To(Succeed())

		// All seven days working and no free-day marker set breaks a window.
		selected := make([]bool, m.NumVars())
		for _, v := range clinicVars {
			selected[v] = true
		}
		violated := m.Violated(selected)
		Expect(violated).ToNot(BeEmpty())
		for _, lin := range violated {
			Expect(lin.Owner).To(Equal(constraints.NameOneInSeven))
		}
	})
})

var _ = Describe("Wednesday rules", func() {
	var env *test.Environment
	var schedCtx *scheduling.Context
	var wednesday time.Time

	BeforeEach(func() {
		env = test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 7})
		schedCtx = loadContext(env)
		// The period starts Thursday, so day six is the Wednesday.
		wednesday = test.DefaultPeriodStart.AddDate(0, 0, 6)
	})

	Context("WednesdayAMInternOnly", func() {
		It("should flag a senior resident in Wednesday-AM clinic", func() {
			senior := env.Residents()[1]
			Expect(senior.PGY()).To(Equal(2))
			wedAM := test.BlockOn(env.Blocks, wednesday, roster.AM)
			a := test.Assignment(test.AssignmentOptions{Block: wedAM, Person: senior, Template: env.Template("C")})

			violations := constraints.NewWednesdayAMInternOnly().Validate(schedCtx, []*roster.Assignment{a})
			Expect(violations).To(HaveLen(1))
			Expect(violations[0].Severity).To(Equal(scheduling.SeverityHigh))
			Expect(violations[0].Details["pgy"]).To(Equal(2))
		})

		It("should allow interns in Wednesday-AM clinic", func() {
			intern := env.Residents()[0]
			wedAM := test.BlockOn(env.Blocks, wednesday, roster.AM)
			a := test.Assignment(test.AssignmentOptions{Block: wedAM, Person: intern, Template: env.Template("C")})
			Expect(constraints.NewWednesdayAMInternOnly().Validate(schedCtx, []*roster.Assignment{a})).To(BeEmpty())
		})

		It("should forbid only senior clinic variables when encoding", func() {
			intern, senior := env.Residents()[0], env.Residents()[1]
			wedAM := test.BlockOn(env.Blocks, wednesday, roster.AM)
			j := schedCtx.BlockIdx[wedAM.ID]
			kC, _ := schedCtx.TemplateByAbbrev("C")

			m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
			vIntern := m.AddVar(schedCtx.PersonIdx[intern.ID], j, kC)
			vSenior := m.AddVar(schedCtx.PersonIdx[senior.ID], j, kC)
			Expect(constraints.NewWednesdayAMInternOnly().Encode(m, schedCtx)).To(Succeed())
			Expect(m.IsForbidden(vSenior)).To(BeTrue())
			Expect(m.IsForbidden(vIntern)).To(BeFalse())
		})
	})

	Context("WednesdayPMLecture", func() {
		It("should flag a resident off-lecture on Wednesday afternoon", func() {
			intern := env.Residents()[0]
			wedPM := test.BlockOn(env.Blocks, wednesday, roster.PM)
			a := test.Assignment(test.AssignmentOptions{Block: wedPM, Person: intern, Template: env.Template("C")})

			violations := constraints.NewWednesdayPMLecture().Validate(schedCtx, []*roster.Assignment{a})
			Expect(violations).To(HaveLen(1))
			Expect(violations[0].Severity).To(Equal(scheduling.SeverityHigh))
		})

		It("should accept lecture and exempt overnight rotations", func() {
			intern := env.Residents()[0]
			wedPM := test.BlockOn(env.Blocks, wednesday, roster.PM)
			lecture := test.Assignment(test.AssignmentOptions{Block: wedPM, Person: intern, Template: env.Template("LEC-PM")})
			nf := test.Assignment(test.AssignmentOptions{Block: wedPM, Person: env.Residents()[1], Template: env.Template("NF")})
			Expect(constraints.NewWednesdayPMLecture().Validate(schedCtx, []*roster.Assignment{lecture, nf})).To(BeEmpty())
		})
	})

	Context("PGY1WednesdayContinuity", func() {
		It("should flag an intern outside continuity clinic", func() {
			intern := env.Residents()[0]
			wedAM := test.BlockOn(env.Blocks, wednesday, roster.AM)
			a := test.Assignment(test.AssignmentOptions{Block: wedAM, Person: intern, Template: env.Template("FMIT")})

			violations := constraints.NewPGY1WednesdayContinuity().Validate(schedCtx, []*roster.Assignment{a})
			high := bySeverity(violations, scheduling.SeverityHigh)
			Expect(high).To(HaveLen(1))
			Expect(high[0].PersonRef).To(Equal(schedCtx.PersonRef(intern.ID)))
		})

		It("should remind about interns with an empty Wednesday morning", func() {
			violations := constraints.NewPGY1WednesdayContinuity().Validate(schedCtx, nil)
			warnings := bySeverity(violations, scheduling.SeverityWarning)
			// One intern, one Wednesday in the period.
			Expect(warnings).To(HaveLen(1))
			Expect(warnings[0].SuggestedAction).To(Equal("assign continuity clinic"))
		})

		It("should stay silent when the intern is in clinic", func() {
			intern := env.Residents()[0]
			wedAM := test.BlockOn(env.Blocks, wednesday, roster.AM)
			a := test.Assignment(test.AssignmentOptions{Block: wedAM, Person: intern, Template: env.Template("C")})
			Expect(constraints.NewPGY1WednesdayContinuity().Validate(schedCtx, []*roster.Assignment{a})).To(BeEmpty())
		})
	})
})

var _ = Describe("NightFloatAMPattern", func() {
	var env *test.Environment
	var schedCtx *scheduling.Context

	BeforeEach(func() {
		env = test.NewEnvironment()
		schedCtx = loadContext(env)
	})

	It("should flag night float without the paired morning placement", func() {
		resident := env.Residents()[0]
		day := test.DefaultPeriodStart.AddDate(0, 0, 1)
		nf := test.Assignment(test.AssignmentOptions{
			Block:    test.BlockOn(env.Blocks, day, roster.PM),
			Person:   resident,
			Template: env.Template("NF"),
		})

		violations := constraints.NewNightFloatAMPattern().Validate(schedCtx, []*roster.Assignment{nf})
		Expect(violations).To(HaveLen(1))
		Expect(violations[0].Severity).To(Equal(scheduling.SeverityHigh))
		Expect(violations[0].Message).To(ContainSubstring("holds nothing instead of OFF-AM"))
	})

	It("should accept night float paired with the off morning", func() {
		resident := env.Residents()[0]
		day := test.DefaultPeriodStart.AddDate(0, 0, 1)
		nf := test.Assignment(test.AssignmentOptions{
			Block:    test.BlockOn(env.Blocks, day, roster.PM),
			Person:   resident,
			Template: env.Template("NF"),
		})
		off := test.Assignment(test.AssignmentOptions{
			Block:    test.BlockOn(env.Blocks, day, roster.AM),
			Person:   resident,
			Template: env.Template("OFF-AM"),
		})
		Expect(constraints.NewNightFloatAMPattern().Validate(schedCtx, []*roster.Assignment{nf, off})).To(BeEmpty())
	})

	It("should encode the implication between evening and morning", func() {
		resident := env.Residents()[0]
		i := schedCtx.PersonIdx[resident.ID]
		day := test.DefaultPeriodStart.AddDate(0, 0, 1)
		kNF, _ := schedCtx.TemplateByAbbrev("NF")
		kOff, _ := schedCtx.TemplateByAbbrev("OFF-AM")
		blocks := schedCtx.BlocksOnDay(day)

		m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
		vAM := m.AddVar(i, blocks[0], kOff)
		vPM := m.AddVar(i, blocks[1], kNF)
		Expect(constraints.NewNightFloatAMPattern().Encode(m, schedCtx)).To(Succeed())

		nightOnly := make([]bool, m.NumVars())
		nightOnly[vPM] = true
		Expect(m.Feasible(nightOnly)).To(BeFalse())

		paired := make([]bool, m.NumVars())
		paired[vPM] = true
		paired[vAM] = true
		Expect(m.Feasible(paired)).To(BeTrue())
	})
})

var _ = Describe("Supervision", func() {
	var env *test.Environment
	var schedCtx *scheduling.Context
	var block *roster.Block

	BeforeEach(func() {
		env = test.NewEnvironment()
		schedCtx = loadContext(env)
		block = test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.AM)
	})

	// Two interns and one senior need ceil((2*2+1)/4) = 2 faculty.
	census := func(faculty ...*roster.Assignment) []*roster.Assignment {
		clinic := env.Template("C")
		assignments := []*roster.Assignment{
			test.Assignment(test.AssignmentOptions{Block: block, Person: env.Residents()[0], Template: clinic}),
			test.Assignment(test.AssignmentOptions{Block: block, Person: env.Residents()[1], Template: clinic}),
			test.Assignment(test.AssignmentOptions{Block: block, Person: env.Residents()[2], Template: clinic}),
		}
		return append(assignments, faculty...)
	}

	It("should report a critical violation when two or more faculty are missing", func() {
		violations := constraints.NewSupervision().Validate(schedCtx, census())
		Expect(violations).To(HaveLen(1))
		Expect(violations[0].Severity).To(Equal(scheduling.SeverityCritical))
		Expect(violations[0].Details["required_faculty"]).To(Equal(2))
		Expect(violations[0].SuggestedAction).To(Equal("add 2 faculty on 2025-07-03 AM"))
	})

	It("should report a high violation when one faculty member is missing", func() {
		attending := test.Assignment(test.AssignmentOptions{
			Block: block, Person: env.FacultyMembers()[0], Template: env.Template("C"),
		})
		violations := constraints.NewSupervision().Validate(schedCtx, census(attending))
		Expect(violations).To(HaveLen(1))
		Expect(violations[0].Severity).To(Equal(scheduling.SeverityHigh))
		Expect(violations[0].SuggestedAction).To(Equal("add 1 faculty on 2025-07-03 AM"))
	})

	It("should not count backup faculty toward the ratio", func() {
		backup := test.Assignment(test.AssignmentOptions{
			Block: block, Person: env.FacultyMembers()[0], Template: env.Template("C"), Role: roster.RoleBackup,
		})
		violations := constraints.NewSupervision().Validate(schedCtx, census(backup))
		Expect(violations).To(HaveLen(1))
		Expect(violations[0].Severity).To(Equal(scheduling.SeverityCritical))
	})

	It("should stay silent with enough supervising faculty", func() {
		clinic := env.Template("C")
		one := test.Assignment(test.AssignmentOptions{Block: block, Person: env.FacultyMembers()[0], Template: clinic, Role: roster.RoleSupervising})
		two := test.Assignment(test.AssignmentOptions{Block: block, Person: env.FacultyMembers()[1], Template: clinic, Role: roster.RoleSupervising})
		Expect(constraints.NewSupervision().Validate(schedCtx, census(one, two))).To(BeEmpty())
	})

	It("should encode the weighted ratio per block", func() {
		clinic, _ := schedCtx.TemplateByAbbrev("C")
		j := schedCtx.BlockIdx[block.ID]
		m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
		intern := m.AddVar(schedCtx.PersonIdx[env.Residents()[0].ID], j, clinic)
		fac := m.AddVar(schedCtx.PersonIdx[env.FacultyMembers()[0].ID], j, clinic)
		Expect(constraints.NewSupervision().Encode(m, schedCtx)).To(Succeed())

		unsupervised := make([]bool, m.NumVars())
		unsupervised[intern] = true
		Expect(m.Feasible(unsupervised)).To(BeFalse())

		supervised := make([]bool, m.NumVars())
		supervised[intern] = true
		supervised[fac] = true
		Expect(m.Feasible(supervised)).To(BeTrue())
	})
})

var _ = Describe("Availability", func() {
	var env *test.Environment
	var schedCtx *scheduling.Context
	var away time.Time

	BeforeEach(func() {
		env = test.NewEnvironment()
		away = test.DefaultPeriodStart.AddDate(0, 0, 2)
		env.Store.AddAbsence(test.Absence(env.Residents()[0], away, away))
		schedCtx = loadContext(env)
	})

	It("should flag assignments on blocked days", func() {
		a := test.Assignment(test.AssignmentOptions{
			Block:    test.BlockOn(env.Blocks, away, roster.AM),
			Person:   env.Residents()[0],
			Template: env.Template("C"),
		})
		violations := constraints.NewAvailability().Validate(schedCtx, []*roster.Assignment{a})
		Expect(violations).To(HaveLen(1))
		Expect(violations[0].Severity).To(Equal(scheduling.SeverityCritical))
		Expect(violations[0].Details["reason"]).To(Equal("absence: vacation"))
	})

	It("should exempt acknowledged overrides", func() {
		a := test.Assignment(test.AssignmentOptions{
			Block:          test.BlockOn(env.Blocks, away, roster.AM),
			Person:         env.Residents()[0],
			OverrideReason: "returning early from leave",
		})
		Expect(constraints.NewAvailability().Validate(schedCtx, []*roster.Assignment{a})).To(BeEmpty())
	})

	It("should forbid blocked variables when encoding", func() {
		i := schedCtx.PersonIdx[env.Residents()[0].ID]
		kC, _ := schedCtx.TemplateByAbbrev("C")
		j := schedCtx.BlocksOnDay(away)[0]
		other := schedCtx.BlocksOnDay(test.DefaultPeriodStart)[0]

		m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
		blocked := m.AddVar(i, j, kC)
		free := m.AddVar(i, other, kC)
		Expect(constraints.NewAvailability().Encode(m, schedCtx)).To(Succeed())
		Expect(m.IsForbidden(blocked)).To(BeTrue())
		Expect(m.IsForbidden(free)).To(BeFalse())
	})

	It("should narrow preloaded people to the preloaded template", func() {
		preloaded := env.Residents()[1]
		env.Store.AddInpatientPreload(&roster.InpatientPreload{
			PersonID:     preloaded.ID,
			RotationType: roster.RotationFMIT,
			StartDate:    test.DefaultPeriodStart,
			EndDate:      test.DefaultPeriodStart,
		})
		schedCtx = loadContext(env)

		i := schedCtx.PersonIdx[preloaded.ID]
		j := schedCtx.BlocksOnDay(test.DefaultPeriodStart)[0]
		kC, _ := schedCtx.TemplateByAbbrev("C")
		kFMIT, _ := schedCtx.TemplateByAbbrev("FMIT")

		m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
		clinic := m.AddVar(i, j, kC)
		inpatient := m.AddVar(i, j, kFMIT)
		Expect(constraints.NewAvailability().Encode(m, schedCtx)).To(Succeed())
		Expect(m.IsForbidden(clinic)).To(BeTrue())
		Expect(m.IsForbidden(inpatient)).To(BeFalse())
	})
})

var _ = Describe("Structure", func() {
	var env *test.Environment
	var schedCtx *scheduling.Context
	var block *roster.Block

	BeforeEach(func() {
		env = test.NewEnvironment()
		schedCtx = loadContext(env)
		block = test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.AM)
	})

	Context("OnePerBlock", func() {
		It("should flag duplicate assignments for one person and block", func() {
			resident := env.Residents()[0]
			first := test.Assignment(test.AssignmentOptions{Block: block, Person: resident, Template: env.Template("C")})
			second := test.Assignment(test.AssignmentOptions{Block: block, Person: resident, Template: env.Template("FMIT")})

			violations := constraints.NewOnePerBlock().Validate(schedCtx, []*roster.Assignment{first, second})
			Expect(violations).To(HaveLen(1))
			Expect(violations[0].Severity).To(Equal(scheduling.SeverityCritical))
		})

		It("should allow distinct people on the same block", func() {
			first := test.Assignment(test.AssignmentOptions{Block: block, Person: env.Residents()[0], Template: env.Template("C")})
			second := test.Assignment(test.AssignmentOptions{Block: block, Person: env.Residents()[1], Template: env.Template("C")})
			Expect(constraints.NewOnePerBlock().Validate(schedCtx, []*roster.Assignment{first, second})).To(BeEmpty())
		})
	})

	Context("Capacity", func() {
		It("should flag clinic slots over their physical capacity", func() {
			clinic := env.Template("C")
			var assignments []*roster.Assignment
			for _, r := range env.Residents()[:3] {
				assignments = append(assignments, test.Assignment(test.AssignmentOptions{Block: block, Person: r, Template: clinic}))
			}

			violations := constraints.NewCapacity(2).Validate(schedCtx, assignments)
			Expect(violations).To(HaveLen(1))
			Expect(violations[0].Severity).To(Equal(scheduling.SeverityHigh))
			Expect(violations[0].Details["count"]).To(Equal(3))
			Expect(violations[0].Details["capacity"]).To(Equal(2))
		})

		It("should ignore templates without physical space", func() {
			lecture := env.Template("LEC-PM")
			pm := test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.PM)
			var assignments []*roster.Assignment
			for _, r := range env.Residents() {
				assignments = append(assignments, test.Assignment(test.AssignmentOptions{Block: pm, Person: r, Template: lecture}))
			}
			Expect(constraints.NewCapacity(2).Validate(schedCtx, assignments)).To(BeEmpty())
		})
	})

	Context("Eligibility", func() {
		It("should flag a resident on a faculty-only template", func() {
			a := test.Assignment(test.AssignmentOptions{Block: block, Person: env.Residents()[0], Template: env.Template("ADM")})
			violations := constraints.NewEligibility().Validate(schedCtx, []*roster.Assignment{a})
			Expect(violations).To(HaveLen(1))
			Expect(violations[0].Message).To(ContainSubstring("does not accept"))
		})

		It("should flag a time-of-day mismatch", func() {
			a := test.Assignment(test.AssignmentOptions{Block: block, Person: env.Residents()[0], Template: env.Template("LEC-PM")})
			violations := constraints.NewEligibility().Validate(schedCtx, []*roster.Assignment{a})
			Expect(violations).To(HaveLen(1))
			Expect(violations[0].Message).To(ContainSubstring("restricted to PM"))
		})

		It("should accept an eligible pairing", func() {
			a := test.Assignment(test.AssignmentOptions{Block: block, Person: env.Residents()[0], Template: env.Template("C")})
			Expect(constraints.NewEligibility().Validate(schedCtx, []*roster.Assignment{a})).To(BeEmpty())
		})
	})
})

var _ = Describe("Soft constraints", func() {
	var env *test.Environment
	var schedCtx *scheduling.Context

	BeforeEach(func() {
		env = test.NewEnvironment(test.EnvironmentOptions{Residents: 2, PGY1: 1, Faculty: 1, PeriodDays: 7})
	})

	It("should reward lightly loaded people under Equity", func() {
		senior := env.Residents()[1]
		clinic := env.Template("C")
		env.Assign(senior, test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.AM), clinic)
		env.Assign(senior, test.BlockOn(env.Blocks, test.DefaultPeriodStart.AddDate(0, 0, 1), roster.AM), clinic)
		schedCtx = loadContext(env)

		intern := env.Residents()[0]
		kC, _ := schedCtx.TemplateByAbbrev("C")
		j := schedCtx.BlocksOnDay(test.DefaultPeriodStart.AddDate(0, 0, 2))[0]
		m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
		vIntern := m.AddVar(schedCtx.PersonIdx[intern.ID], j, kC)
		vSenior := m.AddVar(schedCtx.PersonIdx[senior.ID], j, kC)

		Expect(constraints.NewEquity(5).EncodeObjective(m, schedCtx)).To(Succeed())
		Expect(m.Reward(vIntern)).To(BeNumerically("==", 5))
		Expect(m.Reward(vSenior)).To(BeZero())
	})

	It("should reward historical activity types under PreferenceTrails", func() {
		intern := env.Residents()[0]
		clinic := env.Template("C")
		env.Assign(intern, test.BlockOn(env.Blocks, test.DefaultPeriodStart, roster.AM), clinic)
		schedCtx = loadContext(env)

		kC, _ := schedCtx.TemplateByAbbrev("C")
		kFMIT, _ := schedCtx.TemplateByAbbrev("FMIT")
		j := schedCtx.BlocksOnDay(test.DefaultPeriodStart.AddDate(0, 0, 1))[0]
		m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
		moreClinic := m.AddVar(schedCtx.PersonIdx[intern.ID], j, kC)
		inpatient := m.AddVar(schedCtx.PersonIdx[intern.ID], j, kFMIT)

		Expect(constraints.NewPreferenceTrails(2).EncodeObjective(m, schedCtx)).To(Succeed())
		Expect(m.Reward(moreClinic)).To(BeNumerically("==", 2))
		Expect(m.Reward(inpatient)).To(BeZero())
	})

	It("should penalise consecutive call under AvoidBackToBackCall", func() {
		resident := test.Resident(2, test.PersonOptions{AvoidBackToBackCall: true})
		env.Store.AddPerson(resident)
		env.People = append(env.People, resident)
		schedCtx = loadContext(env)

		kLD, _ := schedCtx.TemplateByAbbrev("LD")
		i := schedCtx.PersonIdx[resident.ID]
		day1 := schedCtx.BlocksOnDay(test.DefaultPeriodStart)
		day2 := schedCtx.BlocksOnDay(test.DefaultPeriodStart.AddDate(0, 0, 1))
		m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
		v1 := m.AddVar(i, day1[1], kLD)
		v2 := m.AddVar(i, day2[1], kLD)

		Expect(constraints.NewAvoidBackToBackCall(10).EncodeObjective(m, schedCtx)).To(Succeed())
		one := make([]bool, m.NumVars())
		one[v1] = true
		Expect(m.ObjectiveValue(one)).To(BeZero())
		both := make([]bool, m.NumVars())
		both[v1] = true
		both[v2] = true
		Expect(m.ObjectiveValue(both)).To(BeNumerically("==", -10))
	})

	It("should reward Wednesday call for faculty who prefer it", func() {
		fan := test.Faculty(test.PersonOptions{PrefersWednesdayCall: true})
		env.Store.AddPerson(fan)
		env.People = append(env.People, fan)
		schedCtx = loadContext(env)

		kLD, _ := schedCtx.TemplateByAbbrev("LD")
		i := schedCtx.PersonIdx[fan.ID]
		wednesday := test.DefaultPeriodStart.AddDate(0, 0, 6)
		wedPM := schedCtx.BlocksOnDay(wednesday)[1]
		thuPM := schedCtx.BlocksOnDay(test.DefaultPeriodStart)[1]
		m := solver.NewModel(len(schedCtx.People), len(schedCtx.Blocks), len(schedCtx.Templates))
		onWednesday := m.AddVar(i, wedPM, kLD)
		offWednesday := m.AddVar(i, thuPM, kLD)

		Expect(constraints.NewWednesdayCallPreference(3).EncodeObjective(m, schedCtx)).To(Succeed())
		Expect(m.Reward(onWednesday)).To(BeNumerically("==", 3))
		Expect(m.Reward(offWednesday)).To(BeZero())
	})
})
