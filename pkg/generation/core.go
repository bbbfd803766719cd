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

package generation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/scheduling/constraints"
	"github.com/gmesched/rota/pkg/solver"
)

// coreProbeTimeout bounds each probe solve during minimal-core search; the
// probes only need to distinguish feasible from infeasible.
const coreProbeTimeout = 2 * time.Second

// minimalCore finds a minimal set of constraint owners that is infeasible on
// its own, by deletion: drop one owner at a time and keep the drop whenever
// the remainder stays infeasible. Soft constraints never appear — they carry
// no linears, so they are deactivated by construction.
func minimalCore(ctx context.Context, adapter solver.Adapter, m *solver.Model, seed int64) []string {
	owners := m.Owners()
	core := append([]string(nil), owners...)
	opts := solver.Options{Seed: seed, Timeout: coreProbeTimeout}
	for _, owner := range owners {
		candidate := lo.Without(core, owner)
		dropped := lo.Without(owners, candidate...)
		sub := m.WithoutOwners(lo.SliceToMap(dropped, func(o string) (string, bool) { return o, true }))
		res, err := adapter.Solve(ctx, sub, opts)
		if err != nil {
			continue
		}
		if res.Status == solver.StatusInfeasible {
			core = candidate
		}
	}
	sort.Strings(core)
	return core
}

// suggestions derives actionable remediation hints from the minimal core.
func suggestions(core []string, c *scheduling.Context) []string {
	var out []string
	if lo.Contains(core, constraints.NameSupervision) {
		out = append(out, supervisionSuggestions(c)...)
	}
	if lo.Contains(core, constraints.NameEightyHourWeek) {
		out = append(out, "reduce call or inpatient load inside the period to fit the 80-hour ceiling")
	}
	if lo.Contains(core, constraints.NameOneInSeven) {
		out = append(out, "free at least one day per resident in every 7-day span")
	}
	if lo.Contains(core, constraints.NameCapacity) {
		out = append(out, "raise clinic capacity or add alternative activities")
	}
	return out
}

// supervisionSuggestions names the blocks where the available faculty cannot
// cover the available residents.
func supervisionSuggestions(c *scheduling.Context) []string {
	var out []string
	for j, b := range c.Blocks {
		pgy1, other, faculty := 0, 0, 0
		for i, p := range c.People {
			if !c.Available(i, j).Available {
				continue
			}
			switch {
			case p.IsFaculty():
				faculty++
			case p.PGY() == 1:
				pgy1++
			default:
				other++
			}
		}
		required := roster.RequiredFaculty(pgy1, other)
		if faculty >= required || required == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("add ≥ %d faculty on %s %s",
			required-faculty, scheduling.DayKey(b.Date), b.TimeOfDay))
	}
	return out
}
