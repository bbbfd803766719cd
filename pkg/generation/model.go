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
	"go.uber.org/zap"

	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/scheduling/constraints"
	"github.com/gmesched/rota/pkg/solver"
)

// buildModel creates decision variables for every (person, block, template)
// triple that survives pruning, then adds the coverage requirement: each
// available resident holds exactly one activity per block. Coverage linears
// carry the Availability owner because they are the positive half of the
// availability matrix — a person marked available is a person the program
// places.
func buildModel(c *scheduling.Context, log *zap.Logger) *solver.Model {
	m := solver.NewModel(len(c.People), len(c.Blocks), len(c.Templates))
	total, kept := 0, 0
	for i, p := range c.People {
		for j, b := range c.Blocks {
			cell := c.Available(i, j)
			for k, t := range c.Templates {
				total++
				if !cell.Available {
					continue
				}
				if cell.ForcedAbbrev != "" && t.Abbreviation != cell.ForcedAbbrev {
					continue
				}
				if !t.Allows(p) || !t.AllowsTimeOfDay(b.TimeOfDay) {
					continue
				}
				kept++
				m.AddVar(i, j, k)
			}
		}
	}
	ratio := 0.0
	if total > 0 {
		ratio = 1 - float64(kept)/float64(total)
	}
	pruneRatio.Set(ratio)
	log.Debug("pruned candidate triples",
		zap.Int("total", total),
		zap.Int("kept", kept),
		zap.Float64("reduction", ratio))

	for _, i := range c.ResidentIndices() {
		for j := range c.Blocks {
			if !c.Available(i, j).Available {
				continue
			}
			vars := m.PersonBlockVars(i, j)
			if len(vars) == 0 {
				continue
			}
			coeffs := make([]float64, len(vars))
			for idx := range coeffs {
				coeffs[idx] = 1
			}
			m.AddLinear(constraints.NameAvailability, vars, coeffs, solver.OpEQ, 1)
		}
	}
	return m
}

// expand applies the derived-slot rules that assign rather than forbid:
// preloaded activities, Wednesday-PM lecture for non-exempt residents, and
// the night-float morning pattern. Each fill is pinned into the model so
// every adapter honours it.
func expand(m *solver.Model, c *scheduling.Context, log *zap.Logger) int {
	fixed := 0
	fix := func(i, j, k int) {
		if v, ok := m.Lookup(i, j, k); ok && !m.IsFixed(v) {
			m.Fix(v)
			fixed++
		}
	}

	for i := range c.People {
		for j := range c.Blocks {
			cell := c.Available(i, j)
			if cell.ForcedAbbrev == "" {
				continue
			}
			if k, ok := c.TemplateByAbbrev(cell.ForcedAbbrev); ok {
				fix(i, j, k)
			}
		}
	}

	lecK, hasLec := c.TemplateByAbbrev(roster.AbbrevLecture)
	if hasLec {
		for j, b := range c.Blocks {
			if !b.IsWednesdayPM() {
				continue
			}
			for _, i := range c.ResidentIndices() {
				cell := c.Available(i, j)
				if !cell.Available || cell.ForcedAbbrev != "" {
					continue
				}
				fix(i, j, lecK)
			}
		}
	}

	for j, b := range c.Blocks {
		if b.TimeOfDay != roster.PM {
			continue
		}
		amBlock := -1
		for _, jj := range c.BlocksOnDay(b.Date) {
			if c.Blocks[jj].TimeOfDay == roster.AM {
				amBlock = jj
			}
		}
		if amBlock < 0 {
			continue
		}
		for _, i := range c.ResidentIndices() {
			abbrev := c.Available(i, j).ForcedAbbrev
			amAbbrev, isNF := roster.NightFloatAMPattern[abbrev]
			if !isNF {
				continue
			}
			if kAM, ok := c.TemplateByAbbrev(amAbbrev); ok {
				fix(i, amBlock, kAM)
			}
		}
	}

	log.Debug("expanded derived slots", zap.Int("fixed", fixed))
	return fixed
}

// encode runs every constraint against the model, timing each one.
func encode(m *solver.Model, c *scheduling.Context, hard []scheduling.HardConstraint, soft []scheduling.SoftConstraint) error {
	for _, h := range hard {
		observe := metricsMeasure(h.Name())
		if err := h.Encode(m, c); err != nil {
			observe()
			return err
		}
		observe()
	}
	for _, s := range soft {
		observe := metricsMeasure(s.Name())
		if err := s.EncodeObjective(m, c); err != nil {
			observe()
			return err
		}
		observe()
	}
	return nil
}
