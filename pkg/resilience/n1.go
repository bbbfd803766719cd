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

// Package resilience answers "what happens when people disappear": single
// and pairwise loss analysis, cascade simulation, statistical process
// control over compliance metrics, and recovery planning. Everything here
// is read-only over a loaded period.
package resilience

import (
	"sort"

	"github.com/samber/lo"

	"github.com/gmesched/rota/pkg/scheduling"
)

const (
	// SPOFThreshold marks a person as a single point of failure.
	SPOFThreshold = 0.7

	// PairRiskThreshold marks a pair as a cross-training candidate; pairs
	// are judged more strictly than individuals.
	PairRiskThreshold = 0.6
)

// PersonRisk grades the schedule's exposure to losing one person.
type PersonRisk struct {
	PersonRef     string  `json:"person_ref"`
	AffectedSlots int     `json:"affected_slots"`
	ViableBackups int     `json:"viable_backups"`
	Criticality   float64 `json:"criticality"`
	SPOF          bool    `json:"spof"`
}

// PairRisk grades the exposure to losing two people at once.
type PairRisk struct {
	PersonRefs    [2]string `json:"person_refs"`
	AffectedSlots int       `json:"affected_slots"`
	ViableBackups int       `json:"viable_backups"`
	Criticality   float64   `json:"criticality"`
	CrossTrain    bool      `json:"cross_train"`
}

// criticality is the shared scoring rule: with no backup the floor is 0.5
// and ten affected slots saturate the scale; with backups the score is
// halved and capped.
func criticality(affected, backups int) float64 {
	if backups == 0 {
		return lo.Min([]float64{1, 0.5 + float64(affected)/10})
	}
	return lo.Min([]float64{0.5, float64(affected) / 20})
}

// coverageIndex precomputes, per person ordinal, the slots held and the set
// of people able to take each slot over.
type coverageIndex struct {
	ctx *scheduling.Context
	// slots[i] lists (block ordinal, template ordinal) pairs person i holds.
	slots map[int][][2]int
	// busy[i][j] is true when person i already works block j.
	busy map[int]map[int]bool
}

func newCoverageIndex(c *scheduling.Context) *coverageIndex {
	idx := &coverageIndex{ctx: c, slots: map[int][][2]int{}, busy: map[int]map[int]bool{}}
	for _, a := range c.Existing {
		i, ok := c.PersonIdx[a.PersonID]
		if !ok {
			continue
		}
		j, ok := c.BlockIdx[a.BlockID]
		if !ok {
			continue
		}
		if idx.busy[i] == nil {
			idx.busy[i] = map[int]bool{}
		}
		idx.busy[i][j] = true
		if a.RotationTemplateID == nil {
			continue
		}
		if k, ok := c.TemplateIdx[*a.RotationTemplateID]; ok {
			idx.slots[i] = append(idx.slots[i], [2]int{j, k})
		}
	}
	return idx
}

// canCover reports whether person i could take over the (block, template)
// slot: right kind gates, available, and not already working the block.
func (idx *coverageIndex) canCover(i int, slot [2]int) bool {
	j, k := slot[0], slot[1]
	p := idx.ctx.People[i]
	t := idx.ctx.Templates[k]
	b := idx.ctx.Blocks[j]
	if !t.Allows(p) || !t.AllowsTimeOfDay(b.TimeOfDay) {
		return false
	}
	if !idx.ctx.Available(i, j).Available {
		return false
	}
	return !idx.busy[i][j]
}

// backupsFor counts people able to cover every slot in the list.
func (idx *coverageIndex) backupsFor(exclude map[int]bool, slots [][2]int) int {
	backups := 0
	for i := range idx.ctx.People {
		if exclude[i] {
			continue
		}
		covers := true
		for _, slot := range slots {
			if !idx.canCover(i, slot) {
				covers = false
				break
			}
		}
		if covers {
			backups++
		}
	}
	return backups
}

// AnalyzeN1 grades every person, sorted by criticality descending then ref.
func AnalyzeN1(c *scheduling.Context) []PersonRisk {
	idx := newCoverageIndex(c)
	risks := make([]PersonRisk, 0, len(c.People))
	for i, p := range c.People {
		slots := idx.slots[i]
		if len(slots) == 0 {
			continue
		}
		backups := idx.backupsFor(map[int]bool{i: true}, slots)
		crit := criticality(len(slots), backups)
		risks = append(risks, PersonRisk{
			PersonRef:     c.PersonRef(p.ID),
			AffectedSlots: len(slots),
			ViableBackups: backups,
			Criticality:   crit,
			SPOF:          crit >= SPOFThreshold && backups == 0,
		})
	}
	sort.SliceStable(risks, func(i, j int) bool {
		if risks[i].Criticality != risks[j].Criticality {
			return risks[i].Criticality > risks[j].Criticality
		}
		return risks[i].PersonRef < risks[j].PersonRef
	})
	return risks
}

// AnalyzeN2 grades simultaneous loss of each pair that holds assignments,
// flagging cross-training candidates.
func AnalyzeN2(c *scheduling.Context) []PairRisk {
	idx := newCoverageIndex(c)
	var holders []int
	for i := range c.People {
		if len(idx.slots[i]) > 0 {
			holders = append(holders, i)
		}
	}
	var risks []PairRisk
	for a := 0; a < len(holders); a++ {
		for b := a + 1; b < len(holders); b++ {
			i, j := holders[a], holders[b]
			slots := append(append([][2]int(nil), idx.slots[i]...), idx.slots[j]...)
			backups := idx.backupsFor(map[int]bool{i: true, j: true}, slots)
			crit := criticality(len(slots), backups)
			if crit < PairRiskThreshold {
				continue
			}
			refs := [2]string{c.PersonRef(c.People[i].ID), c.PersonRef(c.People[j].ID)}
			if refs[1] < refs[0] {
				refs[0], refs[1] = refs[1], refs[0]
			}
			risks = append(risks, PairRisk{
				PersonRefs:    refs,
				AffectedSlots: len(slots),
				ViableBackups: backups,
				Criticality:   crit,
				CrossTrain:    backups == 0,
			})
		}
	}
	sort.SliceStable(risks, func(i, j int) bool {
		if risks[i].Criticality != risks[j].Criticality {
			return risks[i].Criticality > risks[j].Criticality
		}
		if risks[i].PersonRefs[0] != risks[j].PersonRefs[0] {
			return risks[i].PersonRefs[0] < risks[j].PersonRefs[0]
		}
		return risks[i].PersonRefs[1] < risks[j].PersonRefs[1]
	})
	return risks
}
