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

package resilience

import (
	"math/rand"
)

// Cascade defaults, tuned against observed attrition in small programs.
const (
	DefaultBurnoutThreshold  = 1.5
	DefaultBurnoutMultiplier = 5.0
	DefaultHiringDelayDays   = 45
	DefaultMinimumViable     = 3
	DefaultCascadeRuns       = 500
	DefaultHorizonDays       = 365

	// baseDailyDeparture is the per-person per-day probability of leaving
	// under normal workload.
	baseDailyDeparture = 0.0005
	// dailyHireProbability is the chance a replacement search starts on any
	// given day.
	dailyHireProbability = 0.02
)

// CascadeParams tune the Monte-Carlo simulation. Zero values fall back to
// the defaults above.
type CascadeParams struct {
	Runs        int   `json:"runs"`
	HorizonDays int   `json:"horizon_days"`
	Seed        int64 `json:"seed"`

	InitialFaculty    int     `json:"initial_faculty"`
	TotalWorkload     float64 `json:"total_workload"`
	BurnoutThreshold  float64 `json:"burnout_threshold"`
	BurnoutMultiplier float64 `json:"burnout_multiplier"`
	HiringDelayDays   int     `json:"hiring_delay_days"`
	MinimumViable     int     `json:"minimum_viable"`
}

func (p *CascadeParams) withDefaults() CascadeParams {
	out := *p
	if out.Runs <= 0 {
		out.Runs = DefaultCascadeRuns
	}
	if out.HorizonDays <= 0 {
		out.HorizonDays = DefaultHorizonDays
	}
	if out.BurnoutThreshold <= 0 {
		out.BurnoutThreshold = DefaultBurnoutThreshold
	}
	if out.BurnoutMultiplier <= 0 {
		out.BurnoutMultiplier = DefaultBurnoutMultiplier
	}
	if out.HiringDelayDays <= 0 {
		out.HiringDelayDays = DefaultHiringDelayDays
	}
	if out.MinimumViable <= 0 {
		out.MinimumViable = DefaultMinimumViable
	}
	if out.TotalWorkload <= 0 {
		out.TotalWorkload = float64(out.InitialFaculty)
	}
	return out
}

// CascadeResult summarises the runs. Classification is CRITICAL when fewer
// than half the runs survive the horizon, MANAGEABLE otherwise.
type CascadeResult struct {
	Runs               int     `json:"runs"`
	SurvivalRate       float64 `json:"survival_rate"`
	MeanDaysToCollapse float64 `json:"mean_days_to_collapse"`
	PeakWorkload       float64 `json:"peak_workload"`
	Classification     string  `json:"classification"`
}

// SimulateCascade runs a discrete-time departure/hiring simulation. The
// same params and seed always give the same result: each run derives its
// own rand source from the base seed.
func SimulateCascade(params CascadeParams) CascadeResult {
	p := params.withDefaults()
	survived := 0
	collapseDays := 0
	collapses := 0
	peak := 0.0

	for run := 0; run < p.Runs; run++ {
		rng := rand.New(rand.NewSource(p.Seed + int64(run)))
		faculty := p.InitialFaculty
		var hireQueue []int

		collapsed := false
		for day := 1; day <= p.HorizonDays; day++ {
			if faculty < p.MinimumViable {
				collapsed = true
				collapses++
				collapseDays += day
				break
			}
			workload := p.TotalWorkload / float64(faculty)
			if workload > peak {
				peak = workload
			}
			departure := baseDailyDeparture
			if workload > p.BurnoutThreshold {
				departure *= p.BurnoutMultiplier
			}
			for member := 0; member < faculty; member++ {
				if rng.Float64() < departure {
					faculty--
				}
			}
			if rng.Float64() < dailyHireProbability {
				hireQueue = append(hireQueue, day+p.HiringDelayDays)
			}
			for len(hireQueue) > 0 && hireQueue[0] <= day {
				hireQueue = hireQueue[1:]
				faculty++
			}
		}
		if !collapsed {
			survived++
		}
	}

	result := CascadeResult{
		Runs:         p.Runs,
		SurvivalRate: float64(survived) / float64(p.Runs),
		PeakWorkload: peak,
	}
	if collapses > 0 {
		result.MeanDaysToCollapse = float64(collapseDays) / float64(collapses)
	}
	result.Classification = "MANAGEABLE"
	if result.SurvivalRate < 0.5 {
		result.Classification = "CRITICAL"
	}
	return result
}
