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
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/events"
	"github.com/gmesched/rota/pkg/metrics"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/store"
)

// Kind selects one of the analysis sub-engines.
type Kind string

const (
	KindN1      Kind = "n1"
	KindN2      Kind = "n2"
	KindCascade Kind = "cascade"
	KindSPC     Kind = "spc"
)

// SPCParams feed the control-chart analysis with a baseline and the series
// to judge against it.
type SPCParams struct {
	Baseline []float64 `json:"baseline"`
	Samples  []float64 `json:"samples"`
	// Spec limits for capability; both zero skips Cp/Cpk.
	LSL float64 `json:"lsl"`
	USL float64 `json:"usl"`
}

// SPCReport is the chart plus per-sample zones and drift diagnostics.
type SPCReport struct {
	Chart        *ControlChart `json:"chart"`
	Zones        []Zone        `json:"zones"`
	CUSUMSignals []int         `json:"cusum_signals,omitempty"`
	EWMASignals  []int         `json:"ewma_signals,omitempty"`
	TrendSlope   float64       `json:"trend_slope"`
	Cp           float64       `json:"cp,omitempty"`
	Cpk          float64       `json:"cpk,omitempty"`
}

// Analysis is the union result of one Analyze call; exactly one payload
// field is set, matching Kind.
type Analysis struct {
	Kind Kind `json:"kind"`

	N1      []PersonRisk   `json:"n1,omitempty"`
	N2      []PairRisk     `json:"n2,omitempty"`
	Cascade *CascadeResult `json:"cascade,omitempty"`
	SPC     *SPCReport     `json:"spc,omitempty"`

	DefenseLevel DefenseLevel   `json:"defense_level"`
	Posture      PostureInputs  `json:"posture"`
	Recovery     []RecoveryStep `json:"recovery,omitempty"`
}

type Analyzer struct {
	store    store.Reader
	clock    clock.Clock
	recorder events.Recorder
	log      *zap.Logger

	mu        sync.Mutex
	lastLevel DefenseLevel
}

func NewAnalyzer(s store.Reader, clk clock.Clock, recorder events.Recorder, log *zap.Logger) *Analyzer {
	return &Analyzer{
		store:     s,
		clock:     clk,
		recorder:  recorder,
		log:       log.Named("resilience"),
		lastLevel: DefenseGreen,
	}
}

// Analyze loads the period and runs the requested sub-engine. Every call
// also re-assesses the defense posture and plans recovery for it.
func (an *Analyzer) Analyze(ctx context.Context, start, end time.Time, kind Kind, cascade *CascadeParams, spc *SPCParams) (*Analysis, error) {
	snap, err := an.store.LoadPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}
	c, err := scheduling.NewContext(snap, start, end)
	if err != nil {
		return nil, err
	}

	out := &Analysis{Kind: kind}
	switch kind {
	case KindN1:
		out.N1 = AnalyzeN1(c)
	case KindN2:
		out.N2 = AnalyzeN2(c)
	case KindCascade:
		params := CascadeParams{}
		if cascade != nil {
			params = *cascade
		}
		if params.InitialFaculty <= 0 {
			params.InitialFaculty = len(c.FacultyIndices())
		}
		if params.TotalWorkload <= 0 {
			params.TotalWorkload = facultyDemand(c)
		}
		result := SimulateCascade(params)
		out.Cascade = &result
	case KindSPC:
		if spc == nil {
			return nil, rotaerrors.Invalid("spc analysis requires baseline and samples")
		}
		report, err := an.spcReport(spc)
		if err != nil {
			return nil, err
		}
		out.SPC = report
	default:
		return nil, rotaerrors.Invalid("unknown analysis kind %q", kind)
	}

	out.Posture = assessPosture(c)
	out.DefenseLevel = AssessDefenseLevel(out.Posture)
	out.Recovery = PlanRecovery(out.DefenseLevel, out.Posture)
	metrics.DefenseLevel.Set(float64(out.DefenseLevel.Ordinal()))

	an.mu.Lock()
	if out.DefenseLevel != an.lastLevel {
		an.recorder.DefenseLevelChanged(string(an.lastLevel), string(out.DefenseLevel))
		an.lastLevel = out.DefenseLevel
	}
	an.mu.Unlock()

	an.log.Info("analysis finished",
		zap.String("kind", string(kind)),
		zap.String("defense_level", string(out.DefenseLevel)))
	return out, nil
}

func (an *Analyzer) spcReport(params *SPCParams) (*SPCReport, error) {
	chart, err := NewControlChart(params.Baseline)
	if err != nil {
		return nil, err
	}
	report := &SPCReport{Chart: chart, TrendSlope: TrendSlope(params.Samples)}
	for _, x := range params.Samples {
		report.Zones = append(report.Zones, chart.Classify(x))
	}
	report.CUSUMSignals = chart.CUSUM(params.Samples, 0.5, 4)
	_, report.EWMASignals = chart.EWMA(params.Samples, 0.2)
	if params.USL > params.LSL {
		cp, cpk, err := Capability(params.Samples, params.LSL, params.USL)
		if err == nil {
			report.Cp, report.Cpk = cp, cpk
		}
	}
	return report, nil
}

// assessPosture derives the staffing signals from the loaded period: N-1 /
// N-2 exposure, blocks whose supervision demand outstrips available faculty,
// and residents whose weekly hours sit near the regulatory ceiling.
func assessPosture(c *scheduling.Context) PostureInputs {
	in := PostureInputs{}
	for _, risk := range AnalyzeN1(c) {
		if risk.Criticality >= SPOFThreshold {
			in.N1Count++
		}
	}
	for _, risk := range AnalyzeN2(c) {
		if risk.CrossTrain {
			in.N2Count++
		}
	}

	demand := 0
	capacity := 0
	for j := range c.Blocks {
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
		demand += required
		capacity += faculty
		if faculty < required {
			in.CoverageGaps++
		}
	}
	if capacity > 0 {
		in.Utilisation = float64(demand) / float64(capacity)
	} else if demand > 0 {
		in.Utilisation = 2
	}

	weeks := float64(c.End.Sub(c.Start).Hours()) / (24 * 7)
	if weeks > 0 {
		hours := map[int]int{}
		for _, a := range c.Existing {
			if i, ok := c.PersonIdx[a.PersonID]; ok && c.People[i].IsResident() {
				hours[i] += c.HoursOf(a)
			}
		}
		for _, total := range hours {
			if float64(total)/weeks > 72 {
				in.BurnoutCases++
			}
		}
	}
	return in
}

// facultyDemand is the average per-day supervision demand, used as the
// cascade simulator's total workload when the caller doesn't supply one.
func facultyDemand(c *scheduling.Context) float64 {
	days := c.Days()
	if len(days) == 0 {
		return 0
	}
	total := 0
	for j := range c.Blocks {
		pgy1, other := 0, 0
		for i, p := range c.People {
			if p.IsFaculty() || !c.Available(i, j).Available {
				continue
			}
			if p.PGY() == 1 {
				pgy1++
			} else {
				other++
			}
		}
		total += roster.RequiredFaculty(pgy1, other)
	}
	return float64(total) / float64(len(days))
}
