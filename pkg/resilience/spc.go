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
	"math"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
)

// Zone classifies a sample's distance from the center line in sigma units.
type Zone string

const (
	ZoneC   Zone = "C"   // within 1 sigma
	ZoneB   Zone = "B"   // 1 to 2 sigma
	ZoneA   Zone = "A"   // 2 to 3 sigma
	ZoneOut Zone = "OUT" // beyond 3 sigma
)

// ControlChart is an X-bar style chart built from baseline samples.
type ControlChart struct {
	Center float64 `json:"center"`
	Sigma  float64 `json:"sigma"`
	UCL    float64 `json:"ucl"`
	LCL    float64 `json:"lcl"`
}

// NewControlChart computes the center line and three-sigma limits from
// baseline samples. At least two samples are required for a sigma.
func NewControlChart(baseline []float64) (*ControlChart, error) {
	if len(baseline) < 2 {
		return nil, rotaerrors.Invalid("control chart needs at least 2 baseline samples, got %d", len(baseline))
	}
	center := mean(baseline)
	variance := 0.0
	for _, x := range baseline {
		variance += (x - center) * (x - center)
	}
	sigma := math.Sqrt(variance / float64(len(baseline)-1))
	return &ControlChart{
		Center: center,
		Sigma:  sigma,
		UCL:    center + 3*sigma,
		LCL:    center - 3*sigma,
	}, nil
}

// Classify places a sample into its zone.
func (c *ControlChart) Classify(x float64) Zone {
	if c.Sigma == 0 {
		if x == c.Center {
			return ZoneC
		}
		return ZoneOut
	}
	distance := math.Abs(x-c.Center) / c.Sigma
	switch {
	case distance <= 1:
		return ZoneC
	case distance <= 2:
		return ZoneB
	case distance <= 3:
		return ZoneA
	}
	return ZoneOut
}

// CUSUM returns the indices at which the cumulative sum crosses the decision
// interval h, using slack k, both in sigma units of the chart.
func (c *ControlChart) CUSUM(samples []float64, k, h float64) []int {
	slack := k * c.Sigma
	limit := h * c.Sigma
	var signals []int
	high, low := 0.0, 0.0
	for i, x := range samples {
		high = math.Max(0, high+x-c.Center-slack)
		low = math.Max(0, low+c.Center-x-slack)
		if high > limit || low > limit {
			signals = append(signals, i)
			high, low = 0, 0
		}
	}
	return signals
}

// EWMA smooths the samples with factor lambda and returns the smoothed
// series plus the indices breaching the EWMA control limits.
func (c *ControlChart) EWMA(samples []float64, lambda float64) ([]float64, []int) {
	smoothed := make([]float64, len(samples))
	var signals []int
	z := c.Center
	for i, x := range samples {
		z = lambda*x + (1-lambda)*z
		smoothed[i] = z
		// Steady-state EWMA limits.
		width := 3 * c.Sigma * math.Sqrt(lambda/(2-lambda))
		if z > c.Center+width || z < c.Center-width {
			signals = append(signals, i)
		}
	}
	return smoothed, signals
}

// TrendSlope is the least-squares slope over the sample window; a sustained
// non-zero slope on a compliance series means drift, not noise.
func TrendSlope(window []float64) float64 {
	n := float64(len(window))
	if n < 2 {
		return 0
	}
	sumX, sumY, sumXY, sumXX := 0.0, 0.0, 0.0, 0.0
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Capability computes the Cp and Cpk indices of samples against spec limits.
func Capability(samples []float64, lsl, usl float64) (cp, cpk float64, err error) {
	chart, chartErr := NewControlChart(samples)
	if chartErr != nil {
		return 0, 0, chartErr
	}
	if chart.Sigma == 0 {
		return 0, 0, rotaerrors.Invalid("capability undefined for zero-variance samples")
	}
	cp = (usl - lsl) / (6 * chart.Sigma)
	cpk = math.Min(usl-chart.Center, chart.Center-lsl) / (3 * chart.Sigma)
	return cp, cpk, nil
}

func mean(samples []float64) float64 {
	total := 0.0
	for _, x := range samples {
		total += x
	}
	return total / float64(len(samples))
}
