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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gmesched/rota/pkg/resilience"
)

func TestCascadeIsDeterministicPerSeed(t *testing.T) {
	params := resilience.CascadeParams{
		Runs:           50,
		HorizonDays:    60,
		Seed:           7,
		InitialFaculty: 5,
		TotalWorkload:  5,
	}
	first := resilience.SimulateCascade(params)
	second := resilience.SimulateCascade(params)
	assert.Equal(t, first, second)
}

func TestHealthyProgramSurvives(t *testing.T) {
	result := resilience.SimulateCascade(resilience.CascadeParams{
		Runs:           100,
		HorizonDays:    120,
		Seed:           42,
		InitialFaculty: 10,
		TotalWorkload:  5,
	})
	assert.Equal(t, 100, result.Runs)
	assert.GreaterOrEqual(t, result.SurvivalRate, 0.9)
	assert.Equal(t, "MANAGEABLE", result.Classification)
	assert.GreaterOrEqual(t, result.PeakWorkload, 0.5)
}

func TestUnderstaffedProgramCollapsesImmediately(t *testing.T) {
	result := resilience.SimulateCascade(resilience.CascadeParams{
		Runs:           20,
		HorizonDays:    30,
		Seed:           1,
		InitialFaculty: 2, // below the default minimum viable of three
	})
	assert.Zero(t, result.SurvivalRate)
	assert.InDelta(t, 1, result.MeanDaysToCollapse, 1e-9)
	assert.Equal(t, "CRITICAL", result.Classification)
}

func TestCascadeDefaults(t *testing.T) {
	result := resilience.SimulateCascade(resilience.CascadeParams{
		Seed:           3,
		InitialFaculty: 10,
		TotalWorkload:  5,
	})
	assert.Equal(t, resilience.DefaultCascadeRuns, result.Runs)
}
