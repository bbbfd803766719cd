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

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Shared instruments for the engine's public operations. Per-package metrics
// (solver runtime, encoding time) live next to the code that observes them;
// these cross-cutting ones live here because several packages touch them.
var (
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generations_total",
			Help:      "Number of schedule generation requests, broken down by result.",
		},
		[]string{ResultLabel},
	)
	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "validations_total",
			Help:      "Number of schedule validation requests, broken down by result.",
		},
		[]string{ResultLabel},
	)
	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batches_total",
			Help:      "Number of batch mutation requests, broken down by operation and result.",
		},
		[]string{OperationLabel, ResultLabel},
	)
	ComplianceRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "compliance_rate",
			Help:      "Fraction of blocks free of violations in the last validation run.",
		},
	)
	OpenViolations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "open_violations",
			Help:      "Violation count from the last validation run.",
		},
	)
	DefenseLevel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "defense_level",
			Help:      "Resilience defense level from the last analysis: 0=GREEN through 4=BLACK.",
		},
	)
)

func init() {
	Registry.MustRegister(
		GenerationsTotal,
		ValidationsTotal,
		BatchesTotal,
		ComplianceRate,
		OpenViolations,
		DefenseLevel,
	)
}
