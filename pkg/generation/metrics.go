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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gmesched/rota/pkg/metrics"
)

var (
	solveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "generation",
			Name:      "solve_duration_seconds",
			Help:      "Wall time spent inside the solver adapter.",
			Buckets:   metrics.DurationBuckets(),
		},
		[]string{metrics.SolverLabel, metrics.ResultLabel},
	)
	encodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "generation",
			Name:      "encode_duration_seconds",
			Help:      "Time spent encoding each constraint into the model.",
			Buckets:   metrics.DurationBuckets(),
		},
		[]string{metrics.ConstraintLabel},
	)
	pruneRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "generation",
			Name:      "prune_ratio",
			Help:      "Share of candidate (person, block, template) triples removed before solving.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(solveDuration, encodeDuration, pruneRatio)
}

func metricsMeasure(constraint string) func() {
	return metrics.Measure(encodeDuration.WithLabelValues(constraint))
}
