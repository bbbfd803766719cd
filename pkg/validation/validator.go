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

// Package validation re-checks persisted schedules against the constraint
// library. Validation is read-only: it reports, it never mutates.
package validation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/events"
	"github.com/gmesched/rota/pkg/metrics"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/store"
)

// windowMargin widens the loaded period so rolling-window rules see the days
// just outside the requested range.
const windowMargin = 7 * 24 * time.Hour

// Report is one validation run's output. Violations are sorted by severity
// descending, then date, constraint name, and person ref.
type Report struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Violations []scheduling.Violation `json:"violations"`

	TotalBlocks          int            `json:"total_blocks"`
	BlocksWithViolations int            `json:"blocks_with_violations"`
	ComplianceRate       float64        `json:"compliance_rate"`
	PerConstraint        map[string]int `json:"per_constraint"`
}

// CriticalCount is the number of CRITICAL violations in the report.
func (r *Report) CriticalCount() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == scheduling.SeverityCritical {
			n++
		}
	}
	return n
}

type Validator struct {
	store    store.Reader
	clock    clock.Clock
	recorder events.Recorder
	log      *zap.Logger
}

func NewValidator(s store.Reader, clk clock.Clock, recorder events.Recorder, log *zap.Logger) *Validator {
	return &Validator{store: s, clock: clk, recorder: recorder, log: log.Named("validation")}
}

// Validate checks every assignment inside [start, end] against the given
// hard constraints. The loaded period is widened by a week on both sides so
// the 80-hour and 1-in-7 windows straddling the boundary are honest; only
// violations dated inside the requested range are reported.
func (v *Validator) Validate(ctx context.Context, start, end time.Time, hard []scheduling.HardConstraint) (*Report, error) {
	if !start.Before(end) {
		return nil, rotaerrors.Invalid("validation period start %s must precede end %s",
			scheduling.DayKey(start), scheduling.DayKey(end))
	}
	began := v.clock.Now()
	snap, err := v.store.LoadPeriod(ctx, start.Add(-windowMargin), end.Add(windowMargin))
	if err != nil {
		metrics.ValidationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	c, err := scheduling.NewContext(snap, start, end)
	if err != nil {
		metrics.ValidationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	report := &Report{Start: start, End: end, PerConstraint: map[string]int{}}
	for _, h := range hard {
		for _, violation := range h.Validate(c, snap.Assignments) {
			if violation.Date.Before(start) || violation.Date.After(end) {
				continue
			}
			report.Violations = append(report.Violations, violation)
			report.PerConstraint[violation.ConstraintName]++
		}
	}
	scheduling.SortViolations(report.Violations)

	affected := map[uuid.UUID]bool{}
	for _, violation := range report.Violations {
		if violation.BlockID != uuid.Nil {
			affected[violation.BlockID] = true
		}
		if violation.Severity == scheduling.SeverityCritical {
			v.recorder.CriticalViolation(violation.ConstraintName, violation.PersonRef, violation.Date)
		}
	}
	for _, b := range snap.Blocks {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		report.TotalBlocks++
		if affected[b.ID] {
			report.BlocksWithViolations++
		}
	}
	report.ComplianceRate = 1
	if report.TotalBlocks > 0 {
		report.ComplianceRate = 1 - float64(report.BlocksWithViolations)/float64(report.TotalBlocks)
	}

	metrics.ValidationsTotal.WithLabelValues("ok").Inc()
	metrics.ComplianceRate.Set(report.ComplianceRate)
	metrics.OpenViolations.Set(float64(len(report.Violations)))
	v.log.Info("validation finished",
		zap.String("start", scheduling.DayKey(start)),
		zap.String("end", scheduling.DayKey(end)),
		zap.Int("violations", len(report.Violations)),
		zap.Int("critical", report.CriticalCount()),
		zap.Float64("compliance", report.ComplianceRate),
		zap.Duration("duration", v.clock.Since(began)))
	return report, nil
}
