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

package batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/scheduling/constraints"
)

// precheckMargin widens the simulated period so duty-hour windows spanning
// the batch boundary are seen; four weeks covers the longest rolling rule.
const precheckMargin = 28 * 24 * time.Hour

// precheckCreates simulates the batch on top of the persisted schedule and
// reports the ACGME violations the combination would introduce. Findings are
// advisory warnings; strict mode upgrades CRITICAL ones to a rejection in
// the caller.
func (p *Pipeline) precheckCreates(ctx context.Context, items []CreateItem, failed map[int]bool) ([]scheduling.Violation, error) {
	var earliest, latest time.Time
	blockDates := map[uuid.UUID]time.Time{}
	for i, item := range items {
		if failed[i] {
			continue
		}
		b, err := p.store.GetBlock(ctx, item.BlockID)
		if err != nil {
			// Existence failures are already attributed to their item.
			continue
		}
		blockDates[item.BlockID] = b.Date
		if earliest.IsZero() || b.Date.Before(earliest) {
			earliest = b.Date
		}
		if latest.IsZero() || b.Date.After(latest) {
			latest = b.Date
		}
	}
	if earliest.IsZero() {
		return nil, nil
	}

	snap, err := p.store.LoadPeriod(ctx, earliest.Add(-precheckMargin), latest.Add(precheckMargin))
	if err != nil {
		return nil, rotaerrors.Wrap(rotaerrors.KindUnavailable, err, "loading compliance pre-check period")
	}
	c, err := scheduling.NewContext(snap, earliest.Add(-precheckMargin), latest.Add(precheckMargin))
	if err != nil {
		return nil, err
	}

	simulated := append([]*roster.Assignment(nil), snap.Assignments...)
	for i, item := range items {
		if failed[i] {
			continue
		}
		if _, known := blockDates[item.BlockID]; !known {
			continue
		}
		simulated = append(simulated, &roster.Assignment{
			ID:                 uuid.New(),
			BlockID:            item.BlockID,
			PersonID:           item.PersonID,
			RotationTemplateID: item.RotationTemplateID,
			ActivityOverride:   item.ActivityOverride,
			OverrideReason:     item.OverrideReason,
			Role:               roster.RolePrimary,
			Source:             roster.SourceManual,
		})
	}

	var warnings []scheduling.Violation
	warnings = append(warnings, constraints.NewEightyHourWeek(constraints.MaxWeeklyHours).Validate(c, simulated)...)
	warnings = append(warnings, constraints.NewOneInSeven().Validate(c, simulated)...)
	scheduling.SortViolations(warnings)
	return warnings, nil
}
