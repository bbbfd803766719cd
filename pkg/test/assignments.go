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

package test

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/imdario/mergo"

	"github.com/gmesched/rota/pkg/roster"
)

// AssignmentOptions customizes an Assignment.
type AssignmentOptions struct {
	ID             uuid.UUID
	Block          *roster.Block
	Person         *roster.Person
	Template       *roster.RotationTemplate
	Role           roster.AssignmentRole
	Source         roster.AssignmentSource
	OverrideReason string
	CreatedBy      string
	UpdatedAt      time.Time
}

// Assignment creates a test assignment with defaults that can be overridden
// by AssignmentOptions. Block and Person are required.
func Assignment(overrides ...AssignmentOptions) *roster.Assignment {
	options := AssignmentOptions{}
	for _, opts := range overrides {
		if err := mergo.Merge(&options, opts, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge assignment options: %s", err.Error()))
		}
	}
	if options.Block == nil || options.Person == nil {
		panic("assignment fixtures require a block and a person")
	}
	if options.ID == uuid.Nil {
		options.ID = uuid.New()
	}
	if options.Role == "" {
		options.Role = roster.RolePrimary
	}
	if options.Source == "" {
		options.Source = roster.SourceManual
	}
	if options.CreatedBy == "" {
		options.CreatedBy = "test"
	}
	if options.UpdatedAt.IsZero() {
		options.UpdatedAt = options.Block.Date
	}
	a := &roster.Assignment{
		ID:             options.ID,
		BlockID:        options.Block.ID,
		PersonID:       options.Person.ID,
		Role:           options.Role,
		OverrideReason: options.OverrideReason,
		Source:         options.Source,
		CreatedBy:      options.CreatedBy,
		CreatedAt:      options.UpdatedAt,
		UpdatedAt:      options.UpdatedAt,
	}
	if options.Template != nil {
		a.RotationTemplateID = Ptr(options.Template.ID)
	} else {
		a.ActivityOverride = "ad-hoc coverage"
		if a.OverrideReason == "" {
			a.OverrideReason = "fixture"
		}
	}
	return a
}

// SwapOptions customizes a SwapRecord.
type SwapOptions struct {
	ID              uuid.UUID
	SourcePerson    *roster.Person
	SourceWeekStart time.Time
	Type            roster.SwapType
	Status          roster.SwapStatus
	PreferenceTags  []string
	UpdatedAt       time.Time
}

// Swap creates a test swap request with defaults that can be overridden by
// SwapOptions. SourcePerson is required.
func Swap(overrides ...SwapOptions) *roster.SwapRecord {
	options := SwapOptions{}
	for _, opts := range overrides {
		if err := mergo.Merge(&options, opts, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge swap options: %s", err.Error()))
		}
	}
	if options.SourcePerson == nil {
		panic("swap fixtures require a source person")
	}
	if options.ID == uuid.Nil {
		options.ID = uuid.New()
	}
	if options.SourceWeekStart.IsZero() {
		options.SourceWeekStart = DefaultPeriodStart
	}
	if options.Type == "" {
		options.Type = roster.SwapOneToOne
	}
	if options.Status == "" {
		options.Status = roster.SwapPending
	}
	if options.UpdatedAt.IsZero() {
		options.UpdatedAt = options.SourceWeekStart
	}
	return &roster.SwapRecord{
		ID:              options.ID,
		SourcePersonID:  options.SourcePerson.ID,
		SourceWeekStart: options.SourceWeekStart.UTC().Truncate(24 * time.Hour),
		Type:            options.Type,
		Status:          options.Status,
		PreferenceTags:  options.PreferenceTags,
		CreatedAt:       options.UpdatedAt,
		UpdatedAt:       options.UpdatedAt,
	}
}

// Absence creates a blocking absence covering [start, end].
func Absence(p *roster.Person, start, end time.Time, overrides ...roster.AbsenceType) *roster.Absence {
	kind := roster.AbsenceVacation
	if len(overrides) > 0 {
		kind = overrides[len(overrides)-1]
	}
	return &roster.Absence{
		ID:         uuid.New(),
		PersonID:   p.ID,
		StartDate:  start.UTC().Truncate(24 * time.Hour),
		EndDate:    end.UTC().Truncate(24 * time.Hour),
		Type:       kind,
		IsBlocking: true,
	}
}
