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

// Package test provides deterministic-enough builders for the engine's
// entities. Builders fill anything the caller leaves zero with sane defaults,
// so tests only spell out what they assert on.
package test

import (
	"fmt"
	"strings"

	"github.com/Pallinder/go-randomdata"
	"github.com/google/uuid"
	"github.com/imdario/mergo"

	"github.com/gmesched/rota/pkg/roster"
)

// PersonOptions customizes a Person.
type PersonOptions struct {
	ID                   uuid.UUID
	Name                 string
	Kind                 roster.PersonKind
	PGYLevel             *int
	Specialties          []string
	FacultyRole          string
	SundayCallCount      int
	WeekdayCallCount     int
	AvoidBackToBackCall  bool
	PrefersWednesdayCall bool
}

// Person creates a test person with defaults that can be overridden by
// PersonOptions. Overrides are applied in order, with a last write wins
// semantic.
func Person(overrides ...PersonOptions) *roster.Person {
	options := PersonOptions{}
	for _, opts := range overrides {
		if err := mergo.Merge(&options, opts, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge person options: %s", err.Error()))
		}
	}
	if options.ID == uuid.Nil {
		options.ID = uuid.New()
	}
	if options.Name == "" {
		options.Name = strings.ToLower(randomdata.SillyName())
	}
	if options.Kind == "" {
		options.Kind = roster.PersonKindResident
	}
	if options.Kind == roster.PersonKindResident && options.PGYLevel == nil {
		options.PGYLevel = Ptr(2)
	}
	return &roster.Person{
		ID:                   options.ID,
		Name:                 options.Name,
		Kind:                 options.Kind,
		PGYLevel:             options.PGYLevel,
		Email:                fmt.Sprintf("%s@example.test", options.Name),
		Specialties:          options.Specialties,
		FacultyRole:          options.FacultyRole,
		SundayCallCount:      options.SundayCallCount,
		WeekdayCallCount:     options.WeekdayCallCount,
		AvoidBackToBackCall:  options.AvoidBackToBackCall,
		PrefersWednesdayCall: options.PrefersWednesdayCall,
	}
}

// Resident creates a resident at the given PGY level.
func Resident(pgy int, overrides ...PersonOptions) *roster.Person {
	return Person(append(overrides, PersonOptions{
		Kind:     roster.PersonKindResident,
		PGYLevel: Ptr(pgy),
	})...)
}

// Faculty creates a faculty member; faculty never carry a PGY level.
func Faculty(overrides ...PersonOptions) *roster.Person {
	p := Person(append(overrides, PersonOptions{Kind: roster.PersonKindFaculty})...)
	p.PGYLevel = nil
	return p
}

// Ptr returns a pointer to its argument, for optional fields.
func Ptr[T any](v T) *T { return &v }
