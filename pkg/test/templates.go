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

	"github.com/google/uuid"
	"github.com/imdario/mergo"

	"github.com/gmesched/rota/pkg/roster"
)

// TemplateOptions customizes a RotationTemplate.
type TemplateOptions struct {
	ID                           uuid.UUID
	Name                         string
	Abbreviation                 string
	ActivityType                 roster.ActivityType
	AllowedPersonTypes           []roster.PersonKind
	MinPGYLevel                  *int
	MaxPGYLevel                  *int
	RequiredSpecialties          []string
	TimeOfDay                    *roster.TimeOfDay
	CountsTowardPhysicalCapacity bool
	MaxResidents                 int
	CallHours                    int
}

// Template creates a test rotation template with defaults that can be
// overridden by TemplateOptions.
func Template(overrides ...TemplateOptions) *roster.RotationTemplate {
	options := TemplateOptions{}
	for _, opts := range overrides {
		if err := mergo.Merge(&options, opts, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge template options: %s", err.Error()))
		}
	}
	if options.ID == uuid.Nil {
		options.ID = uuid.New()
	}
	if options.Abbreviation == "" {
		options.Abbreviation = roster.AbbrevClinic
	}
	if options.Name == "" {
		options.Name = options.Abbreviation
	}
	if options.ActivityType == "" {
		options.ActivityType = roster.ActivityClinic
	}
	return &roster.RotationTemplate{
		ID:                           options.ID,
		Name:                         options.Name,
		Abbreviation:                 options.Abbreviation,
		ActivityType:                 options.ActivityType,
		AllowedPersonTypes:           options.AllowedPersonTypes,
		MinPGYLevel:                  options.MinPGYLevel,
		MaxPGYLevel:                  options.MaxPGYLevel,
		RequiredSpecialties:          options.RequiredSpecialties,
		TimeOfDay:                    options.TimeOfDay,
		CountsTowardPhysicalCapacity: options.CountsTowardPhysicalCapacity,
		MaxResidents:                 options.MaxResidents,
		CallHours:                    options.CallHours,
	}
}

// StandardTemplates is the rotation catalogue most suites seed: continuity
// clinic, Wednesday lecture, the post-night-float morning placements, night
// float itself, inpatient, call, and admin.
func StandardTemplates() []*roster.RotationTemplate {
	return []*roster.RotationTemplate{
		Template(TemplateOptions{
			Abbreviation:                 roster.AbbrevClinic,
			Name:                         "Continuity Clinic",
			ActivityType:                 roster.ActivityClinic,
			CountsTowardPhysicalCapacity: true,
		}),
		Template(TemplateOptions{
			Abbreviation: roster.AbbrevLecture,
			Name:         "Didactic Lecture",
			ActivityType: roster.ActivityLecture,
			TimeOfDay:    Ptr(roster.PM),
		}),
		Template(TemplateOptions{
			Abbreviation: roster.AbbrevOffAM,
			Name:         "Post-Night Off",
			ActivityType: roster.ActivityOff,
			TimeOfDay:    Ptr(roster.AM),
		}),
		Template(TemplateOptions{
			Abbreviation: "NF",
			Name:         "Night Float",
			ActivityType: roster.ActivityInpatient,
			TimeOfDay:    Ptr(roster.PM),
		}),
		Template(TemplateOptions{
			Abbreviation: "FMIT",
			Name:         "Family Medicine Inpatient",
			ActivityType: roster.ActivityInpatient,
		}),
		Template(TemplateOptions{
			Abbreviation: "LD",
			Name:         "Labor & Delivery Call",
			ActivityType: roster.ActivityCall,
			CallHours:    24,
		}),
		Template(TemplateOptions{
			Abbreviation: "WKND",
			Name:         "Weekend Call",
			ActivityType: roster.ActivityCall,
		}),
		Template(TemplateOptions{
			Abbreviation:       "ADM",
			Name:               "Administrative Time",
			ActivityType:       roster.ActivityAdmin,
			AllowedPersonTypes: []roster.PersonKind{roster.PersonKindFaculty},
		}),
	}
}

// TemplateByAbbrev picks a template out of a catalogue by its code.
func TemplateByAbbrev(templates []*roster.RotationTemplate, abbrev string) *roster.RotationTemplate {
	for _, t := range templates {
		if t.Abbreviation == abbrev {
			return t
		}
	}
	panic(fmt.Sprintf("no template %q in catalogue", abbrev))
}
