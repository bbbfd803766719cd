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

package scheduling

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Severity grades a violation. CRITICAL means the schedule is out of
// regulatory compliance; INFO is advisory.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 3
	}
	return 4
}

// Violation is a constraint check result. PersonRef carries the anonymised
// ref (RES-001, FAC-PD), never a name; the same rule applies to Message and
// Details.
type Violation struct {
	ConstraintName  string                 `json:"constraint_name"`
	Severity        Severity               `json:"severity"`
	Message         string                 `json:"message"`
	PersonRef       string                 `json:"person_ref,omitempty"`
	BlockID         uuid.UUID              `json:"block_id,omitempty"`
	Date            time.Time              `json:"date,omitempty"`
	Details         map[string]interface{} `json:"details,omitempty"`
	SuggestedAction string                 `json:"suggested_action,omitempty"`
}

// SortViolations orders by severity descending, date ascending, constraint
// name ascending, then person ref for full determinism.
func SortViolations(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() < b.Severity.rank()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ConstraintName != b.ConstraintName {
			return a.ConstraintName < b.ConstraintName
		}
		return a.PersonRef < b.PersonRef
	})
}
