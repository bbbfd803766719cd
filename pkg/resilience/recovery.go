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

// DefenseLevel is the overall staffing posture, GREEN (healthy) through
// BLACK (collapse imminent).
type DefenseLevel string

const (
	DefenseGreen  DefenseLevel = "GREEN"
	DefenseYellow DefenseLevel = "YELLOW"
	DefenseOrange DefenseLevel = "ORANGE"
	DefenseRed    DefenseLevel = "RED"
	DefenseBlack  DefenseLevel = "BLACK"
)

// Ordinal maps levels to the 0..4 scale the defense gauge exports.
func (d DefenseLevel) Ordinal() int {
	switch d {
	case DefenseGreen:
		return 0
	case DefenseYellow:
		return 1
	case DefenseOrange:
		return 2
	case DefenseRed:
		return 3
	case DefenseBlack:
		return 4
	}
	return 0
}

// Action is one kind of recovery measure.
type Action string

const (
	ActionReduceLoad            Action = "REDUCE_LOAD"
	ActionAddCapacity           Action = "ADD_CAPACITY"
	ActionActivateBackup        Action = "ACTIVATE_BACKUP"
	ActionRedistributeWork      Action = "REDISTRIBUTE_WORK"
	ActionImplementRestrictions Action = "IMPLEMENT_RESTRICTIONS"
	ActionEmergencyProtocol     Action = "EMERGENCY_PROTOCOL"
)

// RecoveryStep is one prioritised measure; priority 1 is most urgent.
type RecoveryStep struct {
	Action          Action  `json:"action"`
	Priority        int     `json:"priority"`
	EstimatedHours  float64 `json:"estimated_hours"`
	SuccessCriteria string  `json:"success_criteria"`
}

// PostureInputs feed the defense-level assessment.
type PostureInputs struct {
	Utilisation  float64 `json:"utilisation"`
	N1Count      int     `json:"n1_count"`
	N2Count      int     `json:"n2_count"`
	CoverageGaps int     `json:"coverage_gaps"`
	BurnoutCases int     `json:"burnout_cases"`
}

// AssessDefenseLevel grades the posture from the worst of its signals.
func AssessDefenseLevel(in PostureInputs) DefenseLevel {
	switch {
	case in.Utilisation > 1.5 || in.CoverageGaps > 10 || in.BurnoutCases > 5:
		return DefenseBlack
	case in.Utilisation > 1.2 || in.CoverageGaps > 5 || in.N1Count > 5 || in.BurnoutCases > 2:
		return DefenseRed
	case in.Utilisation > 1.0 || in.CoverageGaps > 0 || in.N1Count > 2:
		return DefenseOrange
	case in.Utilisation > 0.85 || in.N1Count > 0 || in.N2Count > 3:
		return DefenseYellow
	}
	return DefenseGreen
}

// PlanRecovery produces the prioritised measures for a posture, most urgent
// first, plus contingency fallbacks at the tail.
func PlanRecovery(level DefenseLevel, in PostureInputs) []RecoveryStep {
	var steps []RecoveryStep
	switch level {
	case DefenseBlack:
		steps = append(steps,
			RecoveryStep{ActionEmergencyProtocol, 1, 4, "external coverage engaged and census capped"},
			RecoveryStep{ActionImplementRestrictions, 1, 8, "non-essential activities suspended"},
			RecoveryStep{ActionAddCapacity, 2, 80, "locum or per-diem staffing signed"},
		)
	case DefenseRed:
		steps = append(steps,
			RecoveryStep{ActionImplementRestrictions, 1, 8, "elective load reduced until utilisation < 1.2"},
			RecoveryStep{ActionActivateBackup, 2, 16, "every SPOF slot has a named backup on the roster"},
			RecoveryStep{ActionAddCapacity, 3, 80, "requisition for additional faculty filed"},
		)
	case DefenseOrange:
		steps = append(steps,
			RecoveryStep{ActionRedistributeWork, 1, 16, "no person above 1.0 utilisation"},
			RecoveryStep{ActionActivateBackup, 2, 16, "coverage gaps assigned from the backup pool"},
		)
	case DefenseYellow:
		steps = append(steps,
			RecoveryStep{ActionReduceLoad, 2, 8, "utilisation back under 0.85"},
			RecoveryStep{ActionRedistributeWork, 3, 16, "cross-training started for flagged pairs"},
		)
	default:
		return nil
	}
	if in.BurnoutCases > 0 {
		steps = append(steps, RecoveryStep{ActionReduceLoad, 1, 8, "burnout cases below threshold workload"})
	}
	// Contingencies in case the primary measures stall.
	steps = append(steps,
		RecoveryStep{ActionRedistributeWork, 4, 24, "fallback: load spread across remaining staff"},
		RecoveryStep{ActionEmergencyProtocol, 5, 4, "fallback: escalation path rehearsed"},
	)
	return steps
}
