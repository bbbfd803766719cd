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
	"encoding/json"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
)

// Envelope is the persisted constraint schema. The field set and spelling
// are load-bearing: stored configurations round-trip through it.
type Envelope struct {
	Type           string                 `json:"type"`
	Name           string                 `json:"name"`
	ConstraintType string                 `json:"constraint_type"`
	Priority       string                 `json:"priority,omitempty"`
	Weight         *float64               `json:"weight,omitempty"`
	Parameters     map[string]interface{} `json:"parameters"`
}

// Marshal serialises a constraint into its envelope JSON.
func Marshal(c Constraint) ([]byte, error) {
	env := Envelope{
		Name:           c.Name(),
		ConstraintType: string(c.Type()),
		Parameters:     c.Parameters(),
	}
	switch typed := c.(type) {
	case HardConstraint:
		env.Type = "hard"
		env.Priority = string(typed.Priority())
	case SoftConstraint:
		env.Type = "soft"
		w := typed.Weight()
		env.Weight = &w
	default:
		return nil, rotaerrors.Invalid("constraint %q is neither hard nor soft", c.Name())
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, rotaerrors.Wrap(rotaerrors.KindInternal, err, "marshalling constraint %q", c.Name())
	}
	return data, nil
}

// Unmarshal rebuilds a constraint from envelope JSON through the registry.
func Unmarshal(reg *Registry, data []byte) (Constraint, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, rotaerrors.Wrap(rotaerrors.KindInvalid, err, "unmarshalling constraint")
	}
	if env.Type != "hard" && env.Type != "soft" {
		return nil, rotaerrors.Invalid("constraint type must be hard or soft, got %q", env.Type)
	}
	return reg.New(env)
}

// Clone deep-copies a constraint by round-tripping its envelope.
func Clone(reg *Registry, c Constraint) (Constraint, error) {
	data, err := Marshal(c)
	if err != nil {
		return nil, err
	}
	return Unmarshal(reg, data)
}
