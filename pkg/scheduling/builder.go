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
	rotaerrors "github.com/gmesched/rota/pkg/errors"
)

// Builder constructs constraints fluently against a registry. The zero value
// is ready to use:
//
//	c, err := NewBuilder(reg).Hard().Named("Capacity").OfType(TypeCapacity).
//		WithPriority(PriorityHigh).WithParameter("max_residents", 6).Build()
type Builder struct {
	reg *Registry
	env Envelope
}

func NewBuilder(reg *Registry) *Builder {
	return &Builder{reg: reg, env: Envelope{Parameters: map[string]interface{}{}}}
}

func (b *Builder) Hard() *Builder {
	b.env.Type = "hard"
	return b
}

func (b *Builder) Soft(weight float64) *Builder {
	b.env.Type = "soft"
	b.env.Weight = &weight
	return b
}

func (b *Builder) Named(name string) *Builder {
	b.env.Name = name
	return b
}

func (b *Builder) OfType(t Type) *Builder {
	b.env.ConstraintType = string(t)
	return b
}

func (b *Builder) WithPriority(p Priority) *Builder {
	b.env.Priority = string(p)
	return b
}

func (b *Builder) WithParameter(key string, value interface{}) *Builder {
	b.env.Parameters[key] = value
	return b
}

func (b *Builder) Build() (Constraint, error) {
	if b.env.Name == "" {
		return nil, rotaerrors.Invalid("constraint builder requires a name")
	}
	if b.env.Type == "" {
		return nil, rotaerrors.Invalid("constraint %q must be declared hard or soft", b.env.Name)
	}
	return b.reg.New(b.env)
}

// CompositeBuilder accumulates several builders and materialises them
// together; the first failure aborts.
type CompositeBuilder struct {
	builders []*Builder
}

func NewCompositeBuilder() *CompositeBuilder {
	return &CompositeBuilder{}
}

func (cb *CompositeBuilder) Add(b *Builder) *CompositeBuilder {
	cb.builders = append(cb.builders, b)
	return cb
}

func (cb *CompositeBuilder) Build() ([]Constraint, error) {
	out := make([]Constraint, 0, len(cb.builders))
	for _, b := range cb.builders {
		c, err := b.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
