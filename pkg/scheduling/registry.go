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
	"sync"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
)

// Factory builds a constraint from its serialised envelope. The registry is
// populated once at startup and read-mostly afterwards.
type Factory func(env Envelope) (Constraint, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New constructs the named constraint from an envelope. Unknown names fail
// with Invalid so stored configurations surface loudly rather than being
// silently dropped.
func (r *Registry) New(env Envelope) (Constraint, error) {
	r.mu.RLock()
	f, ok := r.factories[env.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, rotaerrors.Invalid("unknown constraint %q", env.Name)
	}
	return f(env)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
