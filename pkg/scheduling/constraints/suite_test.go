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

package constraints_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/test"
)

func TestConstraints(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Constraints")
}

// loadContext builds a scheduling context over everything the environment's
// store holds.
func loadContext(env *test.Environment) *scheduling.Context {
	start, end := env.PeriodSpan()
	snap, err := env.Store.LoadPeriod(context.Background(), start, end)
	Expect(err).ToNot(HaveOccurred())
	schedCtx, err := scheduling.NewContext(snap, start, end)
	Expect(err).ToNot(HaveOccurred())
	return schedCtx
}

// bySeverity filters violations down to one severity.
func bySeverity(vs []scheduling.Violation, s scheduling.Severity) []scheduling.Violation {
	var out []scheduling.Violation
	for _, v := range vs {
		if v.Severity == s {
			out = append(out, v)
		}
	}
	return out
}
