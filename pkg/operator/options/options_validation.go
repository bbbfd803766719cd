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

package options

import (
	"fmt"

	"go.uber.org/multierr"
)

// Validate the options
func (o Options) Validate() (err error) {
	return multierr.Combine(
		o.validateSolver(),
		o.validateLogLevel(),
		o.validatePorts(),
		o.validateSwap(),
	)
}

func (o Options) validateSolver() error {
	switch o.Solver {
	case "cpsat", "lp", "qubo":
		return nil
	}
	return fmt.Errorf("solver %q not in [cpsat, lp, qubo]", o.Solver)
}

func (o Options) validateLogLevel() error {
	switch o.LogLevel {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log level %q not in [debug, info, warn, error]", o.LogLevel)
}

func (o Options) validatePorts() error {
	if o.MetricsPort < 0 || o.MetricsPort > 65535 {
		return fmt.Errorf("metrics port %d out of range", o.MetricsPort)
	}
	return nil
}

func (o Options) validateSwap() (err error) {
	if o.SwapMinScore < 0 || o.SwapMinScore > 1 {
		err = multierr.Append(err, fmt.Errorf("swap min score %f not in [0, 1]", o.SwapMinScore))
	}
	if o.SwapTopK < 1 {
		err = multierr.Append(err, fmt.Errorf("swap top-k %d must be positive", o.SwapTopK))
	}
	return err
}
