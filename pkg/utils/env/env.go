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

// Package env reads typed values from ROTA_* environment variables. The
// options package uses these to seed flag defaults, so the precedence is
// always flag > config file > environment > built-in default. A variable
// that is unset or fails to parse silently falls back to the default;
// Options.Validate catches out-of-range values afterwards.
package env

import (
	"os"
	"strconv"
	"time"
)

// WithDefaultInt parses the variable as an int, e.g. METRICS_PORT=8080.
func WithDefaultInt(key string, def int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}

// WithDefaultInt64 parses the variable as an int64, e.g. ROTA_SEED=42.
func WithDefaultInt64(key string, def int64) int64 {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return i
}

// WithDefaultFloat64 parses the variable as a float64, e.g.
// ROTA_SWAP_MIN_SCORE=0.4.
func WithDefaultFloat64(key string, def float64) float64 {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}

// WithDefaultString returns the variable verbatim, e.g. ROTA_SOLVER=cpsat
// or a ROTA_DB_URL connection string.
func WithDefaultString(key string, def string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return val
}

// WithDefaultBool parses the variable with strconv.ParseBool, so
// ROTA_STRICT_COMPLIANCE=1 and ROTA_STRICT_COMPLIANCE=true both work.
func WithDefaultBool(key string, def bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsedVal, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsedVal
}

// WithDefaultDuration parses the variable in time.ParseDuration notation,
// e.g. ROTA_SOLVE_TIMEOUT=90s.
func WithDefaultDuration(key string, def time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
