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

package events

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// NewLoadSheddingRecorder bounds the rate of violation events. A validation
// run over a broken month can produce hundreds of critical violations; they
// aren't individually useful past the first few and they drown out everything
// else in the sink.
func NewLoadSheddingRecorder(r Recorder) Recorder {
	return &loadshedding{
		rec:             r,
		violationBucket: rate.NewLimiter(rate.Limit(5), 10),
	}
}

type loadshedding struct {
	rec             Recorder
	violationBucket *rate.Limiter
}

func (l *loadshedding) GenerationFinished(status string, created int, duration time.Duration) {
	l.rec.GenerationFinished(status, created, duration)
}

func (l *loadshedding) CriticalViolation(constraint, personRef string, date time.Time) {
	if !l.violationBucket.Allow() {
		return
	}
	l.rec.CriticalViolation(constraint, personRef, date)
}

func (l *loadshedding) SwapMatched(swapID, candidateID uuid.UUID, score float64) {
	l.rec.SwapMatched(swapID, candidateID, score)
}

func (l *loadshedding) BatchApplied(operation string, applied int) {
	l.rec.BatchApplied(operation, applied)
}

func (l *loadshedding) DefenseLevelChanged(from, to string) {
	l.rec.DefenseLevelChanged(from, to)
}
