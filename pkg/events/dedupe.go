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
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// NewDedupeRecorder suppresses repeats of the same event within a two minute
// window. Validation runs on overlapping periods re-surface the same critical
// violations; without dedupe every run re-emits them all.
func NewDedupeRecorder(r Recorder) Recorder {
	return &dedupe{
		rec:   r,
		cache: cache.New(120*time.Second, 10*time.Second),
	}
}

type dedupe struct {
	rec   Recorder
	cache *cache.Cache
}

func (d *dedupe) GenerationFinished(status string, created int, duration time.Duration) {
	d.rec.GenerationFinished(status, created, duration)
}

func (d *dedupe) CriticalViolation(constraint, personRef string, date time.Time) {
	if !d.shouldCreateEvent(fmt.Sprintf("critical-%s-%s-%s", constraint, personRef, date.Format("2006-01-02"))) {
		return
	}
	d.rec.CriticalViolation(constraint, personRef, date)
}

func (d *dedupe) SwapMatched(swapID, candidateID uuid.UUID, score float64) {
	if !d.shouldCreateEvent(fmt.Sprintf("swap-matched-%s-%s", swapID, candidateID)) {
		return
	}
	d.rec.SwapMatched(swapID, candidateID, score)
}

func (d *dedupe) BatchApplied(operation string, applied int) {
	d.rec.BatchApplied(operation, applied)
}

func (d *dedupe) DefenseLevelChanged(from, to string) {
	if !d.shouldCreateEvent(fmt.Sprintf("defense-%s-%s", from, to)) {
		return
	}
	d.rec.DefenseLevelChanged(from, to)
}

func (d *dedupe) shouldCreateEvent(key string) bool {
	if _, exists := d.cache.Get(key); exists {
		return false
	}
	d.cache.SetDefault(key, nil)
	return true
}
