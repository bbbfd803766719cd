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

// Package events records the engine's notable outcomes so operators can
// follow what the scheduler decided without log inspection. Sinks receive
// anonymised refs only, never person names.
package events

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder is used to record events that occur about schedule construction
// and compliance so our actions are more observable without requiring log
// inspection.
type Recorder interface {
	// GenerationFinished is called when a generation request completes,
	// successfully or not.
	GenerationFinished(status string, created int, duration time.Duration)
	// CriticalViolation is called for each CRITICAL violation a validation
	// run surfaces.
	CriticalViolation(constraint, personRef string, date time.Time)
	// SwapMatched is called when the auto-matcher finds a counterpart at or
	// above the score threshold.
	SwapMatched(swapID, candidateID uuid.UUID, score float64)
	// BatchApplied is called after a batch mutation commits.
	BatchApplied(operation string, applied int)
	// DefenseLevelChanged is called when resilience analysis moves the
	// defense posture.
	DefenseLevelChanged(from, to string)
}

type recorder struct {
	log *zap.Logger
}

// NewRecorder returns a Recorder that writes events to the given logger.
func NewRecorder(log *zap.Logger) Recorder {
	return &recorder{log: log.Named("events")}
}

func (r *recorder) GenerationFinished(status string, created int, duration time.Duration) {
	r.log.Info("generation finished",
		zap.String("status", status),
		zap.Int("created", created),
		zap.Duration("duration", duration))
}

func (r *recorder) CriticalViolation(constraint, personRef string, date time.Time) {
	r.log.Warn("critical violation",
		zap.String("constraint", constraint),
		zap.String("person", personRef),
		zap.String("date", date.Format("2006-01-02")))
}

func (r *recorder) SwapMatched(swapID, candidateID uuid.UUID, score float64) {
	r.log.Info("swap matched",
		zap.String("swap", swapID.String()),
		zap.String("candidate", candidateID.String()),
		zap.Float64("score", score))
}

func (r *recorder) BatchApplied(operation string, applied int) {
	r.log.Info("batch applied",
		zap.String("operation", operation),
		zap.Int("applied", applied))
}

func (r *recorder) DefenseLevelChanged(from, to string) {
	r.log.Warn("defense level changed",
		zap.String("from", from),
		zap.String("to", to))
}

// NopRecorder drops every event. Useful as a default before wiring completes.
type NopRecorder struct{}

func (NopRecorder) GenerationFinished(string, int, time.Duration) {}
func (NopRecorder) CriticalViolation(string, string, time.Time)   {}
func (NopRecorder) SwapMatched(uuid.UUID, uuid.UUID, float64)     {}
func (NopRecorder) BatchApplied(string, int)                      {}
func (NopRecorder) DefenseLevelChanged(string, string)            {}
