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

// Package batch applies bulk assignment mutations atomically-by-default with
// per-item error reporting. One request is one transaction; item failures
// are collected rather than aborting unless the caller asks for
// all-or-nothing.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/events"
	"github.com/gmesched/rota/pkg/metrics"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/store"
	"github.com/gmesched/rota/pkg/utils/parallel"
)

const (
	// MaxItems bounds one batch request.
	MaxItems = 1000

	// parallelThreshold is the batch size above which existence checks fan
	// out onto the work queue instead of running serially.
	parallelThreshold = 200
)

// CreateItem describes one assignment to insert.
type CreateItem struct {
	BlockID            uuid.UUID  `json:"block_id" validate:"required"`
	PersonID           uuid.UUID  `json:"person_id" validate:"required"`
	RotationTemplateID *uuid.UUID `json:"rotation_template_id,omitempty"`
	Role               string     `json:"role" validate:"omitempty,oneof=primary supervising backup"`
	ActivityOverride   string     `json:"activity_override,omitempty"`
	OverrideReason     string     `json:"override_reason,omitempty" validate:"required_with=ActivityOverride"`
	Notes              string     `json:"notes,omitempty"`
}

// UpdateItem describes one patch guarded by the optimistic-lock token the
// caller last read.
type UpdateItem struct {
	ID                uuid.UUID             `json:"id" validate:"required"`
	ExpectedUpdatedAt time.Time             `json:"expected_updated_at" validate:"required"`
	Patch             store.AssignmentPatch `json:"patch"`
}

// DeleteItem removes one assignment. ExpectedUpdatedAt is optional; when set
// a stale token fails the item with a conflict.
type DeleteItem struct {
	ID                uuid.UUID  `json:"id" validate:"required"`
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at,omitempty"`
}

// Options tune one batch call.
type Options struct {
	// AllOrNothing rolls the whole transaction back on the first item
	// failure instead of collecting it.
	AllOrNothing bool
	// Strict turns CRITICAL compliance pre-check findings into a rejection.
	Strict    bool
	CreatedBy string
}

// ItemError ties a failure to the input row that caused it.
type ItemError struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %s (%s)", e.Index, e.Message, e.Code)
}

// Result reports one batch call. RolledBack is true when AllOrNothing undid
// every applied item.
type Result struct {
	Applied    int                    `json:"applied"`
	Errors     []ItemError            `json:"errors,omitempty"`
	Warnings   []scheduling.Violation `json:"warnings,omitempty"`
	RolledBack bool                   `json:"rolled_back,omitempty"`
}

type Pipeline struct {
	store    store.Store
	clock    clock.Clock
	recorder events.Recorder
	validate *validator.Validate
	queue    *parallel.WorkQueue
	log      *zap.Logger
}

func NewPipeline(s store.Store, clk clock.Clock, recorder events.Recorder, log *zap.Logger) *Pipeline {
	return &Pipeline{
		store:    s,
		clock:    clk,
		recorder: recorder,
		validate: validator.New(),
		queue:    parallel.NewWorkQueue(1000, 1000, 50),
		log:      log.Named("batch"),
	}
}

func itemError(index int, err error) ItemError {
	return ItemError{Index: index, Code: rotaerrors.CodeOf(err), Message: err.Error()}
}

func (p *Pipeline) finish(operation string, result *Result, err error) (*Result, error) {
	outcome := "ok"
	if err != nil || (result != nil && result.RolledBack) {
		outcome = "error"
	}
	metrics.BatchesTotal.WithLabelValues(operation, outcome).Inc()
	if err == nil && result != nil {
		p.recorder.BatchApplied(operation, result.Applied)
		p.log.Info("batch finished",
			zap.String("operation", operation),
			zap.Int("applied", result.Applied),
			zap.Int("failed", len(result.Errors)),
			zap.Int("warnings", len(result.Warnings)),
			zap.Bool("rolled_back", result.RolledBack))
	}
	return result, err
}

// Create inserts up to MaxItems assignments.
func (p *Pipeline) Create(ctx context.Context, items []CreateItem, opts Options) (*Result, error) {
	result, err := p.create(ctx, items, opts)
	return p.finish("create", result, err)
}

func (p *Pipeline) create(ctx context.Context, items []CreateItem, opts Options) (*Result, error) {
	if len(items) == 0 {
		return &Result{}, nil
	}
	if len(items) > MaxItems {
		return nil, rotaerrors.Invalid("batch holds %d items, limit %d", len(items), MaxItems)
	}

	result := &Result{}
	failed := map[int]bool{}
	fail := func(index int, err error) {
		if !failed[index] {
			failed[index] = true
			result.Errors = append(result.Errors, itemError(index, err))
		}
	}

	seen := map[string]int{}
	for i, item := range items {
		if err := p.validate.Struct(item); err != nil {
			fail(i, rotaerrors.Wrap(rotaerrors.KindInvalid, err, "invalid create item"))
			continue
		}
		key := item.BlockID.String() + "/" + item.PersonID.String()
		if prior, dup := seen[key]; dup {
			fail(i, rotaerrors.Conflict("duplicate (block, person) pair within batch, first at item %d", prior))
			continue
		}
		seen[key] = i
	}

	p.checkExistence(ctx, len(items), failed, fail, func(i int) error {
		if _, err := p.store.GetBlock(ctx, items[i].BlockID); err != nil {
			return err
		}
		if _, err := p.store.GetPerson(ctx, items[i].PersonID); err != nil {
			return err
		}
		switch _, err := p.store.FindAssignmentByBlockPerson(ctx, items[i].BlockID, items[i].PersonID); {
		case err == nil:
			return rotaerrors.Conflict("person %s already holds an assignment on block %s", items[i].PersonID, items[i].BlockID)
		case !rotaerrors.IsNotFound(err):
			return err
		}
		return nil
	})

	warnings, err := p.precheckCreates(ctx, items, failed)
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings
	if opts.Strict {
		for _, w := range warnings {
			if w.Severity == scheduling.SeverityCritical {
				return nil, rotaerrors.Wrap(rotaerrors.KindConstraintViolation, nil,
					"strict mode: batch would break %s on %s", w.ConstraintName, scheduling.DayKey(w.Date))
			}
		}
	}

	if opts.AllOrNothing && len(result.Errors) > 0 {
		result.RolledBack = true
		return result, nil
	}

	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for i, item := range items {
		if failed[i] {
			continue
		}
		role := roster.AssignmentRole(item.Role)
		if role == "" {
			role = roster.RolePrimary
		}
		a := &roster.Assignment{
			BlockID:            item.BlockID,
			PersonID:           item.PersonID,
			RotationTemplateID: item.RotationTemplateID,
			Role:               role,
			ActivityOverride:   item.ActivityOverride,
			OverrideReason:     item.OverrideReason,
			Notes:              item.Notes,
			Source:             roster.SourceManual,
			CreatedBy:          opts.CreatedBy,
		}
		if err := a.Validate(); err != nil {
			fail(i, err)
		} else if err := tx.SaveAssignment(ctx, a); err != nil {
			fail(i, err)
		} else {
			result.Applied++
			continue
		}
		if opts.AllOrNothing {
			result.Applied = 0
			result.RolledBack = true
			return result, nil
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update applies patches with per-item optimistic locking. A stale token
// fails only its own row unless AllOrNothing is set.
func (p *Pipeline) Update(ctx context.Context, items []UpdateItem, opts Options) (*Result, error) {
	result, err := p.update(ctx, items, opts)
	return p.finish("update", result, err)
}

func (p *Pipeline) update(ctx context.Context, items []UpdateItem, opts Options) (*Result, error) {
	if len(items) == 0 {
		return &Result{}, nil
	}
	if len(items) > MaxItems {
		return nil, rotaerrors.Invalid("batch holds %d items, limit %d", len(items), MaxItems)
	}

	result := &Result{}
	failed := map[int]bool{}
	fail := func(index int, err error) {
		if !failed[index] {
			failed[index] = true
			result.Errors = append(result.Errors, itemError(index, err))
		}
	}

	seen := map[uuid.UUID]int{}
	for i, item := range items {
		if err := p.validate.Struct(item); err != nil {
			fail(i, rotaerrors.Wrap(rotaerrors.KindInvalid, err, "invalid update item"))
			continue
		}
		if prior, dup := seen[item.ID]; dup {
			fail(i, rotaerrors.Conflict("duplicate assignment id within batch, first at item %d", prior))
			continue
		}
		seen[item.ID] = i
	}

	p.checkExistence(ctx, len(items), failed, fail, func(i int) error {
		_, err := p.store.GetAssignment(ctx, items[i].ID)
		return err
	})

	if opts.AllOrNothing && len(result.Errors) > 0 {
		result.RolledBack = true
		return result, nil
	}

	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for i, item := range items {
		if failed[i] {
			continue
		}
		if _, err := tx.UpdateAssignment(ctx, item.ID, item.Patch, item.ExpectedUpdatedAt); err != nil {
			fail(i, err)
			if opts.AllOrNothing {
				result.Applied = 0
				result.RolledBack = true
				return result, nil
			}
			continue
		}
		result.Applied++
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes assignments, optionally guarded by a lock token.
func (p *Pipeline) Delete(ctx context.Context, items []DeleteItem, opts Options) (*Result, error) {
	result, err := p.delete(ctx, items, opts)
	return p.finish("delete", result, err)
}

func (p *Pipeline) delete(ctx context.Context, items []DeleteItem, opts Options) (*Result, error) {
	if len(items) == 0 {
		return &Result{}, nil
	}
	if len(items) > MaxItems {
		return nil, rotaerrors.Invalid("batch holds %d items, limit %d", len(items), MaxItems)
	}

	result := &Result{}
	failed := map[int]bool{}
	fail := func(index int, err error) {
		if !failed[index] {
			failed[index] = true
			result.Errors = append(result.Errors, itemError(index, err))
		}
	}
	for i, item := range items {
		if err := p.validate.Struct(item); err != nil {
			fail(i, rotaerrors.Wrap(rotaerrors.KindInvalid, err, "invalid delete item"))
		}
	}

	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for i, item := range items {
		if failed[i] {
			continue
		}
		prior, err := tx.GetAssignment(ctx, item.ID)
		if err != nil {
			fail(i, err)
		} else if item.ExpectedUpdatedAt != nil && !prior.LockToken().Equal(item.ExpectedUpdatedAt.UTC().Truncate(time.Microsecond)) {
			fail(i, rotaerrors.Conflict("assignment %s changed since read", item.ID))
		} else if err := tx.DeleteAssignment(ctx, item.ID); err != nil {
			fail(i, err)
		} else {
			result.Applied++
			continue
		}
		if opts.AllOrNothing {
			result.Applied = 0
			result.RolledBack = true
			return result, nil
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// checkExistence runs one probe per item, fanning out for large batches.
func (p *Pipeline) checkExistence(ctx context.Context, n int, failed map[int]bool, fail func(int, error), probe func(int) error) {
	if n <= parallelThreshold {
		for i := 0; i < n; i++ {
			if failed[i] {
				continue
			}
			if err := probe(i); err != nil {
				fail(i, err)
			}
		}
		return
	}
	tasks := make([]func() error, n)
	for i := 0; i < n; i++ {
		i := i
		if failed[i] {
			tasks[i] = func() error { return nil }
			continue
		}
		tasks[i] = func() error { return probe(i) }
	}
	for i, err := range p.queue.Do(ctx, tasks) {
		if err != nil {
			fail(i, err)
		}
	}
}
