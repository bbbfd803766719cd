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

// Package generation turns a period of the roster into assignments: load,
// expand derived slots, prune, encode, solve, persist. One Generator call is
// one pipeline run; the Generator itself is stateless between runs.
package generation

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/events"
	"github.com/gmesched/rota/pkg/metrics"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/scheduling"
	"github.com/gmesched/rota/pkg/solver"
	"github.com/gmesched/rota/pkg/store"
)

// Request parameterises one generation run. Zero Hard/Soft means the caller
// supplies the sets explicitly; the operator layer passes the defaults.
type Request struct {
	Start time.Time
	End   time.Time

	Hard []scheduling.HardConstraint
	Soft []scheduling.SoftConstraint

	Seed      int64
	Timeout   time.Duration
	CreatedBy string
}

// Result reports what one run did. On INFEASIBLE, MinimalCore names the
// smallest jointly-unsatisfiable constraint set and Suggestions carries
// remediation hints; nothing is persisted.
type Result struct {
	Status    solver.Status
	Objective float64

	Created   int
	Replaced  int
	Unchanged int

	MinimalCore []string
	Suggestions []string

	Fingerprint uint64
	Statistics  solver.Statistics
}

type Generator struct {
	store    store.Store
	adapter  solver.Adapter
	clock    clock.Clock
	recorder events.Recorder
	log      *zap.Logger
}

func NewGenerator(s store.Store, adapter solver.Adapter, clk clock.Clock, recorder events.Recorder, log *zap.Logger) *Generator {
	return &Generator{
		store:    s,
		adapter:  adapter,
		clock:    clk,
		recorder: recorder,
		log:      log.Named("generation"),
	}
}

func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := g.clock.Now()
	result, err := g.generate(ctx, req)
	duration := g.clock.Since(start)
	status := string(solver.StatusError)
	created := 0
	if result != nil {
		status = string(result.Status)
		created = result.Created
	}
	metrics.GenerationsTotal.WithLabelValues(status).Inc()
	g.recorder.GenerationFinished(status, created, duration)
	return result, err
}

func (g *Generator) generate(ctx context.Context, req Request) (*Result, error) {
	if !req.Start.Before(req.End) {
		return nil, rotaerrors.Invalid("generation period start %s must precede end %s",
			scheduling.DayKey(req.Start), scheduling.DayKey(req.End))
	}
	snap, err := g.store.LoadPeriod(ctx, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	c, err := scheduling.NewContext(snap, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	fingerprint, err := c.Fingerprint()
	if err != nil {
		return nil, err
	}
	log := g.log.With(
		zap.String("start", scheduling.DayKey(req.Start)),
		zap.String("end", scheduling.DayKey(req.End)),
		zap.Uint64("fingerprint", fingerprint),
		zap.String("solver", g.adapter.Name()))

	m := buildModel(c, log)
	expand(m, c, log)
	if err := encode(m, c, req.Hard, req.Soft); err != nil {
		return nil, err
	}
	if m.NumVars() == 0 {
		log.Info("nothing to schedule")
		return &Result{Status: solver.StatusEmpty, Fingerprint: fingerprint}, nil
	}

	opts := solver.Options{Seed: req.Seed, Timeout: req.Timeout}
	observe := metrics.Measure(solveDuration.WithLabelValues(g.adapter.Name(), "solved"))
	res, err := g.adapter.Solve(ctx, m, opts)
	observe()
	if err != nil {
		return nil, rotaerrors.Wrap(rotaerrors.KindInternal, err, "solver %s failed", g.adapter.Name())
	}
	log.Info("solver finished",
		zap.String("status", string(res.Status)),
		zap.Float64("objective", res.Objective),
		zap.Int("selected", len(res.Selected)),
		zap.Duration("duration", res.Statistics.Duration))

	out := &Result{
		Status:      res.Status,
		Objective:   res.Objective,
		Fingerprint: fingerprint,
		Statistics:  res.Statistics,
	}
	switch res.Status {
	case solver.StatusInfeasible:
		out.MinimalCore = minimalCore(ctx, g.adapter, m, req.Seed)
		out.Suggestions = suggestions(out.MinimalCore, c)
		log.Warn("no feasible schedule",
			zap.Strings("core", out.MinimalCore),
			zap.Strings("suggestions", out.Suggestions))
		return out, nil
	case solver.StatusError, solver.StatusEmpty:
		return out, nil
	case solver.StatusTimeout:
		if len(res.Selected) == 0 {
			return out, nil
		}
		log.Warn("deadline reached, persisting best incumbent", zap.Int("selected", len(res.Selected)))
	}

	if err := g.persist(ctx, c, m, res, req.CreatedBy, out); err != nil {
		return nil, err
	}
	log.Info("schedule persisted",
		zap.Int("created", out.Created),
		zap.Int("replaced", out.Replaced),
		zap.Int("unchanged", out.Unchanged))
	return out, nil
}

// persist writes the selection inside one transaction, ordered by (date,
// half, person name) so reruns touch rows in the same sequence.
func (g *Generator) persist(ctx context.Context, c *scheduling.Context, m *solver.Model, res *solver.Result, createdBy string, out *Result) error {
	type placement struct {
		v      int
		person *roster.Person
		block  *roster.Block
		tmpl   *roster.RotationTemplate
	}
	placements := make([]placement, 0, len(res.Selected))
	for _, v := range res.Selected {
		decoded := m.VarAt(v)
		placements = append(placements, placement{
			v:      v,
			person: c.People[decoded.Person],
			block:  c.Blocks[decoded.Block],
			tmpl:   c.Templates[decoded.Template],
		})
	}
	sort.SliceStable(placements, func(i, j int) bool {
		a, b := placements[i], placements[j]
		if !a.block.Date.Equal(b.block.Date) {
			return a.block.Date.Before(b.block.Date)
		}
		if a.block.TimeOfDay != b.block.TimeOfDay {
			return a.block.TimeOfDay == roster.AM
		}
		return a.person.Name < b.person.Name
	})

	existing := map[string]*roster.Assignment{}
	for _, a := range c.Existing {
		existing[a.BlockID.String()+"/"+a.PersonID.String()] = a
	}

	maxReward := 0.0
	for _, p := range placements {
		if r := m.Reward(p.v); r > maxReward {
			maxReward = r
		}
	}
	confidence := func(v int) float64 {
		if maxReward == 0 {
			return 1
		}
		return 0.5 + 0.5*m.Reward(v)/maxReward
	}

	tx, err := g.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range placements {
		role := roster.RolePrimary
		if p.person.IsFaculty() && p.tmpl.SupervisingCapable() {
			role = roster.RoleSupervising
		}
		if prior, ok := existing[p.block.ID.String()+"/"+p.person.ID.String()]; ok {
			if prior.RotationTemplateID != nil && *prior.RotationTemplateID == p.tmpl.ID {
				out.Unchanged++
				continue
			}
			templateID := p.tmpl.ID
			conf := confidence(p.v)
			score := m.Reward(p.v)
			if _, err := tx.UpdateAssignment(ctx, prior.ID, store.AssignmentPatch{
				RotationTemplateID: &templateID,
				Role:               &role,
				Confidence:         &conf,
				Score:              &score,
			}, prior.LockToken()); err != nil {
				return err
			}
			out.Replaced++
			continue
		}
		templateID := p.tmpl.ID
		if err := tx.SaveAssignment(ctx, &roster.Assignment{
			BlockID:            p.block.ID,
			PersonID:           p.person.ID,
			RotationTemplateID: &templateID,
			Role:               role,
			Confidence:         confidence(p.v),
			Score:              m.Reward(p.v),
			Source:             roster.SourceSolver,
			CreatedBy:          createdBy,
		}); err != nil {
			return err
		}
		out.Created++
	}
	return tx.Commit()
}
