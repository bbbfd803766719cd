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

// Package swaps matches pending swap requests to counterparts and applies
// approved exchanges. Scoring is deterministic: identical pending sets give
// identical rankings.
package swaps

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	rotaerrors "github.com/gmesched/rota/pkg/errors"
	"github.com/gmesched/rota/pkg/events"
	"github.com/gmesched/rota/pkg/roster"
	"github.com/gmesched/rota/pkg/store"
)

// Scoring weights; they sum to 1 so scores stay in [0, 1].
const (
	dateProximityWeight = 0.5
	typeCompatWeight    = 0.2
	preferenceWeight    = 0.3

	// proximityHorizonDays is the gap at which date proximity reaches zero.
	proximityHorizonDays = 60

	// DefaultMinScore filters candidates below a useful match quality.
	DefaultMinScore = 0.4

	// DefaultTopK bounds the returned candidate list.
	DefaultTopK = 5

	cacheTTL      = 2 * time.Minute
	cacheInterval = 30 * time.Second
)

// Candidate is one scored counterpart for a pending swap.
type Candidate struct {
	SwapID              uuid.UUID `json:"swap_id"`
	PersonID            uuid.UUID `json:"person_id"`
	Score               float64   `json:"score"`
	DateProximity       float64   `json:"date_proximity"`
	TypeCompatibility   float64   `json:"type_compatibility"`
	PreferenceAlignment float64   `json:"preference_alignment"`
}

type Matcher struct {
	store    store.Reader
	cache    *cache.Cache
	clock    clock.Clock
	recorder events.Recorder
	log      *zap.Logger

	minScore float64
	topK     int
}

func NewMatcher(s store.Reader, clk clock.Clock, recorder events.Recorder, log *zap.Logger) *Matcher {
	return &Matcher{
		store:    s,
		cache:    cache.New(cacheTTL, cacheInterval),
		clock:    clk,
		recorder: recorder,
		log:      log.Named("swaps"),
		minScore: DefaultMinScore,
		topK:     DefaultTopK,
	}
}

// WithThresholds overrides the score floor and result count.
func (m *Matcher) WithThresholds(minScore float64, topK int) *Matcher {
	m.minScore = minScore
	m.topK = topK
	return m
}

// Match ranks counterparts for the given pending swap. Results are cached
// briefly keyed on the swap's lock token, so repeated UI polls stay cheap.
func (m *Matcher) Match(ctx context.Context, swapID uuid.UUID) ([]Candidate, error) {
	request, err := m.store.GetSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if request.Status != roster.SwapPending {
		return nil, rotaerrors.Conflict("swap %s is %s, only PENDING swaps match", swapID, request.Status)
	}
	cacheKey := fmt.Sprintf("%s/%d", swapID, request.UpdatedAt.UnixMicro())
	if cached, ok := m.cache.Get(cacheKey); ok {
		return cached.([]Candidate), nil
	}

	pending, err := m.store.ListPendingSwaps(ctx)
	if err != nil {
		return nil, err
	}
	var candidates []Candidate
	for _, other := range pending {
		if other.ID == request.ID || other.SourcePersonID == request.SourcePersonID {
			continue
		}
		c := score(request, other)
		if c.Score < m.minScore {
			continue
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].SwapID.String() < candidates[j].SwapID.String()
	})
	if len(candidates) > m.topK {
		candidates = candidates[:m.topK]
	}
	if len(candidates) > 0 {
		m.recorder.SwapMatched(request.ID, candidates[0].SwapID, candidates[0].Score)
	}
	m.log.Debug("matched swap",
		zap.String("swap", swapID.String()),
		zap.Int("pending", len(pending)),
		zap.Int("candidates", len(candidates)))
	m.cache.SetDefault(cacheKey, candidates)
	return candidates, nil
}

func score(request, other *roster.SwapRecord) Candidate {
	days := math.Abs(other.SourceWeekStart.Sub(request.SourceWeekStart).Hours() / 24)
	proximity := 1 - days/proximityHorizonDays
	if proximity < 0 {
		proximity = 0
	}
	compat := 0.5
	if other.Type == request.Type {
		compat = 1
	}
	return Candidate{
		SwapID:              other.ID,
		PersonID:            other.SourcePersonID,
		Score:               dateProximityWeight*proximity + typeCompatWeight*compat + preferenceWeight*alignment(request.PreferenceTags, other.PreferenceTags),
		DateProximity:       proximity,
		TypeCompatibility:   compat,
		PreferenceAlignment: alignment(request.PreferenceTags, other.PreferenceTags),
	}
}

// alignment is the Jaccard overlap of preference tags. Two untagged requests
// have no preferences to conflict, so they align fully.
func alignment(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := map[string]bool{}
	for _, tag := range a {
		set[tag] = true
	}
	shared := 0
	union := len(set)
	for _, tag := range b {
		if set[tag] {
			shared++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(shared) / float64(union)
}
