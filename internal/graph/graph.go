// Package graph implements the concept store and the weighted
// association graph that holds the learner's Hebbian memory.
package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

var (
	// ErrNonPositiveDelta rejects reinforcement with delta <= 0.
	// Decay is the only legitimate weight-reducing path.
	ErrNonPositiveDelta = errors.New("reinforcement delta must be positive")

	// ErrTickOrder rejects operations at a tick earlier than the
	// graph's last-seen tick.
	ErrTickOrder = errors.New("tick earlier than last-seen tick")
)

// EdgeKey identifies a directed edge.
type EdgeKey struct {
	Source model.ConceptID
	Target model.ConceptID
}

// Options configures the graph's weight bounds.
type Options struct {
	WMax      float64 `yaml:"w_max" json:"w_max"`           // weight ceiling
	MinWeight float64 `yaml:"min_weight" json:"min_weight"` // prune-flag threshold
}

// DefaultOptions returns the standard weight bounds.
func DefaultOptions() Options {
	return Options{WMax: 1.0, MinWeight: 0.05}
}

type edge struct {
	assoc     model.Association
	decayedAt int64 // tick up to which decay has been applied
	flagged   bool  // below MinWeight at last decay pass
}

// Graph is the association graph. All mutating operations take the
// write lock; read-only queries take the read lock and copy out, so
// dashboards never observe a torn mid-update state.
type Graph struct {
	mu       sync.RWMutex
	opts     Options
	names    []string // ConceptID -> normalized text
	ids      map[string]model.ConceptID
	edges    map[EdgeKey]*edge
	lastTick int64
}

// New creates an empty graph.
func New(opts Options) *Graph {
	if opts.WMax <= 0 {
		opts = DefaultOptions()
	}
	return &Graph{
		opts:  opts,
		ids:   make(map[string]model.ConceptID),
		edges: make(map[EdgeKey]*edge),
	}
}

// Normalize case-folds and trims a concept string.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Intern returns the id for a concept, creating it on first reference.
func (g *Graph) Intern(concept string) model.ConceptID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.intern(concept)
}

func (g *Graph) intern(concept string) model.ConceptID {
	norm := Normalize(concept)
	if id, ok := g.ids[norm]; ok {
		return id
	}
	id := model.ConceptID(len(g.names))
	g.names = append(g.names, norm)
	g.ids[norm] = id
	return id
}

// LookupID returns the id for an already-interned concept.
func (g *Graph) LookupID(concept string) (model.ConceptID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.ids[Normalize(concept)]
	return id, ok
}

// Name returns the normalized text for a concept id.
func (g *Graph) Name(id model.ConceptID) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if int(id) < len(g.names) {
		return g.names[id]
	}
	return ""
}

// Reinforce strengthens the edge source->target, creating it if
// absent. The update saturates as weight approaches WMax:
//
//	w' = clamp(w + delta*(1 - w/WMax), 0, WMax)
//
// so repeated identical reinforcement converges toward the ceiling
// without reaching it.
func (g *Graph) Reinforce(source, target model.ConceptID, delta float64, tag model.EmotionalTag, tick int64) (model.Association, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if delta <= 0 {
		return model.Association{}, fmt.Errorf("reinforce %d->%d: %w", source, target, ErrNonPositiveDelta)
	}
	if tick < g.lastTick {
		return model.Association{}, fmt.Errorf("reinforce at tick %d (last seen %d): %w", tick, g.lastTick, ErrTickOrder)
	}
	g.lastTick = tick

	a := g.reinforce(source, target, delta, tag, tick, model.OriginDirect)
	return a, nil
}

func (g *Graph) reinforce(source, target model.ConceptID, delta float64, tag model.EmotionalTag, tick int64, origin model.Origin) model.Association {
	key := EdgeKey{Source: source, Target: target}
	e, ok := g.edges[key]
	if !ok {
		e = &edge{assoc: model.Association{Source: source, Target: target, Origin: origin}}
		g.edges[key] = e
	}

	w := e.assoc.Weight
	w = w + delta*(1-w/g.opts.WMax)
	e.assoc.Weight = clamp(w, 0, g.opts.WMax)
	e.assoc.LastReinforcedAt = tick
	e.assoc.ReinforcementCount++
	if tag != model.TagNone {
		e.assoc.Tag = tag
	}
	e.decayedAt = tick
	e.flagged = false
	return e.assoc
}

// DecayAll applies exponential decay to every edge:
//
//	w' = w * 2^(-elapsed/halfLife)
//
// Elapsed time is tracked per edge since the last decay or
// reinforcement, so repeated passes never double-count an interval and
// replaying an event log reproduces identical weights. Edges that fall
// below MinWeight are flagged for pruning; removal is deferred to the
// next consolidation cycle. Returns the number of edges decayed.
func (g *Graph) DecayAll(tick int64, halfLife float64) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if tick < g.lastTick {
		return 0, fmt.Errorf("decay at tick %d (last seen %d): %w", tick, g.lastTick, ErrTickOrder)
	}
	if halfLife <= 0 {
		return 0, fmt.Errorf("decay: half-life must be positive, got %v", halfLife)
	}
	g.lastTick = tick

	decayed := 0
	for _, e := range g.edges {
		elapsed := tick - e.decayedAt
		if elapsed <= 0 {
			continue
		}
		e.decayedAt = tick
		if e.assoc.Weight > 0 {
			e.assoc.Weight = clamp(e.assoc.Weight*math.Exp2(-float64(elapsed)/halfLife), 0, g.opts.WMax)
			decayed++
		}
		if e.assoc.Weight < g.opts.MinWeight {
			e.flagged = true
		}
	}
	return decayed, nil
}

// Neighbors returns the outgoing associations of a concept with weight
// >= minWeight, ordered by weight descending; ties break on most
// recent reinforcement, then on target id for stable output.
func (g *Graph) Neighbors(concept model.ConceptID, minWeight float64) []model.Association {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []model.Association
	for key, e := range g.edges {
		if key.Source == concept && e.assoc.Weight >= minWeight {
			out = append(out, e.assoc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		if out[i].LastReinforcedAt != out[j].LastReinforcedAt {
			return out[i].LastReinforcedAt > out[j].LastReinforcedAt
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// View is a consistent copy of the graph used by consolidation and
// snapshot export.
type View struct {
	LastTick int64
	Concepts []model.ConceptInfo
	Edges    []model.Association
	Flagged  map[EdgeKey]bool
}

// View copies out the graph state under the read lock. Edges are
// sorted by (source, target) so downstream passes are deterministic.
func (g *Graph) View() View {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v := View{
		LastTick: g.lastTick,
		Concepts: make([]model.ConceptInfo, len(g.names)),
		Edges:    make([]model.Association, 0, len(g.edges)),
		Flagged:  make(map[EdgeKey]bool),
	}
	for i, name := range g.names {
		v.Concepts[i] = model.ConceptInfo{ID: model.ConceptID(i), Name: name}
	}
	for key, e := range g.edges {
		v.Edges = append(v.Edges, e.assoc)
		if e.flagged {
			v.Flagged[key] = true
		}
	}
	sort.Slice(v.Edges, func(i, j int) bool {
		if v.Edges[i].Source != v.Edges[j].Source {
			return v.Edges[i].Source < v.Edges[j].Source
		}
		return v.Edges[i].Target < v.Edges[j].Target
	})
	return v
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// ConceptCount returns the number of interned concepts.
func (g *Graph) ConceptCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.names)
}

// Plan is a consolidation mutation set. It is built from a View and
// applied by Commit in one critical section, so a consolidation cycle
// is all-or-nothing: abandoning a plan before Commit has no effect.
type Plan struct {
	Tick  int64
	Prune []EdgeKey
	Bonus []BonusOp
	Synth []SynthOp
}

// BonusOp is a bounded replay reinforcement of an existing edge.
type BonusOp struct {
	Key   EdgeKey
	Delta float64
}

// SynthOp creates a consolidated-origin edge.
type SynthOp struct {
	Key    EdgeKey
	Weight float64
}

// Empty reports whether the plan contains no mutations.
func (p *Plan) Empty() bool {
	return len(p.Prune) == 0 && len(p.Bonus) == 0 && len(p.Synth) == 0
}

// Commit applies a consolidation plan atomically. Pruned edges are
// skipped if they were reinforced after flagging; synthesized edges
// are skipped if a direct edge appeared in the meantime.
func (g *Graph) Commit(p *Plan) (pruned, reinforced, synthesized int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p.Tick > g.lastTick {
		g.lastTick = p.Tick
	}
	for _, key := range p.Prune {
		if e, ok := g.edges[key]; ok && e.flagged {
			delete(g.edges, key)
			pruned++
		}
	}
	for _, op := range p.Bonus {
		if _, ok := g.edges[op.Key]; !ok {
			continue
		}
		g.reinforce(op.Key.Source, op.Key.Target, op.Delta, model.TagNone, p.Tick, model.OriginDirect)
		reinforced++
	}
	for _, op := range p.Synth {
		if _, ok := g.edges[op.Key]; ok {
			continue
		}
		g.edges[op.Key] = &edge{
			assoc: model.Association{
				Source:           op.Key.Source,
				Target:           op.Key.Target,
				Weight:           clamp(op.Weight, 0, g.opts.WMax),
				LastReinforcedAt: p.Tick,
				Origin:           model.OriginConsolidated,
			},
			decayedAt: p.Tick,
		}
		synthesized++
	}
	return pruned, reinforced, synthesized
}

// ForcePrune removes every edge touching a concept. Privileged entry
// point for the curriculum collaborator.
func (g *Graph) ForcePrune(concept model.ConceptID) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key := range g.edges {
		if key.Source == concept || key.Target == concept {
			delete(g.edges, key)
			removed++
		}
	}
	return removed
}

// ForceReinforce applies a reinforcement outside the normal
// interaction path. Privileged entry point for the curriculum
// collaborator; the saturating update and weight bounds still apply.
func (g *Graph) ForceReinforce(source, target model.ConceptID, delta float64) (model.Association, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if delta <= 0 {
		return model.Association{}, fmt.Errorf("force reinforce %d->%d: %w", source, target, ErrNonPositiveDelta)
	}
	return g.reinforce(source, target, delta, model.TagNone, g.lastTick, model.OriginDirect), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
