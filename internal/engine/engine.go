// Package engine wires the association graph, milestone engine and
// stage controller into the learner core. One Engine owns one learner:
// all mutating operations are serialized through its lock, read-only
// queries copy out consistent snapshots.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/while-basic/Ollama-AI-Simulator/internal/dream"
	"github.com/while-basic/Ollama-AI-Simulator/internal/extract"
	"github.com/while-basic/Ollama-AI-Simulator/internal/graph"
	"github.com/while-basic/Ollama-AI-Simulator/internal/milestone"
	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
	"github.com/while-basic/Ollama-AI-Simulator/internal/stage"
)

// Options holds the learning-rate constants.
type Options struct {
	BaseRate     float64 `yaml:"base_rate" json:"base_rate"`         // reinforcement delta = BaseRate * reward
	EvidenceRate float64 `yaml:"evidence_rate" json:"evidence_rate"` // stage evidence from raw reward
	HalfLife     float64 `yaml:"half_life" json:"half_life"`         // decay half-life in ticks
}

// DefaultOptions returns the standard learning rates.
func DefaultOptions() Options {
	return Options{BaseRate: 0.3, EvidenceRate: 0.05, HalfLife: 100}
}

// Params assembles everything an Engine needs.
type Params struct {
	Options    Options
	Graph      graph.Options
	Gates      [model.StageCount]stage.Gate
	Milestones []milestone.Definition
	Dream      dream.Options
	Extract    extract.Func
	Logger     *zap.Logger
}

// Interaction is one external stimulus/response exchange, scored by
// the evaluation layer.
type Interaction struct {
	Stimulus string             `json:"stimulus"`
	Response string             `json:"response"`
	Reward   float64            `json:"reward"`
	Tag      model.EmotionalTag `json:"emotional_tag"`
	Tick     int64              `json:"tick"`
}

// Result reports the effects of one observed interaction.
type Result struct {
	Entry       model.MemoryEntry            `json:"entry"`
	Reinforced  []model.Association          `json:"reinforced,omitempty"`
	Milestones  []model.MilestoneEvent       `json:"milestones,omitempty"`
	Transitions []model.StageTransitionEvent `json:"transitions,omitempty"`
}

// Handler receives MilestoneEvent and StageTransitionEvent values as
// they are emitted, for journaling collaborators.
type Handler func(event any)

// Engine is the learner core.
type Engine struct {
	mu           sync.RWMutex
	opts         Options
	log          *zap.Logger
	graph        *graph.Graph
	milestones   *milestone.Engine
	stages       *stage.Controller
	consolidator *dream.Consolidator
	extract      extract.Func

	clock         int64
	entries       []model.MemoryEntry
	entryConcepts []dream.EntryConcepts
	sinceDream    int // first entry index not yet replayed by a dream cycle
	handlers      []Handler
}

// New builds an engine. Configuration problems (bad milestone table,
// bad gates, bad dream bounds) are fatal here, never later.
func New(p Params) (*Engine, error) {
	if p.Options.BaseRate <= 0 {
		return nil, fmt.Errorf("engine: base_rate must be positive")
	}
	if p.Options.EvidenceRate < 0 {
		return nil, fmt.Errorf("engine: evidence_rate must not be negative")
	}
	if p.Options.HalfLife <= 0 {
		return nil, fmt.Errorf("engine: half_life must be positive")
	}
	if p.Extract == nil {
		p.Extract = extract.Keywords
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	ms, err := milestone.NewEngine(p.Milestones)
	if err != nil {
		return nil, fmt.Errorf("engine: milestone table: %w", err)
	}
	sc, err := stage.NewController(p.Gates)
	if err != nil {
		return nil, fmt.Errorf("engine: stage gates: %w", err)
	}
	cons, err := dream.New(p.Dream)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Engine{
		opts:         p.Options,
		log:          p.Logger,
		graph:        graph.New(p.Graph),
		milestones:   ms,
		stages:       sc,
		consolidator: cons,
		extract:      p.Extract,
	}, nil
}

// Subscribe registers an event handler. Handlers run synchronously on
// the mutating path; they must not call back into the engine.
func (e *Engine) Subscribe(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
}

func (e *Engine) emit(event any) {
	for _, h := range e.handlers {
		h(event)
	}
}

// Observe applies one interaction: appends the memory entry, fans out
// Hebbian reinforcements between stimulus and response concepts, scans
// milestones and feeds the stage controller.
func (e *Engine) Observe(in Interaction) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if in.Reward < 0 || in.Reward > 1 {
		return nil, fmt.Errorf("observe: reward %v outside [0, 1]", in.Reward)
	}
	if in.Tick < e.clock {
		return nil, fmt.Errorf("observe at tick %d (clock %d): %w", in.Tick, e.clock, graph.ErrTickOrder)
	}
	e.clock = in.Tick

	entry := model.MemoryEntry{
		Seq:      len(e.entries),
		Stimulus: in.Stimulus,
		Response: in.Response,
		Reward:   in.Reward,
		Tag:      in.Tag,
		Tick:     in.Tick,
	}
	// The entry is appended even when no concepts come out, so
	// milestone scanning always sees the full text.
	e.entries = append(e.entries, entry)

	stim := e.internAll(e.extract(in.Stimulus))
	resp := e.internAll(e.extract(in.Response))
	e.entryConcepts = append(e.entryConcepts, dream.EntryConcepts{
		Seq:      entry.Seq,
		Concepts: unionSorted(stim, resp),
	})

	res := &Result{Entry: entry}

	// Co-occurrence within this single interaction is what wires
	// concepts together; a zero reward simply reinforces nothing.
	if delta := e.opts.BaseRate * in.Reward; delta > 0 {
		for _, s := range stim {
			for _, r := range resp {
				if s == r {
					continue
				}
				a, err := e.graph.Reinforce(s, r, delta, in.Tag, in.Tick)
				if err != nil {
					return nil, fmt.Errorf("observe: %w", err)
				}
				res.Reinforced = append(res.Reinforced, a)
			}
		}
	}

	res.Milestones = e.milestones.Evaluate(entry, e.stages.Current())
	for _, ev := range res.Milestones {
		e.log.Info("milestone fired",
			zap.String("milestone", ev.MilestoneID),
			zap.Int64("tick", ev.Tick),
			zap.Float64("reward", ev.Reward))
		e.emit(ev)
		if tr := e.stages.AddEvidence(ev.Reward, in.Tick); tr != nil {
			res.Transitions = append(res.Transitions, *tr)
		}
	}
	if tr := e.stages.AddEvidence(e.opts.EvidenceRate*in.Reward, in.Tick); tr != nil {
		res.Transitions = append(res.Transitions, *tr)
	}
	for _, tr := range res.Transitions {
		e.log.Info("stage transition",
			zap.String("from", tr.From.String()),
			zap.String("to", tr.To.String()),
			zap.Int64("tick", tr.Tick))
		e.emit(tr)
	}

	return res, nil
}

// AdvanceClock moves simulated time forward n ticks, running the decay
// pass and crediting stage time. Returns the number of edges decayed
// and any stage transition the elapsed time unlocked.
func (e *Engine) AdvanceClock(n int64) (int, *model.StageTransitionEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n <= 0 {
		return 0, nil, fmt.Errorf("advance clock: ticks must be positive, got %d", n)
	}
	e.clock += n
	decayed, err := e.graph.DecayAll(e.clock, e.opts.HalfLife)
	if err != nil {
		return 0, nil, fmt.Errorf("advance clock: %w", err)
	}
	tr := e.stages.ObserveTicks(n, e.clock)
	if tr != nil {
		e.log.Info("stage transition",
			zap.String("from", tr.From.String()),
			zap.String("to", tr.To.String()),
			zap.Int64("tick", tr.Tick))
		e.emit(*tr)
	}
	return decayed, tr, nil
}

// Dream runs one consolidation cycle over the entries observed since
// the previous cycle and marks them replayed. Aborting via ctx before
// the commit point leaves the graph untouched.
func (e *Engine) Dream(ctx context.Context) (dream.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep, err := e.consolidator.Run(ctx, e.graph, e.entryConcepts[e.sinceDream:], e.clock)
	if err != nil {
		return dream.Report{}, err
	}
	for i := e.sinceDream; i < len(e.entries); i++ {
		e.entries[i].Replayed = true
	}
	e.sinceDream = len(e.entries)

	e.log.Info("dream cycle complete",
		zap.Int64("tick", rep.Tick),
		zap.Int("pruned", rep.Pruned),
		zap.Int("reinforced", rep.Reinforced),
		zap.Int("synthesized", rep.Synthesized))
	return rep, nil
}

// Clock returns the current simulation tick.
func (e *Engine) Clock() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clock
}

// Stage returns the current developmental stage.
func (e *Engine) Stage() model.Stage {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stages.Current()
}

// Entries returns a copy of the append-only interaction log.
func (e *Engine) Entries() []model.MemoryEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.MemoryEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Neighbor is an association resolved to concept names.
type Neighbor struct {
	Source string            `json:"source"`
	Target string            `json:"target"`
	Assoc  model.Association `json:"association"`
}

// Neighbors looks up the ordered associations of a concept by name.
func (e *Engine) Neighbors(concept string, minWeight float64) []Neighbor {
	e.mu.RLock()
	defer e.mu.RUnlock()

	id, ok := e.graph.LookupID(concept)
	if !ok {
		return nil
	}
	assocs := e.graph.Neighbors(id, minWeight)
	out := make([]Neighbor, len(assocs))
	for i, a := range assocs {
		out[i] = Neighbor{
			Source: e.graph.Name(a.Source),
			Target: e.graph.Name(a.Target),
			Assoc:  a,
		}
	}
	return out
}

// Snapshot exports the full learner state as one consistent copy.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v := e.graph.View()
	return model.Snapshot{
		Tick:         e.clock,
		Concepts:     v.Concepts,
		Edges:        v.Edges,
		Stage:        e.stages.Current(),
		TicksInStage: e.stages.TicksInStage(),
		Evidence:     e.stages.Evidence(),
		Milestones:   e.milestones.History(),
		Transitions:  e.stages.Transitions(),
	}
}

// PendingMilestones returns the not-yet-fired milestones for the
// current stage.
func (e *Engine) PendingMilestones() []milestone.Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.milestones.Pending(e.stages.Current())
}

// MilestoneSummary returns per-stage fired/total counts.
func (e *Engine) MilestoneSummary() []milestone.Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.milestones.Summarize()
}

// Stats summarizes the memory state.
type Stats struct {
	Tick         int64       `json:"tick"`
	Concepts     int         `json:"concepts"`
	Edges        int         `json:"edges"`
	AvgWeight    float64     `json:"avg_weight"`
	Entries      int         `json:"entries"`
	Replayed     int         `json:"replayed"`
	Stage        model.Stage `json:"stage"`
	TicksInStage int64       `json:"ticks_in_stage"`
	Evidence     float64     `json:"evidence"`
	Fired        int         `json:"milestones_fired"`
}

// Stats computes summary statistics over the learner state.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v := e.graph.View()
	st := Stats{
		Tick:         e.clock,
		Concepts:     len(v.Concepts),
		Edges:        len(v.Edges),
		Entries:      len(e.entries),
		Stage:        e.stages.Current(),
		TicksInStage: e.stages.TicksInStage(),
		Evidence:     e.stages.Evidence(),
		Fired:        len(e.milestones.History()),
	}
	var total float64
	for _, edge := range v.Edges {
		total += edge.Weight
	}
	if len(v.Edges) > 0 {
		st.AvgWeight = total / float64(len(v.Edges))
	}
	for _, entry := range e.entries {
		if entry.Replayed {
			st.Replayed++
		}
	}
	return st
}

// ForcePrune removes every association touching a concept. Privileged
// entry point for the curriculum collaborator.
func (e *Engine) ForcePrune(concept string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.graph.LookupID(concept)
	if !ok {
		return 0, fmt.Errorf("force prune: unknown concept %q", concept)
	}
	removed := e.graph.ForcePrune(id)
	e.log.Info("force prune", zap.String("concept", concept), zap.Int("removed", removed))
	return removed, nil
}

// ForceReinforce strengthens one edge outside the interaction path.
// Privileged entry point for the curriculum collaborator.
func (e *Engine) ForceReinforce(source, target string, delta float64) (model.Association, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.graph.Intern(source)
	t := e.graph.Intern(target)
	a, err := e.graph.ForceReinforce(s, t, delta)
	if err != nil {
		return model.Association{}, err
	}
	e.log.Info("force reinforce",
		zap.String("source", source), zap.String("target", target),
		zap.Float64("weight", a.Weight))
	return a, nil
}

func (e *Engine) internAll(concepts []string) []model.ConceptID {
	ids := make([]model.ConceptID, 0, len(concepts))
	for _, c := range concepts {
		ids = append(ids, e.graph.Intern(c))
	}
	return ids
}

func unionSorted(a, b []model.ConceptID) []model.ConceptID {
	seen := make(map[model.ConceptID]bool, len(a)+len(b))
	out := make([]model.ConceptID, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
