// Package dream implements the consolidation ("dream cycle") pass:
// prune flagged edges, reinforce recurring motifs, synthesize
// transitive associations. A cycle plans against a snapshot and
// commits all-or-nothing.
package dream

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/while-basic/Ollama-AI-Simulator/internal/graph"
	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

// ErrAborted reports a cycle cancelled before its commit point. The
// graph is untouched in that case.
var ErrAborted = errors.New("consolidation aborted before commit")

// Options bounds the consolidation pass.
type Options struct {
	TopK             int     `yaml:"top_k" json:"top_k"`                         // motif edges reinforced per cycle
	MotifThreshold   int     `yaml:"motif_threshold" json:"motif_threshold"`     // min distinct entries mentioning a concept
	MotifBonus       float64 `yaml:"motif_bonus" json:"motif_bonus"`             // replay reinforcement delta
	SynthThreshold   float64 `yaml:"synth_threshold" json:"synth_threshold"`     // min edge weight to join a synthesis pair
	SynthFraction    float64 `yaml:"synth_fraction" json:"synth_fraction"`       // new weight as fraction of min(w1, w2)
	MaxSynthPerCycle int     `yaml:"max_synth_per_cycle" json:"max_synth_per_cycle"`
}

// DefaultOptions returns the standard consolidation bounds.
func DefaultOptions() Options {
	return Options{
		TopK:             10,
		MotifThreshold:   2,
		MotifBonus:       0.1,
		SynthThreshold:   0.5,
		SynthFraction:    0.5,
		MaxSynthPerCycle: 5,
	}
}

// EntryConcepts pairs a memory entry with the concepts extracted from
// it at observation time.
type EntryConcepts struct {
	Seq      int
	Concepts []model.ConceptID
}

// Report summarizes one completed cycle.
type Report struct {
	Tick          int64 `json:"tick"`
	Pruned        int   `json:"pruned"`
	Reinforced    int   `json:"reinforced"`
	Synthesized   int   `json:"synthesized"`
	MotifConcepts int   `json:"motif_concepts"`
}

// Consolidator runs dream cycles over an association graph.
type Consolidator struct {
	opts Options
}

// New validates options and returns a consolidator.
func New(opts Options) (*Consolidator, error) {
	if opts.MotifBonus <= 0 {
		return nil, fmt.Errorf("dream: motif_bonus must be positive")
	}
	if opts.SynthFraction <= 0 || opts.SynthFraction > 1 {
		return nil, fmt.Errorf("dream: synth_fraction must be in (0, 1]")
	}
	if opts.MotifThreshold < 1 || opts.TopK < 0 || opts.MaxSynthPerCycle < 0 {
		return nil, fmt.Errorf("dream: negative or zero bounds")
	}
	return &Consolidator{opts: opts}, nil
}

// Run performs one cycle at the given tick: it snapshots the graph,
// builds the full mutation plan, then commits it atomically. entries
// are the interactions observed since the previous cycle. Cancellation
// is honored only before the commit point.
func (c *Consolidator) Run(ctx context.Context, g *graph.Graph, entries []EntryConcepts, tick int64) (Report, error) {
	view := g.View()
	plan, motifs := c.BuildPlan(view, entries, tick)

	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrAborted, err)
	}

	pruned, reinforced, synthesized := g.Commit(plan)
	return Report{
		Tick:          tick,
		Pruned:        pruned,
		Reinforced:    reinforced,
		Synthesized:   synthesized,
		MotifConcepts: motifs,
	}, nil
}

// BuildPlan computes the three ordered phases against a snapshot. It
// never mutates the graph; the caller applies the plan via Commit.
func (c *Consolidator) BuildPlan(view graph.View, entries []EntryConcepts, tick int64) (*graph.Plan, int) {
	plan := &graph.Plan{Tick: tick}

	// Phase 1: prune edges flagged by the last decay pass. Edges
	// reinforced since flagging are skipped at commit time.
	for _, e := range view.Edges {
		key := graph.EdgeKey{Source: e.Source, Target: e.Target}
		if view.Flagged[key] {
			plan.Prune = append(plan.Prune, key)
		}
	}
	prunedSet := make(map[graph.EdgeKey]bool, len(plan.Prune))
	for _, k := range plan.Prune {
		prunedSet[k] = true
	}

	// Phase 2: reinforce the top-K highest-weight surviving edges
	// touching motif concepts (concepts seen in enough distinct
	// entries since the last cycle).
	motifs := c.motifConcepts(entries)
	var candidates []model.Association
	for _, e := range view.Edges {
		key := graph.EdgeKey{Source: e.Source, Target: e.Target}
		if prunedSet[key] {
			continue
		}
		if motifs[e.Source] || motifs[e.Target] {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Weight != candidates[j].Weight {
			return candidates[i].Weight > candidates[j].Weight
		}
		if candidates[i].Source != candidates[j].Source {
			return candidates[i].Source < candidates[j].Source
		}
		return candidates[i].Target < candidates[j].Target
	})
	if len(candidates) > c.opts.TopK {
		candidates = candidates[:c.opts.TopK]
	}
	for _, e := range candidates {
		plan.Bonus = append(plan.Bonus, graph.BonusOp{
			Key:   graph.EdgeKey{Source: e.Source, Target: e.Target},
			Delta: c.opts.MotifBonus,
		})
	}

	// Phase 3: synthesize edges between concepts that share a strong
	// third neighbor but have no direct link (transitive inference).
	plan.Synth = c.synthesize(view, prunedSet)

	return plan, len(motifs)
}

func (c *Consolidator) motifConcepts(entries []EntryConcepts) map[model.ConceptID]bool {
	counts := make(map[model.ConceptID]int)
	for _, ec := range entries {
		seen := make(map[model.ConceptID]bool, len(ec.Concepts))
		for _, id := range ec.Concepts {
			if !seen[id] {
				seen[id] = true
				counts[id]++
			}
		}
	}
	motifs := make(map[model.ConceptID]bool)
	for id, n := range counts {
		if n >= c.opts.MotifThreshold {
			motifs[id] = true
		}
	}
	return motifs
}

type synthCandidate struct {
	key    graph.EdgeKey
	minW   float64
	weight float64
}

func (c *Consolidator) synthesize(view graph.View, prunedSet map[graph.EdgeKey]bool) []graph.SynthOp {
	// Strong incoming edges grouped by their shared target.
	strong := make(map[model.ConceptID][]model.Association)
	exists := make(map[graph.EdgeKey]bool, len(view.Edges))
	for _, e := range view.Edges {
		key := graph.EdgeKey{Source: e.Source, Target: e.Target}
		if prunedSet[key] {
			continue
		}
		exists[key] = true
		if e.Weight > c.opts.SynthThreshold {
			strong[e.Target] = append(strong[e.Target], e)
		}
	}

	// A pair may share several hubs; keep the strongest shared
	// evidence so the result is independent of hub iteration order.
	best := make(map[graph.EdgeKey]float64)
	for _, edges := range strong {
		for i := 0; i < len(edges); i++ {
			for j := i + 1; j < len(edges); j++ {
				a, b := edges[i].Source, edges[j].Source
				if a == b {
					continue
				}
				if a > b {
					a, b = b, a
				}
				key := graph.EdgeKey{Source: a, Target: b}
				if exists[key] || exists[graph.EdgeKey{Source: b, Target: a}] {
					continue
				}
				minW := edges[i].Weight
				if edges[j].Weight < minW {
					minW = edges[j].Weight
				}
				if minW > best[key] {
					best[key] = minW
				}
			}
		}
	}
	candidates := make([]synthCandidate, 0, len(best))
	for key, minW := range best {
		candidates = append(candidates, synthCandidate{
			key:    key,
			minW:   minW,
			weight: c.opts.SynthFraction * minW,
		})
	}

	// Strongest shared evidence first; ids break ties so the cap is
	// deterministic.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].minW != candidates[j].minW {
			return candidates[i].minW > candidates[j].minW
		}
		if candidates[i].key.Source != candidates[j].key.Source {
			return candidates[i].key.Source < candidates[j].key.Source
		}
		return candidates[i].key.Target < candidates[j].key.Target
	})
	if len(candidates) > c.opts.MaxSynthPerCycle {
		candidates = candidates[:c.opts.MaxSynthPerCycle]
	}

	ops := make([]graph.SynthOp, 0, len(candidates))
	for _, cand := range candidates {
		ops = append(ops, graph.SynthOp{Key: cand.key, Weight: cand.weight})
	}
	return ops
}
