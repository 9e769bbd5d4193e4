package dream

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/while-basic/Ollama-AI-Simulator/internal/graph"
	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

func newTestConsolidator(t *testing.T, opts Options) *Consolidator {
	t.Helper()
	c, err := New(opts)
	if err != nil {
		t.Fatalf("new consolidator: %v", err)
	}
	return c
}

func TestPrunePhase(t *testing.T) {
	g := graph.New(graph.Options{WMax: 1.0, MinWeight: 0.1})
	a, b, x := g.Intern("a"), g.Intern("b"), g.Intern("x")
	g.Reinforce(a, b, 0.02, model.TagNone, 0) // weak, will be flagged
	g.Reinforce(a, x, 0.8, model.TagNone, 0)
	g.DecayAll(1, 10)

	c := newTestConsolidator(t, DefaultOptions())
	rep, err := c.Run(context.Background(), g, nil, 2)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Pruned != 1 {
		t.Errorf("expected 1 pruned edge, got %d", rep.Pruned)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 surviving edge, got %d", g.EdgeCount())
	}
}

func TestMotifReinforcement(t *testing.T) {
	g := graph.New(graph.DefaultOptions())
	ball, red, cat := g.Intern("ball"), g.Intern("red"), g.Intern("cat")
	g.Reinforce(ball, red, 0.4, model.TagNone, 0)
	g.Reinforce(cat, red, 0.4, model.TagNone, 0)

	opts := DefaultOptions()
	opts.TopK = 1
	opts.MotifThreshold = 2
	opts.MotifBonus = 0.2
	c := newTestConsolidator(t, opts)

	// "ball" recurs in two distinct entries; "cat" only in one.
	entries := []EntryConcepts{
		{Seq: 0, Concepts: []model.ConceptID{ball, red}},
		{Seq: 1, Concepts: []model.ConceptID{ball}},
		{Seq: 2, Concepts: []model.ConceptID{cat}},
	}
	rep, err := c.Run(context.Background(), g, entries, 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.MotifConcepts != 1 {
		t.Errorf("expected 1 motif concept, got %d", rep.MotifConcepts)
	}
	if rep.Reinforced != 1 {
		t.Fatalf("expected 1 motif reinforcement, got %d", rep.Reinforced)
	}

	// ball->red got the bonus: 0.4 + 0.2*(1-0.4) = 0.52.
	w := g.Neighbors(ball, 0)[0].Weight
	if math.Abs(w-0.52) > 1e-9 {
		t.Errorf("expected bonused weight 0.52, got %v", w)
	}
	// cat->red untouched.
	w = g.Neighbors(cat, 0)[0].Weight
	if math.Abs(w-0.4) > 1e-9 {
		t.Errorf("expected untouched weight 0.4, got %v", w)
	}
}

func TestSynthesis(t *testing.T) {
	g := graph.New(graph.DefaultOptions())
	a, b, hub := g.Intern("a"), g.Intern("b"), g.Intern("hub")
	// a and b each hold a strong edge to hub but no direct link.
	g.Reinforce(a, hub, 0.8, model.TagNone, 0)
	g.Reinforce(b, hub, 0.7, model.TagNone, 0)

	opts := DefaultOptions()
	opts.SynthThreshold = 0.5
	opts.SynthFraction = 0.5
	c := newTestConsolidator(t, opts)

	rep, err := c.Run(context.Background(), g, nil, 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Synthesized != 1 {
		t.Fatalf("expected 1 synthesized edge, got %d", rep.Synthesized)
	}

	// New edge runs lower-id -> higher-id with weight 0.5*min(0.8, 0.7).
	edges := g.Neighbors(a, 0)
	var synth *model.Association
	for i := range edges {
		if edges[i].Origin == model.OriginConsolidated {
			synth = &edges[i]
		}
	}
	if synth == nil {
		t.Fatal("expected a consolidated-origin edge from a")
	}
	if synth.Target != b {
		t.Errorf("expected synthesized target b, got %d", synth.Target)
	}
	if math.Abs(synth.Weight-0.35) > 1e-9 {
		t.Errorf("expected weight 0.35, got %v", synth.Weight)
	}
}

func TestSynthesisSkipsExistingAndWeak(t *testing.T) {
	g := graph.New(graph.DefaultOptions())
	a, b, hub := g.Intern("a"), g.Intern("b"), g.Intern("hub")
	g.Reinforce(a, hub, 0.8, model.TagNone, 0)
	g.Reinforce(b, hub, 0.3, model.TagNone, 0) // below threshold

	c := newTestConsolidator(t, DefaultOptions())
	rep, _ := c.Run(context.Background(), g, nil, 1)
	if rep.Synthesized != 0 {
		t.Errorf("weak co-neighbor should not synthesize, got %d", rep.Synthesized)
	}

	// Now both strong but already directly linked.
	g2 := graph.New(graph.DefaultOptions())
	a2, b2, hub2 := g2.Intern("a"), g2.Intern("b"), g2.Intern("hub")
	g2.Reinforce(a2, hub2, 0.8, model.TagNone, 0)
	g2.Reinforce(b2, hub2, 0.8, model.TagNone, 1)
	g2.Reinforce(b2, a2, 0.2, model.TagNone, 2) // reverse direction counts too

	rep, _ = c.Run(context.Background(), g2, nil, 3)
	if rep.Synthesized != 0 {
		t.Errorf("directly linked pair should not synthesize, got %d", rep.Synthesized)
	}
}

func TestSynthesisCap(t *testing.T) {
	g := graph.New(graph.DefaultOptions())
	hub := g.Intern("hub")
	var ids []model.ConceptID
	for _, name := range []string{"a", "b", "c", "d"} {
		id := g.Intern(name)
		ids = append(ids, id)
	}
	// Ascending weights so the strongest pairs are predictable.
	weights := []float64{0.6, 0.7, 0.8, 0.9}
	for i, id := range ids {
		g.Reinforce(id, hub, weights[i], model.TagNone, int64(i))
	}

	opts := DefaultOptions()
	opts.MaxSynthPerCycle = 2
	c := newTestConsolidator(t, opts)

	rep, _ := c.Run(context.Background(), g, nil, 10)
	if rep.Synthesized != 2 {
		t.Fatalf("expected cap of 2 synthesized edges, got %d", rep.Synthesized)
	}
	// The two picked pairs are those with the highest min weight:
	// (c, d) min 0.8, then (b, c) min 0.7 on the id tiebreak.
	cd := g.Neighbors(ids[2], 0)
	found := false
	for _, e := range cd {
		if e.Target == ids[3] && e.Origin == model.OriginConsolidated {
			found = true
		}
	}
	if !found {
		t.Error("expected strongest pair (c, d) to be synthesized")
	}
}

func TestAbortBeforeCommitLeavesGraphUntouched(t *testing.T) {
	g := graph.New(graph.Options{WMax: 1.0, MinWeight: 0.1})
	a, b, hub := g.Intern("a"), g.Intern("b"), g.Intern("hub")
	g.Reinforce(a, hub, 0.8, model.TagNone, 0)
	g.Reinforce(b, hub, 0.7, model.TagNone, 0)
	g.Reinforce(a, b, 0.02, model.TagNone, 0)
	g.DecayAll(1, 10)

	before := g.View()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestConsolidator(t, DefaultOptions())
	_, err := c.Run(ctx, g, nil, 2)
	if err == nil {
		t.Fatal("expected abort error")
	}

	after := g.View()
	if !reflect.DeepEqual(before.Edges, after.Edges) {
		t.Error("aborted cycle must not change the graph")
	}
}

func TestPlanDeterministic(t *testing.T) {
	build := func() *graph.Plan {
		g := graph.New(graph.DefaultOptions())
		hub := g.Intern("hub")
		for i, name := range []string{"a", "b", "c", "d", "e"} {
			id := g.Intern(name)
			g.Reinforce(id, hub, 0.6+float64(i)*0.05, model.TagNone, int64(i))
		}
		c := newTestConsolidator(t, DefaultOptions())
		plan, _ := c.BuildPlan(g.View(), nil, 10)
		return plan
	}

	p1, p2 := build(), build()
	if !reflect.DeepEqual(p1, p2) {
		t.Error("identical graphs must produce identical plans")
	}
}

func TestInvalidOptions(t *testing.T) {
	bad := []Options{
		{MotifBonus: 0, SynthFraction: 0.5, MotifThreshold: 1},
		{MotifBonus: 0.1, SynthFraction: 0, MotifThreshold: 1},
		{MotifBonus: 0.1, SynthFraction: 1.5, MotifThreshold: 1},
		{MotifBonus: 0.1, SynthFraction: 0.5, MotifThreshold: 0},
	}
	for i, opts := range bad {
		if _, err := New(opts); err == nil {
			t.Errorf("case %d: expected options error", i)
		}
	}
}
