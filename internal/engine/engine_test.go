package engine

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/while-basic/Ollama-AI-Simulator/internal/dream"
	"github.com/while-basic/Ollama-AI-Simulator/internal/graph"
	"github.com/while-basic/Ollama-AI-Simulator/internal/milestone"
	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
	"github.com/while-basic/Ollama-AI-Simulator/internal/stage"
)

// words extracts every whitespace-separated token, so short test
// vocabulary like "hi" survives.
func words(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func testParams() Params {
	gates := [model.StageCount]stage.Gate{}
	for s := model.StageInfant; s < model.StageElder; s++ {
		gates[s] = stage.Gate{Threshold: 1.0, MinTicks: 2}
	}
	return Params{
		Options: DefaultOptions(),
		Graph:   graph.DefaultOptions(),
		Gates:   gates,
		Milestones: []milestone.Definition{
			{
				ID:      "first_word",
				Title:   "First word",
				Trigger: milestone.Trigger{Kind: milestone.TriggerContains, Values: []string{"mama", "dada"}},
				Reward:  0.8,
			},
		},
		Dream:   dream.DefaultOptions(),
		Extract: words,
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(testParams())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestObserveReinforcementSequence(t *testing.T) {
	e := newTestEngine(t)

	// base_rate 0.3 * reward 1.0 three times: 0.3, 0.51, 0.657.
	want := []float64{0.3, 0.51, 0.657}
	for i, w := range want {
		res, err := e.Observe(Interaction{
			Stimulus: "hello", Response: "hi", Reward: 1.0, Tick: int64(i),
		})
		if err != nil {
			t.Fatalf("observe %d: %v", i, err)
		}
		if len(res.Reinforced) != 1 {
			t.Fatalf("expected 1 reinforcement, got %d", len(res.Reinforced))
		}
		if math.Abs(res.Reinforced[0].Weight-w) > 1e-9 {
			t.Errorf("step %d: expected weight %v, got %v", i, w, res.Reinforced[0].Weight)
		}
	}
}

func TestObserveFansOutAllPairs(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Observe(Interaction{
		Stimulus: "red ball", Response: "big toy", Reward: 1.0, Tick: 0,
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	// 2 stimulus concepts x 2 response concepts.
	if len(res.Reinforced) != 4 {
		t.Errorf("expected 4 reinforcements, got %d", len(res.Reinforced))
	}
}

func TestZeroRewardStillRecordsEntry(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.Observe(Interaction{
		Stimulus: "hello", Response: "mama", Reward: 0, Tick: 0,
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if len(res.Reinforced) != 0 {
		t.Errorf("zero reward must not reinforce, got %d", len(res.Reinforced))
	}
	// Milestone scanning still saw the text.
	if len(res.Milestones) != 1 {
		t.Errorf("expected milestone to fire on zero-reward entry, got %d", len(res.Milestones))
	}
	if len(e.Entries()) != 1 {
		t.Error("entry must be appended regardless of reward")
	}
}

func TestObserveValidation(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.Observe(Interaction{Stimulus: "a", Response: "b", Reward: 1.5, Tick: 0}); err == nil {
		t.Error("expected reward range error")
	}
	if _, err := e.Observe(Interaction{Stimulus: "a", Response: "b", Reward: 0.5, Tick: 5}); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if _, err := e.Observe(Interaction{Stimulus: "a", Response: "b", Reward: 0.5, Tick: 4}); err == nil {
		t.Error("expected tick order error")
	}
}

func TestMilestoneFeedsStageController(t *testing.T) {
	e := newTestEngine(t)

	// Milestone reward 0.8 plus raw evidence, then time: gate needs
	// evidence >= 1.0 and 2 ticks.
	e.Observe(Interaction{Stimulus: "say mama", Response: "mama", Reward: 1.0, Tick: 0})
	e.Observe(Interaction{Stimulus: "say mama", Response: "mama mama", Reward: 1.0, Tick: 1})
	if e.Stage() != model.StageInfant {
		t.Fatalf("expected infant before time gate, got %s", e.Stage())
	}

	_, tr, err := e.AdvanceClock(2)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if e.Stats().Evidence >= 1.0 && tr == nil {
		// Evidence: 0.8 (milestone) + 0.05*1.0*2 = 0.9 — not enough yet.
		t.Log("not enough evidence yet, as expected")
	}

	// More reward evidence pushes it over the threshold.
	for tick := int64(4); e.Stage() == model.StageInfant && tick < 20; tick++ {
		e.Observe(Interaction{Stimulus: "good", Response: "word play", Reward: 1.0, Tick: tick})
	}
	if e.Stage() != model.StageToddler {
		t.Errorf("expected toddler after accumulated evidence, got %s", e.Stage())
	}
}

func TestAdvanceClockDecays(t *testing.T) {
	e := newTestEngine(t)

	e.Observe(Interaction{Stimulus: "hello", Response: "hi", Reward: 1.0, Tick: 0})
	decayed, _, err := e.AdvanceClock(100) // one half-life
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if decayed != 1 {
		t.Errorf("expected 1 edge decayed, got %d", decayed)
	}
	n := e.Neighbors("hello", 0)
	if len(n) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(n))
	}
	if math.Abs(n[0].Assoc.Weight-0.15) > 1e-9 {
		t.Errorf("expected weight 0.15 after one half-life, got %v", n[0].Assoc.Weight)
	}
}

func TestDreamMarksEntriesReplayed(t *testing.T) {
	e := newTestEngine(t)

	e.Observe(Interaction{Stimulus: "red ball", Response: "ball bounce", Reward: 1.0, Tick: 0})
	e.Observe(Interaction{Stimulus: "blue ball", Response: "ball roll", Reward: 1.0, Tick: 1})

	if _, err := e.Dream(context.Background()); err != nil {
		t.Fatalf("dream: %v", err)
	}
	for _, entry := range e.Entries() {
		if !entry.Replayed {
			t.Errorf("entry %d not marked replayed", entry.Seq)
		}
	}

	// New entries after the cycle start unreplayed.
	e.Observe(Interaction{Stimulus: "cat", Response: "meow", Reward: 1.0, Tick: 2})
	entries := e.Entries()
	if entries[2].Replayed {
		t.Error("post-dream entry must not be marked replayed")
	}
}

func TestDreamAbortKeepsState(t *testing.T) {
	e := newTestEngine(t)
	e.Observe(Interaction{Stimulus: "red ball", Response: "ball bounce", Reward: 1.0, Tick: 0})

	before := e.Snapshot()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Dream(ctx); err == nil {
		t.Fatal("expected abort error")
	}
	after := e.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Error("aborted dream must not change engine state")
	}
}

func TestDeterministicReplay(t *testing.T) {
	run := func() model.Snapshot {
		e, err := New(testParams())
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		e.Observe(Interaction{Stimulus: "say mama", Response: "mama", Reward: 1.0, Tick: 0})
		e.Observe(Interaction{Stimulus: "red ball", Response: "ball toy fun", Reward: 0.7, Tag: model.TagJoy, Tick: 1})
		e.AdvanceClock(5)
		e.Observe(Interaction{Stimulus: "ball toy", Response: "why ball", Reward: 0.9, Tick: 7})
		e.Dream(context.Background())
		e.AdvanceClock(3)
		e.Observe(Interaction{Stimulus: "cat", Response: "cat meow toy", Reward: 0.5, Tick: 11})
		e.Dream(context.Background())
		return e.Snapshot()
	}

	s1, s2 := run(), run()
	if !reflect.DeepEqual(s1, s2) {
		t.Error("identical event logs must produce identical snapshots")
	}
}

func TestEventStream(t *testing.T) {
	e := newTestEngine(t)

	var milestones, transitions int
	e.Subscribe(func(event any) {
		switch event.(type) {
		case model.MilestoneEvent:
			milestones++
		case model.StageTransitionEvent:
			transitions++
		}
	})

	e.Observe(Interaction{Stimulus: "say mama", Response: "mama", Reward: 1.0, Tick: 0})
	if milestones != 1 {
		t.Errorf("expected 1 milestone event, got %d", milestones)
	}

	// Push evidence and time until a transition happens.
	e.AdvanceClock(2)
	for tick := int64(3); e.Stage() == model.StageInfant && tick < 30; tick++ {
		e.Observe(Interaction{Stimulus: "play", Response: "toy ball", Reward: 1.0, Tick: tick})
	}
	if transitions == 0 {
		t.Error("expected a stage transition event")
	}
}

func TestForceOps(t *testing.T) {
	e := newTestEngine(t)

	e.Observe(Interaction{Stimulus: "red ball", Response: "toy", Reward: 1.0, Tick: 0})

	if _, err := e.ForcePrune("nope"); err == nil {
		t.Error("expected error for unknown concept")
	}
	removed, err := e.ForcePrune("ball")
	if err != nil {
		t.Fatalf("force prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 edge removed, got %d", removed)
	}

	a, err := e.ForceReinforce("sun", "warm", 0.4)
	if err != nil {
		t.Fatalf("force reinforce: %v", err)
	}
	if math.Abs(a.Weight-0.4) > 1e-9 {
		t.Errorf("expected weight 0.4, got %v", a.Weight)
	}
}

func TestStats(t *testing.T) {
	e := newTestEngine(t)

	e.Observe(Interaction{Stimulus: "hello", Response: "hi", Reward: 1.0, Tick: 0})
	st := e.Stats()
	if st.Concepts != 2 || st.Edges != 1 || st.Entries != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
	if math.Abs(st.AvgWeight-0.3) > 1e-9 {
		t.Errorf("expected avg weight 0.3, got %v", st.AvgWeight)
	}
}
