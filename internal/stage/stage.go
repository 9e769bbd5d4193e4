// Package stage implements the developmental stage state machine.
// Transitions are strictly forward: a learner never regresses.
package stage

import (
	"fmt"

	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

// Gate is the advancement requirement out of one stage. Both
// conditions must hold, so a lucky burst of milestone matches cannot
// skip a stage before its minimum duration has passed.
type Gate struct {
	Threshold float64 `yaml:"threshold" json:"threshold"` // accumulated evidence required
	MinTicks  int64   `yaml:"min_ticks" json:"min_ticks"` // minimum ticks in stage
}

// DefaultGates mirrors the original curriculum's day-count ladder.
// The elder gate is unused (terminal stage) but kept for symmetry.
func DefaultGates() [model.StageCount]Gate {
	return [model.StageCount]Gate{
		model.StageInfant:   {Threshold: 1.0, MinTicks: 2},
		model.StageToddler:  {Threshold: 2.0, MinTicks: 4},
		model.StageChild:    {Threshold: 3.0, MinTicks: 10},
		model.StageTeenager: {Threshold: 4.0, MinTicks: 14},
		model.StageAdult:    {Threshold: 5.0, MinTicks: 30},
		model.StageElder:    {},
	}
}

// Controller tracks the current stage and its accumulated evidence.
type Controller struct {
	gates        [model.StageCount]Gate
	current      model.Stage
	ticksInStage int64
	evidence     float64
	transitions  []model.StageTransitionEvent
}

// NewController starts a controller at the infant stage.
func NewController(gates [model.StageCount]Gate) (*Controller, error) {
	for s := model.StageInfant; s < model.StageElder; s++ {
		if gates[s].Threshold <= 0 {
			return nil, fmt.Errorf("stage %s: threshold must be positive", s)
		}
		if gates[s].MinTicks < 0 {
			return nil, fmt.Errorf("stage %s: min_ticks must not be negative", s)
		}
	}
	return &Controller{gates: gates}, nil
}

// Current returns the current stage.
func (c *Controller) Current() model.Stage { return c.current }

// Evidence returns the evidence accumulated in the current stage.
func (c *Controller) Evidence() float64 { return c.evidence }

// TicksInStage returns the ticks spent in the current stage.
func (c *Controller) TicksInStage() int64 { return c.ticksInStage }

// Transitions returns the transition history.
func (c *Controller) Transitions() []model.StageTransitionEvent {
	out := make([]model.StageTransitionEvent, len(c.transitions))
	copy(out, c.transitions)
	return out
}

// AddEvidence accumulates reward evidence and advances the stage if
// the current gate is satisfied. Returns the transition event, if any.
func (c *Controller) AddEvidence(reward float64, tick int64) *model.StageTransitionEvent {
	if reward <= 0 {
		return nil
	}
	c.evidence += reward
	return c.maybeAdvance(tick)
}

// ObserveTicks accounts elapsed simulation time and advances the stage
// if the time gate was the missing condition.
func (c *Controller) ObserveTicks(n, tick int64) *model.StageTransitionEvent {
	if n <= 0 {
		return nil
	}
	c.ticksInStage += n
	return c.maybeAdvance(tick)
}

func (c *Controller) maybeAdvance(tick int64) *model.StageTransitionEvent {
	// Elder is a fixed point: evidence keeps accumulating but no
	// further transition happens.
	if c.current >= model.StageElder {
		return nil
	}
	gate := c.gates[c.current]
	if c.evidence < gate.Threshold || c.ticksInStage < gate.MinTicks {
		return nil
	}

	ev := model.StageTransitionEvent{
		From:     c.current,
		To:       c.current.Next(),
		Tick:     tick,
		Evidence: c.evidence,
	}
	c.current = ev.To
	// Evidence does not carry over between stages.
	c.evidence = 0
	c.ticksInStage = 0
	c.transitions = append(c.transitions, ev)
	return &ev
}
