// Package milestone evaluates configured developmental triggers
// against the learner's response stream.
package milestone

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

// TriggerKind is the closed set of matching rules.
type TriggerKind string

const (
	TriggerContains          TriggerKind = "response_contains"
	TriggerPattern           TriggerKind = "response_pattern"
	TriggerConsecutive       TriggerKind = "consecutive_responses"
	TriggerLengthAndContains TriggerKind = "response_length_and_contains"
)

// Trigger is the matching rule of one milestone definition.
type Trigger struct {
	Kind      TriggerKind `yaml:"type" json:"type"`
	Values    []string    `yaml:"values,omitempty" json:"values,omitempty"`
	Pattern   string      `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MinLength int         `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	Count     int         `yaml:"count,omitempty" json:"count,omitempty"`
}

// Definition is one milestone: read-only configuration, loaded once at
// startup.
type Definition struct {
	ID          string      `yaml:"id" json:"id"`
	Title       string      `yaml:"title" json:"title"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Stage       model.Stage `yaml:"-" json:"stage"`
	Trigger     Trigger     `yaml:"trigger" json:"trigger"`
	Reward      float64     `yaml:"reward" json:"reward"`
	Repeatable  bool        `yaml:"repeatable,omitempty" json:"repeatable,omitempty"`
}

type compiled struct {
	def    Definition
	values []string // lowercased contains values
	re     *regexp.Regexp
}

// Engine holds the Armed/Fired state for every configured milestone.
// Evaluation order is the configuration's declared order.
type Engine struct {
	defs    []compiled
	fired   map[string]bool
	streaks map[string]int // consecutive-match counters by milestone id
	history []model.MilestoneEvent
}

// NewEngine compiles the milestone table. Malformed definitions are
// rejected here, never at evaluation time.
func NewEngine(defs []Definition) (*Engine, error) {
	e := &Engine{
		fired:   make(map[string]bool),
		streaks: make(map[string]int),
	}
	seen := make(map[string]bool)
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("milestone with empty id")
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate milestone id %q", d.ID)
		}
		seen[d.ID] = true

		c := compiled{def: d}
		switch d.Trigger.Kind {
		case TriggerContains:
			if len(d.Trigger.Values) == 0 {
				return nil, fmt.Errorf("milestone %q: response_contains needs values", d.ID)
			}
			c.values = lowerAll(d.Trigger.Values)
		case TriggerLengthAndContains:
			if len(d.Trigger.Values) == 0 {
				return nil, fmt.Errorf("milestone %q: response_length_and_contains needs values", d.ID)
			}
			if d.Trigger.MinLength <= 0 {
				return nil, fmt.Errorf("milestone %q: min_length must be positive", d.ID)
			}
			c.values = lowerAll(d.Trigger.Values)
		case TriggerPattern, TriggerConsecutive:
			if d.Trigger.Pattern == "" {
				return nil, fmt.Errorf("milestone %q: %s needs a pattern", d.ID, d.Trigger.Kind)
			}
			re, err := regexp.Compile("(?i)" + d.Trigger.Pattern)
			if err != nil {
				return nil, fmt.Errorf("milestone %q: invalid pattern: %w", d.ID, err)
			}
			c.re = re
			if d.Trigger.Kind == TriggerConsecutive && d.Trigger.Count < 2 {
				return nil, fmt.Errorf("milestone %q: consecutive_responses needs count >= 2", d.ID)
			}
		default:
			return nil, fmt.Errorf("milestone %q: unknown trigger kind %q", d.ID, d.Trigger.Kind)
		}
		e.defs = append(e.defs, c)
	}
	return e, nil
}

// Evaluate scans one new entry against the armed milestones of the
// current stage and returns the events fired, in declared order. An
// unmatched entry is a normal silent outcome.
func (e *Engine) Evaluate(entry model.MemoryEntry, stage model.Stage) []model.MilestoneEvent {
	var events []model.MilestoneEvent
	for _, c := range e.defs {
		if c.def.Stage != stage {
			continue
		}
		if e.fired[c.def.ID] && !c.def.Repeatable {
			continue
		}

		hit := false
		switch c.def.Trigger.Kind {
		case TriggerContains:
			hit = containsAny(entry.Response, c.values)
		case TriggerPattern:
			hit = c.re.MatchString(entry.Response)
		case TriggerLengthAndContains:
			hit = len(entry.Response) >= c.def.Trigger.MinLength && containsAny(entry.Response, c.values)
		case TriggerConsecutive:
			// A non-matching response resets the streak.
			if c.re.MatchString(entry.Response) {
				e.streaks[c.def.ID]++
			} else {
				e.streaks[c.def.ID] = 0
			}
			if e.streaks[c.def.ID] >= c.def.Trigger.Count {
				hit = true
				e.streaks[c.def.ID] = 0
			}
		}
		if !hit {
			continue
		}

		e.fired[c.def.ID] = true
		ev := model.MilestoneEvent{
			MilestoneID: c.def.ID,
			Title:       c.def.Title,
			Tick:        entry.Tick,
			MatchedText: entry.Response,
			Reward:      c.def.Reward,
		}
		e.history = append(e.history, ev)
		events = append(events, ev)
	}
	return events
}

// History returns all fired milestone events in firing order.
func (e *Engine) History() []model.MilestoneEvent {
	out := make([]model.MilestoneEvent, len(e.history))
	copy(out, e.history)
	return out
}

// Fired reports whether a milestone has ever fired.
func (e *Engine) Fired(id string) bool {
	return e.fired[id]
}

// Pending returns the not-yet-fired definitions for a stage, in
// declared order.
func (e *Engine) Pending(stage model.Stage) []Definition {
	var out []Definition
	for _, c := range e.defs {
		if c.def.Stage == stage && !e.fired[c.def.ID] {
			out = append(out, c.def)
		}
	}
	return out
}

// Summary counts fired and total milestones per stage.
type Summary struct {
	Stage model.Stage `json:"stage"`
	Fired int         `json:"fired"`
	Total int         `json:"total"`
}

// Summarize returns per-stage fired/total counts.
func (e *Engine) Summarize() []Summary {
	sums := make([]Summary, model.StageCount)
	for i := range sums {
		sums[i].Stage = model.Stage(i)
	}
	for _, c := range e.defs {
		s := &sums[c.def.Stage]
		s.Total++
		if e.fired[c.def.ID] {
			s.Fired++
		}
	}
	return sums
}

func lowerAll(vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strings.ToLower(v)
	}
	return out
}

func containsAny(text string, lowered []string) bool {
	lower := strings.ToLower(text)
	for _, v := range lowered {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
