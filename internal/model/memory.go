// Package model defines the core memory data types.
package model

import "fmt"

// ConceptID is the interned handle for a normalized concept string.
// Ids are assigned in first-reference order and are stable for the
// process lifetime, so two equal normalized strings always map to the
// same id.
type ConceptID uint32

// EmotionalTag labels the dominant emotion attached to an interaction
// or association.
type EmotionalTag uint8

const (
	TagNone EmotionalTag = iota
	TagPride
	TagConfusion
	TagShame
	TagJoy
	TagCuriosity
)

var tagNames = [...]string{"none", "pride", "confusion", "shame", "joy", "curiosity"}

func (t EmotionalTag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "none"
}

// ParseEmotionalTag converts a tag name to its EmotionalTag value.
func ParseEmotionalTag(s string) (EmotionalTag, error) {
	for i, name := range tagNames {
		if s == name {
			return EmotionalTag(i), nil
		}
	}
	return TagNone, fmt.Errorf("unknown emotional tag %q", s)
}

func (t EmotionalTag) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *EmotionalTag) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := ParseEmotionalTag(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Origin records whether an association came from a raw interaction or
// was synthesized during a dream cycle.
type Origin uint8

const (
	OriginDirect Origin = iota
	OriginConsolidated
)

func (o Origin) String() string {
	if o == OriginConsolidated {
		return "consolidated"
	}
	return "direct"
}

func (o Origin) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

func (o *Origin) UnmarshalJSON(b []byte) error {
	if string(b) == `"consolidated"` {
		*o = OriginConsolidated
		return nil
	}
	*o = OriginDirect
	return nil
}

// Association is a directed weighted edge between two concepts, the
// unit of learned memory. At most one Association exists per ordered
// (Source, Target) pair.
type Association struct {
	Source             ConceptID    `json:"source"`
	Target             ConceptID    `json:"target"`
	Weight             float64      `json:"weight"`
	LastReinforcedAt   int64        `json:"last_reinforced_at"`
	ReinforcementCount uint64       `json:"reinforcement_count"`
	Tag                EmotionalTag `json:"emotional_tag"`
	Origin             Origin       `json:"origin"`
}

// MemoryEntry is one stimulus-response interaction record. Entries are
// append-only and immutable once written; consolidation may mark them
// replayed but never rewrites their text or reward.
type MemoryEntry struct {
	Seq      int          `json:"seq"`
	Stimulus string       `json:"stimulus"`
	Response string       `json:"response"`
	Reward   float64      `json:"reward"`
	Tag      EmotionalTag `json:"emotional_tag"`
	Tick     int64        `json:"tick"`
	Replayed bool         `json:"replayed,omitempty"`
}
