package model

// MilestoneEvent records a milestone firing. Events are emitted at
// most once per milestone unless the milestone is repeatable.
type MilestoneEvent struct {
	MilestoneID string  `json:"milestone_id"`
	Title       string  `json:"title,omitempty"`
	Tick        int64   `json:"tick"`
	MatchedText string  `json:"matched_text"`
	Reward      float64 `json:"reward"`
}

// StageTransitionEvent records a forward stage transition.
type StageTransitionEvent struct {
	From     Stage   `json:"from"`
	To       Stage   `json:"to"`
	Tick     int64   `json:"tick"`
	Evidence float64 `json:"evidence"`
}

// ConceptInfo pairs an interned id with its normalized text form, for
// snapshot export.
type ConceptInfo struct {
	ID   ConceptID `json:"id"`
	Name string    `json:"name"`
}

// Snapshot is a consistent point-in-time export of the full learner
// state, suitable for serialization to any display format.
type Snapshot struct {
	Tick         int64                  `json:"tick"`
	Concepts     []ConceptInfo          `json:"concepts"`
	Edges        []Association          `json:"edges"`
	Stage        Stage                  `json:"stage"`
	TicksInStage int64                  `json:"ticks_in_stage"`
	Evidence     float64                `json:"evidence"`
	Milestones   []MilestoneEvent       `json:"milestones"`
	Transitions  []StageTransitionEvent `json:"transitions"`
}
