package model

import "fmt"

// Stage is a developmental phase of the learner. Stages are strictly
// ordered and a learner never regresses to an earlier one.
type Stage uint8

const (
	StageInfant Stage = iota
	StageToddler
	StageChild
	StageTeenager
	StageAdult
	StageElder
)

var stageNames = [...]string{"infant", "toddler", "child", "teenager", "adult", "elder"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "infant"
}

// Next returns the following stage, or Elder itself at the terminal
// stage.
func (s Stage) Next() Stage {
	if s >= StageElder {
		return StageElder
	}
	return s + 1
}

// ParseStage converts a stage name to its Stage value.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if name == n {
			return Stage(i), nil
		}
	}
	return StageInfant, fmt.Errorf("unknown stage %q", name)
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Stage) UnmarshalJSON(b []byte) error {
	str := string(b)
	if len(str) >= 2 && str[0] == '"' {
		str = str[1 : len(str)-1]
	}
	v, err := ParseStage(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// StageCount is the number of developmental stages.
const StageCount = int(StageElder) + 1
