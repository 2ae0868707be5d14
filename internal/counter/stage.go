package counter

import (
	"encoding/json"
	"fmt"
)

// Stage is the phase of the current repetition.
type Stage int

const (
	// StageNone means no arm extension has been observed yet.
	StageNone Stage = iota
	// StageUp means the arms are extended.
	StageUp
	// StageDown means the arms are bent past the bottom threshold.
	StageDown
)

// String returns "up", "down" or "None".
func (s Stage) String() string {
	switch s {
	case StageUp:
		return "up"
	case StageDown:
		return "down"
	default:
		return "None"
	}
}

// MarshalJSON encodes StageNone as null and the others as lower-case strings.
func (s Stage) MarshalJSON() ([]byte, error) {
	if s == StageNone {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Stage) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = StageNone
		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	switch name {
	case "up":
		*s = StageUp
	case "down":
		*s = StageDown
	case "", "None":
		*s = StageNone
	default:
		return fmt.Errorf("unknown stage %q", name)
	}
	return nil
}
