package risk

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Score is an integer severity combining likelihood and consequence. Its
// Level is always derived from the value and never stored alongside it.
type Score int

// Level returns the band for the score.
func (s Score) Level() Level {
	return Classify(s)
}

// Int returns the score as a plain int.
func (s Score) Int() int {
	return int(s)
}

// Clamp bounds the score to [min, max].
func (s Score) Clamp(min, max Score) Score {
	if s < min {
		return min
	}
	if s > max {
		return max
	}
	return s
}

type scorePayload struct {
	Value int   `json:"value"`
	Level Level `json:"level"`
}

// MarshalJSON emits {"value": n, "level": "..."} so consumers receive the
// derived band without recomputing it.
func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(scorePayload{Value: int(s), Level: s.Level()})
}

// UnmarshalJSON accepts either a bare number or the object form produced by
// MarshalJSON. Any level in the object form is ignored and re-derived.
func (s *Score) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var payload scorePayload
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return fmt.Errorf("risk: decode score: %w", err)
		}
		*s = Score(payload.Value)
		return nil
	}
	var value int
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return fmt.Errorf("risk: decode score: %w", err)
	}
	*s = Score(value)
	return nil
}
