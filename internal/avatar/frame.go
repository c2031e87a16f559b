package avatar

import (
	"encoding/json"
	"fmt"
)

// VisemeFrame is one timed mouth change: at T seconds after playback start,
// show the sprite for Level.
type VisemeFrame struct {
	T     float64 `json:"t"`
	Level float64 `json:"level"`
}

// UnmarshalJSON accepts "t" and the envelope spellings "time_s" and "time".
func (f *VisemeFrame) UnmarshalJSON(data []byte) error {
	var raw struct {
		T     *float64 `json:"t"`
		TimeS *float64 `json:"time_s"`
		Time  *float64 `json:"time"`
		Level *float64 `json:"level"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.T != nil:
		f.T = *raw.T
	case raw.TimeS != nil:
		f.T = *raw.TimeS
	case raw.Time != nil:
		f.T = *raw.Time
	default:
		return fmt.Errorf("viseme frame has no timestamp")
	}
	f.Level = 0
	if raw.Level != nil {
		f.Level = *raw.Level
	}
	return nil
}
