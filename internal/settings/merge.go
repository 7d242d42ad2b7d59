package settings

import (
	"encoding/json"
	"fmt"
)

// Merge overlays a saved settings document onto the defaults. Keys present in
// the saved document win; keys it omits keep their default value. Unknown
// keys are ignored so documents written by newer versions still load.
func Merge(saved []byte) (Settings, error) {
	s := Defaults()
	if len(saved) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(saved, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: merge saved document: %w", err)
	}
	return s, nil
}
