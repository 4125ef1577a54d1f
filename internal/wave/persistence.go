// internal/wave/persistence.go
package wave

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadOrCreate reads a standing wave snapshot, or returns a fresh wave when
// the file does not exist. Parse failures surface as errors; silently
// replacing a corrupt wave would break identity continuity.
func LoadOrCreate(path string) (*StandingWave, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read standing wave: %w", err)
	}
	var w StandingWave
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("failed to parse standing wave: %w", err)
	}
	return &w, nil
}

// Save writes the wave as pretty-printed JSON (human-readable, diffable).
func Save(w *StandingWave, path string) error {
	raw, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize standing wave: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write standing wave: %w", err)
	}
	return nil
}
