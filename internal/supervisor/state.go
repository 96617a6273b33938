// ===============================
// FILE: internal/supervisor/state.go
// ===============================

package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Desired agent states persisted across supervisor restarts.
const (
	DesiredRunning = "running"
	DesiredStopped = "stopped"
)

// State is the supervisor's persisted desired state.
type State struct {
	Desired   string    `json:"desired"`
	Restarts  int       `json:"restarts"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProcessInfo is the persisted record of the last spawned agent process.
type ProcessInfo struct {
	PID       int       `json:"pid"`
	Command   []string  `json:"command"`
	StartedAt time.Time `json:"started_at"`
}

// saveJSON writes v to path atomically: a temp file in the same directory
// renamed over the target, so a crash never leaves a half-written record.
func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".supervisor-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// loadJSON reads v from path. A missing file leaves v untouched.
func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
