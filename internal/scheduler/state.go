package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type stateFile struct {
	path string
}

type state struct {
	LastRun time.Time `json:"last_run"`
}

func (f *stateFile) load() (time.Time, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return time.Time{}, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return st.LastRun, nil
}

// save replaces the state file atomically.
func (f *stateFile) save(lastRun time.Time) error {
	data, err := json.Marshal(state{LastRun: lastRun})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
