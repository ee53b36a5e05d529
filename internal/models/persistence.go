package models

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const stateFile = "state.yaml"

// Save writes the state to <dir>/<name>/state.yaml.
func (s PlayerState) Save(dir, name string) error {
	if name == "" {
		return fmt.Errorf("save: empty save name")
	}
	saveDir := filepath.Join(dir, name)
	if err := os.MkdirAll(saveDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(saveDir, stateFile), data, 0644)
}

// LoadState reads a state written by Save. Stats are normalized on the way in.
func LoadState(dir, name string) (PlayerState, error) {
	data, err := os.ReadFile(filepath.Join(dir, name, stateFile))
	if err != nil {
		return PlayerState{}, err
	}

	state := NewPlayerState()
	if err := yaml.Unmarshal(data, &state); err != nil {
		return PlayerState{}, fmt.Errorf("load %s: %w", name, err)
	}
	if state.Tags == nil {
		state.Tags = TagSet{}
	}
	if state.Inventory == nil {
		state.Inventory = []string{}
	}
	state.Stats = state.Stats.Normalize()
	return state, nil
}

// ListSaves returns the names of all saves under dir.
func ListSaves(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var saves []string
	for _, entry := range entries {
		if entry.IsDir() {
			// state.yaml marks a valid save
			if _, err := os.Stat(filepath.Join(dir, entry.Name(), stateFile)); err == nil {
				saves = append(saves, entry.Name())
			}
		}
	}
	return saves, nil
}
