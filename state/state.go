package state

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// State is a generic map of key-value pairs persisted as YAML.
type State map[string]interface{}

// File is a state file at a fixed path, normally a per-user file under the
// XDG state directory.
// Writes replace the file atomically so concurrent readers never see a
// partial document.
type File struct {
	path string
}

// Open returns a handle on the state file at path. The file need not exist.
func Open(path string) *File {
	return &File{path: path}
}

// Path returns the location of the state file.
func (f *File) Path() string {
	return f.path
}

// Load loads the state from the state file.
// Returns an empty state if the file doesn't exist.
func (f *File) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	if state == nil {
		state = make(State)
	}

	return state, nil
}

// Save saves the state to the state file.
func (f *File) Save(state State) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

// Get retrieves a value from the state by key.
// Returns the value and true if found, nil and false otherwise.
func (f *File) Get(key string) (interface{}, bool, error) {
	state, err := f.Load()
	if err != nil {
		return nil, false, err
	}

	val, ok := state[key]
	return val, ok, nil
}

// GetString is a convenience function to get a string value from state.
// Returns empty string if the key doesn't exist or the value is not a string.
func (f *File) GetString(key string) (string, error) {
	val, ok, err := f.Get(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	str, ok := val.(string)
	if !ok {
		return "", nil
	}

	return str, nil
}

// Set sets a value in the state.
func (f *File) Set(key string, value interface{}) error {
	state, err := f.Load()
	if err != nil {
		return err
	}

	state[key] = value
	return f.Save(state)
}

// Delete removes a key from the state.
func (f *File) Delete(key string) error {
	state, err := f.Load()
	if err != nil {
		return err
	}

	if _, ok := state[key]; !ok {
		return nil
	}
	delete(state, key)
	return f.Save(state)
}
