// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/studentsstage/stagectl/internal/platform/constants"
)

// Prefs persists non-credential preferences (currently only the UI theme)
// in a file separate from the credential record, so that logout never wipes
// them.
type Prefs struct {
	path string
	mu   sync.Mutex
}

// NewPrefs returns a preference store at <dir>/prefs.json.
func NewPrefs(dir string) (*Prefs, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("credstore: failed to create prefs directory: %w", err)
	}
	return &Prefs{path: filepath.Join(dir, constants.PrefsFileName)}, nil
}

// Theme returns the stored theme preference: light, dark, or system.
// Absent or unrecognized values default to system.
func (prefs *Prefs) Theme() string {
	prefs.mu.Lock()
	defer prefs.mu.Unlock()

	switch theme := prefs.read()[constants.KeyTheme]; theme {
	case constants.ThemeLight, constants.ThemeDark, constants.ThemeSystem:
		return theme
	default:
		return constants.ThemeSystem
	}
}

// SetTheme stores the theme preference. Unrecognized values are rejected.
func (prefs *Prefs) SetTheme(theme string) error {
	switch theme {
	case constants.ThemeLight, constants.ThemeDark, constants.ThemeSystem:
	default:
		return fmt.Errorf("credstore: unknown theme %q", theme)
	}

	prefs.mu.Lock()
	defer prefs.mu.Unlock()

	values := prefs.read()
	values[constants.KeyTheme] = theme

	payload, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("credstore: failed to encode prefs: %w", err)
	}
	if err := os.WriteFile(prefs.path, payload, 0o600); err != nil {
		return fmt.Errorf("credstore: failed to write prefs: %w", err)
	}
	return nil
}

// read loads the preference map, treating a missing or corrupt file as empty.
func (prefs *Prefs) read() map[string]string {
	values := map[string]string{}

	payload, err := os.ReadFile(prefs.path)
	if err != nil {
		return values
	}
	if err := json.Unmarshal(payload, &values); err != nil {
		return map[string]string{}
	}
	return values
}
