// Package settings provides JSON-based application settings.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"context-magnifier/internal/grid"
)

const settingsFile = "settings.json"

// Store holds application settings as a key-value map.
type Store struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
}

// Load reads settings from ~/.config/context-magnifier/settings.json.
// Returns a Store with defaults if the file doesn't exist.
func Load() *Store {
	s := &Store{
		values: make(map[string]interface{}),
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	dir := filepath.Join(configDir, "context-magnifier")
	s.path = filepath.Join(dir, settingsFile)

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s
	}
	_ = json.Unmarshal(data, &s.values)
	return s
}

// Save writes settings to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.values, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Float returns a float64 setting, or fallback if not set.
func (s *Store) Float(key string, fallback float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

// SetFloat stores a float64 setting.
func (s *Store) SetFloat(key string, val float64) {
	s.mu.Lock()
	s.values[key] = val
	s.mu.Unlock()
}

// String returns a string setting, or fallback if not set.
func (s *Store) String(key, fallback string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return fallback
}

// SetString stores a string setting.
func (s *Store) SetString(key, val string) {
	s.mu.Lock()
	s.values[key] = val
	s.mu.Unlock()
}

// Bool returns a bool setting, or fallback if not set.
func (s *Store) Bool(key string, fallback bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// SetBool stores a bool setting.
func (s *Store) SetBool(key string, val bool) {
	s.mu.Lock()
	s.values[key] = val
	s.mu.Unlock()
}

// ApplyGridOptions overlays a flat option map onto a grid configuration.
// Unknown keys are rejected with the key name; the returned config is
// validated before being handed back, so a bad value never produces a
// half-applied configuration.
func ApplyGridOptions(base grid.Config, opts map[string]float64) (grid.Config, error) {
	cfg := base
	for key, val := range opts {
		switch key {
		case "grid_cols":
			cfg.Cols = int(val)
		case "grid_rows":
			cfg.Rows = int(val)
		case "base_text_size":
			cfg.BaseTextSize = val
		case "max_size_factor":
			cfg.MaxSizeFactor = val
		case "min_size_factor":
			cfg.MinSizeFactor = val
		case "confidence_threshold":
			cfg.ConfidenceThreshold = val
		case "button_importance":
			cfg.ButtonImportance = val
		case "input_field_importance":
			cfg.InputFieldImportance = val
		case "checkbox_importance":
			cfg.CheckboxImportance = val
		case "confirmation_text_importance":
			cfg.ConfirmationImportance = val
		case "error_importance":
			cfg.ErrorImportance = val
		case "title_importance":
			cfg.TitleImportance = val
		case "length_importance":
			cfg.ShortTextImportance = val
		case "density_importance":
			cfg.DensityImportance = val
		default:
			return base, &grid.ConfigError{Option: key, Reason: "unknown option"}
		}
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// GridConfig builds a grid configuration from stored settings, falling
// back to defaults for anything unset.
func (s *Store) GridConfig() grid.Config {
	def := grid.DefaultConfig()
	cfg := def
	cfg.Cols = int(s.Float("grid_cols", float64(def.Cols)))
	cfg.Rows = int(s.Float("grid_rows", float64(def.Rows)))
	cfg.BaseTextSize = s.Float("base_text_size", def.BaseTextSize)
	cfg.MaxSizeFactor = s.Float("max_size_factor", def.MaxSizeFactor)
	cfg.MinSizeFactor = s.Float("min_size_factor", def.MinSizeFactor)
	cfg.ConfidenceThreshold = s.Float("confidence_threshold", def.ConfidenceThreshold)
	cfg.ButtonImportance = s.Float("button_importance", def.ButtonImportance)
	cfg.InputFieldImportance = s.Float("input_field_importance", def.InputFieldImportance)
	cfg.CheckboxImportance = s.Float("checkbox_importance", def.CheckboxImportance)
	cfg.ConfirmationImportance = s.Float("confirmation_text_importance", def.ConfirmationImportance)
	cfg.ErrorImportance = s.Float("error_importance", def.ErrorImportance)
	cfg.TitleImportance = s.Float("title_importance", def.TitleImportance)
	cfg.ShortTextImportance = s.Float("length_importance", def.ShortTextImportance)
	cfg.DensityImportance = s.Float("density_importance", def.DensityImportance)
	return cfg
}
