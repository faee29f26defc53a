package grid

import "fmt"

// Config controls grid geometry and the importance weighting of the
// text and UI-element signals.
type Config struct {
	Cols int `json:"grid_cols"`
	Rows int `json:"grid_rows"`

	// Text scoring.
	BaseTextSize        float64 `json:"base_text_size"`       // px height of "normal" text
	MaxSizeFactor       float64 `json:"max_size_factor"`      // cap for small-text boost
	MinSizeFactor       float64 `json:"min_size_factor"`      // floor for large-text penalty
	ConfidenceThreshold float64 `json:"confidence_threshold"` // 0-100, OCR tokens below are ignored

	// Per-category importance multipliers.
	ButtonImportance       float64 `json:"button_importance"`
	InputFieldImportance   float64 `json:"input_field_importance"`
	CheckboxImportance     float64 `json:"checkbox_importance"`
	ConfirmationImportance float64 `json:"confirmation_text_importance"`
	ErrorImportance        float64 `json:"error_importance"`
	TitleImportance        float64 `json:"title_importance"`
	ShortTextImportance    float64 `json:"length_importance"`
	DensityImportance      float64 `json:"density_importance"`
}

// DefaultConfig returns the standard configuration for screen analysis.
func DefaultConfig() Config {
	return Config{
		Cols:                   16,
		Rows:                   9,
		BaseTextSize:           20,
		MaxSizeFactor:          4.0,
		MinSizeFactor:          1.0,
		ConfidenceThreshold:    20,
		ButtonImportance:       3.0,
		InputFieldImportance:   2.0,
		CheckboxImportance:     1.0,
		ConfirmationImportance: 3.0,
		ErrorImportance:        2.5,
		TitleImportance:        1.5,
		ShortTextImportance:    1.5,
		DensityImportance:      0.2,
	}
}

// ConfigError reports an invalid or unrecognized configuration option.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("grid config: option %q: %s", e.Option, e.Reason)
}

// Validate checks that all configuration values are usable.
func (c Config) Validate() error {
	if c.Cols < 1 {
		return &ConfigError{Option: "grid_cols", Reason: "must be >= 1"}
	}
	if c.Rows < 1 {
		return &ConfigError{Option: "grid_rows", Reason: "must be >= 1"}
	}
	if c.BaseTextSize <= 0 {
		return &ConfigError{Option: "base_text_size", Reason: "must be positive"}
	}
	if c.MaxSizeFactor <= 0 {
		return &ConfigError{Option: "max_size_factor", Reason: "must be positive"}
	}
	if c.MinSizeFactor <= 0 {
		return &ConfigError{Option: "min_size_factor", Reason: "must be positive"}
	}
	if c.MaxSizeFactor < c.MinSizeFactor {
		return &ConfigError{Option: "max_size_factor", Reason: "must be >= min_size_factor"}
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 100 {
		return &ConfigError{Option: "confidence_threshold", Reason: "must be in [0, 100]"}
	}
	for _, m := range []struct {
		name  string
		value float64
	}{
		{"button_importance", c.ButtonImportance},
		{"input_field_importance", c.InputFieldImportance},
		{"checkbox_importance", c.CheckboxImportance},
		{"confirmation_text_importance", c.ConfirmationImportance},
		{"error_importance", c.ErrorImportance},
		{"title_importance", c.TitleImportance},
		{"length_importance", c.ShortTextImportance},
		{"density_importance", c.DensityImportance},
	} {
		if m.value < 0 {
			return &ConfigError{Option: m.name, Reason: "must be non-negative"}
		}
	}
	return nil
}
