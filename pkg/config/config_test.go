package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfigIsValid verifies the defaults pass validation
func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}

	if cfg.Thermal.MarginFraction != 0.45 {
		t.Errorf("Expected margin fraction 0.45, got %f", cfg.Thermal.MarginFraction)
	}
	if cfg.Growth.HoursPerStepDays != 2.4 || cfg.Growth.HoursPerStepHours != 0.1 {
		t.Errorf("Expected growth steps 2.4h/0.1h, got %f/%f",
			cfg.Growth.HoursPerStepDays, cfg.Growth.HoursPerStepHours)
	}
}

// TestLoadConfigMissingFile verifies a missing file yields defaults
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if cfg.Safety.HistorySize != 10 {
		t.Errorf("Expected default history size 10, got %d", cfg.Safety.HistorySize)
	}
}

// TestSaveAndLoadConfig verifies values survive a write/read cycle
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "oncosim.yaml")

	cfg := DefaultConfig()
	cfg.Thermal.DefaultWavelengthNM = 1064
	cfg.Growth.SaveEvery = 3
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Thermal.DefaultWavelengthNM != 1064 {
		t.Errorf("Expected wavelength 1064, got %f", loaded.Thermal.DefaultWavelengthNM)
	}
	if loaded.Growth.SaveEvery != 3 {
		t.Errorf("Expected saveEvery 3, got %d", loaded.Growth.SaveEvery)
	}
}

// TestLoadConfigPartialOverride verifies omitted keys keep their defaults
func TestLoadConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("thermal:\n  marginFraction: 0.3\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Thermal.MarginFraction != 0.3 {
		t.Errorf("Expected margin fraction 0.3, got %f", cfg.Thermal.MarginFraction)
	}
	if cfg.Thermal.BaselineTemp != 37 {
		t.Errorf("Expected baseline 37 to survive, got %f", cfg.Thermal.BaselineTemp)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero spacing", "measurement:\n  pixelSpacingX: 0\n"},
		{"tiny history", "safety:\n  historySize: 1\n"},
		{"zero save period", "growth:\n  saveEvery: 0\n"},
		{"one class", "segmentation:\n  classes: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			_, err := LoadConfig(path)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("thermal: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("Expected parse error for malformed YAML")
	}
}
