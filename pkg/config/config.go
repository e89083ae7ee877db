// Package config provides configuration loading and management for oncosim.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Segmentation parameters
	Segmentation struct {
		// HeadThresholdFactor scales the mean non-zero intensity into the head threshold
		HeadThresholdFactor float64 `yaml:"headThresholdFactor"`

		// SkullErosionSize is the side of the square element used to strip the skull
		SkullErosionSize int `yaml:"skullErosionSize"`

		// SkullErosionIterations is how many times the skull erosion is applied
		SkullErosionIterations int `yaml:"skullErosionIterations"`

		// ShrinkErosionSize is the side of the final inward erosion element
		ShrinkErosionSize int `yaml:"shrinkErosionSize"`

		// DiffusionIterations, DiffusionKappa and DiffusionGamma drive the
		// anisotropic smoothing applied before clustering
		DiffusionIterations int     `yaml:"diffusionIterations"`
		DiffusionKappa      float64 `yaml:"diffusionKappa"`
		DiffusionGamma      float64 `yaml:"diffusionGamma"`

		// Classes is the number of multi-Otsu classes
		Classes int `yaml:"classes"`

		// MinBrainPixels is the smallest brain that is worth scoring
		MinBrainPixels int `yaml:"minBrainPixels"`

		// LevelSetIterations, LevelSetStep, LevelSetEpsilon and LevelSetMu
		// configure the two-phase contour refinement
		LevelSetIterations int     `yaml:"levelSetIterations"`
		LevelSetStep       float64 `yaml:"levelSetStep"`
		LevelSetEpsilon    float64 `yaml:"levelSetEpsilon"`
		LevelSetMu         float64 `yaml:"levelSetMu"`
	} `yaml:"segmentation"`

	// Measurement parameters
	Measurement struct {
		// PixelSpacingX and PixelSpacingY are the physical pixel sizes in mm
		PixelSpacingX float64 `yaml:"pixelSpacingX"`
		PixelSpacingY float64 `yaml:"pixelSpacingY"`
	} `yaml:"measurement"`

	// Thermal model parameters
	Thermal struct {
		// BaselineTemp is body temperature in °C
		BaselineTemp float64 `yaml:"baselineTemp"`

		// TickIntervalMS is the real-time loop period
		TickIntervalMS int `yaml:"tickIntervalMs"`

		// TimeStep is the simulated seconds per tick
		TimeStep float64 `yaml:"timeStep"`

		// MarginFraction is the share of centroid rise seen at the tumor edge
		MarginFraction float64 `yaml:"marginFraction"`

		// DefaultDepthMM is the assumed lesion depth for dosimetry on a 2D slice
		DefaultDepthMM float64 `yaml:"defaultDepthMm"`

		// DefaultWavelengthNM is the preselected laser wavelength
		DefaultWavelengthNM float64 `yaml:"defaultWavelengthNm"`

		// MaxPowerW clamps the computed laser power
		MaxPowerW float64 `yaml:"maxPowerW"`
	} `yaml:"thermal"`

	// Safety monitor parameters
	Safety struct {
		// HistorySize is the rolling temperature buffer length
		HistorySize int `yaml:"historySize"`

		// BaselineImpedance is the impedance assumed before the first reading
		BaselineImpedance float64 `yaml:"baselineImpedance"`

		// MarginStopTemp and MarginWarnTemp guard healthy tissue at the edge
		MarginStopTemp float64 `yaml:"marginStopTemp"`
		MarginWarnTemp float64 `yaml:"marginWarnTemp"`

		// OvershootLimit is how far above target the centroid may go
		OvershootLimit float64 `yaml:"overshootLimit"`

		// ImpedanceJump is the rise that signals charring
		ImpedanceJump float64 `yaml:"impedanceJump"`
	} `yaml:"safety"`

	// Growth simulation parameters
	Growth struct {
		// HoursPerStepDays and HoursPerStepHours are the internal step lengths
		HoursPerStepDays  float64 `yaml:"hoursPerStepDays"`
		HoursPerStepHours float64 `yaml:"hoursPerStepHours"`

		// SaveEvery is the frame sampling period in steps
		SaveEvery int `yaml:"saveEvery"`

		// PixelScaleMM converts pixel counts into radii
		PixelScaleMM float64 `yaml:"pixelScaleMm"`

		// PlaybackIntervalMS is the delay between frames during playback
		PlaybackIntervalMS int `yaml:"playbackIntervalMs"`
	} `yaml:"growth"`

	// Output parameters
	Output struct {
		// Directory receives overlays, plots and videos
		Directory string `yaml:"directory"`

		// VideoFPS is the frame rate of the growth video
		VideoFPS int `yaml:"videoFps"`

		// LogLevel is one of debug, info, warn, error
		LogLevel string `yaml:"logLevel"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Segmentation.HeadThresholdFactor = 0.5
	cfg.Segmentation.SkullErosionSize = 15
	cfg.Segmentation.SkullErosionIterations = 2
	cfg.Segmentation.ShrinkErosionSize = 10
	cfg.Segmentation.DiffusionIterations = 15
	cfg.Segmentation.DiffusionKappa = 50
	cfg.Segmentation.DiffusionGamma = 0.1
	cfg.Segmentation.Classes = 4
	cfg.Segmentation.MinBrainPixels = 100
	cfg.Segmentation.LevelSetIterations = 50
	cfg.Segmentation.LevelSetStep = 0.05
	cfg.Segmentation.LevelSetEpsilon = 1.0
	cfg.Segmentation.LevelSetMu = 0.1

	cfg.Measurement.PixelSpacingX = 0.5
	cfg.Measurement.PixelSpacingY = 0.5

	cfg.Thermal.BaselineTemp = 37.0
	cfg.Thermal.TickIntervalMS = 100
	cfg.Thermal.TimeStep = 0.1
	cfg.Thermal.MarginFraction = 0.45
	cfg.Thermal.DefaultDepthMM = 5.0
	cfg.Thermal.DefaultWavelengthNM = 980
	cfg.Thermal.MaxPowerW = 100

	cfg.Safety.HistorySize = 10
	cfg.Safety.BaselineImpedance = 400
	cfg.Safety.MarginStopTemp = 45
	cfg.Safety.MarginWarnTemp = 42
	cfg.Safety.OvershootLimit = 8
	cfg.Safety.ImpedanceJump = 200

	cfg.Growth.HoursPerStepDays = 2.4
	cfg.Growth.HoursPerStepHours = 0.1
	cfg.Growth.SaveEvery = 5
	cfg.Growth.PixelScaleMM = 0.5
	cfg.Growth.PlaybackIntervalMS = 100

	cfg.Output.Directory = "oncosim_output"
	cfg.Output.VideoFPS = 10
	cfg.Output.LogLevel = "info"

	return cfg
}

// Validate checks that values are usable by the simulation packages.
func (c *Config) Validate() error {
	switch {
	case c.Segmentation.SkullErosionSize < 1 || c.Segmentation.ShrinkErosionSize < 1:
		return fmt.Errorf("%w: erosion sizes must be positive", ErrInvalid)
	case c.Segmentation.Classes < 2:
		return fmt.Errorf("%w: classes must be at least 2, got %d", ErrInvalid, c.Segmentation.Classes)
	case c.Segmentation.LevelSetEpsilon <= 0:
		return fmt.Errorf("%w: levelSetEpsilon must be positive", ErrInvalid)
	case c.Measurement.PixelSpacingX <= 0 || c.Measurement.PixelSpacingY <= 0:
		return fmt.Errorf("%w: pixel spacing must be positive", ErrInvalid)
	case c.Thermal.TickIntervalMS <= 0 || c.Thermal.TimeStep <= 0:
		return fmt.Errorf("%w: tick interval and time step must be positive", ErrInvalid)
	case c.Thermal.MaxPowerW <= 0:
		return fmt.Errorf("%w: maxPowerW must be positive", ErrInvalid)
	case c.Safety.HistorySize < 2:
		return fmt.Errorf("%w: historySize must be at least 2, got %d", ErrInvalid, c.Safety.HistorySize)
	case c.Growth.HoursPerStepDays <= 0 || c.Growth.HoursPerStepHours <= 0:
		return fmt.Errorf("%w: growth step durations must be positive", ErrInvalid)
	case c.Growth.SaveEvery < 1:
		return fmt.Errorf("%w: saveEvery must be at least 1, got %d", ErrInvalid, c.Growth.SaveEvery)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML over the defaults so omitted keys keep their values
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
