package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/motionkit/internal/motion"
	"github.com/banshee-data/motionkit/internal/units"
)

// TuningConfig represents the runtime-tunable recognition parameters. The
// window geometry (size, stride, slot count) is deliberately not here: it
// is fixed by the trained models and lives as constants in the motion
// package. Fields are pointers so a partial JSON file only overrides what
// it names; the Get* methods supply defaults for the rest.
type TuningConfig struct {
	// Aggregator params
	PredictionThreshold *float64 `json:"prediction_threshold,omitempty"`
	GestureTimeout      *string  `json:"gesture_timeout,omitempty"` // duration string like "1.5s"

	// Classifier params
	SmoothingAlpha *float64 `json:"smoothing_alpha,omitempty"`
	KNNNeighbours  *int     `json:"knn_neighbours,omitempty"`
	PrototypesPath *string  `json:"prototypes_path,omitempty"`

	// Sampler params
	SerialBaud        *int    `json:"serial_baud,omitempty"`
	RotationUnits     *string `json:"rotation_units,omitempty"`
	AccelerationUnits *string `json:"acceleration_units,omitempty"`

	// Diagnostics
	Debug *bool `json:"debug,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file
// size. Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.PredictionThreshold != nil {
		if *c.PredictionThreshold <= 0 || *c.PredictionThreshold >= 1 {
			return fmt.Errorf("prediction_threshold must be between 0 and 1 exclusive, got %f", *c.PredictionThreshold)
		}
	}

	if c.GestureTimeout != nil && *c.GestureTimeout != "" {
		d, err := time.ParseDuration(*c.GestureTimeout)
		if err != nil {
			return fmt.Errorf("invalid gesture_timeout '%s': %w", *c.GestureTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("gesture_timeout must be positive, got %s", d)
		}
	}

	if c.SmoothingAlpha != nil {
		if *c.SmoothingAlpha <= 0 || *c.SmoothingAlpha > 1 {
			return fmt.Errorf("smoothing_alpha must be in (0, 1], got %f", *c.SmoothingAlpha)
		}
	}

	if c.KNNNeighbours != nil && *c.KNNNeighbours < 1 {
		return fmt.Errorf("knn_neighbours must be at least 1, got %d", *c.KNNNeighbours)
	}

	if c.SerialBaud != nil && *c.SerialBaud <= 0 {
		return fmt.Errorf("serial_baud must be positive, got %d", *c.SerialBaud)
	}

	if c.RotationUnits != nil && !units.IsValidRotationUnit(*c.RotationUnits) {
		return fmt.Errorf("rotation_units must be one of %v, got %q", units.ValidRotationUnits, *c.RotationUnits)
	}

	if c.AccelerationUnits != nil && !units.IsValidAccelerationUnit(*c.AccelerationUnits) {
		return fmt.Errorf("acceleration_units must be one of %v, got %q", units.ValidAccelerationUnits, *c.AccelerationUnits)
	}

	return nil
}

// GetPredictionThreshold returns the prediction_threshold value or the default.
func (c *TuningConfig) GetPredictionThreshold() float64 {
	if c.PredictionThreshold == nil {
		return motion.DefaultPredictionThreshold
	}
	return *c.PredictionThreshold
}

// GetGestureTimeout parses and returns the gesture_timeout as a time.Duration.
func (c *TuningConfig) GetGestureTimeout() time.Duration {
	if c.GestureTimeout == nil || *c.GestureTimeout == "" {
		return motion.DefaultGestureTimeout
	}
	d, err := time.ParseDuration(*c.GestureTimeout)
	if err != nil {
		return motion.DefaultGestureTimeout
	}
	return d
}

// GetSmoothingAlpha returns the smoothing_alpha value or the default.
func (c *TuningConfig) GetSmoothingAlpha() float64 {
	if c.SmoothingAlpha == nil {
		return 0.6
	}
	return *c.SmoothingAlpha
}

// GetKNNNeighbours returns the knn_neighbours value or the default.
func (c *TuningConfig) GetKNNNeighbours() int {
	if c.KNNNeighbours == nil {
		return 5
	}
	return *c.KNNNeighbours
}

// GetPrototypesPath returns the prototypes_path value or the default.
func (c *TuningConfig) GetPrototypesPath() string {
	if c.PrototypesPath == nil || *c.PrototypesPath == "" {
		return "config/prototypes.json"
	}
	return *c.PrototypesPath
}

// GetSerialBaud returns the serial_baud value or the default.
func (c *TuningConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

// GetRotationUnits returns the rotation_units value or the default.
func (c *TuningConfig) GetRotationUnits() string {
	if c.RotationUnits == nil {
		return units.RadiansPerSecond
	}
	return *c.RotationUnits
}

// GetAccelerationUnits returns the acceleration_units value or the default.
func (c *TuningConfig) GetAccelerationUnits() string {
	if c.AccelerationUnits == nil {
		return units.GravityUnits
	}
	return *c.AccelerationUnits
}

// GetDebug returns the debug value or the default.
func (c *TuningConfig) GetDebug() bool {
	if c.Debug == nil {
		return false
	}
	return *c.Debug
}
