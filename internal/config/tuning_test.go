package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/motionkit/internal/motion"
	"github.com/banshee-data/motionkit/internal/units"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetPredictionThreshold() != motion.DefaultPredictionThreshold {
		t.Errorf("GetPredictionThreshold() = %f, want %f", cfg.GetPredictionThreshold(), motion.DefaultPredictionThreshold)
	}
	if cfg.GetGestureTimeout() != motion.DefaultGestureTimeout {
		t.Errorf("GetGestureTimeout() = %v, want %v", cfg.GetGestureTimeout(), motion.DefaultGestureTimeout)
	}
	if cfg.GetSmoothingAlpha() != 0.6 {
		t.Errorf("GetSmoothingAlpha() = %f, want 0.6", cfg.GetSmoothingAlpha())
	}
	if cfg.GetKNNNeighbours() != 5 {
		t.Errorf("GetKNNNeighbours() = %d, want 5", cfg.GetKNNNeighbours())
	}
	if cfg.GetPrototypesPath() != "config/prototypes.json" {
		t.Errorf("GetPrototypesPath() = %q, want config/prototypes.json", cfg.GetPrototypesPath())
	}
	if cfg.GetSerialBaud() != 115200 {
		t.Errorf("GetSerialBaud() = %d, want 115200", cfg.GetSerialBaud())
	}
	if cfg.GetRotationUnits() != units.RadiansPerSecond {
		t.Errorf("GetRotationUnits() = %q, want %q", cfg.GetRotationUnits(), units.RadiansPerSecond)
	}
	if cfg.GetAccelerationUnits() != units.GravityUnits {
		t.Errorf("GetAccelerationUnits() = %q, want %q", cfg.GetAccelerationUnits(), units.GravityUnits)
	}
	if cfg.GetDebug() != false {
		t.Errorf("GetDebug() = %v, want false", cfg.GetDebug())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "prediction_threshold": 0.85,
  "gesture_timeout": "2s",
  "smoothing_alpha": 0.4,
  "knn_neighbours": 7,
  "prototypes_path": "models/alt_prototypes.json",
  "serial_baud": 57600,
  "debug": true
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetPredictionThreshold() != 0.85 {
		t.Errorf("GetPredictionThreshold() = %f, want 0.85", cfg.GetPredictionThreshold())
	}
	if cfg.GetGestureTimeout() != 2*time.Second {
		t.Errorf("GetGestureTimeout() = %v, want 2s", cfg.GetGestureTimeout())
	}
	if cfg.GetSmoothingAlpha() != 0.4 {
		t.Errorf("GetSmoothingAlpha() = %f, want 0.4", cfg.GetSmoothingAlpha())
	}
	if cfg.GetKNNNeighbours() != 7 {
		t.Errorf("GetKNNNeighbours() = %d, want 7", cfg.GetKNNNeighbours())
	}
	if cfg.GetPrototypesPath() != "models/alt_prototypes.json" {
		t.Errorf("GetPrototypesPath() = %q, want models/alt_prototypes.json", cfg.GetPrototypesPath())
	}
	if cfg.GetSerialBaud() != 57600 {
		t.Errorf("GetSerialBaud() = %d, want 57600", cfg.GetSerialBaud())
	}
	if !cfg.GetDebug() {
		t.Error("GetDebug() = false, want true")
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	// A partial file overrides only what it names.
	if err := os.WriteFile(configPath, []byte(`{"prediction_threshold": 0.75}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetPredictionThreshold() != 0.75 {
		t.Errorf("GetPredictionThreshold() = %f, want 0.75", cfg.GetPredictionThreshold())
	}
	if cfg.GestureTimeout != nil {
		t.Errorf("GestureTimeout should be nil, got %v", *cfg.GestureTimeout)
	}
	if cfg.GetGestureTimeout() != motion.DefaultGestureTimeout {
		t.Errorf("GetGestureTimeout() = %v, want default %v", cfg.GetGestureTimeout(), motion.DefaultGestureTimeout)
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestLoadTuningConfigInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "broken.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := LoadTuningConfig(configPath); err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	i := func(v int) *int { return &v }
	s := func(v string) *string { return &v }

	tests := []struct {
		name    string
		cfg     TuningConfig
		wantErr bool
	}{
		{"empty config", TuningConfig{}, false},
		{"valid threshold", TuningConfig{PredictionThreshold: f(0.9)}, false},
		{"threshold zero", TuningConfig{PredictionThreshold: f(0)}, true},
		{"threshold one", TuningConfig{PredictionThreshold: f(1)}, true},
		{"valid timeout", TuningConfig{GestureTimeout: s("1500ms")}, false},
		{"unparseable timeout", TuningConfig{GestureTimeout: s("soon")}, true},
		{"negative timeout", TuningConfig{GestureTimeout: s("-1s")}, true},
		{"alpha one is allowed", TuningConfig{SmoothingAlpha: f(1)}, false},
		{"alpha above one", TuningConfig{SmoothingAlpha: f(1.1)}, true},
		{"alpha zero", TuningConfig{SmoothingAlpha: f(0)}, true},
		{"zero neighbours", TuningConfig{KNNNeighbours: i(0)}, true},
		{"negative baud", TuningConfig{SerialBaud: i(-9600)}, true},
		{"valid rotation units", TuningConfig{RotationUnits: s(units.DegreesPerSecond)}, false},
		{"unknown rotation units", TuningConfig{RotationUnits: s("rpm")}, true},
		{"valid acceleration units", TuningConfig{AccelerationUnits: s(units.MetersPerSecSquared)}, false},
		{"unknown acceleration units", TuningConfig{AccelerationUnits: s("ft/s2")}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}
