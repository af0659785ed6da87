package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Empty()

	if cfg.GetWindowSize() != 100 {
		t.Errorf("GetWindowSize() = %d, want 100", cfg.GetWindowSize())
	}
	if cfg.GetThresholdMultiplier() != 3.0 {
		t.Errorf("GetThresholdMultiplier() = %f, want 3.0", cfg.GetThresholdMultiplier())
	}
	if cfg.GetDebounceTicks() != 0 {
		t.Errorf("GetDebounceTicks() = %d, want 0", cfg.GetDebounceTicks())
	}
	if cfg.GetStrictFullWindow() {
		t.Error("GetStrictFullWindow() = true, want false")
	}
	if cfg.GetCalibrationMinSamples() != 30 {
		t.Errorf("GetCalibrationMinSamples() = %d, want 30", cfg.GetCalibrationMinSamples())
	}
	if cfg.GetCalibrationDuration() != 10*time.Second {
		t.Errorf("GetCalibrationDuration() = %v, want 10s", cfg.GetCalibrationDuration())
	}
	if cfg.GetSubcarrierCount() != 0 {
		t.Errorf("GetSubcarrierCount() = %d, want 0", cfg.GetSubcarrierCount())
	}
	if cfg.GetPairOrder() != PairOrderImagReal {
		t.Errorf("GetPairOrder() = %q, want %q", cfg.GetPairOrder(), PairOrderImagReal)
	}
	if !cfg.GetSpectralFeatures() {
		t.Error("GetSpectralFeatures() = false, want true")
	}
	if cfg.GetBaudRate() != 921600 {
		t.Errorf("GetBaudRate() = %d, want 921600", cfg.GetBaudRate())
	}
	if cfg.GetSerialPort() != "/dev/ttyUSB0" {
		t.Errorf("GetSerialPort() = %q, want /dev/ttyUSB0", cfg.GetSerialPort())
	}
	if cfg.GetModelPath() != "" {
		t.Errorf("GetModelPath() = %q, want empty", cfg.GetModelPath())
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "session.json")

	testJSON := `{
  "window_size": 200,
  "threshold_multiplier": 2.5,
  "calibration_min_samples": 50,
  "calibration_duration": "30s",
  "debounce_ticks": 3,
  "pair_order": "real_imag",
  "serial_port": "/dev/ttyACM0"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.GetWindowSize() != 200 {
		t.Errorf("GetWindowSize() = %d, want 200", cfg.GetWindowSize())
	}
	if cfg.GetThresholdMultiplier() != 2.5 {
		t.Errorf("GetThresholdMultiplier() = %f, want 2.5", cfg.GetThresholdMultiplier())
	}
	if cfg.GetCalibrationDuration() != 30*time.Second {
		t.Errorf("GetCalibrationDuration() = %v, want 30s", cfg.GetCalibrationDuration())
	}
	if cfg.GetDebounceTicks() != 3 {
		t.Errorf("GetDebounceTicks() = %d, want 3", cfg.GetDebounceTicks())
	}
	if cfg.GetPairOrder() != PairOrderRealImag {
		t.Errorf("GetPairOrder() = %q, want real_imag", cfg.GetPairOrder())
	}
	if cfg.GetSerialPort() != "/dev/ttyACM0" {
		t.Errorf("GetSerialPort() = %q, want /dev/ttyACM0", cfg.GetSerialPort())
	}

	// Omitted fields keep their defaults.
	if cfg.GetBaudRate() != 921600 {
		t.Errorf("GetBaudRate() = %d, want default 921600", cfg.GetBaudRate())
	}
	if !cfg.GetSpectralFeatures() {
		t.Error("GetSpectralFeatures() = false, want default true")
	}
}

func TestLoadRejectsNonJSON(t *testing.T) {
	if _, err := Load("session.yaml"); err == nil {
		t.Error("expected error for non-JSON extension")
	}
}

func TestValidate(t *testing.T) {
	badWindow := 1
	badMultiplier := -1.0
	badDuration := "not-a-duration"
	badOrder := "real_first"
	badBaud := 0

	cases := []struct {
		name string
		cfg  Config
	}{
		{"window_size too small", Config{WindowSize: &badWindow}},
		{"negative multiplier", Config{ThresholdMultiplier: &badMultiplier}},
		{"bad duration", Config{CalibrationDuration: &badDuration}},
		{"unknown pair order", Config{PairOrder: &badOrder}},
		{"zero baud rate", Config{BaudRate: &badBaud}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Empty().Validate(); err != nil {
		t.Errorf("empty config should validate, got %v", err)
	}
}
