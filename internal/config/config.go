// Package config defines the tuning surface for a sensing session. Values are
// loaded from a JSON file with all fields optional; the Get* accessors supply
// defaults for anything omitted, so partial configs are safe and multiple
// sessions can run with distinct configurations.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Pair order constants for the subcarrier payload. The interleaving of the
// complex components is a firmware contract, not derivable from the data.
const (
	PairOrderImagReal = "imag_real" // ESP32 CSI default: imaginary first
	PairOrderRealImag = "real_imag"
)

// Config represents the tuning parameters for a sensing session. All fields
// are pointers so that a JSON file can set any subset; use the Get* methods
// to read values with defaults applied.
type Config struct {
	// Detection params
	WindowSize          *int     `json:"window_size,omitempty"`
	ThresholdMultiplier *float64 `json:"threshold_multiplier,omitempty"`
	DebounceTicks       *int     `json:"debounce_ticks,omitempty"`
	StrictFullWindow    *bool    `json:"strict_full_window,omitempty"`

	// Calibration params
	CalibrationMinSamples *int    `json:"calibration_min_samples,omitempty"`
	CalibrationDuration   *string `json:"calibration_duration,omitempty"` // duration string like "10s"

	// Frame params
	SubcarrierCount *int    `json:"subcarrier_count,omitempty"` // 0 = pin from first valid frame
	PairOrder       *string `json:"pair_order,omitempty"`

	// Feature params
	SpectralFeatures *bool `json:"spectral_features,omitempty"`

	// Transport params
	SerialPort *string `json:"serial_port,omitempty"`
	BaudRate   *int    `json:"baud_rate,omitempty"`

	// Classifier and output params
	ModelPath *string `json:"model_path,omitempty"`
	OutputCSV *string `json:"output_csv,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. Fields omitted from the file retain
// their defaults via the Get* accessors.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set values are usable.
func (c *Config) Validate() error {
	if c.WindowSize != nil && *c.WindowSize < 2 {
		return fmt.Errorf("window_size must be at least 2, got %d", *c.WindowSize)
	}
	if c.ThresholdMultiplier != nil && *c.ThresholdMultiplier <= 0 {
		return fmt.Errorf("threshold_multiplier must be positive, got %f", *c.ThresholdMultiplier)
	}
	if c.DebounceTicks != nil && *c.DebounceTicks < 0 {
		return fmt.Errorf("debounce_ticks must be non-negative, got %d", *c.DebounceTicks)
	}
	if c.CalibrationMinSamples != nil && *c.CalibrationMinSamples < 2 {
		return fmt.Errorf("calibration_min_samples must be at least 2, got %d", *c.CalibrationMinSamples)
	}
	if c.CalibrationDuration != nil && *c.CalibrationDuration != "" {
		if _, err := time.ParseDuration(*c.CalibrationDuration); err != nil {
			return fmt.Errorf("invalid calibration_duration %q: %w", *c.CalibrationDuration, err)
		}
	}
	if c.SubcarrierCount != nil && *c.SubcarrierCount < 0 {
		return fmt.Errorf("subcarrier_count must be non-negative, got %d", *c.SubcarrierCount)
	}
	if c.PairOrder != nil {
		switch *c.PairOrder {
		case PairOrderImagReal, PairOrderRealImag:
		default:
			return fmt.Errorf("pair_order must be %q or %q, got %q", PairOrderImagReal, PairOrderRealImag, *c.PairOrder)
		}
	}
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	return nil
}

// GetWindowSize returns the rolling window capacity in samples.
func (c *Config) GetWindowSize() int {
	if c.WindowSize == nil {
		return 100
	}
	return *c.WindowSize
}

// GetThresholdMultiplier returns the calibration threshold multiplier.
// Separates stable-signal variance from movement-induced variance.
func (c *Config) GetThresholdMultiplier() float64 {
	if c.ThresholdMultiplier == nil {
		return 3.0
	}
	return *c.ThresholdMultiplier
}

// GetDebounceTicks returns the consecutive-tick count required before the
// reported presence state flips. Zero disables debouncing.
func (c *Config) GetDebounceTicks() int {
	if c.DebounceTicks == nil {
		return 0
	}
	return *c.DebounceTicks
}

// GetStrictFullWindow reports whether detection requires a full window.
func (c *Config) GetStrictFullWindow() bool {
	if c.StrictFullWindow == nil {
		return false
	}
	return *c.StrictFullWindow
}

// GetCalibrationMinSamples returns the minimum valid sample count for
// calibration.
func (c *Config) GetCalibrationMinSamples() int {
	if c.CalibrationMinSamples == nil {
		return 30
	}
	return *c.CalibrationMinSamples
}

// GetCalibrationDuration parses and returns the calibration collection
// duration.
func (c *Config) GetCalibrationDuration() time.Duration {
	if c.CalibrationDuration == nil || *c.CalibrationDuration == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(*c.CalibrationDuration)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetSubcarrierCount returns the expected subcarrier count, or 0 to pin it
// from the first valid frame.
func (c *Config) GetSubcarrierCount() int {
	if c.SubcarrierCount == nil {
		return 0
	}
	return *c.SubcarrierCount
}

// GetPairOrder returns the complex component interleaving of the payload.
func (c *Config) GetPairOrder() string {
	if c.PairOrder == nil {
		return PairOrderImagReal
	}
	return *c.PairOrder
}

// GetSpectralFeatures reports whether frequency-domain features are computed.
func (c *Config) GetSpectralFeatures() bool {
	if c.SpectralFeatures == nil {
		return true
	}
	return *c.SpectralFeatures
}

// GetSerialPort returns the serial device path.
func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return "/dev/ttyUSB0"
	}
	return *c.SerialPort
}

// GetBaudRate returns the serial baud rate. The ESP32 CSI firmware streams
// at 921600 to sustain high sample rates.
func (c *Config) GetBaudRate() int {
	if c.BaudRate == nil {
		return 921600
	}
	return *c.BaudRate
}

// GetModelPath returns the activity model path, or "" when no classifier is
// configured.
func (c *Config) GetModelPath() string {
	if c.ModelPath == nil {
		return ""
	}
	return *c.ModelPath
}

// GetOutputCSV returns the decision record sink path, or "" to disable the
// sink.
func (c *Config) GetOutputCSV() string {
	if c.OutputCSV == nil {
		return ""
	}
	return *c.OutputCSV
}
