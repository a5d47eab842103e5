package visilearn

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Config holds the run-start parameters of a training run. It is validated
// once and not modified afterwards.
type Config struct {
	Binning Binning `json:"binning"`

	// WindowSize is the odd side length of the correlation window.
	WindowSize int `json:"window_size"`
	// Smoothing is the additive term applied to every bin by Normalize.
	Smoothing float64 `json:"smoothing"`

	// A pixel takes part in learning when its mask value is above
	// MaskThreshold and counts as visible when its ground-truth value is
	// above VisibilityThreshold.
	MaskThreshold       float32 `json:"mask_threshold"`
	VisibilityThreshold float32 `json:"visibility_threshold"`

	CollectSamples bool `json:"collect_samples"`
	SampleCapacity int  `json:"sample_capacity"`

	// Workers bounds the number of example sets processed concurrently.
	Workers int `json:"workers"`
}

// DefaultConfig returns the parameters of the reference pipeline.
func DefaultConfig() Config {
	return Config{
		Binning:             DefaultBinning(),
		WindowSize:          11,
		Smoothing:           0.1,
		MaskThreshold:       128,
		VisibilityThreshold: 128,
		CollectSamples:      false,
		SampleCapacity:      300000,
		Workers:             1,
	}
}

func (c Config) Validate() error {
	if err := c.Binning.Validate(); err != nil {
		return fmt.Errorf("binning: %w", err)
	}
	if c.WindowSize < 1 || c.WindowSize%2 == 0 {
		return fmt.Errorf("window_size must be a positive odd number, got %d", c.WindowSize)
	}
	if !(c.Smoothing > 0) || math.IsInf(c.Smoothing, 1) {
		return fmt.Errorf("smoothing: %w, got %g", ErrInvalidSmoothing, c.Smoothing)
	}
	if c.SampleCapacity < 0 {
		return fmt.Errorf("sample_capacity must be >= 0, got %d", c.SampleCapacity)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	return nil
}

// LoadConfig reads a JSON config. Fields missing from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
