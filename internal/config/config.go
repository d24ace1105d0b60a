package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/menta2k/parallel-crop/pkg/codec"
	"github.com/menta2k/parallel-crop/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Engine EngineConfig `json:"engine"`
	Crop   CropConfig   `json:"crop"`
	Output OutputConfig `json:"output"`
	Log    LogConfig    `json:"log"`
}

// EngineConfig selects the worker count and codec backend
type EngineConfig struct {
	Workers int    `json:"workers"`
	Backend string `json:"backend"`
}

// CropConfig holds the per-batch crop settings
type CropConfig struct {
	WindowSize      int     `json:"window_size"`
	Channels        int     `json:"channels"`
	MaxCropFraction float32 `json:"max_crop_fraction"`
}

// OutputConfig holds configuration for tile and tensor output
type OutputConfig struct {
	OutputDir  string `json:"output_dir"`
	TileFormat string `json:"tile_format"`
	Quality    int    `json:"quality"`
	Lossless   bool   `json:"lossless"`
	Prefix     string `json:"prefix"`
	Suffix     string `json:"suffix"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Workers: 0,
			Backend: string(codec.BackendImaging),
		},
		Crop: CropConfig{
			WindowSize:      32,
			Channels:        3,
			MaxCropFraction: 0.25,
		},
		Output: OutputConfig{
			OutputDir:  "./output",
			TileFormat: "png",
			Quality:    90,
			Lossless:   false,
			Prefix:     "",
			Suffix:     "_crop",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Missing fields keep
// their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// FromEnv returns the defaults overlaid with environment overrides
func FromEnv() (*Config, error) {
	c := Default()
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overlays PARALLELCROP_* variables read through getenv
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PARALLELCROP_WORKERS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PARALLELCROP_WORKERS: %w", err)
		}
		c.Engine.Workers = n
	}
	if v := getenv("PARALLELCROP_BACKEND"); v != "" {
		c.Engine.Backend = v
	}
	if v := getenv("PARALLELCROP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PARALLELCROP_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative")
	}

	if _, err := codec.ParseBackend(c.Engine.Backend); err != nil {
		return fmt.Errorf("engine.backend: %w", err)
	}

	if c.Crop.Channels < 0 {
		return fmt.Errorf("crop.channels must be 1 or 3")
	}
	if err := c.CropSettings().Validate(); err != nil {
		return fmt.Errorf("crop: %w", err)
	}

	switch strings.ToLower(c.Output.TileFormat) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("output.tile_format must be png, jpg or webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// Backend returns the parsed codec backend
func (c *Config) Backend() codec.Backend {
	b, err := codec.ParseBackend(c.Engine.Backend)
	if err != nil {
		return codec.BackendImaging
	}
	return b
}

// CropSettings converts the crop section into engine settings
func (c *Config) CropSettings() types.CropConfig {
	return types.CropConfig{
		WindowSize:      c.Crop.WindowSize,
		Channels:        types.Channels(c.Crop.Channels),
		MaxCropFraction: c.Crop.MaxCropFraction,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "parallel-crop", "config.json")
}
