package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/parallel-crop/pkg/codec"
	"github.com/menta2k/parallel-crop/pkg/types"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, codec.BackendImaging, c.Backend())
	assert.Equal(t, types.CropConfig{WindowSize: 32, Channels: types.RGB, MaxCropFraction: 0.25}, c.CropSettings())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Engine.Workers = -1 }},
		{"unknown backend", func(c *Config) { c.Engine.Backend = "opencv" }},
		{"zero window", func(c *Config) { c.Crop.WindowSize = 0 }},
		{"two channels", func(c *Config) { c.Crop.Channels = 2 }},
		{"negative channels", func(c *Config) { c.Crop.Channels = -3 }},
		{"max fraction above one", func(c *Config) { c.Crop.MaxCropFraction = 1.5 }},
		{"tile format", func(c *Config) { c.Output.TileFormat = "gif" }},
		{"quality", func(c *Config) { c.Output.Quality = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	c := Default()
	c.Engine.Workers = 6
	c.Engine.Backend = "vips"
	c.Crop.Channels = 1
	require.NoError(t, c.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
	assert.Equal(t, codec.BackendVips, loaded.Backend())
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"crop":{"window_size":64}}`), 0o644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 64, c.Crop.WindowSize)
	assert.Equal(t, 3, c.Crop.Channels)
	assert.Equal(t, "png", c.Output.TileFormat)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PARALLELCROP_WORKERS":    "3",
		"PARALLELCROP_BACKEND":    "vips",
		"PARALLELCROP_LOG_LEVEL":  "debug",
		"PARALLELCROP_LOG_FORMAT": "text",
	}
	c := Default()
	require.NoError(t, c.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, 3, c.Engine.Workers)
	assert.Equal(t, "vips", c.Engine.Backend)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "text", c.Log.Format)

	env["PARALLELCROP_WORKERS"] = "many"
	assert.Error(t, Default().ApplyEnv(func(k string) string { return env[k] }))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PARALLELCROP_WORKERS", "2")
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2, c.Engine.Workers)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.json", filepath.Base(GetConfigPath()))
}
