// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "audvox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 200, cfg.UpdateRate)
	assert.Equal(t, float32(1), cfg.DopplerScale)
	assert.Equal(t, float32(1), cfg.MasterVolume)
	assert.Empty(t, cfg.Device)
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
update_rate: 100
doppler_scale: 0.5
device: USB
master_volume: 0.8
`)
	t.Setenv("AUDVOX_UPDATE_RATE", "50")
	t.Setenv("AUDVOX_DEVICE", "HDMI")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.UpdateRate)
	assert.Equal(t, float32(0.5), cfg.DopplerScale)
	assert.Equal(t, "HDMI", cfg.Device)
	assert.Equal(t, float32(0.8), cfg.MasterVolume)
	assert.Equal(t, DefaultConfig().StreamChunkBytes, cfg.StreamChunkBytes)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "update_rate: [fast"))
		require.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "update_rate: -5"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("bad environment", func(t *testing.T) {
		t.Setenv("AUDVOX_MASTER_VOLUME", "loud")
		_, err := LoadConfig("")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"AUDVOX_UPDATE_RATE":        "400",
		"AUDVOX_DOPPLER_SCALE":      "0",
		"AUDVOX_STREAM_CHUNK_BYTES": "8192",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, 400, cfg.UpdateRate)
	assert.Zero(t, cfg.DopplerScale)
	assert.Equal(t, 8192, cfg.StreamChunkBytes)
	assert.Equal(t, float32(1), cfg.MasterVolume)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"manual ticking", func(c *Config) { c.UpdateRate = 0 }, true},
		{"negative rate", func(c *Config) { c.UpdateRate = -1 }, false},
		{"rate too high", func(c *Config) { c.UpdateRate = 20000 }, false},
		{"negative doppler", func(c *Config) { c.DopplerScale = -1 }, false},
		{"zero chunk", func(c *Config) { c.StreamChunkBytes = 0 }, false},
		{"negative volume", func(c *Config) { c.MasterVolume = -0.1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
