// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override read by LoadConfig.
const EnvPrefix = "AUDVOX_"

const (
	DefaultUpdateRate = 200
	maxUpdateRate     = 10000
)

// Config holds the tunables of a Device.
type Config struct {
	// UpdateRate is the maintenance tick frequency in Hz. Zero disables the
	// background goroutine; the caller then drives Device.Tick itself.
	UpdateRate int `yaml:"update_rate"`
	// DopplerScale multiplies every voice's doppler factor.
	DopplerScale float32 `yaml:"doppler_scale"`
	// Device selects the output device whose name contains this string.
	// Empty means the default game device.
	Device string `yaml:"device"`
	// StreamChunkBytes is the buffer size used by streams opened through the
	// engine helpers.
	StreamChunkBytes int     `yaml:"stream_chunk_bytes"`
	MasterVolume     float32 `yaml:"master_volume"`
}

func DefaultConfig() Config {
	return Config{
		UpdateRate:       DefaultUpdateRate,
		DopplerScale:     1,
		StreamChunkBytes: 32768,
		MasterVolume:     1,
	}
}

// LoadConfig starts from DefaultConfig, applies the YAML file at path when it
// exists and finally the AUDVOX_* environment variables. An empty path skips
// the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "UPDATE_RATE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sUPDATE_RATE: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.UpdateRate = n
	}
	if v, ok := lookup(EnvPrefix + "DOPPLER_SCALE"); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%w: %sDOPPLER_SCALE: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.DopplerScale = float32(f)
	}
	if v, ok := lookup(EnvPrefix + "DEVICE"); ok {
		c.Device = v
	}
	if v, ok := lookup(EnvPrefix + "STREAM_CHUNK_BYTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sSTREAM_CHUNK_BYTES: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.StreamChunkBytes = n
	}
	if v, ok := lookup(EnvPrefix + "MASTER_VOLUME"); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%w: %sMASTER_VOLUME: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.MasterVolume = float32(f)
	}
	return nil
}

func (c Config) Validate() error {
	if c.UpdateRate < 0 || c.UpdateRate > maxUpdateRate {
		return fmt.Errorf("%w: update_rate %d out of range [0, %d]", ErrInvalidConfig, c.UpdateRate, maxUpdateRate)
	}
	if c.DopplerScale < 0 {
		return fmt.Errorf("%w: doppler_scale %v is negative", ErrInvalidConfig, c.DopplerScale)
	}
	if c.StreamChunkBytes <= 0 {
		return fmt.Errorf("%w: stream_chunk_bytes must be positive", ErrInvalidConfig)
	}
	if c.MasterVolume < 0 {
		return fmt.Errorf("%w: master_volume %v is negative", ErrInvalidConfig, c.MasterVolume)
	}
	return nil
}
