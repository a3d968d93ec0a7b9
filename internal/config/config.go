// Package config handles configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/pointmorph/internal/morph"
	"github.com/Faultbox/pointmorph/internal/pointcloud"
)

// Config holds all settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Morph    MorphConfig    `yaml:"morph"`
	Assets   AssetsConfig   `yaml:"assets"`
	Loader   LoaderConfig   `yaml:"loader"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Fullscreen bool    `yaml:"fullscreen"`
	VSync      bool    `yaml:"vsync"`
	PointSize  float32 `yaml:"point_size"`
}

// MorphConfig holds point cloud and animation settings.
type MorphConfig struct {
	ParticleCount int           `yaml:"particle_count"`
	ProgressStep  float32       `yaml:"progress_step"`  // Morph progress per tick
	TimeStep      float32       `yaml:"time_step"`      // Simulated seconds per tick
	PauseDuration float32       `yaml:"pause_duration"` // Simulated seconds between phases
	StartDelay    time.Duration `yaml:"start_delay"`    // Wall-clock wait after both models resolve
	RotationSpeed float32       `yaml:"rotation_speed"` // Radians per simulated second
	Seed          uint64        `yaml:"seed"`           // 0 picks a random seed
}

// AssetsConfig holds where the two models come from.
type AssetsConfig struct {
	BaseURL string      `yaml:"base_url"` // Fetch over HTTP when set
	Dir     string      `yaml:"dir"`      // Otherwise read from this directory
	Watch   bool        `yaml:"watch"`    // Reload models when files in Dir change
	Kingdom ModelConfig `yaml:"kingdom"`
	Museum  ModelConfig `yaml:"museum"`
}

// ModelConfig names a model asset and its sampling bias.
type ModelConfig struct {
	Name string          `yaml:"name"`
	Bias pointcloud.Bias `yaml:"bias"`
}

// LoaderConfig holds retry settings for model fetches.
type LoaderConfig struct {
	Attempts   int           `yaml:"attempts"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Timeout    time.Duration `yaml:"timeout"` // Per attempt, 0 disables
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			PointSize:  2.0,
		},
		Morph: MorphConfig{
			ParticleCount: pointcloud.DefaultCount,
			ProgressStep:  morph.DefaultProgressStep,
			TimeStep:      morph.DefaultTimeStep,
			PauseDuration: morph.DefaultPauseDuration,
			StartDelay:    time.Second,
			RotationSpeed: 0.3,
		},
		Assets: AssetsConfig{
			Dir: "assets",
			Kingdom: ModelConfig{
				Name: "kingdomcentre.glb",
				Bias: pointcloud.Bias{VerticalBoost: 1.4, HorizontalSuppression: 0.6, Jitter: 0.03},
			},
			Museum: ModelConfig{
				Name: "museumoffuture.glb",
				Bias: pointcloud.Bias{VerticalBoost: 1.0, HorizontalSuppression: 0.45, Jitter: 0.025},
			},
		},
		Loader: LoaderConfig{
			Attempts:   3,
			RetryDelay: 500 * time.Millisecond,
			Timeout:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks values that would break the morph cycle.
func (c *Config) Validate() error {
	switch {
	case c.Morph.ParticleCount <= 0:
		return fmt.Errorf("%w: morph.particle_count must be positive, got %d", ErrInvalidConfig, c.Morph.ParticleCount)
	case c.Morph.ProgressStep <= 0 || c.Morph.ProgressStep > 1:
		return fmt.Errorf("%w: morph.progress_step must be in (0, 1], got %g", ErrInvalidConfig, c.Morph.ProgressStep)
	case c.Morph.TimeStep <= 0:
		return fmt.Errorf("%w: morph.time_step must be positive, got %g", ErrInvalidConfig, c.Morph.TimeStep)
	case c.Morph.PauseDuration < 0:
		return fmt.Errorf("%w: morph.pause_duration must not be negative, got %g", ErrInvalidConfig, c.Morph.PauseDuration)
	case c.Loader.Attempts < 1:
		return fmt.Errorf("%w: loader.attempts must be at least 1, got %d", ErrInvalidConfig, c.Loader.Attempts)
	case c.Loader.RetryDelay < 0:
		return fmt.Errorf("%w: loader.retry_delay must not be negative, got %s", ErrInvalidConfig, c.Loader.RetryDelay)
	case c.Assets.Kingdom.Name == "" || c.Assets.Museum.Name == "":
		return fmt.Errorf("%w: both assets.kingdom.name and assets.museum.name are required", ErrInvalidConfig)
	}
	return nil
}
