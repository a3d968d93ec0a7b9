package config

import (
	"flag"
	"strings"
)

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagAssets     = flag.String("assets", "", "Model directory, or base URL when it starts with http:// or https://")
	flagWatch      = flag.Bool("watch", false, "Reload models when files in the assets directory change")
	flagCount      = flag.Int("count", 0, "Particle count")
	flagSeed       = flag.Uint64("seed", 0, "Random seed (0 = random)")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagAssets != "" {
		cfg.Assets.SetLocation(*flagAssets)
	}
	if *flagWatch {
		cfg.Assets.Watch = true
	}
	if *flagCount > 0 {
		cfg.Morph.ParticleCount = *flagCount
	}
	if *flagSeed != 0 {
		cfg.Morph.Seed = *flagSeed
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
}

// SetLocation points the assets at a base URL when loc starts with http://
// or https:// and at a local directory otherwise.
func (a *AssetsConfig) SetLocation(loc string) {
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		a.BaseURL = loc
		return
	}
	a.BaseURL = ""
	a.Dir = loc
}
