package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagMode       = flag.String("mode", "", "Terrain mode: clipmap or mipmap")
	flagHeightMap  = flag.String("heightmap", "", "Height map file (png, bmp, tiff, r16, r32)")
	flagSeed       = flag.Int64("seed", 0, "Noise seed for generated terrain")
	flagTau        = flag.Float64("tau", 0, "Allowed screen-space error in pixels")
	flagWireframe  = flag.Bool("wireframe", false, "Start in wireframe mode")
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
	if *flagMode != "" {
		cfg.Terrain.Mode = *flagMode
	}
	if *flagHeightMap != "" {
		cfg.HeightMap.Source = SourceFile
		cfg.HeightMap.Path = *flagHeightMap
	}
	if *flagSeed != 0 {
		cfg.HeightMap.Seed = *flagSeed
	}
	if *flagTau > 0 {
		cfg.Terrain.Tau = float32(*flagTau)
	}
	if *flagWireframe {
		cfg.Graphics.Wireframe = true
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
