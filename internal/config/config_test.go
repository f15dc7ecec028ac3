package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/midgard-terrain/internal/terrain/geometry"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Terrain.Mode != ModeClipmap {
		t.Errorf("expected mode clipmap, got %s", cfg.Terrain.Mode)
	}
	if cfg.Terrain.GridSize != 255 {
		t.Errorf("expected grid size 255, got %d", cfg.Terrain.GridSize)
	}
	if cfg.Terrain.PatchSize != 33 {
		t.Errorf("expected patch size 33, got %d", cfg.Terrain.PatchSize)
	}
	if cfg.Terrain.RegenBudget != 4*time.Millisecond {
		t.Errorf("expected regen budget 4ms, got %v", cfg.Terrain.RegenBudget)
	}

	if cfg.HeightMap.Source != SourceGenerate {
		t.Errorf("expected generated height map, got %s", cfg.HeightMap.Source)
	}

	if cfg.Graphics.Width != 1280 || cfg.Graphics.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
	}
	if !cfg.Graphics.VSync {
		t.Error("expected vsync to be true by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}

	// Mipmap defaults must fit the default height map too.
	cfg.Terrain.Mode = ModeMipmap
	if err := cfg.Validate(); err != nil {
		t.Errorf("mipmap defaults do not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "terrain.yaml")

	yamlContent := `
terrain:
  mode: mipmap
  patch_size: 65
  tau: 1.5
  regen_budget: 10ms

heightmap:
  source: file
  path: maps/ridge.r16
  format: r16
  width: 1025
  height: 1025
  height_scale: 800

graphics:
  width: 1920
  height: 1080
  fullscreen: true
  wireframe: true

camera:
  speed: 50
  start: [10, 20, 30]

logging:
  level: "debug"
  log_file: "terrain.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Terrain.Mode != ModeMipmap || cfg.Terrain.PatchSize != 65 {
		t.Errorf("terrain = %+v", cfg.Terrain)
	}
	if cfg.Terrain.Tau != 1.5 {
		t.Errorf("expected tau 1.5, got %v", cfg.Terrain.Tau)
	}
	if cfg.Terrain.RegenBudget != 10*time.Millisecond {
		t.Errorf("expected regen budget 10ms, got %v", cfg.Terrain.RegenBudget)
	}
	// Keys missing from the file keep their defaults.
	if cfg.Terrain.GridSize != 255 {
		t.Errorf("expected default grid size, got %d", cfg.Terrain.GridSize)
	}

	if cfg.HeightMap.Source != SourceFile || cfg.HeightMap.Path != "maps/ridge.r16" || cfg.HeightMap.Format != "r16" {
		t.Errorf("heightmap = %+v", cfg.HeightMap)
	}
	if cfg.HeightMap.HeightScale != 800 {
		t.Errorf("expected height scale 800, got %v", cfg.HeightMap.HeightScale)
	}

	if !cfg.Graphics.Fullscreen || !cfg.Graphics.Wireframe {
		t.Error("expected fullscreen and wireframe")
	}
	if cfg.Camera.Start != [3]float32{10, 20, 30} {
		t.Errorf("expected start [10 20 30], got %v", cfg.Camera.Start)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "terrain.log" {
		t.Errorf("expected log file 'terrain.log', got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config does not validate: %v", err)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad syntax", "graphics:\n  width: not a number\n  invalid syntax here\n"},
		{"unknown key", "terrain:\n  grid_sise: 255\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty file: %v", err)
	}
	if cfg.Terrain.GridSize != 255 {
		t.Errorf("empty file changed grid size to %d", cfg.Terrain.GridSize)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/terrain.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"unknown mode", func(c *Config) { c.Terrain.Mode = "quadtree" }, ErrUnknownMode},
		{"grid size not 2^k-1", func(c *Config) { c.Terrain.GridSize = 256 }, geometry.ErrGridSize},
		{"no levels", func(c *Config) { c.Terrain.Levels = 0 }, ErrInvalid},
		{"patch size not 2^k+1", func(c *Config) {
			c.Terrain.Mode = ModeMipmap
			c.Terrain.PatchSize = 32
		}, geometry.ErrPatchSize},
		{"height map not whole patches", func(c *Config) {
			c.Terrain.Mode = ModeMipmap
			c.HeightMap.Width = 1000
		}, geometry.ErrPatchSize},
		{"zero tau", func(c *Config) { c.Terrain.Tau = 0 }, ErrInvalid},
		{"file without path", func(c *Config) { c.HeightMap.Source = SourceFile }, ErrInvalid},
		{"unknown format", func(c *Config) {
			c.HeightMap.Source = SourceFile
			c.HeightMap.Path = "a.exr"
			c.HeightMap.Format = "exr"
		}, ErrInvalid},
		{"unknown source", func(c *Config) { c.HeightMap.Source = "network" }, ErrInvalid},
		{"tiny height map", func(c *Config) { c.HeightMap.Width = 1 }, ErrInvalid},
		{"far before near", func(c *Config) { c.Graphics.Far = 0.5 }, ErrInvalid},
		{"fov", func(c *Config) { c.Graphics.FOV = 180 }, ErrInvalid},
		{"sun below horizon", func(c *Config) { c.Graphics.SunElevation = 0 }, ErrInvalid},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile("terrain.yaml", []byte("graphics:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find terrain.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "mode flag",
			setup: func() { *flagMode = ModeMipmap },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Terrain.Mode != ModeMipmap {
					t.Errorf("expected mipmap, got %s", cfg.Terrain.Mode)
				}
			},
			teardown: func() { *flagMode = "" },
		},
		{
			name:  "heightmap flag",
			setup: func() { *flagHeightMap = "island.png" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.HeightMap.Source != SourceFile || cfg.HeightMap.Path != "island.png" {
					t.Errorf("heightmap = %+v", cfg.HeightMap)
				}
			},
			teardown: func() { *flagHeightMap = "" },
		},
		{
			name: "seed and tau flags",
			setup: func() {
				*flagSeed = 42
				*flagTau = 4
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.HeightMap.Seed != 42 || cfg.Terrain.Tau != 4 {
					t.Errorf("seed=%d tau=%v", cfg.HeightMap.Seed, cfg.Terrain.Tau)
				}
			},
			teardown: func() {
				*flagSeed = 0
				*flagTau = 0
			},
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Width != 2560 || cfg.Graphics.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "terrain.yaml")

	yamlContent := `
graphics:
  width: 1600
  height: 900
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width from flag, height from file
	if cfg.Graphics.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Graphics.Width)
	}
	if cfg.Graphics.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Graphics.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "terrain.yaml")
	if err := os.WriteFile(configPath, []byte("terrain:\n  grid_size: 100\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(configPath); !errors.Is(err, geometry.ErrGridSize) {
		t.Errorf("LoadFile() = %v, want ErrGridSize", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "terrain.yaml")

	cfg := Default()
	cfg.Terrain.Mode = ModeMipmap
	cfg.Terrain.RegenBudget = 7 * time.Millisecond
	cfg.Camera.Start = [3]float32{1, 2, 3}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Terrain != cfg.Terrain || got.Camera != cfg.Camera || got.HeightMap != cfg.HeightMap {
		t.Errorf("round trip changed config:\n got %+v\nwant %+v", got, cfg)
	}
}
