// Package config handles terrain viewer configuration loading and validation.
package config

import "time"

// Terrain modes.
const (
	ModeClipmap = "clipmap"
	ModeMipmap  = "mipmap"
)

// Height map sources.
const (
	SourceGenerate = "generate"
	SourceFile     = "file"
)

// Config holds all settings.
type Config struct {
	Terrain   TerrainConfig   `yaml:"terrain"`
	HeightMap HeightMapConfig `yaml:"heightmap"`
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Camera    CameraConfig    `yaml:"camera"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TerrainConfig selects the LOD strategy and its sizes.
type TerrainConfig struct {
	Mode        string        `yaml:"mode"`         // clipmap or mipmap
	GridSize    int           `yaml:"grid_size"`    // clipmap N, 2^k - 1
	Levels      int           `yaml:"levels"`       // clipmap level count
	PatchSize   int           `yaml:"patch_size"`   // mipmap P, 2^k + 1
	Tau         float32       `yaml:"tau"`          // screen-space error in pixels
	RegenBudget time.Duration `yaml:"regen_budget"` // warn when a texture update takes longer
}

// HeightMapConfig describes where elevation comes from.
type HeightMapConfig struct {
	Source      string  `yaml:"source"` // generate or file
	Path        string  `yaml:"path"`
	Format      string  `yaml:"format"` // "", image, r16, r32
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	HeightScale float32 `yaml:"height_scale"`

	// Noise parameters for generated terrain.
	Seed      int64   `yaml:"seed"`
	Octaves   int32   `yaml:"octaves"`
	Alpha     float64 `yaml:"alpha"`
	Beta      float64 `yaml:"beta"`
	Frequency float64 `yaml:"frequency"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Fullscreen bool    `yaml:"fullscreen"`
	VSync      bool    `yaml:"vsync"`
	FOV        float32 `yaml:"fov"` // vertical, degrees
	Near       float32 `yaml:"near"`
	Far        float32 `yaml:"far"`
	Wireframe  bool    `yaml:"wireframe"`

	// Sun position in degrees: azimuth around the up axis, elevation above the horizon.
	SunAzimuth   float32 `yaml:"sun_azimuth"`
	SunElevation float32 `yaml:"sun_elevation"`
}

// CameraConfig holds fly camera settings.
type CameraConfig struct {
	Speed        float32    `yaml:"speed"` // world units per second
	Start        [3]float32 `yaml:"start"`
	FollowGround bool       `yaml:"follow_ground"`
	EyeHeight    float32    `yaml:"eye_height"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Terrain: TerrainConfig{
			Mode:        ModeClipmap,
			GridSize:    255,
			Levels:      6,
			PatchSize:   33,
			Tau:         2,
			RegenBudget: 4 * time.Millisecond,
		},
		HeightMap: HeightMapConfig{
			Source:      SourceGenerate,
			Width:       1025,
			Height:      1025,
			HeightScale: 200,
			Seed:        1,
			Octaves:     6,
			Alpha:       2,
			Beta:        2,
			Frequency:   0.004,
		},
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FOV:        60,
			Near:       1,
			Far:        20000,

			SunAzimuth:   135,
			SunElevation: 40,
		},
		Camera: CameraConfig{
			Speed:     200,
			Start:     [3]float32{512, 300, 512},
			EyeHeight: 2,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
