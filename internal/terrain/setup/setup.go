// Package setup turns a configuration into a height field and a running terrain driver.
package setup

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/lighting"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/internal/terrain/clipmap"
	"github.com/Faultbox/midgard-terrain/internal/terrain/heightfield"
	"github.com/Faultbox/midgard-terrain/internal/terrain/mipmap"
	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
)

// Scene is a loaded height field with its normals and the driver rendering it.
type Scene struct {
	Field   *heightfield.Field
	Normals *heightfield.NormalField
	Driver  terrain.Driver
}

// HeightField generates or loads the elevation data described by cfg.
func HeightField(cfg config.HeightMapConfig) (*heightfield.Field, error) {
	switch cfg.Source {
	case config.SourceGenerate:
		return heightfield.Generate(cfg.Width, cfg.Height, heightfield.NoiseParams{
			Seed:      cfg.Seed,
			Octaves:   cfg.Octaves,
			Alpha:     cfg.Alpha,
			Beta:      cfg.Beta,
			Frequency: cfg.Frequency,
			Scale:     cfg.HeightScale,
		})
	case config.SourceFile:
		return heightfield.LoadFile(cfg.Path, heightfield.LoadOptions{
			Format: heightfield.Format(cfg.Format),
			Width:  cfg.Width,
			Height: cfg.Height,
			Scale:  cfg.HeightScale,
		})
	default:
		return nil, fmt.Errorf("%w: heightmap.source %q", config.ErrInvalid, cfg.Source)
	}
}

// NewDriver creates the driver cfg.Terrain.Mode names over an existing height field.
func NewDriver(dev render.Device, cam terrain.Camera, cfg *config.Config, f *heightfield.Field, n *heightfield.NormalField, log *zap.Logger) (terrain.Driver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := cfg.Terrain
	sun := lighting.SunDirection(cfg.Graphics.SunAzimuth, cfg.Graphics.SunElevation)
	switch t.Mode {
	case config.ModeClipmap:
		c := clipmap.DefaultConfig()
		c.GridSize = t.GridSize
		c.Levels = t.Levels
		c.Tau = t.Tau
		c.RegenBudget = t.RegenBudget
		c.LightDir = sun
		c.Wireframe = cfg.Graphics.Wireframe
		c.Logger = log.Named("clipmap")
		d, err := clipmap.New(dev, cam, f, n, c)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.ModeMipmap:
		c := mipmap.DefaultConfig()
		c.PatchSize = t.PatchSize
		c.Tau = t.Tau
		c.LightDir = sun
		c.Wireframe = cfg.Graphics.Wireframe
		c.Logger = log.Named("mipmap")
		d, err := mipmap.New(dev, cam, f, n, c)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownMode, t.Mode)
	}
}

// Build loads the height field, derives its normals and creates the driver.
func Build(dev render.Device, cam terrain.Camera, cfg *config.Config, log *zap.Logger) (*Scene, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()
	f, err := HeightField(cfg.HeightMap)
	if err != nil {
		return nil, fmt.Errorf("height field: %w", err)
	}
	n := heightfield.NewNormalField(f)
	lo, hi := f.MinMax()
	log.Info("height field ready",
		zap.String("source", cfg.HeightMap.Source),
		zap.Int("width", f.Width()),
		zap.Int("height", f.Height()),
		zap.Float32("min", lo),
		zap.Float32("max", hi),
		zap.Duration("took", time.Since(start)))

	d, err := NewDriver(dev, cam, cfg, f, n, log)
	if err != nil {
		return nil, fmt.Errorf("%s terrain: %w", cfg.Terrain.Mode, err)
	}
	return &Scene{Field: f, Normals: n, Driver: d}, nil
}
