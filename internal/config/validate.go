package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-terrain/internal/terrain/clipmap"
	"github.com/Faultbox/midgard-terrain/internal/terrain/geometry"
	"github.com/Faultbox/midgard-terrain/internal/terrain/heightfield"
)

var (
	// ErrInvalid is wrapped by every validation failure.
	ErrInvalid = errors.New("invalid config")
	// ErrUnknownMode is returned for a terrain mode other than clipmap or mipmap.
	ErrUnknownMode = errors.New("unknown terrain mode")
)

// Validate checks the settings a terrain cannot be built from and returns the first
// problem found.
func (c *Config) Validate() error {
	t := c.Terrain
	switch t.Mode {
	case ModeClipmap:
		if !geometry.ValidGridSize(t.GridSize) {
			return fmt.Errorf("%w: terrain.grid_size %d: %w", ErrInvalid, t.GridSize, geometry.ErrGridSize)
		}
		if t.Levels < 1 || t.Levels > clipmap.MaxLevels {
			return fmt.Errorf("%w: terrain.levels %d: %w", ErrInvalid, t.Levels, clipmap.ErrLevelCount)
		}
	case ModeMipmap:
		if !geometry.ValidPatchSize(t.PatchSize) {
			return fmt.Errorf("%w: terrain.patch_size %d: %w", ErrInvalid, t.PatchSize, geometry.ErrPatchSize)
		}
	default:
		return fmt.Errorf("%w: terrain.mode %q: %w", ErrInvalid, t.Mode, ErrUnknownMode)
	}
	if t.Tau <= 0 {
		return fmt.Errorf("%w: terrain.tau must be positive, got %v", ErrInvalid, t.Tau)
	}
	if t.RegenBudget < 0 {
		return fmt.Errorf("%w: terrain.regen_budget is negative", ErrInvalid)
	}

	if err := c.HeightMap.validate(); err != nil {
		return err
	}
	if t.Mode == ModeMipmap && c.HeightMap.Source == SourceGenerate {
		span := t.PatchSize - 1
		if (c.HeightMap.Width-1)%span != 0 || (c.HeightMap.Height-1)%span != 0 {
			return fmt.Errorf("%w: %dx%d height map is not a whole number of %d-vertex patches: %w",
				ErrInvalid, c.HeightMap.Width, c.HeightMap.Height, t.PatchSize, geometry.ErrPatchSize)
		}
	}

	g := c.Graphics
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: graphics size %dx%d", ErrInvalid, g.Width, g.Height)
	}
	if g.FOV <= 0 || g.FOV >= 180 {
		return fmt.Errorf("%w: graphics.fov %v out of (0, 180)", ErrInvalid, g.FOV)
	}
	if g.Near <= 0 || g.Far <= g.Near {
		return fmt.Errorf("%w: graphics clip planes near=%v far=%v", ErrInvalid, g.Near, g.Far)
	}
	if g.SunElevation <= 0 || g.SunElevation > 90 {
		return fmt.Errorf("%w: graphics.sun_elevation %v out of (0, 90]", ErrInvalid, g.SunElevation)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	return nil
}

func (h HeightMapConfig) validate() error {
	switch h.Source {
	case SourceGenerate:
		if h.Width < 2 || h.Height < 2 {
			return fmt.Errorf("%w: heightmap size %dx%d: %w", ErrInvalid, h.Width, h.Height, heightfield.ErrInvalidDimensions)
		}
		if h.Octaves < 1 || h.Frequency <= 0 {
			return fmt.Errorf("%w: heightmap noise octaves=%d frequency=%v", ErrInvalid, h.Octaves, h.Frequency)
		}
	case SourceFile:
		if h.Path == "" {
			return fmt.Errorf("%w: heightmap.path is required for source %q", ErrInvalid, h.Source)
		}
		switch heightfield.Format(h.Format) {
		case heightfield.FormatAuto, heightfield.FormatImage, heightfield.FormatR16, heightfield.FormatR32:
		default:
			return fmt.Errorf("%w: heightmap.format %q: %w", ErrInvalid, h.Format, heightfield.ErrUnsupportedFormat)
		}
	default:
		return fmt.Errorf("%w: heightmap.source %q", ErrInvalid, h.Source)
	}
	if h.HeightScale <= 0 {
		return fmt.Errorf("%w: heightmap.height_scale must be positive, got %v", ErrInvalid, h.HeightScale)
	}
	return nil
}
