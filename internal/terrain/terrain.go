// Package terrain defines the services terrain renderers consume and expose, and the
// capability interfaces the clipmap and mipmap drivers implement.
package terrain

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
)

// HeightMap is the elevation source a driver renders.
type HeightMap interface {
	Width() int
	Height() int
	Sample(x, y int) float32
	Interpolate(x, y float32) float32
	Position(x, y int) mgl32.Vec3
}

// Normals is the per-sample normal source matching a HeightMap.
type Normals interface {
	Normal(x, y int) mgl32.Vec3
}

// Camera is the view a driver selects detail and culls against.
type Camera interface {
	Position() mgl32.Vec3
	ProjectionNear() float32
	ProjectionTop() float32
	ViewportHeight() int
	View() mgl32.Mat4
	Projection() mgl32.Mat4
	Frustum() camera.Frustum
}

// Service answers height and normal queries for collocated systems such as physics.
type Service interface {
	// HeightAndNormalAt returns the surface height and unit normal under each (x, z) point.
	HeightAndNormalAt(points []mgl32.Vec2) ([]float32, []mgl32.Vec3)
}

// Updatable advances per-frame state for a viewer position.
type Updatable interface {
	Update(viewer mgl32.Vec3) error
}

// Drawable issues the draw calls for the current frame.
type Drawable interface {
	Draw() error
}

// BoundsProvider reports world-space extents.
type BoundsProvider interface {
	Bounds() camera.AABB
}

// Driver is a complete terrain renderer.
type Driver interface {
	Updatable
	Drawable
	BoundsProvider
	Service

	// SetTau sets the allowed screen-space error in pixels.
	SetTau(tau float32) error
	Stats() Stats
	Close()
}

// Stats describes the most recent Update and Draw.
type Stats struct {
	DrawCalls int
	Culled    int
	Triangles int

	// Clipmap
	Recenters   int
	Regenerated int
	ActiveLevel int

	// Mipmap
	Tiers     []int // patches per active tier
	Reconcile int   // reconciliation passes

	RegenTime time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("draws=%d culled=%d tris=%d recenters=%d regen=%d (%v) active=%d tiers=%v passes=%d",
		s.DrawCalls, s.Culled, s.Triangles, s.Recenters, s.Regenerated, s.RegenTime,
		s.ActiveLevel, s.Tiers, s.Reconcile)
}
