package clipmap

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/internal/terrain/geometry"
	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
)

// Level is one nested grid of the clipmap. Levels live in the driver's arena, finest
// first; Finer and Coarser are arena indices, -1 when absent.
type Level struct {
	Index   int
	Spacing int // world units between grid vertices, 2^Index

	// PositionMin is the world (x, z) of grid vertex (0, 0). It is always a multiple of
	// 2*Spacing.
	PositionMin [2]int

	Finer, Coarser int

	// Trim is the interior trim drawn around the finer level.
	Trim   geometry.Trim
	Active bool

	size, block int
	placed      bool
	dirty       bool

	elevation render.TextureID
	normals   render.TextureID
	elevData  []float32 // own height, coarser height
	normData  []float32 // own normal xz, coarser normal xz

	bounds      camera.AABB
	blockBounds map[geometry.Origin]camera.AABB
}

func newLevel(index, size, block int) *Level {
	return &Level{
		Index:       index,
		Spacing:     1 << index,
		Finer:       index - 1,
		Coarser:     -1,
		size:        size,
		block:       block,
		elevData:    make([]float32, 2*size*size),
		normData:    make([]float32, 4*size*size),
		bounds:      camera.EmptyAABB(),
		blockBounds: make(map[geometry.Origin]camera.AABB),
	}
}

// CentralSquare returns the grid-space window the viewer may move in without the level
// re-centering, inclusive at both ends.
func CentralSquare(blockSize int) (lo, hi float32) {
	return float32(2*blockSize - 2), float32(2 * blockSize)
}

// RecenterDelta returns the grid-unit shift that brings a viewer at grid coordinate u back
// to the level centre, or 0 when u is inside the central square. The shift is always even
// so the level stays on its coarser level's grid.
func RecenterDelta(u float32, blockSize int) int {
	lo, hi := CentralSquare(blockSize)
	if u >= lo && u <= hi {
		return 0
	}
	center := float32(2*blockSize - 1)
	return 2 * int(math.Round(float64(u-center)/2))
}

// snap rounds v to the nearest multiple of step.
func snap(v float32, step int) int {
	return int(math.Round(float64(v)/float64(step))) * step
}

// Grid returns the viewer position in this level's grid units.
func (l *Level) Grid(viewer mgl32.Vec3) mgl32.Vec2 {
	s := float32(l.Spacing)
	return mgl32.Vec2{
		(viewer.X() - float32(l.PositionMin[0])) / s,
		(viewer.Z() - float32(l.PositionMin[1])) / s,
	}
}

// Bounds returns the world-space box of the level's current footprint.
func (l *Level) Bounds() camera.AABB {
	return l.bounds
}

// Placed reports whether the level has a position.
func (l *Level) Placed() bool {
	return l.placed
}

// ElevationTexture returns the level's elevation texture.
func (l *Level) ElevationTexture() render.TextureID {
	return l.elevation
}

// NormalTexture returns the level's normal texture.
func (l *Level) NormalTexture() render.TextureID {
	return l.normals
}

// Elevation returns the own and coarser heights stored for grid vertex (i, j).
func (l *Level) Elevation(i, j int) (own, coarser float32) {
	k := 2 * (j*l.size + i)
	return l.elevData[k], l.elevData[k+1]
}

// regenerate refills both textures for the current PositionMin. The coarser channels hold
// what the coarser level shows at each vertex: its own sample where the grids coincide and
// the average of the surrounding coarse samples elsewhere.
func (l *Level) regenerate(h terrain.HeightMap, n terrain.Normals, origins []geometry.Origin) {
	s := l.Spacing
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))

	var xs, zs [2]int
	for j := 0; j < l.size; j++ {
		wz := l.PositionMin[1] + j*s
		zs = coarse(wz, j, s)
		for i := 0; i < l.size; i++ {
			wx := l.PositionMin[0] + i*s
			xs = coarse(wx, i, s)

			own := h.Sample(wx, wz)
			var ch float32
			var cn mgl32.Vec3
			for _, cz := range zs {
				for _, cx := range xs {
					ch += h.Sample(cx, cz)
					cn = cn.Add(n.Normal(cx, cz))
				}
			}
			ch /= 4
			if cn.Len() > 1e-6 {
				cn = cn.Normalize()
			}
			on := n.Normal(wx, wz)

			k := j*l.size + i
			l.elevData[2*k] = own
			l.elevData[2*k+1] = ch
			l.normData[4*k] = on.X()
			l.normData[4*k+1] = on.Z()
			l.normData[4*k+2] = cn.X()
			l.normData[4*k+3] = cn.Z()

			lo = min(lo, own)
			hi = max(hi, own)
		}
	}

	extent := float32((l.size - 1) * s)
	x0, z0 := float32(l.PositionMin[0]), float32(l.PositionMin[1])
	l.bounds = camera.AABB{
		Min: mgl32.Vec3{x0, lo, z0},
		Max: mgl32.Vec3{x0 + extent, hi, z0 + extent},
	}
	for _, o := range origins {
		l.blockBounds[o] = l.regionBounds(o, l.block)
	}
	l.dirty = false
}

// coarse returns the two world coordinates of the coarse vertices around fine vertex i.
// Both are the vertex itself when i lies on the coarse grid.
func coarse(w, i, s int) [2]int {
	if i%2 == 0 {
		return [2]int{w, w}
	}
	return [2]int{w - s, w + s}
}

// regionBounds returns the box of a size x size vertex block at grid origin o.
func (l *Level) regionBounds(o geometry.Origin, size int) camera.AABB {
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for j := o.Y; j < o.Y+size && j < l.size; j++ {
		for i := o.X; i < o.X+size && i < l.size; i++ {
			h := l.elevData[2*(j*l.size+i)]
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	s := float32(l.Spacing)
	x0 := float32(l.PositionMin[0]) + float32(o.X)*s
	z0 := float32(l.PositionMin[1]) + float32(o.Y)*s
	extent := float32(size-1) * s
	return camera.AABB{
		Min: mgl32.Vec3{x0, lo, z0},
		Max: mgl32.Vec3{x0 + extent, hi, z0 + extent},
	}
}
