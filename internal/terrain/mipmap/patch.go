package mipmap

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/internal/terrain/lod"
	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
)

// Patch is one square tile of the mipmap grid. Neighbors holds arena indices per
// lod.Side, -1 at the edge of the terrain.
type Patch struct {
	Index     int
	X, Y      int
	Origin    [2]int // height field coordinate of vertex (0, 0)
	Tier      int
	Code      lod.NeighborCode
	Neighbors [4]int

	metric   *lod.Metric
	center   mgl32.Vec3
	bounds   camera.AABB
	vertices render.BufferID
}

// newPatch measures the patch's error per tier and builds its vertex data.
func newPatch(h terrain.HeightMap, n terrain.Normals, index, x, y, size, tiers int) (*Patch, []render.MeshVertex) {
	p := &Patch{
		Index:  index,
		X:      x,
		Y:      y,
		Origin: [2]int{x * (size - 1), y * (size - 1)},
	}

	vertices := make([]render.MeshVertex, 0, size*size)
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			hx, hy := p.Origin[0]+i, p.Origin[1]+j
			pos := h.Position(hx, hy)
			lo = min(lo, pos.Y())
			hi = max(hi, pos.Y())
			vertices = append(vertices, render.MeshVertex{
				Position: pos,
				Normal:   n.Normal(hx, hy),
			})
		}
	}

	x0, z0 := float32(p.Origin[0]), float32(p.Origin[1])
	extent := float32(size - 1)
	p.bounds = camera.AABB{
		Min: mgl32.Vec3{x0, lo, z0},
		Max: mgl32.Vec3{x0 + extent, hi, z0 + extent},
	}
	p.center = p.bounds.Center()
	p.metric = lod.NewMetric(lod.TierDeltas(h, p.Origin[0], p.Origin[1], size-1, size-1, tiers))
	return p, vertices
}

// Center returns the world-space centre of the patch's bounding box.
func (p *Patch) Center() mgl32.Vec3 {
	return p.center
}

// Bounds returns the patch's world-space bounding box.
func (p *Patch) Bounds() camera.AABB {
	return p.bounds
}

// Metric returns the patch's per-tier error metric.
func (p *Patch) Metric() *lod.Metric {
	return p.metric
}

// VertexBuffer returns the patch's own vertex buffer.
func (p *Patch) VertexBuffer() render.BufferID {
	return p.vertices
}

// DistanceSquared returns the squared distance from viewer to the patch centre.
func (p *Patch) DistanceSquared(viewer mgl32.Vec3) float32 {
	d := viewer.Sub(p.center)
	return d.Dot(d)
}
