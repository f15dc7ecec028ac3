package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Query answers Service requests straight from the CPU-resident height and normal fields.
type Query struct {
	heights HeightMap
	normals Normals
}

// NewQuery creates a query over h and n.
func NewQuery(h HeightMap, n Normals) *Query {
	return &Query{heights: h, normals: n}
}

// HeightAndNormalAt implements Service. Points outside the map clamp to its edge.
func (q *Query) HeightAndNormalAt(points []mgl32.Vec2) ([]float32, []mgl32.Vec3) {
	heights := make([]float32, len(points))
	normals := make([]mgl32.Vec3, len(points))
	for i, p := range points {
		heights[i] = q.heights.Interpolate(p.X(), p.Y())
		normals[i] = q.NormalAt(p.X(), p.Y())
	}
	return heights, normals
}

// HeightAt returns the interpolated surface height under (x, z).
func (q *Query) HeightAt(x, z float32) float32 {
	return q.heights.Interpolate(x, z)
}

// NormalAt returns the bilinearly blended, renormalized normal under (x, z).
func (q *Query) NormalAt(x, z float32) mgl32.Vec3 {
	fx := math.Floor(float64(x))
	fz := math.Floor(float64(z))
	ix, iz := int(fx), int(fz)
	tx := x - float32(fx)
	tz := z - float32(fz)

	n00 := q.normals.Normal(ix, iz)
	n10 := q.normals.Normal(ix+1, iz)
	n01 := q.normals.Normal(ix, iz+1)
	n11 := q.normals.Normal(ix+1, iz+1)

	top := n00.Mul(1 - tx).Add(n10.Mul(tx))
	bottom := n01.Mul(1 - tx).Add(n11.Mul(tx))
	n := top.Mul(1 - tz).Add(bottom.Mul(tz))
	if n.Len() < 1e-6 {
		return mgl32.Vec3{0, 1, 0}
	}
	return n.Normalize()
}
