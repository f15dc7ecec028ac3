package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// EmptyAABB returns a box that any Extend call replaces.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// Empty reports whether the box contains no points.
func (b AABB) Empty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

// Extend grows the box to include p.
func (b AABB) Extend(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing both.
func (b AABB) Union(o AABB) AABB {
	if o.Empty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Center returns the box midpoint.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Plane is ax + by + cz + d = 0 with a unit normal pointing into the frustum.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Distance returns the signed distance of p from the plane.
func (p Plane) Distance(v mgl32.Vec3) float32 {
	return p.Normal.Dot(v) + p.D
}

// Frustum is the six-plane view volume.
type Frustum struct {
	// Left, right, bottom, top, near, far.
	Planes [6]Plane
}

// NewFrustum extracts the planes of a combined projection*view matrix.
func NewFrustum(clip mgl32.Mat4) Frustum {
	// mgl32 matrices are column-major; Row(i) gives row i.
	r0, r1, r2, r3 := clip.Row(0), clip.Row(1), clip.Row(2), clip.Row(3)
	var f Frustum
	f.Planes[0] = plane(r3.Add(r0))
	f.Planes[1] = plane(r3.Sub(r0))
	f.Planes[2] = plane(r3.Add(r1))
	f.Planes[3] = plane(r3.Sub(r1))
	f.Planes[4] = plane(r3.Add(r2))
	f.Planes[5] = plane(r3.Sub(r2))
	return f
}

func plane(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{Normal: n, D: v.W()}
	}
	return Plane{Normal: n.Mul(1 / l), D: v.W() / l}
}

// IntersectsAABB reports whether any part of b may be inside the frustum.
func (f Frustum) IntersectsAABB(b AABB) bool {
	for _, p := range f.Planes {
		// Positive vertex for this plane normal
		v := b.Max
		if p.Normal.X() < 0 {
			v[0] = b.Min.X()
		}
		if p.Normal.Y() < 0 {
			v[1] = b.Min.Y()
		}
		if p.Normal.Z() < 0 {
			v[2] = b.Min.Z()
		}
		if p.Distance(v) < 0 {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether p lies inside the frustum.
func (f Frustum) ContainsPoint(v mgl32.Vec3) bool {
	for _, p := range f.Planes {
		if p.Distance(v) < 0 {
			return false
		}
	}
	return true
}
