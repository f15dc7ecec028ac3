// Package picking casts rays from the screen into the terrain.
package picking

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// ScreenToRay converts pixel coordinates to a world-space ray through the near and far
// planes of invViewProj, the inverse view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj mgl32.Mat4) Ray {
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH

	near := unproject(invViewProj, mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := unproject(invViewProj, mgl32.Vec4{ndcX, ndcY, 1, 1})

	dir := far.Sub(near)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: near, Direction: dir}
}

func unproject(inv mgl32.Mat4, ndc mgl32.Vec4) mgl32.Vec3 {
	p := inv.Mul4x1(ndc)
	if p.W() != 0 {
		p = p.Mul(1 / p.W())
	}
	return p.Vec3()
}

// IntersectPlaneY intersects the ray with the horizontal plane y = planeY.
func (r Ray) IntersectPlaneY(planeY float32) (mgl32.Vec3, bool) {
	if math.Abs(float64(r.Direction.Y())) < 1e-3 {
		return mgl32.Vec3{}, false
	}
	t := (planeY - r.Origin.Y()) / r.Direction.Y()
	if t < 0 {
		return mgl32.Vec3{}, false
	}
	return r.At(t), true
}

// IntersectAABB returns the entry and exit distances of the ray through box. A ray
// starting inside the box has tmin 0.
func (r Ray) IntersectAABB(box camera.AABB) (tmin, tmax float32, hit bool) {
	tmin, tmax = 0, math.MaxFloat32
	for a := range 3 {
		o, d := r.Origin[a], r.Direction[a]
		if d == 0 {
			if o < box.Min[a] || o > box.Max[a] {
				return 0, 0, false
			}
			continue
		}
		t1 := (box.Min[a] - o) / d
		t2 := (box.Max[a] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, 0, false
		}
	}
	return tmin, tmax, true
}

// bisections refines the first crossing found by marching.
const bisections = 16

// PickTerrain marches the ray through the terrain bounds in steps of the given length and
// returns the first point where it passes below the surface. Heights are fetched in one
// batch per march.
func PickTerrain(r Ray, s terrain.Service, bounds camera.AABB, step float32) (mgl32.Vec3, bool) {
	if bounds.Empty() || step <= 0 {
		return mgl32.Vec3{}, false
	}
	t0, t1, ok := r.IntersectAABB(bounds)
	if !ok {
		return mgl32.Vec3{}, false
	}

	n := int(math.Ceil(float64((t1-t0)/step))) + 1
	points := make([]mgl32.Vec2, n)
	ts := make([]float32, n)
	for i := range n {
		ts[i] = min(t0+float32(i)*step, t1)
		p := r.At(ts[i])
		points[i] = mgl32.Vec2{p.X(), p.Z()}
	}
	heights, _ := s.HeightAndNormalAt(points)

	above := func(t, h float32) bool { return r.At(t).Y() > h }
	if !above(ts[0], heights[0]) {
		return r.At(ts[0]), true
	}
	for i := 1; i < n; i++ {
		if above(ts[i], heights[i]) {
			continue
		}
		lo, hi := ts[i-1], ts[i]
		for range bisections {
			mid := (lo + hi) / 2
			p := r.At(mid)
			h, _ := s.HeightAndNormalAt([]mgl32.Vec2{{p.X(), p.Z()}})
			if above(mid, h[0]) {
				lo = mid
			} else {
				hi = mid
			}
		}
		return r.At(hi), true
	}
	return mgl32.Vec3{}, false
}
