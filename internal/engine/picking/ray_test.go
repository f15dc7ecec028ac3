package picking

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/internal/terrain/heightfield"
)

func TestScreenToRayCentre(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 1, 1000)
	view := mgl32.LookAtV(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 10, -1}, mgl32.Vec3{0, 1, 0})
	inv := proj.Mul4(view).Inv()

	r := ScreenToRay(400, 400, 800, 800, inv)
	if !vecNear(r.Direction, mgl32.Vec3{0, 0, -1}, 1e-4) {
		t.Errorf("direction = %v, want (0, 0, -1)", r.Direction)
	}
	if !vecNear(r.Origin, mgl32.Vec3{0, 10, -1}, 1e-3) {
		t.Errorf("origin = %v, want the near plane centre", r.Origin)
	}
}

func TestIntersectPlaneY(t *testing.T) {
	r := Ray{Origin: mgl32.Vec3{1, 10, 2}, Direction: mgl32.Vec3{0, -1, 0}}
	p, ok := r.IntersectPlaneY(4)
	if !ok || !vecNear(p, mgl32.Vec3{1, 4, 2}, 1e-5) {
		t.Errorf("hit = %v %v", p, ok)
	}
	if _, ok := r.IntersectPlaneY(20); ok {
		t.Error("plane behind the ray should miss")
	}
	flat := Ray{Origin: mgl32.Vec3{0, 1, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	if _, ok := flat.IntersectPlaneY(0); ok {
		t.Error("parallel ray should miss")
	}
}

func TestIntersectAABB(t *testing.T) {
	box := camera.AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{10, 10, 10}}
	tests := []struct {
		name       string
		ray        Ray
		tmin, tmax float32
		hit        bool
	}{
		{"through", Ray{mgl32.Vec3{-5, 5, 5}, mgl32.Vec3{1, 0, 0}}, 5, 15, true},
		{"inside", Ray{mgl32.Vec3{5, 5, 5}, mgl32.Vec3{0, 1, 0}}, 0, 5, true},
		{"miss", Ray{mgl32.Vec3{-5, 20, 5}, mgl32.Vec3{1, 0, 0}}, 0, 0, false},
		{"away", Ray{mgl32.Vec3{-5, 5, 5}, mgl32.Vec3{-1, 0, 0}}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmin, tmax, hit := tt.ray.IntersectAABB(box)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && (tmin != tt.tmin || tmax != tt.tmax) {
				t.Errorf("t = [%v, %v], want [%v, %v]", tmin, tmax, tt.tmin, tt.tmax)
			}
		})
	}
}

func TestPickTerrain(t *testing.T) {
	f := heightfield.Flat(65, 65, 3)
	q := terrain.NewQuery(f, heightfield.NewNormalField(f))
	bounds := camera.AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{64, 10, 64}}

	r := Ray{Origin: mgl32.Vec3{10, 50, 10}, Direction: mgl32.Vec3{1, -1, 0}.Normalize()}
	p, ok := PickTerrain(r, q, bounds, 0.5)
	if !ok {
		t.Fatal("expected a hit")
	}
	if !vecNear(p, mgl32.Vec3{57, 3, 10}, 1e-2) {
		t.Errorf("hit = %v, want (57, 3, 10)", p)
	}

	up := Ray{Origin: mgl32.Vec3{10, 50, 10}, Direction: mgl32.Vec3{0, 1, 0}}
	if _, ok := PickTerrain(up, q, bounds, 0.5); ok {
		t.Error("ray pointing up should miss")
	}
	if _, ok := PickTerrain(r, q, camera.EmptyAABB(), 0.5); ok {
		t.Error("empty bounds should miss")
	}
}

// vecNear compares component-wise with an absolute tolerance.
func vecNear(a, b mgl32.Vec3, eps float32) bool {
	for i := range a {
		if d := a[i] - b[i]; d > eps || d < -eps {
			return false
		}
	}
	return true
}
