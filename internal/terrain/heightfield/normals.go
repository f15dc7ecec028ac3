package heightfield

import (
	"github.com/go-gl/mathgl/mgl32"
)

var up = mgl32.Vec3{0, 1, 0}

// Sampler is the elevation lookup NewNormalField derives normals from.
type Sampler interface {
	Width() int
	Height() int
	Sample(x, y int) float32
}

// NormalField holds one unit normal per height field sample.
type NormalField struct {
	width, height int
	data          []mgl32.Vec3
}

// NewNormalField computes per-sample normals from f.
//
// A sample's normal is the normalized sum of the face normals of the four quads that share
// it. Each quad normal is the normalized sum of its two normalized triangle normals. A quad
// that falls outside the grid contributes an up vector instead, which keeps map edges lit
// like flat ground.
func NewNormalField(f Sampler) *NormalField {
	w, h := f.Width(), f.Height()
	quads := make([]mgl32.Vec3, (w-1)*(h-1))
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			quads[y*(w-1)+x] = quadNormal(f, x, y)
		}
	}

	n := &NormalField{width: w, height: h, data: make([]mgl32.Vec3, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum mgl32.Vec3
			for _, q := range [4][2]int{{x - 1, y - 1}, {x, y - 1}, {x - 1, y}, {x, y}} {
				qx, qy := q[0], q[1]
				if qx < 0 || qy < 0 || qx >= w-1 || qy >= h-1 {
					sum = sum.Add(up)
					continue
				}
				sum = sum.Add(quads[qy*(w-1)+qx])
			}
			n.data[y*w+x] = normalize(sum)
		}
	}
	return n
}

// quadNormal returns the normal of the quad whose minimum corner is (x, y), split into the
// triangles (p00, p01, p10) and (p01, p11, p10).
func quadNormal(f Sampler, x, y int) mgl32.Vec3 {
	p00 := mgl32.Vec3{float32(x), f.Sample(x, y), float32(y)}
	p10 := mgl32.Vec3{float32(x + 1), f.Sample(x+1, y), float32(y)}
	p01 := mgl32.Vec3{float32(x), f.Sample(x, y+1), float32(y + 1)}
	p11 := mgl32.Vec3{float32(x + 1), f.Sample(x+1, y+1), float32(y + 1)}

	t1 := normalize(p01.Sub(p00).Cross(p10.Sub(p00)))
	t2 := normalize(p11.Sub(p01).Cross(p10.Sub(p01)))
	return normalize(t1.Add(t2))
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() < 1e-6 {
		return up
	}
	return v.Normalize()
}

// Width returns the number of normals along x.
func (n *NormalField) Width() int { return n.width }

// Height returns the number of normals along y.
func (n *NormalField) Height() int { return n.height }

// Normal returns the unit normal at integer coordinates, clamped to the grid.
func (n *NormalField) Normal(x, y int) mgl32.Vec3 {
	x = clamp(x, 0, n.width-1)
	y = clamp(y, 0, n.height-1)
	return n.data[y*n.width+x]
}
