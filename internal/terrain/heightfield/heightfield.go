// Package heightfield provides the read-only elevation and normal grids terrain
// renderers sample from.
package heightfield

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidDimensions is returned when the sample slice does not match the grid size.
var ErrInvalidDimensions = errors.New("invalid height field dimensions")

// Field is an immutable width x height grid of elevations. Sample (x, y) sits at world
// position (x, height, y). Every lookup outside the grid clamps to the nearest edge sample.
type Field struct {
	width, height int
	data          []float32
}

// New wraps data (row-major, y*width + x) as a height field. The slice is not copied.
func New(width, height int, data []float32) (*Field, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("%w: %d samples for %dx%d", ErrInvalidDimensions, len(data), width, height)
	}
	return &Field{width: width, height: height, data: data}, nil
}

// Flat returns a field of constant elevation.
func Flat(width, height int, elevation float32) *Field {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = elevation
	}
	return &Field{width: width, height: height, data: data}
}

// Width returns the number of samples along x.
func (f *Field) Width() int { return f.width }

// Height returns the number of samples along y.
func (f *Field) Height() int { return f.height }

// Data returns the underlying samples. Callers must not modify them.
func (f *Field) Data() []float32 { return f.data }

// Sample returns the elevation at integer coordinates, clamped to the grid.
func (f *Field) Sample(x, y int) float32 {
	x = clamp(x, 0, f.width-1)
	y = clamp(y, 0, f.height-1)
	return f.data[y*f.width+x]
}

// Interpolate returns the bilinearly interpolated elevation at fractional coordinates.
func (f *Field) Interpolate(x, y float32) float32 {
	fx := math.Floor(float64(x))
	fy := math.Floor(float64(y))
	ix, iy := int(fx), int(fy)
	tx := x - float32(fx)
	ty := y - float32(fy)

	h00 := f.Sample(ix, iy)
	h10 := f.Sample(ix+1, iy)
	h01 := f.Sample(ix, iy+1)
	h11 := f.Sample(ix+1, iy+1)

	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*ty
}

// Position returns the world-space position of sample (x, y).
func (f *Field) Position(x, y int) mgl32.Vec3 {
	return mgl32.Vec3{float32(x), f.Sample(x, y), float32(y)}
}

// MinMax returns the lowest and highest elevation.
func (f *Field) MinMax() (lo, hi float32) {
	lo, hi = f.data[0], f.data[0]
	for _, h := range f.data[1:] {
		if h < lo {
			lo = h
		}
		if h > hi {
			hi = h
		}
	}
	return lo, hi
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
