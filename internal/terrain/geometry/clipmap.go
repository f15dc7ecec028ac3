package geometry

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
)

// Topology errors.
var (
	ErrGridSize   = errors.New("clipmap grid size must be 2^k - 1 with k >= 3")
	ErrPatchSize  = errors.New("patch size must be 2^k + 1 with k >= 1")
	ErrIndexRange = errors.New("topology exceeds 16-bit index range")
)

// Trim identifies which two sides of the ring interior an L-shaped trim covers.
type Trim int

// Trim orientations, each a quarter turn from the previous one.
const (
	TrimTopLeft Trim = iota
	TrimTopRight
	TrimBottomRight
	TrimBottomLeft
)

// Trims lists every orientation.
var Trims = [4]Trim{TrimTopLeft, TrimTopRight, TrimBottomRight, TrimBottomLeft}

func (t Trim) String() string {
	switch t {
	case TrimTopLeft:
		return "top-left"
	case TrimTopRight:
		return "top-right"
	case TrimBottomRight:
		return "bottom-right"
	case TrimBottomLeft:
		return "bottom-left"
	default:
		return fmt.Sprintf("Trim(%d)", int(t))
	}
}

// Opposite returns the trim covering the other two sides.
func (t Trim) Opposite() Trim {
	return (t + 2) & 3
}

// TrimFor returns the trim a level draws when its finer level sits at grid offset (ox, oy)
// inside it. Legal offsets are m-1 and m on each axis; anything else is a placement bug.
func TrimFor(ox, oy, m int) Trim {
	switch {
	case ox == m && oy == m:
		return TrimTopLeft
	case ox == m-1 && oy == m:
		return TrimTopRight
	case ox == m-1 && oy == m-1:
		return TrimBottomRight
	case ox == m && oy == m-1:
		return TrimBottomLeft
	}
	panic(fmt.Sprintf("geometry: finer level offset (%d,%d) outside legal set for m=%d", ox, oy, m))
}

// FinerOffset is the inverse of TrimFor.
func FinerOffset(t Trim, m int) (ox, oy int) {
	switch t {
	case TrimTopLeft:
		return m, m
	case TrimTopRight:
		return m - 1, m
	case TrimBottomRight:
		return m - 1, m - 1
	case TrimBottomLeft:
		return m, m - 1
	}
	panic(fmt.Sprintf("geometry: unknown trim %d", int(t)))
}

// Mesh is a grid-vertex buffer with the strip that draws it.
type Mesh struct {
	Vertices []render.GridVertex
	Indices  []uint16
}

// Origin is a block's minimum grid corner inside its level.
type Origin struct {
	X, Y int
}

// Clipmap holds the shared topology of every clipmap level.
type Clipmap struct {
	Size      int // N, vertices per level side
	BlockSize int // M = (N+1)/4

	Block  Mesh // M x M
	Fixups Mesh // four M x 3 pieces, FixupVertices each
	Trims  Mesh // four L shapes, TrimVertices each
	Stitch Mesh // zero-area perimeter triangles

	RingBlocks   []Origin
	CenterBlocks []Origin
}

// BlockIndexCount returns 2M^2 - 4.
func BlockIndexCount(m int) int { return StripLength(m, m) }

// FixupIndexCount returns 4M + 2.
func FixupIndexCount(m int) int { return StripLength(m, 3) }

// TrimIndexCount returns 8M + 4.
func TrimIndexCount(m int) int { return StripLength(2*m+1, 2) + 2 + StripLength(2*m, 2) }

// StitchIndexCount returns 8(N-1) - 1.
func StitchIndexCount(n int) int { return 4*StitchTriangles(n) - 1 }

// StitchTriangles returns the number of stitch triangles around an N-vertex level.
func StitchTriangles(n int) int { return 2 * (n - 1) }

// FixupVertices returns the vertex count of one fix-up piece.
func FixupVertices(m int) int { return 3 * m }

// TrimVertices returns the vertex count of one trim.
func TrimVertices(m int) int { return 8*m + 2 }

// ValidGridSize reports whether n is 2^k - 1 with k >= 3.
func ValidGridSize(n int) bool {
	return n >= 7 && (n+1)&n == 0
}

// NewClipmap builds the topology for levels of n x n vertices.
func NewClipmap(n int) (*Clipmap, error) {
	if !ValidGridSize(n) {
		return nil, fmt.Errorf("%w: got %d", ErrGridSize, n)
	}
	m := (n + 1) / 4
	if m*m > 1<<16 {
		return nil, fmt.Errorf("%w: %dx%d block needs %d vertices", ErrIndexRange, m, m, m*m)
	}

	c := &Clipmap{Size: n, BlockSize: m}
	c.Block = buildBlock(m)
	c.Fixups = buildFixups(m)
	c.Trims = buildTrims(m)
	c.Stitch = buildStitch(n)

	edge := []int{0, m - 1, 2 * m, 3*m - 1}
	inner := func(v int) bool { return v == m-1 || v == 2*m }
	for _, y := range edge {
		for _, x := range edge {
			if inner(x) && inner(y) {
				continue
			}
			c.RingBlocks = append(c.RingBlocks, Origin{x, y})
		}
	}
	for _, y := range []int{m, 2*m - 1} {
		for _, x := range []int{m, 2*m - 1} {
			c.CenterBlocks = append(c.CenterBlocks, Origin{x, y})
		}
	}
	return c, nil
}

// Center returns the grid coordinate of the level centre, (N-1)/2.
func (c *Clipmap) Center() int {
	return (c.Size - 1) / 2
}

// FixupBaseVertex returns the first vertex of fix-up piece k (0..3).
func (c *Clipmap) FixupBaseVertex(k int) int {
	return k * FixupVertices(c.BlockSize)
}

// TrimBaseVertex returns the first vertex of trim t.
func (c *Clipmap) TrimBaseVertex(t Trim) int {
	return int(t) * TrimVertices(c.BlockSize)
}

func buildBlock(m int) Mesh {
	mesh := Mesh{Vertices: make([]render.GridVertex, 0, m*m)}
	for y := 0; y < m; y++ {
		for x := 0; x < m; x++ {
			mesh.Vertices = append(mesh.Vertices, render.GridVertex{X: int16(x), Y: int16(y)})
		}
	}
	mesh.Indices = AppendGridStrip(make([]uint16, 0, BlockIndexCount(m)), m, m, 0)
	return mesh
}

// buildFixups lays out the left piece, (u, v) -> (u, 2M-2+v), and its three rotations
// about the level centre. All four share one index strip.
func buildFixups(m int) Mesh {
	center := 2*m - 1
	mesh := Mesh{Vertices: make([]render.GridVertex, 0, 4*FixupVertices(m))}
	for k := 0; k < 4; k++ {
		for v := 0; v < 3; v++ {
			for u := 0; u < m; u++ {
				x, y := rotate(u, 2*m-2+v, center, k)
				mesh.Vertices = append(mesh.Vertices, render.GridVertex{X: int16(x), Y: int16(y)})
			}
		}
	}
	mesh.Indices = AppendGridStrip(make([]uint16, 0, FixupIndexCount(m)), m, 3, 0)
	return mesh
}

// buildTrims lays out the top-left L and its rotations. The horizontal arm spans
// x in [M-1, 3M-1], y in [M-1, M]; the vertical arm spans x in [M-1, M], y in [M, 3M-1]
// in the frame (u, v) -> (M-v, M+u).
func buildTrims(m int) Mesh {
	center := 2*m - 1
	w := 2*m + 1

	var canonical [][2]int
	for v := 0; v < 2; v++ {
		for u := 0; u < w; u++ {
			canonical = append(canonical, [2]int{m - 1 + u, m - 1 + v})
		}
	}
	for v := 0; v < 2; v++ {
		for u := 0; u < 2*m; u++ {
			canonical = append(canonical, [2]int{m - v, m + u})
		}
	}

	mesh := Mesh{Vertices: make([]render.GridVertex, 0, 4*len(canonical))}
	for _, t := range Trims {
		for _, p := range canonical {
			x, y := rotate(p[0], p[1], center, int(t))
			mesh.Vertices = append(mesh.Vertices, render.GridVertex{X: int16(x), Y: int16(y)})
		}
	}

	horizontal := AppendGridStrip(make([]uint16, 0, TrimIndexCount(m)), w, 2, 0)
	vertical := AppendGridStrip(nil, 2*m, 2, 2*w)
	mesh.Indices = JoinStrip(horizontal, vertical)
	return mesh
}

// buildStitch walks the level perimeter starting at (0,0) and emits the triangles
// (p[2i], p[2i+1], p[2i+2]) as one strip: a b c c c d e e e ...
func buildStitch(n int) Mesh {
	last := n - 1
	mesh := Mesh{Vertices: make([]render.GridVertex, 0, 4*last)}
	add := func(x, y int) {
		mesh.Vertices = append(mesh.Vertices, render.GridVertex{X: int16(x), Y: int16(y)})
	}
	for x := 0; x < last; x++ {
		add(x, 0)
	}
	for y := 0; y < last; y++ {
		add(last, y)
	}
	for x := last; x > 0; x-- {
		add(x, last)
	}
	for y := last; y > 0; y-- {
		add(0, y)
	}

	count := len(mesh.Vertices)
	at := func(i int) uint16 { return uint16(i % count) }
	tris := StitchTriangles(n)
	idx := make([]uint16, 0, StitchIndexCount(n))
	idx = append(idx, at(0), at(1), at(2))
	for i := 1; i < tris; i++ {
		idx = append(idx, at(2*i), at(2*i), at(2*i+1), at(2*i+2))
	}
	mesh.Indices = idx
	return mesh
}
