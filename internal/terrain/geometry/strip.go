// Package geometry builds the shared vertex and index topology both terrain strategies
// draw with: clipmap blocks, fix-ups, trims and stitches, and mipmap patch lists.
//
// Grid coordinates are (x, y) with y mapping to world z. Every non-degenerate triangle
// has the same orientation: the triangle (x,y), (x,y+1), (x+1,y) is the reference.
package geometry

import (
	"github.com/Faultbox/midgard-terrain/internal/terrain/render"
)

// StripLength returns the number of indices GridStrip emits for a w x h vertex grid.
func StripLength(w, h int) int {
	if h < 2 {
		return 0
	}
	return 2*w*(h-1) + 2*(h-2)
}

// AppendGridStrip appends a triangle strip covering a w x h grid whose vertices are laid
// out row-major starting at base. Rows run along x; consecutive rows are joined by
// repeating the last vertex of one row and the first vertex of the next.
func AppendGridStrip(dst []uint16, w, h, base int) []uint16 {
	for r := 0; r < h-1; r++ {
		if r > 0 {
			dst = append(dst, uint16(base+r*w+w-1), uint16(base+r*w))
		}
		for x := 0; x < w; x++ {
			dst = append(dst, uint16(base+r*w+x), uint16(base+(r+1)*w+x))
		}
	}
	return dst
}

// JoinStrip appends next to dst with a degenerate bridge. dst must have even length so the
// first triangle of next keeps its winding.
func JoinStrip(dst, next []uint16) []uint16 {
	if len(dst) == 0 {
		return append(dst, next...)
	}
	if len(dst)%2 != 0 {
		panic("geometry: joining onto an odd-length strip flips winding")
	}
	dst = append(dst, dst[len(dst)-1], next[0])
	return append(dst, next...)
}

// StripTriangles calls fn for every triangle of a strip, degenerate ones included,
// with odd triangles reordered so all share one winding.
func StripTriangles(indices []uint16, fn func(a, b, c uint16)) {
	for k := 0; k+2 < len(indices); k++ {
		if k%2 == 0 {
			fn(indices[k], indices[k+1], indices[k+2])
		} else {
			fn(indices[k+1], indices[k], indices[k+2])
		}
	}
}

// ListTriangles calls fn for every triangle of an indexed triangle list.
func ListTriangles(indices []uint16, fn func(a, b, c uint16)) {
	for k := 0; k+2 < len(indices); k += 3 {
		fn(indices[k], indices[k+1], indices[k+2])
	}
}

// Degenerate reports whether a triangle repeats an index.
func Degenerate(a, b, c uint16) bool {
	return a == b || b == c || a == c
}

// RepeatedPairs counts adjacent equal indices, the intentional duplicates a strip uses to
// bridge rows.
func RepeatedPairs(indices []uint16) int {
	n := 0
	for i := 1; i < len(indices); i++ {
		if indices[i] == indices[i-1] {
			n++
		}
	}
	return n
}

// Orientation returns twice the signed area of (a, b, c) in grid space. Front-facing
// triangles are negative.
func Orientation(a, b, c render.GridVertex) int {
	abx, aby := int(b.X)-int(a.X), int(b.Y)-int(a.Y)
	acx, acy := int(c.X)-int(a.X), int(c.Y)-int(a.Y)
	return abx*acy - aby*acx
}

// rotate turns (x, y) by k quarter turns about (c, c), preserving winding.
func rotate(x, y, c, k int) (int, int) {
	for range k & 3 {
		x, y = 2*c-y, x
	}
	return x, y
}
