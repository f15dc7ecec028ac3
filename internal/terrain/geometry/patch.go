package geometry

import (
	"fmt"
	"math/bits"

	"github.com/Faultbox/midgard-terrain/internal/terrain/lod"
)

// PatchTopology describes the triangle lists of a square mipmap patch of Size x Size
// vertices at every tier and neighbor code.
type PatchTopology struct {
	Size  int
	tiers int
}

// ValidPatchSize reports whether p is 2^k + 1 with k >= 1.
func ValidPatchSize(p int) bool {
	return p >= 3 && (p-1)&(p-2) == 0
}

// NewPatchTopology validates size and returns its topology.
func NewPatchTopology(size int) (*PatchTopology, error) {
	if !ValidPatchSize(size) {
		return nil, fmt.Errorf("%w: got %d", ErrPatchSize, size)
	}
	if size*size > 1<<16 {
		return nil, fmt.Errorf("%w: %dx%d patch", ErrIndexRange, size, size)
	}
	return &PatchTopology{
		Size:  size,
		tiers: bits.TrailingZeros(uint(size-1)) + 1,
	}, nil
}

// Tiers returns log2(Size-1) + 1.
func (p *PatchTopology) Tiers() int { return p.tiers }

// Step returns the vertex stride of tier t.
func (p *PatchTopology) Step(t int) int {
	p.checkTier(t)
	return 1 << t
}

// Cells returns the number of cells per patch side at tier t.
func (p *PatchTopology) Cells(t int) int {
	return (p.Size - 1) / p.Step(t)
}

// Key names the index list for (tier, code), for use as a cache key. Tier 0 maps every
// code to one key.
func (p *PatchTopology) Key(t int, code lod.NeighborCode) string {
	code = p.effective(t, code)
	return fmt.Sprintf("patch/%d/t%d/c%d", p.Size, t, code)
}

// IndexCount returns the length of Indices(t, code) without building it.
func (p *PatchTopology) IndexCount(t int, code lod.NeighborCode) int {
	code = p.effective(t, code)
	cells := p.Cells(t)
	tris := 0
	for cy := 0; cy < cells; cy++ {
		for cx := 0; cx < cells; cx++ {
			l, r, tp, b := edgeFlags(code, cx, cy, cells)
			k := count(l, r, tp, b)
			if k == 0 {
				tris += 2
			} else {
				tris += 4 + k
			}
		}
	}
	return 3 * tris
}

// Indices builds the triangle list for tier t. Cells adjacent to a side flagged in code
// are drawn as a fan from the cell centre that includes the midpoint of the flagged side,
// matching the finer neighbor's vertices along the shared edge.
func (p *PatchTopology) Indices(t int, code lod.NeighborCode) []uint16 {
	code = p.effective(t, code)
	step := p.Step(t)
	cells := p.Cells(t)

	at := func(x, y int) uint16 { return uint16(y*p.Size + x) }
	out := make([]uint16, 0, p.IndexCount(t, code))
	half := step / 2

	for cy := 0; cy < cells; cy++ {
		for cx := 0; cx < cells; cx++ {
			x0, y0 := cx*step, cy*step
			x1, y1 := x0+step, y0+step

			left, right, top, bottom := edgeFlags(code, cx, cy, cells)
			if count(left, right, top, bottom) == 0 {
				out = append(out,
					at(x0, y0), at(x0, y1), at(x1, y0),
					at(x0, y1), at(x1, y1), at(x1, y0),
				)
				continue
			}

			// Perimeter (0,0) -> (0,1) -> (1,1) -> (1,0) -> (0,0) with flagged midpoints.
			ring := make([]uint16, 0, 9)
			ring = append(ring, at(x0, y0))
			if left {
				ring = append(ring, at(x0, y0+half))
			}
			ring = append(ring, at(x0, y1))
			if bottom {
				ring = append(ring, at(x0+half, y1))
			}
			ring = append(ring, at(x1, y1))
			if right {
				ring = append(ring, at(x1, y0+half))
			}
			ring = append(ring, at(x1, y0))
			if top {
				ring = append(ring, at(x0+half, y0))
			}
			ring = append(ring, at(x0, y0))

			mid := at(x0+half, y0+half)
			for i := 0; i+1 < len(ring); i++ {
				out = append(out, mid, ring[i], ring[i+1])
			}
		}
	}
	return out
}

func (p *PatchTopology) checkTier(t int) {
	if t < 0 || t >= p.tiers {
		panic(fmt.Sprintf("geometry: tier %d out of range [0,%d)", t, p.tiers))
	}
}

// effective drops the flags of tier 0, which has no finer tier to stitch to.
func (p *PatchTopology) effective(t int, code lod.NeighborCode) lod.NeighborCode {
	code.Decode() // panics above 15
	if p.Step(t) < 2 {
		return 0
	}
	return code
}

func edgeFlags(code lod.NeighborCode, cx, cy, cells int) (left, right, top, bottom bool) {
	return code.Has(lod.Left) && cx == 0,
		code.Has(lod.Right) && cx == cells-1,
		code.Has(lod.Top) && cy == 0,
		code.Has(lod.Bottom) && cy == cells-1
}

func count(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
